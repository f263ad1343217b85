// Package store gives typed access to the ledger's key space on top of a
// storage unit of work.
//
// Getters return sentinel.ErrNotFound for absent required keys (admin,
// asset, fee rate, remittances). Keys with a natural default (paused,
// counter, accumulated fees, agent registration, settlement markers) read
// as their zero value when absent.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"swiftremit/internal/remittance/models"
	"swiftremit/internal/storage"
	"swiftremit/pkg/amount"
	id "swiftremit/pkg/domain"
	"swiftremit/pkg/platform/sentinel"
)

// Reader reads ledger state.
type Reader struct {
	r storage.Reader
}

func NewReader(r storage.Reader) Reader {
	return Reader{r: r}
}

// Accessor reads and writes ledger state inside a unit of work.
type Accessor struct {
	Reader
	kv storage.KV
}

func New(kv storage.KV) Accessor {
	return Accessor{Reader: Reader{r: kv}, kv: kv}
}

func (r Reader) get(ctx context.Context, key storage.Key, v any) error {
	data, err := r.r.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := storage.Decode(data, v); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// getOrZero leaves v untouched when key is absent.
func (r Reader) getOrZero(ctx context.Context, key storage.Key, v any) error {
	err := r.get(ctx, key, v)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	return err
}

func (a Accessor) set(ctx context.Context, key storage.Key, v any) error {
	data, err := storage.Encode(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return a.kv.Set(ctx, key, data)
}

// Configuration

func (r Reader) HasAdmin(ctx context.Context) (bool, error) {
	return r.r.Has(ctx, keyAdmin)
}

func (r Reader) Admin(ctx context.Context) (id.Principal, error) {
	var s string
	if err := r.get(ctx, keyAdmin, &s); err != nil {
		return "", err
	}
	return id.Principal(s), nil
}

func (r Reader) Asset(ctx context.Context) (id.Principal, error) {
	var s string
	if err := r.get(ctx, keyAsset, &s); err != nil {
		return "", err
	}
	return id.Principal(s), nil
}

func (r Reader) FeeBps(ctx context.Context) (uint32, error) {
	var bps uint32
	if err := r.get(ctx, keyFeeBps, &bps); err != nil {
		return 0, err
	}
	return bps, nil
}

func (r Reader) Counter(ctx context.Context) (uint64, error) {
	var n uint64
	err := r.getOrZero(ctx, keyCounter, &n)
	return n, err
}

func (r Reader) AccumulatedFees(ctx context.Context) (amount.Amount, error) {
	var fees amount.Amount
	err := r.getOrZero(ctx, keyAccumulatedFees, &fees)
	return fees, err
}

func (r Reader) Paused(ctx context.Context) (bool, error) {
	var paused bool
	err := r.getOrZero(ctx, keyPaused, &paused)
	return paused, err
}

// Config loads the whole configuration. It returns sentinel.ErrNotFound when
// the ledger has not been initialized.
func (r Reader) Config(ctx context.Context) (*models.Config, error) {
	admin, err := r.Admin(ctx)
	if err != nil {
		return nil, err
	}
	asset, err := r.Asset(ctx)
	if err != nil {
		return nil, err
	}
	bps, err := r.FeeBps(ctx)
	if err != nil {
		return nil, err
	}
	counter, err := r.Counter(ctx)
	if err != nil {
		return nil, err
	}
	fees, err := r.AccumulatedFees(ctx)
	if err != nil {
		return nil, err
	}
	paused, err := r.Paused(ctx)
	if err != nil {
		return nil, err
	}
	return &models.Config{
		Admin:           admin,
		Asset:           asset,
		FeeBps:          bps,
		Counter:         counter,
		AccumulatedFees: fees,
		Paused:          paused,
	}, nil
}

func (a Accessor) SetAdmin(ctx context.Context, admin id.Principal) error {
	return a.set(ctx, keyAdmin, admin.String())
}

func (a Accessor) SetAsset(ctx context.Context, asset id.Principal) error {
	return a.set(ctx, keyAsset, asset.String())
}

func (a Accessor) SetFeeBps(ctx context.Context, bps uint32) error {
	return a.set(ctx, keyFeeBps, bps)
}

func (a Accessor) SetCounter(ctx context.Context, n uint64) error {
	return a.set(ctx, keyCounter, n)
}

func (a Accessor) SetAccumulatedFees(ctx context.Context, fees amount.Amount) error {
	return a.set(ctx, keyAccumulatedFees, fees)
}

func (a Accessor) SetPaused(ctx context.Context, paused bool) error {
	return a.set(ctx, keyPaused, paused)
}

// Remittances

func (r Reader) Remittance(ctx context.Context, remittanceID id.RemittanceID) (*models.Remittance, error) {
	var rec remittanceRecord
	if err := r.get(ctx, remittanceKey(remittanceID), &rec); err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// Remittances loads the given ids in ascending id order, skipping unknown
// ids.
func (r Reader) Remittances(ctx context.Context, ids []id.RemittanceID) ([]*models.Remittance, error) {
	keys := make([]storage.Key, 0, len(ids))
	seen := make(map[id.RemittanceID]struct{}, len(ids))
	for _, rid := range ids {
		if _, dup := seen[rid]; dup {
			continue
		}
		seen[rid] = struct{}{}
		keys = append(keys, remittanceKey(rid))
	}

	values, err := r.r.GetMany(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Remittance, 0, len(values))
	for key, data := range values {
		var rec remittanceRecord
		if err := storage.Decode(data, &rec); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out = append(out, rec.toModel())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (a Accessor) SaveRemittance(ctx context.Context, r *models.Remittance) error {
	return a.set(ctx, remittanceKey(r.ID), toRecord(r))
}

// Agents

func (r Reader) AgentRegistered(ctx context.Context, agent id.Principal) (bool, error) {
	var registered bool
	err := r.getOrZero(ctx, agentKey(agent), &registered)
	return registered, err
}

func (a Accessor) SetAgentRegistered(ctx context.Context, agent id.Principal, registered bool) error {
	return a.set(ctx, agentKey(agent), registered)
}

// Settlement markers

func (r Reader) HasSettlementMarker(ctx context.Context, remittanceID id.RemittanceID) (bool, error) {
	return r.r.Has(ctx, settlementKey(remittanceID))
}

// MarkSettled writes the set-once settlement marker. It returns
// sentinel.ErrAlreadyUsed if the remittance has been settled before.
func (a Accessor) MarkSettled(ctx context.Context, remittanceID id.RemittanceID, at time.Time) error {
	data, err := storage.Encode(settlementRecord{SettledAt: at.UTC()})
	if err != nil {
		return err
	}
	return a.kv.Insert(ctx, settlementKey(remittanceID), data)
}
