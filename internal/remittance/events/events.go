// Package events defines the structured events emitted on every ledger
// state transition.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"swiftremit/internal/remittance/models"
	"swiftremit/pkg/amount"
	id "swiftremit/pkg/domain"
	"swiftremit/pkg/requestcontext"
)

// Kind names an event type. Values are stable and used as Kafka headers and
// log attributes.
type Kind string

const (
	KindInitialized         Kind = "initialized"
	KindAgentRegistered     Kind = "agent_registered"
	KindAgentRemoved        Kind = "agent_removed"
	KindFeeUpdated          Kind = "fee_updated"
	KindRemittanceCreated   Kind = "remittance_created"
	KindRemittanceCompleted Kind = "remittance_completed"
	KindSettlementCompleted Kind = "settlement_completed"
	KindRemittanceCancelled Kind = "remittance_cancelled"
	KindFeesWithdrawn       Kind = "fees_withdrawn"
	KindPaused              Kind = "paused"
	KindUnpaused            Kind = "unpaused"
)

// Event is one emitted transition. Fields not relevant to a kind are left
// empty.
type Event struct {
	ID           uuid.UUID       `json:"id"`
	Kind         Kind            `json:"kind"`
	Timestamp    time.Time       `json:"timestamp"`
	RequestID    string          `json:"request_id,omitempty"`
	RemittanceID id.RemittanceID `json:"remittance_id,omitempty"`
	Sender       id.Principal    `json:"sender,omitempty"`
	Agent        id.Principal    `json:"agent,omitempty"`
	Admin        id.Principal    `json:"admin,omitempty"`
	To           id.Principal    `json:"to,omitempty"`
	Asset        id.Principal    `json:"asset,omitempty"`
	Amount       *amount.Amount  `json:"amount,omitempty"`
	Fee          *amount.Amount  `json:"fee,omitempty"`
	Payout       *amount.Amount  `json:"payout,omitempty"`
	FeeBps       *uint32         `json:"fee_bps,omitempty"`
	OldFeeBps    *uint32         `json:"old_fee_bps,omitempty"`
}

// Key is the partition key used by ordered sinks: all events of one
// remittance share a key, ledger-wide events share another.
func (e Event) Key() string {
	if !e.RemittanceID.IsZero() {
		return "remittance/" + e.RemittanceID.String()
	}
	return "ledger"
}

func newEvent(ctx context.Context, kind Kind) Event {
	return Event{
		ID:        uuid.New(),
		Kind:      kind,
		Timestamp: requestcontext.Now(ctx),
		RequestID: requestcontext.RequestID(ctx),
	}
}

func ptr[T any](v T) *T { return &v }

func Initialized(ctx context.Context, admin, asset id.Principal, feeBps uint32) Event {
	e := newEvent(ctx, KindInitialized)
	e.Admin, e.Asset, e.FeeBps = admin, asset, ptr(feeBps)
	return e
}

func AgentRegistered(ctx context.Context, agent, admin id.Principal) Event {
	e := newEvent(ctx, KindAgentRegistered)
	e.Agent, e.Admin = agent, admin
	return e
}

func AgentRemoved(ctx context.Context, agent, admin id.Principal) Event {
	e := newEvent(ctx, KindAgentRemoved)
	e.Agent, e.Admin = agent, admin
	return e
}

func FeeUpdated(ctx context.Context, admin id.Principal, oldBps, newBps uint32) Event {
	e := newEvent(ctx, KindFeeUpdated)
	e.Admin, e.OldFeeBps, e.FeeBps = admin, ptr(oldBps), ptr(newBps)
	return e
}

func RemittanceCreated(ctx context.Context, r *models.Remittance, asset id.Principal) Event {
	e := newEvent(ctx, KindRemittanceCreated)
	e.RemittanceID, e.Sender, e.Agent, e.Asset = r.ID, r.Sender, r.Agent, asset
	e.Amount, e.Fee = ptr(r.Amount), ptr(r.Fee)
	return e
}

func RemittanceCompleted(ctx context.Context, r *models.Remittance, asset id.Principal, payout amount.Amount) Event {
	e := newEvent(ctx, KindRemittanceCompleted)
	e.RemittanceID, e.Sender, e.Agent, e.Asset = r.ID, r.Sender, r.Agent, asset
	e.Payout = ptr(payout)
	return e
}

// SettlementCompleted is the settlement-level record emitted alongside
// RemittanceCompleted for downstream reconciliation.
func SettlementCompleted(ctx context.Context, r *models.Remittance, asset id.Principal, payout amount.Amount) Event {
	e := newEvent(ctx, KindSettlementCompleted)
	e.RemittanceID, e.Sender, e.Agent, e.Asset = r.ID, r.Sender, r.Agent, asset
	e.Payout = ptr(payout)
	return e
}

func RemittanceCancelled(ctx context.Context, r *models.Remittance, asset id.Principal) Event {
	e := newEvent(ctx, KindRemittanceCancelled)
	e.RemittanceID, e.Sender, e.Agent, e.Asset = r.ID, r.Sender, r.Agent, asset
	e.Amount = ptr(r.Amount)
	return e
}

func FeesWithdrawn(ctx context.Context, admin, to, asset id.Principal, amt amount.Amount) Event {
	e := newEvent(ctx, KindFeesWithdrawn)
	e.Admin, e.To, e.Asset, e.Amount = admin, to, asset, ptr(amt)
	return e
}

func Paused(ctx context.Context, admin id.Principal) Event {
	e := newEvent(ctx, KindPaused)
	e.Admin = admin
	return e
}

func Unpaused(ctx context.Context, admin id.Principal) Event {
	e := newEvent(ctx, KindUnpaused)
	e.Admin = admin
	return e
}
