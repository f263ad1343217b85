// Package assetledger is a fungible balance ledger for the settlement asset,
// stored in the same key space as the remittance ledger.
//
// When the context carries an open unit of work (storage.TxFrom), transfers
// join it, so a payout and the ledger state change it belongs to commit or
// roll back together.
package assetledger

import (
	"context"
	"errors"

	"swiftremit/internal/storage"
	"swiftremit/pkg/amount"
	id "swiftremit/pkg/domain"
	dErrors "swiftremit/pkg/domain-errors"
	"swiftremit/pkg/platform/sentinel"
)

// Ledger holds balances of one asset.
type Ledger struct {
	store storage.Store
	asset id.Principal
}

func New(st storage.Store, asset id.Principal) *Ledger {
	return &Ledger{store: st, asset: asset}
}

func (l *Ledger) Asset() id.Principal { return l.asset }

func (l *Ledger) balanceKey(account id.Principal) storage.Key {
	return storage.Key("balance/" + l.asset.String() + "/" + account.String())
}

func (l *Ledger) read(ctx context.Context, r storage.Reader, account id.Principal) (amount.Amount, error) {
	data, err := r.Get(ctx, l.balanceKey(account))
	if errors.Is(err, sentinel.ErrNotFound) {
		return amount.Zero, nil
	}
	if err != nil {
		return amount.Zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
	}
	var bal amount.Amount
	if err := storage.Decode(data, &bal); err != nil {
		return amount.Zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode balance")
	}
	return bal, nil
}

func (l *Ledger) write(ctx context.Context, kv storage.KV, account id.Principal, bal amount.Amount) error {
	data, err := storage.Encode(bal)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode balance")
	}
	if err := kv.Set(ctx, l.balanceKey(account), data); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write balance")
	}
	return nil
}

// Balance returns the balance of account; unknown accounts hold zero.
func (l *Ledger) Balance(ctx context.Context, account id.Principal) (amount.Amount, error) {
	var bal amount.Amount
	err := l.store.View(ctx, func(ctx context.Context, r storage.Reader) error {
		var err error
		bal, err = l.read(ctx, r, account)
		return err
	})
	return bal, err
}

// Transfer moves amt from one account to another. It fails with
// CodeInsufficientBalance, leaving both balances unchanged, when from holds
// less than amt.
func (l *Ledger) Transfer(ctx context.Context, from, to id.Principal, amt amount.Amount) error {
	if !amt.IsPositive() {
		return dErrors.New(dErrors.CodeInvalidAmount, "transfer amount must be positive")
	}
	if from.IsZero() || to.IsZero() {
		return dErrors.New(dErrors.CodeInvalidAddress, "transfer requires both accounts")
	}

	return l.store.RunInTx(ctx, func(ctx context.Context, kv storage.KV) error {
		fromBal, err := l.read(ctx, kv, from)
		if err != nil {
			return err
		}
		if fromBal.Cmp(amt) < 0 {
			return dErrors.New(dErrors.CodeInsufficientBalance, "insufficient balance for transfer")
		}
		if from == to {
			return nil
		}
		toBal, err := l.read(ctx, kv, to)
		if err != nil {
			return err
		}

		debited, err := fromBal.Sub(amt)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeOverflow, "balance underflow")
		}
		credited, err := toBal.Add(amt)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeOverflow, "balance overflow")
		}
		if err := l.write(ctx, kv, from, debited); err != nil {
			return err
		}
		return l.write(ctx, kv, to, credited)
	})
}

// Mint credits amt to account out of thin air. It backs the development
// faucet and test fixtures.
func (l *Ledger) Mint(ctx context.Context, account id.Principal, amt amount.Amount) (amount.Amount, error) {
	if !amt.IsPositive() {
		return amount.Zero, dErrors.New(dErrors.CodeInvalidAmount, "mint amount must be positive")
	}
	if account.IsZero() {
		return amount.Zero, dErrors.New(dErrors.CodeInvalidAddress, "mint requires an account")
	}
	var bal amount.Amount
	err := l.store.RunInTx(ctx, func(ctx context.Context, kv storage.KV) error {
		cur, err := l.read(ctx, kv, account)
		if err != nil {
			return err
		}
		if bal, err = cur.Add(amt); err != nil {
			return dErrors.Wrap(err, dErrors.CodeOverflow, "balance overflow")
		}
		return l.write(ctx, kv, account, bal)
	})
	return bal, err
}
