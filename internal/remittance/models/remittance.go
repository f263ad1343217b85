package models

import (
	"time"

	"swiftremit/pkg/amount"
	id "swiftremit/pkg/domain"
	dErrors "swiftremit/pkg/domain-errors"
)

// Remittance is the aggregate root of one escrowed transfer.
//
// Invariants:
//   - Amount is strictly positive
//   - 0 ≤ Fee ≤ Amount, fixed at creation from the fee rate in force then
//   - Status moves Pending → Completed or Pending → Cancelled, never back
//   - Expiry, when set, only limits confirmation; cancellation is never
//     time-limited
//
// The settlement marker is stored separately and is the authority on
// whether a payout happened; Status is never used for that check.
type Remittance struct {
	ID        id.RemittanceID `json:"id"`
	Sender    id.Principal    `json:"sender"`
	Agent     id.Principal    `json:"agent"`
	Amount    amount.Amount   `json:"amount"`
	Fee       amount.Amount   `json:"fee"`
	Status    Status          `json:"status"`
	Expiry    *time.Time      `json:"expiry,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewRemittance builds a Pending remittance.
func NewRemittance(
	remittanceID id.RemittanceID,
	sender, agent id.Principal,
	amt, fee amount.Amount,
	expiry *time.Time,
	now time.Time,
) (*Remittance, error) {
	if remittanceID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInternal, "remittance id must be assigned")
	}
	if !amt.IsPositive() {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "amount must be positive")
	}
	if fee.Sign() < 0 || fee.Cmp(amt) > 0 {
		return nil, dErrors.New(dErrors.CodeInternal, "fee must be between zero and the amount")
	}
	if sender.IsZero() || agent.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidAddress, "sender and agent are required")
	}
	var exp *time.Time
	if expiry != nil {
		e := expiry.UTC()
		exp = &e
	}
	return &Remittance{
		ID:        remittanceID,
		Sender:    sender,
		Agent:     agent,
		Amount:    amt,
		Fee:       fee,
		Status:    StatusPending,
		Expiry:    exp,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (r *Remittance) IsPending() bool { return r.Status == StatusPending }

// IsExpired reports whether now is strictly after the expiry. A remittance
// confirmed exactly at its expiry instant is still on time.
func (r *Remittance) IsExpired(now time.Time) bool {
	return r.Expiry != nil && now.After(*r.Expiry)
}

// Payout is the amount released to the agent on confirmation.
func (r *Remittance) Payout() (amount.Amount, error) {
	p, err := r.Amount.Sub(r.Fee)
	if err != nil {
		return amount.Zero, dErrors.Wrap(err, dErrors.CodeOverflow, "payout computation overflowed")
	}
	return p, nil
}

// CanComplete checks the status transition for a payout confirmation.
// Use with ApplyCompletion inside the unit of work.
func (r *Remittance) CanComplete() error {
	if !r.Status.CanTransitionTo(StatusCompleted) {
		return dErrors.New(dErrors.CodeInvalidStatus, "remittance is "+r.Status.String())
	}
	return nil
}

// ApplyCompletion marks the remittance Completed. Call CanComplete first.
func (r *Remittance) ApplyCompletion(now time.Time) {
	r.Status = StatusCompleted
	r.UpdatedAt = now
}

// CanCancel checks the status transition for a sender cancellation.
func (r *Remittance) CanCancel() error {
	if !r.Status.CanTransitionTo(StatusCancelled) {
		return dErrors.New(dErrors.CodeInvalidStatus, "remittance is "+r.Status.String())
	}
	return nil
}

func (r *Remittance) ApplyCancellation(now time.Time) {
	r.Status = StatusCancelled
	r.UpdatedAt = now
}
