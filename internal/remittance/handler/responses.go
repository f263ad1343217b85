package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"swiftremit/internal/remittance/events"
	"swiftremit/internal/remittance/models"
	"swiftremit/pkg/amount"
	id "swiftremit/pkg/domain"
)

// Money is an amount in base units plus its major-unit rendering.
type Money struct {
	Value   amount.Amount `json:"value"`
	Display string        `json:"display"`
}

func (h *Handler) money(a amount.Amount) Money {
	return Money{
		Value:   a,
		Display: decimal.NewFromBigInt(a.Big(), -h.decimals).StringFixed(h.decimals),
	}
}

type RemittanceResponse struct {
	ID        id.RemittanceID `json:"id"`
	Sender    id.Principal    `json:"sender"`
	Agent     id.Principal    `json:"agent"`
	Amount    Money           `json:"amount"`
	Fee       Money           `json:"fee"`
	Payout    Money           `json:"payout"`
	Status    models.Status   `json:"status"`
	Expiry    *time.Time      `json:"expiry,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (h *Handler) toRemittanceResponse(r *models.Remittance) RemittanceResponse {
	// Payout cannot fail for a stored record: 0 <= fee <= amount.
	payout, _ := r.Payout()
	return RemittanceResponse{
		ID:        r.ID,
		Sender:    r.Sender,
		Agent:     r.Agent,
		Amount:    h.money(r.Amount),
		Fee:       h.money(r.Fee),
		Payout:    h.money(payout),
		Status:    r.Status,
		Expiry:    r.Expiry,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type RemittanceListResponse struct {
	Remittances []RemittanceResponse `json:"remittances"`
}

type ConfigResponse struct {
	Admin           id.Principal `json:"admin"`
	Asset           id.Principal `json:"asset"`
	FeeBps          uint32       `json:"fee_bps"`
	Counter         uint64       `json:"remittance_count"`
	AccumulatedFees Money        `json:"accumulated_fees"`
	Paused          bool         `json:"paused"`
}

type FeeResponse struct {
	FeeBps         uint32  `json:"fee_bps"`
	PreviousFeeBps *uint32 `json:"previous_fee_bps,omitempty"`
}

type PausedResponse struct {
	Paused bool `json:"paused"`
}

type FeesResponse struct {
	AccumulatedFees Money `json:"accumulated_fees"`
}

type WithdrawResponse struct {
	To        id.Principal `json:"to"`
	Withdrawn Money        `json:"withdrawn"`
}

type AgentResponse struct {
	Agent      id.Principal `json:"agent"`
	Registered bool         `json:"registered"`
}

type BalanceResponse struct {
	Account id.Principal `json:"account"`
	Balance Money        `json:"balance"`
}

type EventsResponse struct {
	Events []events.Event `json:"events"`
}
