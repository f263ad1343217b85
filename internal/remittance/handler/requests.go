package handler

import (
	"strings"
	"time"

	"swiftremit/pkg/amount"
	id "swiftremit/pkg/domain"
	dErrors "swiftremit/pkg/domain-errors"
)

// InitializeRequest is the body of POST /v1/ledger/initialize.
type InitializeRequest struct {
	Admin  string `json:"admin"`
	Asset  string `json:"asset"`
	FeeBps uint32 `json:"fee_bps"`
}

func (r *InitializeRequest) Validate() error {
	r.Admin = strings.TrimSpace(r.Admin)
	r.Asset = strings.TrimSpace(r.Asset)
	if r.Admin == "" || r.Asset == "" {
		return dErrors.New(dErrors.CodeBadRequest, "admin and asset are required")
	}
	return nil
}

// UpdateFeeRequest is the body of PUT /v1/ledger/fee.
type UpdateFeeRequest struct {
	FeeBps *uint32 `json:"fee_bps"`
}

func (r *UpdateFeeRequest) Validate() error {
	if r.FeeBps == nil {
		return dErrors.New(dErrors.CodeBadRequest, "fee_bps is required")
	}
	return nil
}

// WithdrawFeesRequest is the body of POST /v1/ledger/fees/withdraw.
type WithdrawFeesRequest struct {
	To string `json:"to"`
}

func (r *WithdrawFeesRequest) Validate() error {
	r.To = strings.TrimSpace(r.To)
	if r.To == "" {
		return dErrors.New(dErrors.CodeBadRequest, "to is required")
	}
	return nil
}

// CreateRemittanceRequest is the body of POST /v1/remittances. Sender
// defaults to the authenticated principal.
type CreateRemittanceRequest struct {
	Sender string        `json:"sender,omitempty"`
	Agent  string        `json:"agent"`
	Amount amount.Amount `json:"amount"`
	Expiry *time.Time    `json:"expiry,omitempty"`
}

func (r *CreateRemittanceRequest) Validate() error {
	r.Sender = strings.TrimSpace(r.Sender)
	r.Agent = strings.TrimSpace(r.Agent)
	if r.Agent == "" {
		return dErrors.New(dErrors.CodeBadRequest, "agent is required")
	}
	return nil
}

func (r *CreateRemittanceRequest) sender(authenticated id.Principal) id.Principal {
	if r.Sender == "" {
		return authenticated
	}
	return id.Principal(r.Sender)
}

// MintRequest is the body of POST /v1/dev/mint.
type MintRequest struct {
	Account string        `json:"account"`
	Amount  amount.Amount `json:"amount"`
}

func (r *MintRequest) Validate() error {
	r.Account = strings.TrimSpace(r.Account)
	if r.Account == "" {
		return dErrors.New(dErrors.CodeBadRequest, "account is required")
	}
	if !r.Amount.IsPositive() {
		return dErrors.New(dErrors.CodeInvalidAmount, "amount must be positive")
	}
	return nil
}
