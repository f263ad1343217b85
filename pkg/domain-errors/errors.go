// Package domainerrors defines the coded errors returned by ledger services.
//
// Stores return sentinel errors from pkg/platform/sentinel; services
// translate them into a *Error carrying a Code, and transports map codes to
// protocol status values. Every coded error means the operation had no
// effect.
package domainerrors

import (
	"errors"
)

// Code identifies an error kind. The string value is part of the public API
// and is returned to clients unchanged.
type Code string

// Ledger error kinds.
const (
	CodeAlreadyInitialized  Code = "already_initialized"
	CodeNotInitialized      Code = "not_initialized"
	CodeInvalidAmount       Code = "invalid_amount"
	CodeInvalidFeeBps       Code = "invalid_fee_bps"
	CodeAgentNotRegistered  Code = "agent_not_registered"
	CodeRemittanceNotFound  Code = "remittance_not_found"
	CodeInvalidStatus       Code = "invalid_status"
	CodeOverflow            Code = "overflow"
	CodeNoFeesToWithdraw    Code = "no_fees_to_withdraw"
	CodeInvalidAddress      Code = "invalid_address"
	CodeSettlementExpired   Code = "settlement_expired"
	CodeDuplicateSettlement Code = "duplicate_settlement"
	CodeContractPaused      Code = "contract_paused"
)

// Ambient error kinds.
const (
	CodeUnauthorized        Code = "unauthorized"
	CodeInsufficientBalance Code = "insufficient_balance"
	CodeBadRequest          Code = "bad_request"
	CodeConflict            Code = "conflict"
	CodeInternal            Code = "internal_error"
	CodeTimeout             Code = "timeout"
)

// Error is a coded domain error. Err, when set, is the underlying cause and
// is never shown to clients.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to err. A nil err yields nil.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether the outermost coded error in err's chain has code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// Is is an alias of HasCode kept for call sites that read better as a
// predicate on the error kind.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of the outermost coded error in err's chain, or
// the empty code if there is none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// MessageOf returns the client-facing message of the outermost coded error.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
