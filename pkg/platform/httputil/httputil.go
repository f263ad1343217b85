// Package httputil holds the JSON response and request helpers shared by the
// HTTP handlers.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "swiftremit/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Validatable request bodies normalize and check themselves after decoding.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v with status. Encoding failures after the header is sent
// cannot be reported to the client.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// StatusFor maps a domain error code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeRemittanceNotFound:
		return http.StatusNotFound
	case dErrors.CodeAlreadyInitialized,
		dErrors.CodeNotInitialized,
		dErrors.CodeInvalidStatus,
		dErrors.CodeDuplicateSettlement,
		dErrors.CodeSettlementExpired,
		dErrors.CodeNoFeesToWithdraw,
		dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeContractPaused:
		return http.StatusForbidden
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeInvalidAmount,
		dErrors.CodeInvalidFeeBps,
		dErrors.CodeAgentNotRegistered,
		dErrors.CodeInvalidAddress,
		dErrors.CodeOverflow,
		dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeInsufficientBalance:
		return http.StatusUnprocessableEntity
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as {"error","error_description"}. Uncoded and
// internal errors never expose their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	if code == "" {
		code = dErrors.CodeInternal
	}
	status := StatusFor(code)
	resp := ErrorResponse{Error: string(code)}
	if status != http.StatusInternalServerError {
		resp.ErrorDescription = dErrors.MessageOf(err)
	}
	WriteJSON(w, status, resp)
}

// DecodeAndPrepare decodes a JSON body into T and runs its Validate. On
// failure it writes the error response and returns false.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req := new(T)
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil && !errors.Is(err, io.EOF) {
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON request body"))
		return nil, false
	}
	if err := PT(req).Validate(); err != nil {
		logger.WarnContext(ctx, "invalid request",
			"error", err,
			"request_id", requestID,
		)
		if dErrors.CodeOf(err) == "" {
			err = dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error())
		}
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
