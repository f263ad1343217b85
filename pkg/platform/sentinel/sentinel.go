package sentinel

import "errors"

// Sentinel errors for storage and infrastructure facts. Backends return
// these (optionally wrapped) and the ledger service translates them into
// coded domain errors:
//   - ErrNotFound: key or record does not exist
//   - ErrAlreadyUsed: a set-once key has already been written
//   - ErrConflict: a concurrent unit of work won; retrying may succeed
//   - ErrUnavailable: the backend cannot be reached
//
// Validation failures belong in pkg/domain-errors instead.
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
