package models

import (
	id "swiftremit/pkg/domain"
	dErrors "swiftremit/pkg/domain-errors"
)

// Caller is the authenticated identity invoking an operation. Transports
// build it from verified credentials; services only compare it against the
// principal an operation requires.
type Caller struct {
	principal id.Principal
}

func NewCaller(p id.Principal) Caller {
	return Caller{principal: p}
}

// Anonymous is a caller with no identity; every Require fails.
var Anonymous = Caller{}

func (c Caller) Principal() id.Principal { return c.principal }

// Require fails with CodeUnauthorized unless the caller is p.
func (c Caller) Require(p id.Principal) error {
	if c.principal.IsZero() || p.IsZero() || c.principal != p {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not authorized for this operation")
	}
	return nil
}
