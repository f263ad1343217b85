// Package domain holds the identifier types shared across the ledger.
//
// Distinct named types keep principals and remittance ids from being mixed
// up at call sites; the compiler rejects passing one where the other is
// expected.
package domain

import (
	"strconv"
	"strings"

	dErrors "swiftremit/pkg/domain-errors"
)

// Principal is an opaque account identity: a sender, an agent, the admin,
// the custody account or an asset reference.
type Principal string

func (p Principal) String() string { return string(p) }
func (p Principal) IsZero() bool   { return p == "" }

// RemittanceID is the ledger-assigned identifier of a remittance. Ids start
// at 1 and are never reused.
type RemittanceID uint64

func (id RemittanceID) String() string { return strconv.FormatUint(uint64(id), 10) }
func (id RemittanceID) IsZero() bool   { return id == 0 }

// ParseRemittanceID parses a decimal remittance id from a trust boundary.
// Zero parses: it is never assigned, so lookups report it as not found.
func ParseRemittanceID(s string) (RemittanceID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeBadRequest, "remittance id required")
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid remittance id")
	}
	return RemittanceID(v), nil
}

// ParseRemittanceIDs parses a comma separated list, skipping empty items.
func ParseRemittanceIDs(s string) ([]RemittanceID, error) {
	var ids []RemittanceID
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id, err := ParseRemittanceID(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
