// Package validation checks principals before funds move.
package validation

import (
	"unicode"
	"unicode/utf8"

	id "swiftremit/pkg/domain"
	dErrors "swiftremit/pkg/domain-errors"
)

// MaxPrincipalLength bounds principal size in bytes.
const MaxPrincipalLength = 128

// Principal checks that p is a well-formed account identifier: non-empty,
// at most MaxPrincipalLength bytes of valid UTF-8, printable and without
// whitespace.
func Principal(p id.Principal) error {
	s := string(p)
	if s == "" {
		return dErrors.New(dErrors.CodeInvalidAddress, "address is required")
	}
	if len(s) > MaxPrincipalLength {
		return dErrors.New(dErrors.CodeInvalidAddress, "address is too long")
	}
	if !utf8.ValidString(s) {
		return dErrors.New(dErrors.CodeInvalidAddress, "address is not valid UTF-8")
	}
	for _, r := range s {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return dErrors.New(dErrors.CodeInvalidAddress, "address contains invalid characters")
		}
	}
	return nil
}

// Recipient checks p as the destination of a transfer out of custody.
// Paying the custody account itself would strand the funds.
func Recipient(p, custody id.Principal) error {
	if err := Principal(p); err != nil {
		return err
	}
	if p == custody {
		return dErrors.New(dErrors.CodeInvalidAddress, "recipient cannot be the custody account")
	}
	return nil
}

// Source checks p as the origin of a transfer into custody. Custody cannot
// escrow for itself: the self-transfer moves nothing and the record would be
// paid out of other senders' funds.
func Source(p, custody id.Principal) error {
	if err := Principal(p); err != nil {
		return err
	}
	if p == custody {
		return dErrors.New(dErrors.CodeInvalidAddress, "sender cannot be the custody account")
	}
	return nil
}
