package models

import (
	"math"
	"strconv"

	"swiftremit/pkg/amount"
	id "swiftremit/pkg/domain"
	dErrors "swiftremit/pkg/domain-errors"
)

// MaxFeeBps is 100%.
const MaxFeeBps uint32 = amount.BasisPointsScale

// Config is the ledger-wide configuration, loaded fresh from storage at the
// start of every operation.
type Config struct {
	Admin           id.Principal  `json:"admin"`
	Asset           id.Principal  `json:"asset"`
	FeeBps          uint32        `json:"fee_bps"`
	Counter         uint64        `json:"counter"`
	AccumulatedFees amount.Amount `json:"accumulated_fees"`
	Paused          bool          `json:"paused"`
}

// ValidateFeeBps rejects rates above 100%.
func ValidateFeeBps(bps uint32) error {
	if bps > MaxFeeBps {
		return dErrors.New(dErrors.CodeInvalidFeeBps, "fee must be between 0 and "+strconv.FormatUint(uint64(MaxFeeBps), 10)+" basis points")
	}
	return nil
}

// NextRemittanceID returns counter+1 without mutating the config.
func (c *Config) NextRemittanceID() (id.RemittanceID, error) {
	if c.Counter == math.MaxUint64 {
		return 0, dErrors.New(dErrors.CodeOverflow, "remittance id space exhausted")
	}
	return id.RemittanceID(c.Counter + 1), nil
}

// FeeFor computes the fee for amt at the configured rate.
func (c *Config) FeeFor(amt amount.Amount) (amount.Amount, error) {
	fee, err := amount.FeeFor(amt, c.FeeBps)
	if err != nil {
		return amount.Zero, dErrors.Wrap(err, dErrors.CodeOverflow, "fee computation overflowed")
	}
	return fee, nil
}
