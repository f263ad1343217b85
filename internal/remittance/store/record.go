package store

import (
	"time"

	"swiftremit/internal/remittance/models"
	"swiftremit/pkg/amount"
	id "swiftremit/pkg/domain"
)

// remittanceRecord is the stored form of a remittance. Integer keys keep the
// encoding compact and stable across field renames.
type remittanceRecord struct {
	ID        uint64        `cbor:"1,keyasint"`
	Sender    string        `cbor:"2,keyasint"`
	Agent     string        `cbor:"3,keyasint"`
	Amount    amount.Amount `cbor:"4,keyasint"`
	Fee       amount.Amount `cbor:"5,keyasint"`
	Status    string        `cbor:"6,keyasint"`
	Expiry    *time.Time    `cbor:"7,keyasint,omitempty"`
	CreatedAt time.Time     `cbor:"8,keyasint"`
	UpdatedAt time.Time     `cbor:"9,keyasint"`
}

func toRecord(r *models.Remittance) remittanceRecord {
	return remittanceRecord{
		ID:        uint64(r.ID),
		Sender:    r.Sender.String(),
		Agent:     r.Agent.String(),
		Amount:    r.Amount,
		Fee:       r.Fee,
		Status:    r.Status.String(),
		Expiry:    r.Expiry,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (rec remittanceRecord) toModel() *models.Remittance {
	return &models.Remittance{
		ID:        id.RemittanceID(rec.ID),
		Sender:    id.Principal(rec.Sender),
		Agent:     id.Principal(rec.Agent),
		Amount:    rec.Amount,
		Fee:       rec.Fee,
		Status:    models.Status(rec.Status),
		Expiry:    rec.Expiry,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

// settlementRecord is the value of a settlement marker. Only the key's
// existence matters; the timestamp is kept for audits.
type settlementRecord struct {
	SettledAt time.Time `cbor:"1,keyasint"`
}
