package models

import "time"

// Health is the liveness report of a ledger instance.
type Health struct {
	Operational bool      `json:"operational"`
	Initialized bool      `json:"initialized"`
	Timestamp   time.Time `json:"timestamp"`
}
