package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the remittance ledger: operation
// outcomes and durations, plus lifecycle counters.
type Metrics struct {
	Operations         *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	RemittancesCreated prometheus.Counter
	Settlements        prometheus.Counter
	Cancellations      prometheus.Counter
	FeeWithdrawals     prometheus.Counter
	EventsPublished    *prometheus.CounterVec
}

// New registers the ledger metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "swiftremit_ledger_operations_total",
			Help: "Ledger operations by operation and outcome code",
		}, []string{"operation", "outcome"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swiftremit_ledger_operation_duration_seconds",
			Help:    "Duration of ledger operations including the storage unit of work",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		RemittancesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "swiftremit_remittances_created_total",
			Help: "Total number of remittances escrowed",
		}),
		Settlements: f.NewCounter(prometheus.CounterOpts{
			Name: "swiftremit_settlements_total",
			Help: "Total number of payouts confirmed",
		}),
		Cancellations: f.NewCounter(prometheus.CounterOpts{
			Name: "swiftremit_cancellations_total",
			Help: "Total number of remittances refunded to the sender",
		}),
		FeeWithdrawals: f.NewCounter(prometheus.CounterOpts{
			Name: "swiftremit_fee_withdrawals_total",
			Help: "Total number of platform fee withdrawals",
		}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "swiftremit_events_published_total",
			Help: "Ledger events handed to the publisher by kind",
		}, []string{"kind"}),
	}
}

// ObserveOperation records one operation. outcome is "ok" or an error code.
func (m *Metrics) ObserveOperation(operation, outcome string, start time.Time) {
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementEvent(kind string) {
	m.EventsPublished.WithLabelValues(kind).Inc()
}
