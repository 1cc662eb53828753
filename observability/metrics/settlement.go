package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics tracks the core settlement pipeline: purchases opened,
// settlements completed or failed, credentials issued and distributions paid
// out.
type SettlementMetrics struct {
	purchasesOpened   prometheus.Counter
	settlements       *prometheus.CounterVec
	cancellations     prometheus.Counter
	credentialsIssued prometheus.Counter
	distributedTotal  *prometheus.CounterVec
	settlementAmounts prometheus.Histogram
}

var (
	settlementOnce     sync.Once
	settlementRegistry *SettlementMetrics
)

// Settlement returns the singleton settlement metrics registry.
func Settlement() *SettlementMetrics {
	settlementOnce.Do(func() {
		settlementRegistry = &SettlementMetrics{
			purchasesOpened: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "accesspay",
				Subsystem: "settlement",
				Name:      "purchases_opened_total",
				Help:      "Count of purchases opened into escrow.",
			}),
			settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "accesspay",
				Subsystem: "settlement",
				Name:      "settlements_total",
				Help:      "Count of settlement attempts segmented by outcome.",
			}, []string{"outcome"}),
			cancellations: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "accesspay",
				Subsystem: "settlement",
				Name:      "cancellations_total",
				Help:      "Count of purchases cancelled and refunded.",
			}),
			credentialsIssued: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "accesspay",
				Subsystem: "settlement",
				Name:      "credentials_issued_total",
				Help:      "Count of access credentials issued to buyers.",
			}),
			distributedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "accesspay",
				Subsystem: "settlement",
				Name:      "distributed_units_total",
				Help:      "Sum of distributed amounts segmented by recipient role.",
			}, []string{"role"}),
			settlementAmounts: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "accesspay",
				Subsystem: "settlement",
				Name:      "amount_units",
				Help:      "Distribution of settled purchase amounts in base units.",
				Buckets:   prometheus.ExponentialBuckets(1000, 10, 8),
			}),
		}
		prometheus.MustRegister(
			settlementRegistry.purchasesOpened,
			settlementRegistry.settlements,
			settlementRegistry.cancellations,
			settlementRegistry.credentialsIssued,
			settlementRegistry.distributedTotal,
			settlementRegistry.settlementAmounts,
		)
	})
	return settlementRegistry
}

// RecordPurchaseOpened increments the opened-purchase counter.
func (m *SettlementMetrics) RecordPurchaseOpened() {
	if m == nil {
		return
	}
	m.purchasesOpened.Inc()
}

// RecordSettlement records one settlement attempt and, on success, the settled
// amount.
func (m *SettlementMetrics) RecordSettlement(outcome string, amount uint64) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.settlements.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		m.settlementAmounts.Observe(float64(amount))
		m.credentialsIssued.Inc()
	}
}

// RecordCancellation increments the cancellation counter.
func (m *SettlementMetrics) RecordCancellation() {
	if m == nil {
		return
	}
	m.cancellations.Inc()
}

// RecordDistribution accumulates the amount paid to one recipient role
// (platform, collaborator or creator).
func (m *SettlementMetrics) RecordDistribution(role string, amount uint64) {
	if m == nil {
		return
	}
	if role == "" {
		role = "unknown"
	}
	m.distributedTotal.WithLabelValues(role).Add(float64(amount))
}
