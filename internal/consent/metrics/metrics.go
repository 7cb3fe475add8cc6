package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the consent module.
// Tracks grant/revoke churn and the disclosure critical path.
type Metrics struct {
	ConsentsGranted    prometheus.Counter
	ConsentsUpdated    prometheus.Counter
	ConsentsRevoked    prometheus.Counter
	AccessesAudited    prometheus.Counter
	DisclosureDuration prometheus.Histogram
}

// New creates a new Metrics instance with all consent module metrics registered.
func New() *Metrics {
	return &Metrics{
		ConsentsGranted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idvault_consents_granted_total",
			Help: "Total number of consents granted (first grant per client)",
		}),
		ConsentsUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idvault_consents_updated_total",
			Help: "Total number of in-place consent updates for an existing client",
		}),
		ConsentsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idvault_consents_revoked_total",
			Help: "Total number of consents revoked",
		}),
		AccessesAudited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idvault_consent_accesses_audited_total",
			Help: "Total number of attribute handoffs recorded on consent audit trails",
		}),
		DisclosureDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "idvault_disclosure_duration_seconds",
			Help:    "Duration of GetConsentedAttributes operations (relying-party critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveDisclosure records the duration of a disclosure operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveDisclosure(start time.Time) {
	m.DisclosureDuration.Observe(time.Since(start).Seconds())
}
