package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the identity module.
// Tracks context/attribute churn and bulk import behavior.
type Metrics struct {
	ContextsCreated    prometheus.Counter
	ContextsDeleted    prometheus.Counter
	AttributesCreated  prometheus.Counter
	AttributesDeleted  prometheus.Counter
	AttributesImported prometheus.Counter
	ImportRenames      prometheus.Counter
	BulkImportDuration prometheus.Histogram
}

// New creates a new Metrics instance with all identity module metrics registered.
func New() *Metrics {
	return &Metrics{
		ContextsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idvault_contexts_created_total",
			Help: "Total number of contexts created",
		}),
		ContextsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idvault_contexts_deleted_total",
			Help: "Total number of contexts deleted",
		}),
		AttributesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idvault_attributes_created_total",
			Help: "Total number of identity attributes created",
		}),
		AttributesDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idvault_attributes_deleted_total",
			Help: "Total number of identity attributes deleted",
		}),
		AttributesImported: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idvault_attributes_imported_total",
			Help: "Total number of attributes merged in by bulk import",
		}),
		ImportRenames: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idvault_import_renames_total",
			Help: "Total number of attributes renamed to avoid a name collision during import",
		}),
		BulkImportDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "idvault_bulk_import_duration_seconds",
			Help:    "Duration of bulk attribute import operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveBulkImport records the duration of one import call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveBulkImport(start time.Time) {
	m.BulkImportDuration.Observe(time.Since(start).Seconds())
}
