package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

// Metrics holds the engine's prometheus collectors.
type Metrics struct {
	// MalformedRecords counts numeric fields substituted with zero during
	// ingest. Tolerated, but must stay observable.
	MalformedRecords prometheus.Counter

	ReconcileRuns    *prometheus.CounterVec
	MismatchesFound  *prometheus.CounterVec
	InvoicesIngested prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MalformedRecords: factory.NewCounter(prometheus.CounterOpts{
			Name: "taxlens_malformed_records_total",
			Help: "Records with missing numeric fields substituted with zero.",
		}),
		ReconcileRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taxlens_reconcile_runs_total",
			Help: "Reconciliation runs by outcome.",
		}, []string{"status"}),
		MismatchesFound: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taxlens_mismatches_found_total",
			Help: "Mismatches produced by reconciliation runs, by type.",
		}, []string{"type"}),
		InvoicesIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "taxlens_invoices_ingested_total",
			Help: "Invoice records accepted by the ingest service.",
		}),
	}
}

func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	return reg
}

func provide(reg *prometheus.Registry) *Metrics {
	return New(reg)
}

var Module = fx.Module("metrics",
	fx.Provide(NewRegistry),
	fx.Provide(func(reg *prometheus.Registry) prometheus.Registerer { return reg }),
	fx.Provide(provide),
)
