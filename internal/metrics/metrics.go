package metrics

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ProviderSet is metrics providers.
var ProviderSet = wire.NewSet(
	NewRegistry,
	New,
	wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
)

const namespace = "nominatim_indexer"

// Metrics 导入/更新管道的 Prometheus 指标。
type Metrics struct {
	ImportedDocuments prometheus.Counter
	UpdateRows        *prometheus.CounterVec // label: kind(place|interpolation), outcome
	UpdateRuns        *prometheus.CounterVec // label: result(completed|skipped|failed)
	SinkOperations    *prometheus.CounterVec // label: op
	SinkFailures      prometheus.Counter
	UpdateRunning     prometheus.Gauge
}

// NewRegistry returns a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ImportedDocuments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imported_documents_total",
			Help:      "Documents handed to the sink by the bulk import.",
		}),
		UpdateRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "update_rows_total",
			Help:      "Flagged rows processed by the incremental update.",
		}, []string{"kind", "outcome"}),
		UpdateRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "update_runs_total",
			Help:      "Incremental update invocations by result.",
		}, []string{"result"}),
		SinkOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_operations_total",
			Help:      "Operations queued on the index sink.",
		}, []string{"op"}),
		SinkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_failures_total",
			Help:      "Sink operations or batch flushes that failed.",
		}),
		UpdateRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "update_running",
			Help:      "1 while an incremental update holds the guard.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ImportedDocuments, m.UpdateRows, m.UpdateRuns, m.SinkOperations, m.SinkFailures, m.UpdateRunning)
	}
	return m
}
