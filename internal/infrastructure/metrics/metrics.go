package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/gray-logic-threshold/internal/ingest"
)

const namespace = "thresholdctl"

// Label values.
const (
	resultOK     = "ok"
	resultFailed = "failed"
)

// Metrics holds every collector the controller reports.
type Metrics struct {
	registry *prometheus.Registry

	readingsFetched    prometheus.Counter
	readingsFiltered   prometheus.Counter
	readingsForwarded  prometheus.Counter
	readingsSuperseded prometheus.Counter
	readingsDiscarded  prometheus.Counter
	fetchErrors        prometheus.Counter
	decodeErrors       prometheus.Counter
	ingestDuration     prometheus.Histogram

	commands         *prometheus.CounterVec
	invalidDirection *prometheus.CounterVec
	telemetryBatches *prometheus.CounterVec
	telemetryRecords prometheus.Counter
	triggersSwept    prometheus.Counter
	triggersOrphaned prometheus.Counter
	triggers         *prometheus.GaugeVec
	queueDepth       prometheus.Gauge
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
}

// New creates and registers all collectors, plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		readingsFetched:    counter("readings_fetched_total", "Serialized readings read from the keyed store."),
		readingsFiltered:   counter("readings_filtered_total", "Decoded readings dropped as not observed by any rule."),
		readingsForwarded:  counter("readings_forwarded_total", "Readings forwarded to the control engine."),
		readingsSuperseded: counter("readings_superseded_total", "Unforwarded readings replaced by a newer one."),
		readingsDiscarded:  counter("readings_discarded_total", "Readings ignored because they were not newer than the latest."),
		fetchErrors:        counter("fetch_errors_total", "Per-device keyed store fetch failures."),
		decodeErrors:       counter("decode_errors_total", "Stored entries that could not be decoded."),
		ingestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_cycle_duration_seconds",
			Help:      "Duration of one poll, merge and forward cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),

		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_commands_total",
			Help:      "Relay commands issued, by source and result.",
		}, []string{"source", "result"}),
		invalidDirection: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_direction_total",
			Help:      "Readings evaluated against a rule with an invalid threshold direction.",
		}, []string{"rule"}),
		telemetryBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_batches_total",
			Help:      "Telemetry batches sent, by result.",
		}, []string{"result"}),
		telemetryRecords: counter("telemetry_records_total", "Telemetry records in delivered batches."),
		triggersSwept:    counter("triggers_swept_total", "Pending triggers removed after expiry."),
		triggersOrphaned: counter("triggers_orphaned_total", "Triggers dropped because their rule was removed or rebound by a reload."),
		triggers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "triggers",
			Help:      "Current triggers by state.",
		}, []string{"state"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_length",
			Help:      "Readings waiting in the transfer queue at the start of a control cycle.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.readingsFetched,
		m.readingsFiltered,
		m.readingsForwarded,
		m.readingsSuperseded,
		m.readingsDiscarded,
		m.fetchErrors,
		m.decodeErrors,
		m.ingestDuration,
		m.commands,
		m.invalidDirection,
		m.telemetryBatches,
		m.telemetryRecords,
		m.triggersSwept,
		m.triggersOrphaned,
		m.triggers,
		m.queueDepth,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveIngestCycle implements ingest.Metrics.
func (m *Metrics) ObserveIngestCycle(stats ingest.CycleStats) {
	m.readingsFetched.Add(float64(stats.Fetched))
	m.readingsFiltered.Add(float64(stats.Filtered))
	m.readingsForwarded.Add(float64(stats.Forwarded))
	m.readingsSuperseded.Add(float64(stats.Superseded))
	m.readingsDiscarded.Add(float64(stats.Discarded))
	m.fetchErrors.Add(float64(stats.FetchErrors))
	m.decodeErrors.Add(float64(stats.DecodeErrors))
	m.ingestDuration.Observe(stats.Duration.Seconds())
}

func result(ok bool) string {
	if ok {
		return resultOK
	}
	return resultFailed
}

// ObserveCommand implements engine.Metrics.
func (m *Metrics) ObserveCommand(source string, ok bool) {
	m.commands.WithLabelValues(source, result(ok)).Inc()
}

// ObserveInvalidDirection implements engine.Metrics.
func (m *Metrics) ObserveInvalidDirection(ruleID string) {
	m.invalidDirection.WithLabelValues(ruleID).Inc()
}

// ObserveTelemetryBatch implements engine.Metrics.
func (m *Metrics) ObserveTelemetryBatch(ok bool, records int) {
	m.telemetryBatches.WithLabelValues(result(ok)).Inc()
	if ok {
		m.telemetryRecords.Add(float64(records))
	}
}

// ObserveSweep implements engine.Metrics.
func (m *Metrics) ObserveSweep(removed int) {
	m.triggersSwept.Add(float64(removed))
}

// ObserveOrphaned implements engine.Metrics.
func (m *Metrics) ObserveOrphaned(removed int) {
	m.triggersOrphaned.Add(float64(removed))
}

// SetTriggers implements engine.Metrics.
func (m *Metrics) SetTriggers(pending, active int) {
	m.triggers.WithLabelValues("pending").Set(float64(pending))
	m.triggers.WithLabelValues("active").Set(float64(active))
}

// SetQueueDepth implements engine.Metrics.
func (m *Metrics) SetQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}
