package ingest

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/gray-logic-threshold/internal/control"
)

// Store is the keyed reading cache. FetchAll returns every
// (sensor type key -> serialized reading) pair stored for a device.
type Store interface {
	FetchAll(ctx context.Context, deviceKey string) (map[string]string, error)
}

// ObservableSource supplies the current observable set.
type ObservableSource interface {
	Observables() control.ObservableSet
}

// Sink receives forwarded readings in order.
type Sink interface {
	Push(readings ...Reading)
}

// Logger defines the logging interface used by the Monitor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Metrics receives per-cycle ingestion counts.
type Metrics interface {
	ObserveIngestCycle(stats CycleStats)
}

type noopMetrics struct{}

func (noopMetrics) ObserveIngestCycle(CycleStats) {}

// CycleStats summarises one poll cycle.
type CycleStats struct {
	Devices      int
	Fetched      int
	Filtered     int
	Merged       int
	Superseded   int
	Discarded    int
	Forwarded    int
	FetchErrors  int
	DecodeErrors int
	Duration     time.Duration
}

// Monitor runs the poll, merge and forward cycle.
type Monitor struct {
	store       Store
	observables ObservableSource
	sink        Sink
	dedup       *Deduplicator
	interval    time.Duration
	logger      Logger
	metrics     Metrics
}

// NewMonitor creates a monitor that polls store every interval.
func NewMonitor(store Store, observables ObservableSource, sink Sink, interval time.Duration) *Monitor {
	return &Monitor{
		store:       store,
		observables: observables,
		sink:        sink,
		dedup:       NewDeduplicator(),
		interval:    interval,
		logger:      noopLogger{},
		metrics:     noopMetrics{},
	}
}

// SetLogger sets the logger for the monitor.
func (m *Monitor) SetLogger(logger Logger) {
	m.logger = logger
}

// SetMetrics sets the metrics recorder for the monitor.
func (m *Monitor) SetMetrics(metrics Metrics) {
	m.metrics = metrics
}

// Poll runs one cycle. Fetch and decode failures are isolated per device
// and per entry; Poll itself never fails.
func (m *Monitor) Poll(ctx context.Context) CycleStats {
	start := time.Now()
	observables := m.observables.Observables()

	// A definitions reload may have removed pairs.
	if pruned := m.dedup.Prune(observables); pruned > 0 {
		m.logger.Info("dropped readings no longer observed", "count", pruned)
	}

	stats := CycleStats{Devices: len(observables)}

	for _, device := range observables.Devices() {
		readings, err := m.fetchDevice(ctx, device, observables, &stats)
		if err != nil {
			stats.FetchErrors++
			m.logger.Warn("fetching device readings failed", "device", device, "error", err)
			continue
		}

		for _, r := range readings {
			switch m.dedup.Merge(r) {
			case Inserted, Replaced:
				stats.Merged++
			case Superseded:
				stats.Merged++
				stats.Superseded++
			case Discarded:
				stats.Discarded++
			}
		}
	}

	forwarded := m.dedup.Forward()
	if len(forwarded) > 0 {
		m.sink.Push(forwarded...)
	}
	stats.Forwarded = len(forwarded)
	stats.Duration = time.Since(start)

	m.metrics.ObserveIngestCycle(stats)
	m.logger.Debug("ingest cycle complete",
		"devices", stats.Devices,
		"fetched", stats.Fetched,
		"forwarded", stats.Forwarded,
		"fetch_errors", stats.FetchErrors,
		"decode_errors", stats.DecodeErrors,
	)

	return stats
}

// fetchDevice reads and decodes one device's entries, keeping only the
// observed sensor types.
func (m *Monitor) fetchDevice(ctx context.Context, device int64, observables control.ObservableSet, stats *CycleStats) ([]Reading, error) {
	raw, err := m.store.FetchAll(ctx, strconv.FormatInt(device, 10))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	readings := make([]Reading, 0, len(raw))
	for field, value := range raw {
		stats.Fetched++

		r, err := DecodeReading(device, value)
		if err != nil {
			stats.DecodeErrors++
			m.logger.Warn("skipping undecodable reading", "device", device, "field", field, "error", err)
			continue
		}
		if !observables.Contains(r.Device, r.SensorType) {
			stats.Filtered++
			continue
		}
		readings = append(readings, r)
	}
	return readings, nil
}

// Run polls until ctx is cancelled. Cancellation is checked between
// cycles and during the sleep.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("ingest monitor started", "interval", m.interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("ingest monitor stopped")
			return nil
		case <-timer.C:
		}

		m.Poll(ctx)
		timer.Reset(m.interval)
	}
}
