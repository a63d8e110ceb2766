package engine

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-threshold/internal/audit"
	"github.com/nerrad567/gray-logic-threshold/internal/control"
	"github.com/nerrad567/gray-logic-threshold/internal/ingest"
	"github.com/nerrad567/gray-logic-threshold/internal/relay"
	"github.com/nerrad567/gray-logic-threshold/internal/telemetry"
)

// RuleSource supplies the current rule set.
type RuleSource interface {
	Definitions() []control.Definition
	Channels() []int
}

// Source is the queue readings are drained from.
type Source interface {
	Drain(max int) []ingest.Reading
	Len() int
}

// Gateway switches relay channels and reports their state.
type Gateway interface {
	SetChannel(ctx context.Context, channel int, on bool) error
	ChannelStates() map[int]relay.ChannelState
}

// AuditLog records command attempts.
type AuditLog interface {
	Create(ctx context.Context, entry *audit.Entry) error
}

// Logger defines the logging interface used by the Engine.
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

// Metrics receives engine counters and gauges.
type Metrics interface {
	ObserveCommand(source string, ok bool)
	ObserveInvalidDirection(ruleID string)
	ObserveTelemetryBatch(ok bool, records int)
	ObserveSweep(removed int)
	ObserveOrphaned(removed int)
	SetTriggers(pending, active int)
	SetQueueDepth(depth int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveCommand(string, bool)     {}
func (noopMetrics) ObserveInvalidDirection(string)  {}
func (noopMetrics) ObserveTelemetryBatch(bool, int) {}
func (noopMetrics) ObserveSweep(int)                {}
func (noopMetrics) ObserveOrphaned(int)             {}
func (noopMetrics) SetTriggers(int, int)            {}
func (noopMetrics) SetQueueDepth(int)               {}

// Config holds engine settings.
type Config struct {
	// Interval is the sleep between control cycles.
	Interval time.Duration

	// TelemetryInterval is the period of state uploads. Zero disables them.
	TelemetryInterval time.Duration

	// DeviceTag and SensorTypeBase identify telemetry records:
	// sensor type = SensorTypeBase + channel.
	DeviceTag      int64
	SensorTypeBase int

	// SweepExpired removes Pending triggers past their expiry.
	SweepExpired bool

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// CycleStats summarises one control cycle.
type CycleStats struct {
	Readings  int
	Orphaned  int
	Swept     int
	Telemetry bool
}

// Engine owns the trigger map and issues relay commands.
type Engine struct {
	cfg      Config
	rules    RuleSource
	source   Source
	gateway  Gateway
	reporter telemetry.Reporter
	audit    AuditLog
	logger   Logger
	metrics  Metrics

	triggers      map[TriggerKey]*Trigger
	lastTelemetry time.Time
}

// NewEngine creates an engine.
//
// reporter and auditLog may be nil, disabling telemetry and the audit
// trail respectively.
func NewEngine(cfg Config, rules RuleSource, source Source, gateway Gateway, reporter telemetry.Reporter, auditLog AuditLog, logger Logger) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		cfg:           cfg,
		rules:         rules,
		source:        source,
		gateway:       gateway,
		reporter:      reporter,
		audit:         auditLog,
		logger:        logger,
		metrics:       noopMetrics{},
		triggers:      make(map[TriggerKey]*Trigger),
		lastTelemetry: cfg.Clock(),
	}
}

// SetMetrics sets the metrics recorder for the engine.
func (e *Engine) SetMetrics(metrics Metrics) {
	e.metrics = metrics
}

// Process evaluates one reading against every rule that watches it.
func (e *Engine) Process(ctx context.Context, r ingest.Reading) {
	e.process(ctx, e.rules.Definitions(), r)
}

func (e *Engine) process(ctx context.Context, defs []control.Definition, r ingest.Reading) {
	for _, def := range defs {
		if def.AppliesTo(r.Device, r.SensorType) {
			e.evaluate(ctx, def, r)
		}
	}
}

// evaluate applies one reading to one rule's trigger.
func (e *Engine) evaluate(ctx context.Context, def control.Definition, r ingest.Reading) {
	key := TriggerKey{Device: r.Device, SensorType: r.SensorType, RuleID: def.ID}

	exceeded, err := Exceeded(def, r.Value)
	if err != nil {
		e.logger.Error("threshold test failed", "rule", def.ID, "error", err)
		e.metrics.ObserveInvalidDirection(def.ID)
		return
	}

	trig, exists := e.triggers[key]

	switch {
	case exceeded && !exists:
		e.triggers[key] = &Trigger{
			State:         StatePending,
			FirstExceeded: r.Timestamp,
			Expiry:        e.cfg.Clock().Add(def.ExpiryLifetime()),
			LastValue:     r.Value,
			rule:          def.Clone(),
		}
		e.logger.Debug("trigger created", "key", key.String(), "value", r.Value)

	case exceeded && trig.State == StatePending:
		trig.LastValue = r.Value
		if !DurationMet(def, trig.FirstExceeded, r.Timestamp) {
			return
		}
		if err := e.actuate(ctx, def.Channel, def.ControlFunc, audit.SourceActivation, key); err != nil {
			return
		}
		trig.State = StateActive
		trig.ActivatedAt = r.Timestamp
		e.logger.Info("trigger activated", "key", key.String(), "channel", def.Channel,
			"command", def.ControlFunc.String(), "value", r.Value)

	case exceeded:
		// Active: the command has already been issued for this episode.
		trig.LastValue = r.Value

	case exists:
		e.recover(ctx, def, key, trig, r)
	}
}

// recover handles a non-exceeding reading for an existing trigger.
func (e *Engine) recover(ctx context.Context, def control.Definition, key TriggerKey, trig *Trigger, r ingest.Reading) {
	cleared, err := HysteresisCleared(def, r.Value)
	if err != nil {
		e.logger.Error("hysteresis check failed", "rule", def.ID, "error", err)
		return
	}
	if !cleared {
		return
	}
	trig.LastValue = r.Value

	if !def.AllowBackToNormal {
		e.logger.Debug("back-to-normal suppressed", "key", key.String(), "value", r.Value)
		return
	}

	if err := e.actuate(ctx, def.Channel, def.BackToNormalFunc, audit.SourceBackToNormal, key); err != nil {
		return
	}
	delete(e.triggers, key)
	e.logger.Info("trigger cleared", "key", key.String(), "channel", def.Channel,
		"command", def.BackToNormalFunc.String(), "value", r.Value)
}

// actuate sends a command and records the attempt.
func (e *Engine) actuate(ctx context.Context, channel int, cmd control.Command, source string, key TriggerKey) error {
	err := e.gateway.SetChannel(ctx, channel, cmd.On())
	e.metrics.ObserveCommand(source, err == nil)

	entry := &audit.Entry{
		Channel:    channel,
		On:         cmd.On(),
		Source:     source,
		TriggerKey: key.String(),
	}
	if err != nil {
		entry.Outcome = audit.OutcomeFailed
		entry.Error = err.Error()
		e.logger.Error("relay command failed", "channel", channel, "command", cmd.String(),
			"source", source, "key", key.String(), "error", err)
	}

	if e.audit != nil {
		if auditErr := e.audit.Create(ctx, entry); auditErr != nil {
			e.logger.Warn("recording actuation failed", "channel", channel, "error", auditErr)
		}
	}
	return err
}

// Cycle drops triggers orphaned by a definitions reload, drains the queue,
// evaluates every reading, then runs telemetry if due and the expiry sweep
// if enabled.
func (e *Engine) Cycle(ctx context.Context) CycleStats {
	e.metrics.SetQueueDepth(e.source.Len())

	var stats CycleStats
	defs := e.rules.Definitions()
	stats.Orphaned = e.reconcile(ctx, defs)

	readings := e.source.Drain(0)
	if len(readings) > 0 {
		for _, r := range readings {
			e.process(ctx, defs, r)
		}
		stats.Readings = len(readings)
	}

	now := e.cfg.Clock()
	if e.telemetryDue(now) {
		e.sendTelemetry(ctx, now)
		stats.Telemetry = true
	}

	if e.cfg.SweepExpired {
		stats.Swept = e.sweep(now)
	}

	e.observeTriggers()
	return stats
}

// reconcile removes triggers whose rule was deleted or rebound to another
// channel, command or direction. An Active orphan whose rule allowed
// back-to-normal is released first; if that command fails the trigger is
// kept and retried next cycle.
func (e *Engine) reconcile(ctx context.Context, defs []control.Definition) int {
	if len(e.triggers) == 0 {
		return 0
	}

	current := make(map[string]control.Definition, len(defs))
	for _, def := range defs {
		current[def.ID] = def
	}

	removed := 0
	for key, trig := range e.triggers {
		if def, ok := current[key.RuleID]; ok && trig.boundTo(def, key) {
			continue
		}

		old := trig.rule
		if trig.State == StateActive && old.AllowBackToNormal {
			if err := e.actuate(ctx, old.Channel, old.BackToNormalFunc, audit.SourceBackToNormal, key); err != nil {
				continue
			}
		}
		delete(e.triggers, key)
		removed++
		e.logger.Info("trigger dropped after definitions reload",
			"key", key.String(), "state", trig.State.String(), "channel", old.Channel)
	}

	if removed > 0 {
		e.metrics.ObserveOrphaned(removed)
	}
	return removed
}

func (e *Engine) telemetryDue(now time.Time) bool {
	return e.reporter != nil && e.cfg.TelemetryInterval > 0 &&
		now.Sub(e.lastTelemetry) >= e.cfg.TelemetryInterval
}

// TelemetryBatch builds one record per channel referenced by the rules.
func (e *Engine) TelemetryBatch(now time.Time) []telemetry.Record {
	channels := e.rules.Channels()
	states := e.gateway.ChannelStates()

	records := make([]telemetry.Record, 0, len(channels))
	for _, ch := range channels {
		records = append(records, telemetry.Record{
			DeviceTag:  e.cfg.DeviceTag,
			SensorType: e.cfg.SensorTypeBase + ch,
			Timestamp:  now.UnixMilli(),
			State:      states[ch].Value(),
		})
	}
	return records
}

// sendTelemetry uploads once. A failed batch is not retried until the
// next interval.
func (e *Engine) sendTelemetry(ctx context.Context, now time.Time) {
	e.lastTelemetry = now

	records := e.TelemetryBatch(now)
	if len(records) == 0 {
		return
	}
	ok := e.reporter.SendBatch(ctx, records)
	e.metrics.ObserveTelemetryBatch(ok, len(records))
}

// sweep removes Pending triggers whose expiry has passed.
func (e *Engine) sweep(now time.Time) int {
	removed := 0
	for key, trig := range e.triggers {
		if trig.State == StatePending && now.After(trig.Expiry) {
			delete(e.triggers, key)
			removed++
			e.logger.Debug("expired trigger removed", "key", key.String())
		}
	}
	if removed > 0 {
		e.metrics.ObserveSweep(removed)
	}
	return removed
}

func (e *Engine) observeTriggers() {
	pending, active := 0, 0
	for _, trig := range e.triggers {
		switch trig.State {
		case StatePending:
			pending++
		case StateActive:
			active++
		}
	}
	e.metrics.SetTriggers(pending, active)
}

// Snapshot returns a copy of every trigger.
func (e *Engine) Snapshot() map[TriggerKey]Trigger {
	out := make(map[TriggerKey]Trigger, len(e.triggers))
	for key, trig := range e.triggers {
		out[key] = *trig
	}
	return out
}

// Run cycles until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("control engine started",
		"interval", e.cfg.Interval,
		"telemetry_interval", e.cfg.TelemetryInterval,
		"sweep_expired", e.cfg.SweepExpired,
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("control engine stopped", "triggers", len(e.triggers))
			return nil
		case <-timer.C:
		}

		e.Cycle(ctx)
		timer.Reset(e.cfg.Interval)
	}
}
