package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/nerrad567/gray-logic-threshold/internal/infrastructure/influxdb"
)

type mockWriter struct {
	points []influxdb.Point
	calls  int
	err    error
}

func (m *mockWriter) WritePoints(_ context.Context, points []influxdb.Point) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.points = append(m.points, points...)
	return nil
}

type mockInserter struct {
	docs  []any
	calls int
	err   error
}

func (m *mockInserter) InsertMany(_ context.Context, docs []any) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.docs = append(m.docs, docs...)
	return nil
}

// warnLogger counts Warn calls and keeps the last error attribute.
type warnLogger struct {
	noopLogger
	warns   int
	lastErr error
}

func (l *warnLogger) Warn(_ string, args ...any) {
	l.warns++
	for i := 0; i+1 < len(args); i += 2 {
		if args[i] == "error" {
			l.lastErr, _ = args[i+1].(error)
		}
	}
}

var batch = []Record{
	{DeviceTag: 42, SensorType: 1003, Timestamp: 1700000000000, State: 1},
	{DeviceTag: 42, SensorType: 1004, Timestamp: 1700000000000, State: -1},
}

func TestInfluxReporter_SendBatch(t *testing.T) {
	w := &mockWriter{}
	r := NewInfluxReporter(w)

	if !r.SendBatch(context.Background(), batch) {
		t.Fatal("SendBatch() = false, want true")
	}
	if len(w.points) != 2 {
		t.Fatalf("wrote %d points, want 2", len(w.points))
	}

	p := w.points[1]
	if p.Measurement != Measurement {
		t.Errorf("measurement = %q", p.Measurement)
	}
	if p.Tags["device_tag"] != "42" || p.Tags["sensor_type"] != "1004" {
		t.Errorf("tags = %v", p.Tags)
	}
	if p.Fields["state"] != -1 {
		t.Errorf("state field = %v, want -1", p.Fields["state"])
	}
	if !p.Time.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("time = %v", p.Time)
	}
}

func TestInfluxReporter_Failure(t *testing.T) {
	w := &mockWriter{err: influxdb.ErrWriteFailed}
	log := &warnLogger{}
	r := NewInfluxReporter(w)
	r.SetLogger(log)

	if r.SendBatch(context.Background(), batch) {
		t.Fatal("SendBatch() = true, want false")
	}
	if log.warns != 1 {
		t.Errorf("warns = %d, want 1", log.warns)
	}
	if !errors.Is(log.lastErr, ErrTransport) || !errors.Is(log.lastErr, influxdb.ErrWriteFailed) {
		t.Errorf("logged error = %v", log.lastErr)
	}
}

func TestReporters_EmptyBatch(t *testing.T) {
	w := &mockWriter{}
	if !NewInfluxReporter(w).SendBatch(context.Background(), nil) {
		t.Error("influx SendBatch(nil) = false")
	}
	ins := &mockInserter{}
	if !NewMongoReporter(ins).SendBatch(context.Background(), nil) {
		t.Error("mongo SendBatch(nil) = false")
	}
	if w.calls != 0 || ins.calls != 0 {
		t.Errorf("empty batch reached backend: influx=%d mongo=%d", w.calls, ins.calls)
	}
}

func TestMongoReporter_SendBatch(t *testing.T) {
	ins := &mockInserter{}
	r := NewMongoReporter(ins)

	if !r.SendBatch(context.Background(), batch) {
		t.Fatal("SendBatch() = false, want true")
	}
	if len(ins.docs) != 2 {
		t.Fatalf("inserted %d docs, want 2", len(ins.docs))
	}

	doc, ok := ins.docs[0].(bson.D)
	if !ok {
		t.Fatalf("doc type = %T, want bson.D", ins.docs[0])
	}
	m := make(map[string]any, len(doc))
	for _, e := range doc {
		m[e.Key] = e.Value
	}
	if m["device_tag"] != int64(42) || m["sensor_type"] != 1003 || m["state"] != 1 {
		t.Errorf("doc = %v", m)
	}
}

func TestMongoReporter_Failure(t *testing.T) {
	ins := &mockInserter{err: errors.New("server selection timeout")}
	log := &warnLogger{}
	r := NewMongoReporter(ins)
	r.SetLogger(log)

	if r.SendBatch(context.Background(), batch) {
		t.Fatal("SendBatch() = true, want false")
	}
	if !errors.Is(log.lastErr, ErrTransport) {
		t.Errorf("logged error = %v, want ErrTransport", log.lastErr)
	}
}
