package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/nerrad567/gray-logic-threshold/internal/infrastructure/influxdb"
)

// Measurement is the InfluxDB measurement name for actuator state.
const Measurement = "actuator_state"

// Record is one actuator channel state sample.
// State is 1 on, 0 off, -1 unknown.
type Record struct {
	DeviceTag  int64
	SensorType int
	Timestamp  int64 // ms since epoch
	State      int
}

// Reporter sends a batch. It reports whether the batch was delivered.
type Reporter interface {
	SendBatch(ctx context.Context, records []Record) bool
}

// Logger defines the logging interface used by reporters.
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

// PointWriter is the subset of the InfluxDB client the reporter needs.
type PointWriter interface {
	WritePoints(ctx context.Context, points []influxdb.Point) error
}

// InfluxReporter writes records to InfluxDB.
type InfluxReporter struct {
	writer PointWriter
	logger Logger
}

// NewInfluxReporter creates a reporter over writer.
func NewInfluxReporter(writer PointWriter) *InfluxReporter {
	return &InfluxReporter{writer: writer, logger: noopLogger{}}
}

// SetLogger sets the logger for the reporter.
func (r *InfluxReporter) SetLogger(logger Logger) {
	r.logger = logger
}

// SendBatch implements Reporter.
func (r *InfluxReporter) SendBatch(ctx context.Context, records []Record) bool {
	if len(records) == 0 {
		return true
	}

	points := make([]influxdb.Point, 0, len(records))
	for _, rec := range records {
		points = append(points, influxdb.Point{
			Measurement: Measurement,
			Tags: map[string]string{
				"device_tag":  strconv.FormatInt(rec.DeviceTag, 10),
				"sensor_type": strconv.Itoa(rec.SensorType),
			},
			Fields: map[string]any{"state": rec.State},
			Time:   time.UnixMilli(rec.Timestamp),
		})
	}

	if err := r.writer.WritePoints(ctx, points); err != nil {
		r.logger.Warn("telemetry batch dropped", "backend", "influxdb", "records", len(records),
			"error", fmt.Errorf("%w: %w", ErrTransport, err))
		return false
	}

	r.logger.Debug("telemetry batch sent", "backend", "influxdb", "records", len(records))
	return true
}

// DocumentInserter is the subset of the MongoDB client the reporter needs.
type DocumentInserter interface {
	InsertMany(ctx context.Context, docs []any) error
}

// MongoReporter inserts records into a MongoDB collection.
type MongoReporter struct {
	inserter DocumentInserter
	logger   Logger
}

// NewMongoReporter creates a reporter over inserter.
func NewMongoReporter(inserter DocumentInserter) *MongoReporter {
	return &MongoReporter{inserter: inserter, logger: noopLogger{}}
}

// SetLogger sets the logger for the reporter.
func (r *MongoReporter) SetLogger(logger Logger) {
	r.logger = logger
}

// document converts a record to its stored form.
func document(rec Record) bson.D {
	return bson.D{
		{Key: "device_tag", Value: rec.DeviceTag},
		{Key: "sensor_type", Value: rec.SensorType},
		{Key: "timestamp", Value: time.UnixMilli(rec.Timestamp).UTC()},
		{Key: "state", Value: rec.State},
	}
}

// SendBatch implements Reporter.
func (r *MongoReporter) SendBatch(ctx context.Context, records []Record) bool {
	if len(records) == 0 {
		return true
	}

	docs := make([]any, 0, len(records))
	for _, rec := range records {
		docs = append(docs, document(rec))
	}

	if err := r.inserter.InsertMany(ctx, docs); err != nil {
		r.logger.Warn("telemetry batch dropped", "backend", "mongodb", "records", len(records),
			"error", fmt.Errorf("%w: %w", ErrTransport, err))
		return false
	}

	r.logger.Debug("telemetry batch sent", "backend", "mongodb", "records", len(records))
	return true
}
