// Package mongodb connects to the MongoDB collection used as the
// alternative telemetry sink.
package mongodb
