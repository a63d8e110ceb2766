package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Reading is one sensor measurement.
type Reading struct {
	Device     int64   `json:"mac"`
	SensorType int     `json:"type"`
	Value      float64 `json:"data"`
	Timestamp  int64   `json:"timestamp"` // milliseconds
}

// Key identifies the deduplication slot of a reading.
type Key struct {
	Device     int64
	SensorType int
}

// Key returns the (device, sensor type) identity of r.
func (r Reading) Key() Key {
	return Key{Device: r.Device, SensorType: r.SensorType}
}

// field aliases: the plain form and the underscored form written by the
// legacy pickling writer.
var (
	deviceFields    = []string{"mac", "_mac"}
	typeFields      = []string{"type", "_type"}
	valueFields     = []string{"data", "_data"}
	timestampFields = []string{"timestamp", "_timestamp"}
)

// DecodeReading parses one stored entry. Numbers may be JSON numbers or
// numeric strings. The device is taken from deviceKey when the payload
// omits it; a payload naming a different device is rejected.
func DecodeReading(deviceKey int64, raw string) (Reading, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return Reading{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	var r Reading
	var err error

	device, found, err := intField(doc, deviceFields)
	if err != nil {
		return Reading{}, err
	}
	if !found {
		device = deviceKey
	} else if device != deviceKey {
		return Reading{}, fmt.Errorf("%w: payload device %d stored under %d", ErrDecode, device, deviceKey)
	}
	r.Device = device

	sensorType, found, err := intField(doc, typeFields)
	if err != nil {
		return Reading{}, err
	}
	if !found {
		return Reading{}, fmt.Errorf("%w: missing sensor type", ErrDecode)
	}
	r.SensorType = int(sensorType)

	if r.Value, err = floatField(doc, valueFields); err != nil {
		return Reading{}, err
	}

	ts, found, err := intField(doc, timestampFields)
	if err != nil {
		return Reading{}, err
	}
	if !found {
		return Reading{}, fmt.Errorf("%w: missing timestamp", ErrDecode)
	}
	r.Timestamp = ts

	return r, nil
}

func lookup(doc map[string]any, names []string) (any, string, bool) {
	for _, name := range names {
		if v, ok := doc[name]; ok && v != nil {
			return v, name, true
		}
	}
	return nil, "", false
}

func intField(doc map[string]any, names []string) (int64, bool, error) {
	v, name, ok := lookup(doc, names)
	if !ok {
		return 0, false, nil
	}

	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = t
	default:
		return 0, true, fmt.Errorf("%w: %s has type %T", ErrDecode, name, v)
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true, nil
	}
	// Writers sometimes emit integral floats such as 248.0.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, true, fmt.Errorf("%w: %s %q is not an integer", ErrDecode, name, s)
	}
	return int64(f), true, nil
}

func floatField(doc map[string]any, names []string) (float64, error) {
	v, name, ok := lookup(doc, names)
	if !ok {
		return 0, fmt.Errorf("%w: missing value", ErrDecode)
	}

	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = t
	default:
		return 0, fmt.Errorf("%w: %s has type %T", ErrDecode, name, v)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s %q is not a finite number", ErrDecode, name, s)
	}
	return f, nil
}
