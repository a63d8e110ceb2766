package control

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// rawDefinition mirrors the file format. Pointers distinguish a missing
// field from a zero value.
type rawDefinition struct {
	UUID                    *string  `yaml:"uuid"`
	Macs                    []int64  `yaml:"macs"`
	SensorTypes             []int    `yaml:"sensor_types"`
	SensorType              *int     `yaml:"sensor_type"`
	ThresholdValue          *float64 `yaml:"threshold_value"`
	Hysteresis              *float64 `yaml:"hysteresis"`
	ThresholdType           *int     `yaml:"threshold_type"`
	ThresholdDurationMillis *int64   `yaml:"threshold_duration_millis"`
	FuzzMs                  *float64 `yaml:"fuzz_ms"`
	ControlFunc             *int     `yaml:"control_func"`
	ControlChannel          *int     `yaml:"control_channel"`
	BackToNormalFunc        *int     `yaml:"back_to_normal_func"`
	AllowBackToNormal       *bool    `yaml:"allow_back_to_normal"`
}

// Load reads and validates the definitions file at path.
func Load(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definitions file: %w", err)
	}

	defs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// Parse decodes a JSON or YAML list of definitions. Unknown fields are
// rejected. An empty document yields no definitions.
func Parse(data []byte) ([]Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var raws []rawDefinition
	if err := dec.Decode(&raws); err != nil {
		if errors.Is(err, io.EOF) {
			return []Definition{}, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	defs := make([]Definition, 0, len(raws))
	seen := make(map[string]int, len(raws))
	var problems []string

	for i, raw := range raws {
		def, errs := raw.toDefinition()
		if def.ID != "" {
			if first, dup := seen[def.ID]; dup {
				errs = append(errs, fmt.Sprintf("uuid duplicates entry %d", first))
			} else {
				seen[def.ID] = i
			}
		}
		for _, e := range errs {
			problems = append(problems, fmt.Sprintf("entry %d: %s", i, e))
		}
		defs = append(defs, def)
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDefinition, strings.Join(problems, "; "))
	}

	return defs, nil
}

// toDefinition converts and validates one entry, collecting every problem.
func (r rawDefinition) toDefinition() (Definition, []string) { //nolint:gocognit,gocyclo // flat list of independent field checks
	var errs []string
	def := Definition{AllowBackToNormal: true}

	if r.UUID == nil || strings.TrimSpace(*r.UUID) == "" {
		errs = append(errs, "uuid is required")
	} else {
		def.ID = *r.UUID
	}

	if len(r.Macs) == 0 {
		errs = append(errs, "macs must list at least one device")
	}
	def.Devices = r.Macs

	switch {
	case len(r.SensorTypes) > 0 && r.SensorType != nil:
		errs = append(errs, "sensor_types and sensor_type are mutually exclusive")
	case len(r.SensorTypes) > 0:
		def.SensorTypes = r.SensorTypes
	case r.SensorType != nil:
		def.SensorTypes = []int{*r.SensorType}
	default:
		errs = append(errs, "sensor_types must list at least one type")
	}

	if r.ThresholdValue == nil {
		errs = append(errs, "threshold_value is required")
	} else if !finite(*r.ThresholdValue) {
		errs = append(errs, "threshold_value must be finite")
	} else {
		def.Threshold = *r.ThresholdValue
	}

	if r.Hysteresis == nil {
		errs = append(errs, "hysteresis is required")
	} else if !finite(*r.Hysteresis) || *r.Hysteresis < 0 {
		errs = append(errs, "hysteresis must be a finite value >= 0")
	} else {
		def.Hysteresis = *r.Hysteresis
	}

	if r.ThresholdType == nil {
		errs = append(errs, "threshold_type is required")
	} else if d := Direction(*r.ThresholdType); !d.Valid() {
		errs = append(errs, fmt.Sprintf("threshold_type %d must be 1 (overshoot) or -1 (undershoot)", *r.ThresholdType))
	} else {
		def.Direction = d
	}

	if r.ThresholdDurationMillis == nil {
		errs = append(errs, "threshold_duration_millis is required")
	} else if *r.ThresholdDurationMillis < 0 {
		errs = append(errs, "threshold_duration_millis must be >= 0")
	} else {
		def.DurationMillis = *r.ThresholdDurationMillis
	}

	if r.FuzzMs != nil {
		if !finite(*r.FuzzMs) || *r.FuzzMs < 0 {
			errs = append(errs, "fuzz_ms must be a finite value >= 0")
		} else {
			def.FuzzMillis = *r.FuzzMs
		}
	}

	if r.ControlFunc == nil {
		errs = append(errs, "control_func is required")
	} else if c := Command(*r.ControlFunc); !c.Valid() {
		errs = append(errs, fmt.Sprintf("control_func %d must be 0 or 1", *r.ControlFunc))
	} else {
		def.ControlFunc = c
	}

	if r.ControlChannel == nil {
		errs = append(errs, "control_channel is required")
	} else if *r.ControlChannel < 0 {
		errs = append(errs, "control_channel must be >= 0")
	} else {
		def.Channel = *r.ControlChannel
	}

	if r.BackToNormalFunc == nil {
		def.BackToNormalFunc = def.ControlFunc.Inverse()
	} else if c := Command(*r.BackToNormalFunc); !c.Valid() {
		errs = append(errs, fmt.Sprintf("back_to_normal_func %d must be 0 or 1", *r.BackToNormalFunc))
	} else {
		def.BackToNormalFunc = c
	}

	if r.AllowBackToNormal != nil {
		def.AllowBackToNormal = *r.AllowBackToNormal
	}

	return def, errs
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
