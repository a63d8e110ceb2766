package control

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validJSON = `[
  {
    "uuid": "rule-a",
    "macs": [303721692, 303721693],
    "sensor_types": [248, 249],
    "threshold_value": 23.0,
    "hysteresis": 0.5,
    "threshold_type": 1,
    "threshold_duration_millis": 30000,
    "fuzz_ms": 500,
    "control_func": 1,
    "control_channel": 3,
    "back_to_normal_func": 0,
    "allow_back_to_normal": true
  },
  {
    "uuid": "rule-b",
    "macs": [303721692],
    "sensor_type": 17,
    "threshold_value": 10,
    "hysteresis": 1,
    "threshold_type": -1,
    "threshold_duration_millis": 0,
    "control_func": 0,
    "control_channel": 1
  }
]`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "defs.json")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write definitions: %v", err)
	}
	return path
}

func TestParse_Valid(t *testing.T) {
	defs, err := Parse([]byte(validJSON))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("len(defs) = %d, want 2", len(defs))
	}

	a := defs[0]
	if a.ID != "rule-a" || a.Direction != Overshoot || a.Channel != 3 {
		t.Errorf("rule-a = %+v", a)
	}
	if a.FuzzMillis != 500 || a.DurationMillis != 30000 {
		t.Errorf("rule-a timing = %v/%v", a.DurationMillis, a.FuzzMillis)
	}
	if a.ExpiryLifetime() != 36*time.Second {
		t.Errorf("ExpiryLifetime() = %v, want 36s", a.ExpiryLifetime())
	}

	b := defs[1]
	if len(b.SensorTypes) != 1 || b.SensorTypes[0] != 17 {
		t.Errorf("legacy sensor_type not mapped: %v", b.SensorTypes)
	}
	if b.BackToNormalFunc != CommandOn {
		t.Errorf("BackToNormalFunc default = %v, want inverse of off", b.BackToNormalFunc)
	}
	if !b.AllowBackToNormal {
		t.Error("AllowBackToNormal should default to true")
	}
	if b.FuzzMillis != 0 {
		t.Errorf("FuzzMillis default = %v, want 0", b.FuzzMillis)
	}
}

func TestParse_YAML(t *testing.T) {
	doc := `
- uuid: rule-y
  macs: [5]
  sensor_types: [1]
  threshold_value: 2.5
  hysteresis: 0
  threshold_type: -1
  threshold_duration_millis: 1000
  control_func: 1
  control_channel: 0
  allow_back_to_normal: false
`
	defs, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(defs) != 1 || defs[0].Direction != Undershoot || defs[0].AllowBackToNormal {
		t.Errorf("defs = %+v", defs)
	}
}

func TestParse_Empty(t *testing.T) {
	for _, doc := range []string{"", "[]"} {
		defs, err := Parse([]byte(doc))
		if err != nil {
			t.Errorf("Parse(%q) error = %v", doc, err)
		}
		if len(defs) != 0 {
			t.Errorf("Parse(%q) = %d defs, want 0", doc, len(defs))
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	base := func(override string) string {
		fields := map[string]string{
			"uuid":                      `"r"`,
			"macs":                      `[1]`,
			"sensor_types":              `[2]`,
			"threshold_value":           `1`,
			"hysteresis":                `0.1`,
			"threshold_type":            `1`,
			"threshold_duration_millis": `100`,
			"control_func":              `1`,
			"control_channel":           `1`,
		}
		key, value, _ := strings.Cut(override, "=")
		if value == "-" {
			delete(fields, key)
		} else if key != "" {
			fields[key] = value
		}
		parts := make([]string, 0, len(fields))
		for k, v := range fields {
			parts = append(parts, `"`+k+`": `+v)
		}
		return "[{" + strings.Join(parts, ", ") + "}]"
	}

	tests := []struct {
		name string
		doc  string
	}{
		{"malformed document", `[{"uuid": `},
		{"not a list", `{"uuid": "r"}`},
		{"unknown field", base(`colour="red"`)},
		{"missing uuid", base("uuid=-")},
		{"blank uuid", base(`uuid=" "`)},
		{"no macs", base("macs=[]")},
		{"no sensor types", base("sensor_types=-")},
		{"both sensor fields", base("sensor_type=4")},
		{"missing threshold", base("threshold_value=-")},
		{"negative hysteresis", base("hysteresis=-0.5")},
		{"bad direction", base("threshold_type=0")},
		{"negative duration", base("threshold_duration_millis=-1")},
		{"negative fuzz", base("fuzz_ms=-2")},
		{"bad control func", base("control_func=2")},
		{"bad back to normal func", base("back_to_normal_func=-1")},
		{"negative channel", base("control_channel=-1")},
		{"missing channel", base("control_channel=-")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if !errors.Is(err, ErrInvalidDefinition) {
				t.Errorf("Parse() error = %v, want ErrInvalidDefinition", err)
			}
		})
	}

	// Sanity check: the base document itself is valid.
	if _, err := Parse([]byte(base(""))); err != nil {
		t.Fatalf("base document invalid: %v", err)
	}
}

func TestParse_DuplicateUUID(t *testing.T) {
	doc := `[
	  {"uuid":"x","macs":[1],"sensor_types":[1],"threshold_value":1,"hysteresis":0,"threshold_type":1,"threshold_duration_millis":0,"control_func":1,"control_channel":1},
	  {"uuid":"x","macs":[2],"sensor_types":[1],"threshold_value":1,"hysteresis":0,"threshold_type":1,"threshold_duration_millis":0,"control_func":1,"control_channel":2}
	]`
	_, err := Parse([]byte(doc))
	if !errors.Is(err, ErrInvalidDefinition) || !strings.Contains(err.Error(), "duplicates") {
		t.Errorf("Parse() error = %v, want duplicate uuid error", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/defs.json"); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestDeriveObservables(t *testing.T) {
	defs, err := Parse([]byte(validJSON))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	set := DeriveObservables(defs)

	if got := set.Devices(); len(got) != 2 || got[0] != 303721692 || got[1] != 303721693 {
		t.Errorf("Devices() = %v", got)
	}
	if !set.Contains(303721692, 17) || !set.Contains(303721692, 248) || !set.Contains(303721693, 249) {
		t.Error("expected pairs missing from observable set")
	}
	if set.Contains(303721693, 17) {
		t.Error("303721693/17 should not be observed")
	}
	if set.Pairs() != 5 {
		t.Errorf("Pairs() = %d, want 5", set.Pairs())
	}

	if empty := DeriveObservables(nil); len(empty) != 0 {
		t.Errorf("DeriveObservables(nil) = %v, want empty", empty)
	}
}

func TestDefinition_AppliesTo(t *testing.T) {
	d := Definition{Devices: []int64{7}, SensorTypes: []int{1, 2}}

	if !d.AppliesTo(7, 2) {
		t.Error("AppliesTo(7, 2) = false")
	}
	if d.AppliesTo(7, 3) {
		t.Error("AppliesTo(7, 3) = true, sensor type must match")
	}
	if d.AppliesTo(8, 1) {
		t.Error("AppliesTo(8, 1) = true, device must match")
	}
}

func TestRegistry_ReloadKeepsOldOnError(t *testing.T) {
	path := writeFile(t, validJSON)

	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry() error = %v", err)
	}
	if got := r.Channels(); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("Channels() = %v, want [1 3]", got)
	}

	if err := os.WriteFile(path, []byte(`[{"uuid": "broken"}]`), 0600); err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(path); !errors.Is(err, ErrInvalidDefinition) {
		t.Errorf("Reload() error = %v, want ErrInvalidDefinition", err)
	}
	if len(r.Definitions()) != 2 {
		t.Error("failed reload should keep previous definitions")
	}

	if err := os.WriteFile(path, []byte(`[]`), 0600); err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(path); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if len(r.Definitions()) != 0 || len(r.Observables()) != 0 {
		t.Error("reload to empty list should clear definitions and observables")
	}
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	defs, err := Parse([]byte(validJSON))
	if err != nil {
		t.Fatal(err)
	}
	r := NewRegistry(defs)

	got := r.Definitions()
	got[0].Devices[0] = 1
	got[0].Threshold = 99

	again := r.Definitions()
	if again[0].Devices[0] != 303721692 || again[0].Threshold != 23 {
		t.Error("mutating returned definitions changed registry state")
	}

	obs := r.Observables()
	delete(obs, 303721692)
	if !r.Observables().Contains(303721692, 248) {
		t.Error("mutating returned observables changed registry state")
	}
}

func TestCommandAndDirection(t *testing.T) {
	if CommandOn.Inverse() != CommandOff || CommandOff.Inverse() != CommandOn {
		t.Error("Inverse() mismatch")
	}
	if Command(2).Valid() || !CommandOff.Valid() {
		t.Error("Command.Valid() mismatch")
	}
	if Direction(0).Valid() || !Undershoot.Valid() {
		t.Error("Direction.Valid() mismatch")
	}
	if Direction(3).String() != "direction(3)" {
		t.Errorf("String() = %q", Direction(3).String())
	}
}

func TestLoad_SampleDefinitions(t *testing.T) {
	defs, err := Load("../../configs/control_defs.json")
	if err != nil {
		t.Fatalf("Load(sample) error = %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("definitions = %d, want 2", len(defs))
	}
	if defs[1].Direction != Undershoot || defs[1].BackToNormalFunc != CommandOff || !defs[1].AllowBackToNormal {
		t.Errorf("second definition defaults not applied: %+v", defs[1])
	}
}
