package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nerrad567/gray-logic-threshold/internal/audit"
	"github.com/nerrad567/gray-logic-threshold/internal/control"
	"github.com/nerrad567/gray-logic-threshold/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-threshold/internal/relay"
)

// --- Mocks ---

type staticRules struct {
	defs     []control.Definition
	channels []int
}

func (s staticRules) Definitions() []control.Definition { return s.defs }
func (s staticRules) Channels() []int                   { return s.channels }

type staticChannels map[int]relay.ChannelState

func (c staticChannels) ChannelStates() map[int]relay.ChannelState { return c }

type mockActuations struct {
	entries    []audit.Entry
	lastFilter audit.Filter
	err        error
}

func (m *mockActuations) Create(context.Context, *audit.Entry) error { return nil }

func (m *mockActuations) List(_ context.Context, filter audit.Filter) ([]audit.Entry, error) {
	m.lastFilter = filter
	return m.entries, m.err
}

func testServer(t *testing.T, deps Deps) http.Handler {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	s, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s.buildRouter()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

// --- Tests ---

func TestNew_RequiresLogger(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without logger should fail")
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthChecker
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no checks",
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name: "all healthy",
			checks: map[string]HealthChecker{
				"redis": HealthCheckFunc(func(context.Context) error { return nil }),
				"mqtt":  HealthCheckFunc(func(context.Context) error { return nil }),
			},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name: "one failing",
			checks: map[string]HealthChecker{
				"redis": HealthCheckFunc(func(context.Context) error { return nil }),
				"mqtt":  HealthCheckFunc(func(context.Context) error { return errors.New("not connected") }),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testServer(t, Deps{Checks: tt.checks, Version: "1.2.3"})
			rec := get(t, h, "/healthz")

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if resp.Status != tt.wantBody {
				t.Errorf("body status = %q, want %q", resp.Status, tt.wantBody)
			}
			if resp.Version != "1.2.3" {
				t.Errorf("version = %q", resp.Version)
			}
			if len(resp.Checks) != len(tt.checks) {
				t.Errorf("checks = %v", resp.Checks)
			}
		})
	}
}

func TestHealth_ReportsFailureMessage(t *testing.T) {
	h := testServer(t, Deps{Checks: map[string]HealthChecker{
		"influxdb": HealthCheckFunc(func(context.Context) error { return errors.New("ping timeout") }),
	}})

	var resp HealthResponse
	json.NewDecoder(get(t, h, "/healthz").Body).Decode(&resp) //nolint:errcheck // Checked via fields
	if resp.Checks["influxdb"] != "ping timeout" {
		t.Errorf("influxdb check = %q", resp.Checks["influxdb"])
	}
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("thresholdctl_up 1\n")) //nolint:errcheck // Test handler
	})

	rec := get(t, testServer(t, Deps{Metrics: metrics}), "/metrics")
	if rec.Code != http.StatusOK || rec.Body.String() != "thresholdctl_up 1\n" {
		t.Errorf("GET /metrics = %d %q", rec.Code, rec.Body.String())
	}

	if rec := get(t, testServer(t, Deps{}), "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("GET /metrics without handler = %d, want 404", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	rules := staticRules{
		defs:     []control.Definition{{ID: "a"}, {ID: "b"}},
		channels: []int{3},
	}
	rec := get(t, testServer(t, Deps{Rules: rules, Version: "dev"}), "/api/v1/status")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.Rules.Definitions != 2 || resp.Rules.Channels != 1 {
		t.Errorf("rules = %+v", resp.Rules)
	}
	if resp.Runtime.Goroutines == 0 {
		t.Error("runtime goroutines not reported")
	}
	if resp.Database != nil {
		t.Error("database stats reported without a database")
	}
}

func TestChannels(t *testing.T) {
	h := testServer(t, Deps{
		Rules:    staticRules{channels: []int{3, 5}},
		Channels: staticChannels{3: relay.StateOn, 7: relay.StateOff},
	})

	rec := get(t, h, "/api/v1/channels")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Channels map[string]string `json:"channels"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	want := map[string]string{"3": "on", "5": "unknown", "7": "off"}
	for ch, state := range want {
		if resp.Channels[ch] != state {
			t.Errorf("channel %s = %q, want %q", ch, resp.Channels[ch], state)
		}
	}

	if rec := get(t, testServer(t, Deps{}), "/api/v1/channels"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("without gateway status = %d, want 503", rec.Code)
	}
}

func TestListActuations(t *testing.T) {
	repo := &mockActuations{entries: []audit.Entry{
		{ID: "act-1", Channel: 3, On: true, Source: audit.SourceActivation, Outcome: audit.OutcomeOK},
	}}
	h := testServer(t, Deps{Actuations: repo})

	rec := get(t, h, "/api/v1/actuations?channel=3&outcome=ok&limit=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	if repo.lastFilter.Channel == nil || *repo.lastFilter.Channel != 3 {
		t.Errorf("channel filter = %v", repo.lastFilter.Channel)
	}
	if repo.lastFilter.Outcome != audit.OutcomeOK || repo.lastFilter.Limit != 10 {
		t.Errorf("filter = %+v", repo.lastFilter)
	}

	var resp struct {
		Actuations []audit.Entry `json:"actuations"`
		Count      int           `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.Count != 1 || resp.Actuations[0].ID != "act-1" {
		t.Errorf("response = %+v", resp)
	}
}

func TestListActuations_Errors(t *testing.T) {
	tests := []struct {
		name       string
		deps       Deps
		path       string
		wantStatus int
	}{
		{"not configured", Deps{}, "/api/v1/actuations", http.StatusServiceUnavailable},
		{"bad channel", Deps{Actuations: &mockActuations{}}, "/api/v1/actuations?channel=x", http.StatusBadRequest},
		{"bad outcome", Deps{Actuations: &mockActuations{}}, "/api/v1/actuations?outcome=maybe", http.StatusBadRequest},
		{"repository error", Deps{Actuations: &mockActuations{err: errors.New("disk I/O")}}, "/api/v1/actuations", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := get(t, testServer(t, tt.deps), tt.path); rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestListActuations_EmptyIsArray(t *testing.T) {
	rec := get(t, testServer(t, Deps{Actuations: &mockActuations{}}), "/api/v1/actuations")
	var resp map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if string(resp["actuations"]) != "[]" {
		t.Errorf("actuations = %s, want []", resp["actuations"])
	}
}

func TestRequestIDHeader(t *testing.T) {
	h := testServer(t, Deps{})

	rec := get(t, h, "/healthz")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing generated X-Request-ID")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc123" {
		t.Errorf("X-Request-ID = %q, want abc123", got)
	}
}
