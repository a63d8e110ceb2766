package api

import (
	"net/http"
	"runtime"
	"strconv"
	"time"
)

// StatusResponse represents the /api/v1/status body.
type StatusResponse struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	Rules         RuleMetrics      `json:"rules"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// RuleMetrics counts the loaded rules.
type RuleMetrics struct {
	Definitions int `json:"definitions"`
	Channels    int `json:"channels"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleStatus returns controller status.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	resp := StatusResponse{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
	}

	if s.rules != nil {
		resp.Rules = RuleMetrics{
			Definitions: len(s.rules.Definitions()),
			Channels:    len(s.rules.Channels()),
		}
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		resp.Database = &DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleChannels returns every known channel state, plus rule channels
// that have no state yet.
func (s *Server) handleChannels(w http.ResponseWriter, _ *http.Request) {
	if s.channels == nil {
		writeUnavailable(w, "relay gateway not configured")
		return
	}

	out := make(map[string]string)
	if s.rules != nil {
		for _, ch := range s.rules.Channels() {
			out[strconv.Itoa(ch)] = "unknown"
		}
	}
	for ch, state := range s.channels.ChannelStates() {
		out[strconv.Itoa(ch)] = state.String()
	}

	writeJSON(w, http.StatusOK, map[string]any{"channels": out})
}
