package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-threshold/internal/audit"
)

// handleListActuations returns recent relay commands, newest first.
//
// Query parameters:
//   - channel: filter by channel
//   - outcome: filter by outcome (ok, failed)
//   - limit: max results (default 50, max 200)
func (s *Server) handleListActuations(w http.ResponseWriter, r *http.Request) {
	if s.actuations == nil {
		writeUnavailable(w, "actuation log not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{Outcome: q.Get("outcome")}

	if v := q.Get("channel"); v != "" {
		ch, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "channel must be an integer")
			return
		}
		filter.Channel = &ch
	}
	if filter.Outcome != "" && filter.Outcome != audit.OutcomeOK && filter.Outcome != audit.OutcomeFailed {
		writeBadRequest(w, "outcome must be ok or failed")
		return
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}

	entries, err := s.actuations.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list actuations", "error", err)
		writeInternalError(w, "failed to list actuations")
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"actuations": entries, "count": len(entries)})
}
