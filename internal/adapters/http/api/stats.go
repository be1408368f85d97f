package api

import "net/http"

// StatsProvider reports service statistics.
type StatsProvider interface {
	GetStats() map[string]any
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Stats == nil {
		writeOK(w, http.StatusOK, "stats", map[string]any{})
		return
	}
	writeOK(w, http.StatusOK, "stats", s.deps.Stats.GetStats())
}
