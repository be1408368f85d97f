package api

import (
	"net/http"

	"github.com/okian/rgtrack/internal/domain/gpt"
)

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games := gpt.Games()
	out := make(map[string]gpt.GameConfig, len(games))
	for _, g := range games {
		gc, err := gpt.Game(g)
		if err != nil {
			writeError(w, r, Wrap("list games", err))
			return
		}
		out[g] = gc
	}
	writeOK(w, http.StatusOK, "Returning game configurations.", out)
}

func (s *Server) handleGetGPT(w http.ResponseWriter, r *http.Request) {
	cfg := gptFrom(r.Context())
	gc, err := gpt.Game(cfg.Game)
	if err != nil {
		writeError(w, r, Wrap("get game", err))
		return
	}
	writeOK(w, http.StatusOK, "Returning "+gc.Name+" "+cfg.Playtype+".", map[string]any{
		"game":   gc,
		"config": cfg,
	})
}
