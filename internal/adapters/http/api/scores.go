package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/internal/validation"
)

// scorePatch holds the only mutable score fields. An empty comment clears it.
type scorePatch struct {
	Comment   *string `json:"comment" validate:"omitempty,max=120"`
	Highlight *bool   `json:"highlight"`
}

func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	score, err := s.deps.Store.GetScore(r.Context(), chi.URLParam(r, "scoreID"))
	if err != nil {
		writeError(w, r, Wrap("get score", err))
		return
	}
	writeOK(w, http.StatusOK, "Returning score.", score)
}

func (s *Server) handlePatchScore(w http.ResponseWriter, r *http.Request) {
	userID, err := requester(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch scorePatch
	if err := s.decodeBody(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validation.Struct(patch); err != nil {
		writeError(w, r, Wrap("patch score", err))
		return
	}
	if patch.Comment == nil && patch.Highlight == nil {
		writeError(w, r, NewKind("patch score", ErrBadRequest, "nothing to modify"))
		return
	}

	scoreID := chi.URLParam(r, "scoreID")
	existing, err := s.deps.Store.GetScore(r.Context(), scoreID)
	if err != nil {
		writeError(w, r, Wrap("patch score", err))
		return
	}
	if existing.UserID != userID {
		writeError(w, r, NewKind("patch score", ErrForbidden, "score %s belongs to another user", scoreID))
		return
	}

	updated, err := s.deps.Store.UpdateScore(r.Context(), scoreID, func(sc *model.Score) {
		if patch.Comment != nil {
			if *patch.Comment == "" {
				sc.Comment = nil
			} else {
				sc.Comment = patch.Comment
			}
		}
		if patch.Highlight != nil {
			sc.Highlight = *patch.Highlight
		}
	})
	if err != nil {
		writeError(w, r, Wrap("patch score", err))
		return
	}
	writeOK(w, http.StatusOK, "Updated score.", updated)
}

// chartOnGPT loads {chartID} and hides charts of another GPT behind 404.
func (s *Server) chartOnGPT(r *http.Request) (*model.Chart, error) {
	cfg := gptFrom(r.Context())
	chart, err := s.deps.Store.FindChartByID(r.Context(), chi.URLParam(r, "chartID"))
	if err != nil {
		return nil, Wrap("get chart", err)
	}
	if chart.Game != cfg.Game || chart.Playtype != cfg.Playtype {
		return nil, NewKind("get chart", ErrNotFound, "chart %s is not a %s chart", chart.ChartID, cfg.ID())
	}
	return chart, nil
}

func (s *Server) handleChartPBs(w http.ResponseWriter, r *http.Request) {
	chart, err := s.chartOnGPT(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := limitQuery(r, 100, 500)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := s.deps.Charts.TopN(chart.ChartID, limit)
	if err != nil {
		writeError(w, r, Wrap("chart pbs", err))
		return
	}
	writeOK(w, http.StatusOK, fmt.Sprintf("Returning %d personal bests.", len(entries)), map[string]any{
		"chart": chart,
		"pbs":   entries,
		"outOf": s.deps.Charts.ChartCount(chart.ChartID),
	})
}

func (s *Server) handleUserChartPB(w http.ResponseWriter, r *http.Request) {
	chart, err := s.chartOnGPT(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := intParam(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := s.deps.Charts.Rank(chart.ChartID, userID)
	if err != nil {
		writeError(w, r, Wrap("user pb", err))
		return
	}
	score, err := s.deps.Store.GetScore(r.Context(), entry.ScoreID)
	if err != nil {
		writeError(w, r, Wrap("user pb", err))
		return
	}
	writeOK(w, http.StatusOK, "Returning personal best.", map[string]any{
		"pb":    score,
		"rank":  entry.Rank,
		"outOf": s.deps.Charts.ChartCount(chart.ChartID),
	})
}
