package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/rgtrack/internal/adapters/repository"
)

func (s *Server) handleUserGameStats(w http.ResponseWriter, r *http.Request) {
	cfg := gptFrom(r.Context())
	userID := userFrom(r.Context())
	stats, err := s.deps.Store.GetUserGameStats(r.Context(), userID, cfg.Game, cfg.Playtype)
	if err != nil {
		writeError(w, r, Wrap("user game stats", err))
		return
	}
	settings, err := s.deps.Store.GetGameSettings(r.Context(), userID, cfg.Game, cfg.Playtype)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		writeError(w, r, Wrap("user game settings", err))
		return
	}
	writeOK(w, http.StatusOK, "Returning user game stats.", map[string]any{
		"gameStats": stats,
		"settings":  settings,
	})
}

func (s *Server) handleRecentlyAchieved(w http.ResponseWriter, r *http.Request) {
	limit, err := limitQuery(r, 10, s.maxRecentLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cfg := gptFrom(r.Context())
	userID := userFrom(r.Context())
	goals, err := s.deps.Targets.GetRecentlyAchievedGoals(r.Context(), userID, cfg.Game, cfg.Playtype, limit)
	if err != nil {
		writeError(w, r, Wrap("recently achieved", err))
		return
	}
	milestones, err := s.deps.Targets.GetRecentlyAchievedMilestones(r.Context(), userID, cfg.Game, cfg.Playtype, limit)
	if err != nil {
		writeError(w, r, Wrap("recently achieved", err))
		return
	}
	writeOK(w, http.StatusOK, "Returning recently achieved targets.", map[string]any{
		"goals":      goals,
		"milestones": milestones,
	})
}

func (s *Server) handleRecentlyRaised(w http.ResponseWriter, r *http.Request) {
	limit, err := limitQuery(r, 10, s.maxRecentLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cfg := gptFrom(r.Context())
	userID := userFrom(r.Context())
	goals, err := s.deps.Targets.GetRecentlyInteractedGoals(r.Context(), userID, cfg.Game, cfg.Playtype, limit)
	if err != nil {
		writeError(w, r, Wrap("recently raised", err))
		return
	}
	milestones, err := s.deps.Targets.GetRecentlyInteractedMilestones(r.Context(), userID, cfg.Game, cfg.Playtype, limit)
	if err != nil {
		writeError(w, r, Wrap("recently raised", err))
		return
	}
	writeOK(w, http.StatusOK, "Returning recently raised targets.", map[string]any{
		"goals":      goals,
		"milestones": milestones,
	})
}

func (s *Server) handleSubscribeGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := requireSelf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	goal, err := s.loadGoal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := s.deps.Targets.SubscribeToGoal(r.Context(), userID, goal, boolQuery(r, "cancelIfAchieved"))
	if err != nil {
		writeError(w, r, Wrap("subscribe goal", err))
		return
	}
	writeOK(w, http.StatusOK, "Subscribed to goal.", map[string]any{"goal": goal, "goalSub": sub})
}

func (s *Server) handleUnsubscribeGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := requireSelf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	goal, err := s.loadGoal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Targets.UnsubscribeFromGoal(r.Context(), userID, goal.GoalID); err != nil {
		writeError(w, r, Wrap("unsubscribe goal", err))
		return
	}
	writeOK(w, http.StatusOK, "Unsubscribed from goal.", nil)
}

func (s *Server) handleSubscribeMilestone(w http.ResponseWriter, r *http.Request) {
	userID, err := requireSelf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.loadMilestone(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Targets.SubscribeToMilestone(r.Context(), userID, m, boolQuery(r, "cancelIfAchieved"))
	if err != nil {
		writeError(w, r, Wrap("subscribe milestone", err))
		return
	}
	writeOK(w, http.StatusOK, "Subscribed to milestone.", map[string]any{"milestone": m, "result": res})
}

func (s *Server) handleUnsubscribeMilestone(w http.ResponseWriter, r *http.Request) {
	userID, err := requireSelf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.loadMilestone(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Targets.UnsubscribeFromMilestone(r.Context(), userID, m.MilestoneID); err != nil {
		writeError(w, r, Wrap("unsubscribe milestone", err))
		return
	}
	writeOK(w, http.StatusOK, "Unsubscribed from milestone.", nil)
}

// handleClassAchievements lists class improvements, optionally only those after ?since=<unix ms>.
func (s *Server) handleClassAchievements(w http.ResponseWriter, r *http.Request) {
	limit, err := limitQuery(r, 50, s.maxRecentLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms < 0 {
			writeError(w, r, NewKind("query", ErrBadRequest, "since must be a unix timestamp in milliseconds"))
			return
		}
		since = time.UnixMilli(ms)
	}
	achievements, err := s.deps.Store.ListClassAchievements(r.Context(), userFrom(r.Context()), since, limit)
	if err != nil {
		writeError(w, r, Wrap("class achievements", err))
		return
	}
	writeOK(w, http.StatusOK, fmt.Sprintf("Found %d class achievements.", len(achievements)), achievements)
}
