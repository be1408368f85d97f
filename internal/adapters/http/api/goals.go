package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/internal/domain/targets"
	"github.com/okian/rgtrack/internal/validation"
)

func (s *Server) registerTargets(r chi.Router) {
	r.Post("/goals", s.handleCreateGoal)
	r.Get("/goals/popular", s.handlePopularGoals)
	r.Get("/goals/{goalID}", s.handleGetGoal)
	r.Get("/goals/{goalID}/evaluate-for", s.handleEvaluateGoal)

	r.Get("/milestones", s.handleSearchMilestones)
	r.Post("/milestones", s.handleCreateMilestone)
	r.Get("/milestones/popular", s.handlePopularMilestones)
	r.Get("/milestones/{milestoneID}", s.handleGetMilestone)
	r.Put("/milestones/{milestoneID}", s.handleUpdateMilestone)
	r.Delete("/milestones/{milestoneID}", s.handleDeleteMilestone)
	r.Get("/milestones/{milestoneID}/evaluate-for", s.handleEvaluateMilestone)

	r.Post("/milestone-sets", s.handleCreateMilestoneSet)
	r.Get("/milestone-sets/{setID}", s.handleGetMilestoneSet)
}

type goalRequest struct {
	Name     string             `json:"name" validate:"omitempty,max=140"`
	Charts   model.GoalCharts   `json:"charts" validate:"required"`
	Criteria model.GoalCriteria `json:"criteria" validate:"required"`
	Note     string             `json:"note" validate:"omitempty,max=140"`
}

func (g goalRequest) goal(game, playtype string) model.Goal {
	return model.Goal{Game: game, Playtype: playtype, Name: g.Name, Charts: g.Charts, Criteria: g.Criteria}
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	if _, err := requester(r); err != nil {
		writeError(w, r, err)
		return
	}
	var req goalRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		writeError(w, r, Wrap("create goal", err))
		return
	}

	cfg := gptFrom(r.Context())
	goal := req.goal(cfg.Game, cfg.Playtype)
	if err := targets.PrepareGoal(&goal); err != nil {
		writeError(w, r, Wrap("create goal", err))
		return
	}
	created, err := s.deps.Store.PutGoal(r.Context(), &goal)
	if err != nil {
		writeError(w, r, Wrap("create goal", err))
		return
	}
	if created {
		writeOK(w, http.StatusCreated, "Created goal.", goal)
		return
	}
	writeOK(w, http.StatusOK, "Goal already exists.", goal)
}

// loadGoal fetches {goalID} and hides goals of another GPT behind 404.
func (s *Server) loadGoal(r *http.Request) (*model.Goal, error) {
	cfg := gptFrom(r.Context())
	goal, err := s.deps.Store.GetGoal(r.Context(), chi.URLParam(r, "goalID"))
	if err != nil {
		return nil, Wrap("get goal", err)
	}
	if goal.Game != cfg.Game || goal.Playtype != cfg.Playtype {
		return nil, NewKind("get goal", ErrNotFound, "goal %s is not a %s goal", goal.GoalID, cfg.ID())
	}
	return goal, nil
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := s.loadGoal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Returning goal.", goal)
}

func (s *Server) handlePopularGoals(w http.ResponseWriter, r *http.Request) {
	limit, err := limitQuery(r, 50, s.maxRecentLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cfg := gptFrom(r.Context())
	goals, err := s.deps.Targets.GetMostSubscribedGoals(r.Context(), cfg.Game, cfg.Playtype, limit)
	if err != nil {
		writeError(w, r, Wrap("popular goals", err))
		return
	}
	writeOK(w, http.StatusOK, fmt.Sprintf("Returning %d goals.", len(goals)), goals)
}

// evaluationUser reads ?userID= and requires that the user has played the GPT.
func (s *Server) evaluationUser(r *http.Request) (int, error) {
	userID, err := strconv.Atoi(r.URL.Query().Get("userID"))
	if err != nil || userID < 1 {
		return 0, NewKind("evaluate", ErrBadRequest, "userID must be a positive integer")
	}
	cfg := gptFrom(r.Context())
	played, err := s.deps.Store.HasPlayed(r.Context(), userID, cfg.Game, cfg.Playtype)
	if err != nil {
		return 0, Wrap("evaluate", err)
	}
	if !played {
		return 0, NewKind("evaluate", ErrBadRequest, "user %d has not played %s %s", userID, cfg.Game, cfg.Playtype)
	}
	return userID, nil
}

func (s *Server) handleEvaluateGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := s.loadGoal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := s.evaluationUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	progress, err := s.deps.Targets.EvaluateGoalForUser(r.Context(), goal, userID)
	if err != nil {
		writeError(w, r, Wrap("evaluate goal", err))
		return
	}
	writeOK(w, http.StatusOK, "Evaluated goal for user.", map[string]any{
		"goal":     goal,
		"progress": progress,
	})
}
