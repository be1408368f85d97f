package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/okian/rgtrack/internal/adapters/mq/queue"
	"github.com/okian/rgtrack/internal/domain/gpt"
	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/internal/domain/targets"
	"github.com/okian/rgtrack/internal/validation"
	"github.com/okian/rgtrack/pkg/logger"
)

type milestoneSectionRequest struct {
	Title string        `json:"title" validate:"max=120"`
	Desc  string        `json:"desc" validate:"max=240"`
	Goals []goalRequest `json:"goals" validate:"required,min=1,dive"`
}

// milestoneRequest carries full goal definitions. Their IDs are derived server-side.
type milestoneRequest struct {
	Name     string                    `json:"name" validate:"required,max=100"`
	Desc     string                    `json:"desc" validate:"max=300"`
	Criteria model.MilestoneCriteria   `json:"criteria" validate:"required"`
	Sections []milestoneSectionRequest `json:"milestoneData" validate:"required,min=1,dive"`
}

func (req *milestoneRequest) build(cfg *gpt.Config) (*model.Milestone, []model.Goal, error) {
	m := &model.Milestone{
		Game:     cfg.Game,
		Playtype: cfg.Playtype,
		Name:     req.Name,
		Desc:     req.Desc,
		Criteria: req.Criteria,
	}
	var goals []model.Goal
	seen := map[string]bool{}
	for _, sec := range req.Sections {
		section := model.MilestoneSection{Title: sec.Title, Desc: sec.Desc}
		for _, gr := range sec.Goals {
			g := gr.goal(cfg.Game, cfg.Playtype)
			if err := targets.PrepareGoal(&g); err != nil {
				return nil, nil, err
			}
			section.Goals = append(section.Goals, model.MilestoneGoalRef{GoalID: g.GoalID, Note: gr.Note})
			if !seen[g.GoalID] {
				seen[g.GoalID] = true
				goals = append(goals, g)
			}
		}
		m.MilestoneData = append(m.MilestoneData, section)
	}
	return m, goals, nil
}

func (s *Server) readMilestone(w http.ResponseWriter, r *http.Request) (*model.Milestone, []model.Goal, error) {
	var req milestoneRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		return nil, nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, nil, Wrap("milestone", err)
	}
	m, goals, err := req.build(gptFrom(r.Context()))
	if err != nil {
		return nil, nil, Wrap("milestone", err)
	}
	return m, goals, nil
}

// loadMilestone fetches {milestoneID} and hides milestones of another GPT behind 404.
func (s *Server) loadMilestone(r *http.Request) (*model.Milestone, error) {
	cfg := gptFrom(r.Context())
	m, err := s.deps.Store.GetMilestone(r.Context(), chi.URLParam(r, "milestoneID"))
	if err != nil {
		return nil, Wrap("get milestone", err)
	}
	if m.Game != cfg.Game || m.Playtype != cfg.Playtype {
		return nil, NewKind("get milestone", ErrNotFound, "milestone %s is not a %s milestone", m.MilestoneID, cfg.ID())
	}
	return m, nil
}

// ownedMilestone loads {milestoneID} and checks the requester created it.
func (s *Server) ownedMilestone(r *http.Request) (*model.Milestone, error) {
	userID, err := requester(r)
	if err != nil {
		return nil, err
	}
	m, err := s.loadMilestone(r)
	if err != nil {
		return nil, err
	}
	if m.CreatedBy != userID {
		return nil, NewKind("milestone", ErrForbidden, "only the creator can modify milestone %s", m.MilestoneID)
	}
	return m, nil
}

// reconcile queues the subscription repair for a changed milestone.
func (s *Server) reconcile(r *http.Request, milestoneID string) error {
	err := s.deps.Jobs.Enqueue(r.Context(), model.Job{Kind: model.JobReconcileMilestone, MilestoneID: milestoneID})
	if err == nil {
		return nil
	}
	s.log.Warn(r.Context(), "could not queue milestone reconciliation",
		logger.String("milestone_id", milestoneID), logger.Error(err))
	if errors.Is(err, queue.ErrFull) {
		return WrapKind("reconcile milestone", ErrBackpressure, err)
	}
	return Wrap("reconcile milestone", err)
}

func (s *Server) handleSearchMilestones(w http.ResponseWriter, r *http.Request) {
	limit, err := limitQuery(r, 50, s.maxRecentLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cfg := gptFrom(r.Context())
	found, err := s.deps.Store.SearchMilestones(r.Context(), cfg.Game, cfg.Playtype, r.URL.Query().Get("search"), limit)
	if err != nil {
		writeError(w, r, Wrap("search milestones", err))
		return
	}
	writeOK(w, http.StatusOK, fmt.Sprintf("Found %d milestones.", len(found)), found)
}

func (s *Server) handleCreateMilestone(w http.ResponseWriter, r *http.Request) {
	userID, err := requester(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, goals, err := s.readMilestone(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m.CreatedBy = userID
	if err := s.deps.Targets.CreateMilestone(r.Context(), m, goals); err != nil {
		writeError(w, r, Wrap("create milestone", err))
		return
	}
	writeOK(w, http.StatusCreated, "Created milestone.", map[string]any{"milestone": m, "goals": goals})
}

func (s *Server) handlePopularMilestones(w http.ResponseWriter, r *http.Request) {
	limit, err := limitQuery(r, 50, s.maxRecentLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cfg := gptFrom(r.Context())
	found, err := s.deps.Targets.GetMostSubscribedMilestones(r.Context(), cfg.Game, cfg.Playtype, limit)
	if err != nil {
		writeError(w, r, Wrap("popular milestones", err))
		return
	}
	writeOK(w, http.StatusOK, fmt.Sprintf("Returning %d milestones.", len(found)), found)
}

func (s *Server) handleGetMilestone(w http.ResponseWriter, r *http.Request) {
	m, err := s.loadMilestone(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	goals, err := s.deps.Targets.GetGoalsInMilestone(r.Context(), m)
	if err != nil {
		writeError(w, r, Wrap("get milestone", err))
		return
	}
	writeOK(w, http.StatusOK, "Returning milestone.", map[string]any{"milestone": m, "goals": goals})
}

// handleUpdateMilestone replaces a milestone's content. Subscribers are repaired
// asynchronously by the reconcile job.
func (s *Server) handleUpdateMilestone(w http.ResponseWriter, r *http.Request) {
	existing, err := s.ownedMilestone(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, goals, err := s.readMilestone(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m.MilestoneID = existing.MilestoneID
	m.CreatedBy = existing.CreatedBy
	m.TimeCreated = existing.TimeCreated
	if err := s.deps.Targets.CreateMilestone(r.Context(), m, goals); err != nil {
		writeError(w, r, Wrap("update milestone", err))
		return
	}
	if err := s.reconcile(r, m.MilestoneID); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Updated milestone.", map[string]any{"milestone": m, "goals": goals})
}

func (s *Server) handleDeleteMilestone(w http.ResponseWriter, r *http.Request) {
	m, err := s.ownedMilestone(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Store.DeleteMilestone(r.Context(), m.MilestoneID); err != nil {
		writeError(w, r, Wrap("delete milestone", err))
		return
	}
	writeOK(w, http.StatusOK, "Deleted milestone.", nil)
}

func (s *Server) handleEvaluateMilestone(w http.ResponseWriter, r *http.Request) {
	m, err := s.loadMilestone(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := s.evaluationUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	eval, err := s.deps.Targets.EvaluateMilestoneProgress(r.Context(), userID, m)
	if err != nil {
		writeError(w, r, Wrap("evaluate milestone", err))
		return
	}
	writeOK(w, http.StatusOK, "Evaluated milestone for user.", map[string]any{
		"milestone":  m,
		"evaluation": eval,
	})
}

type milestoneSetRequest struct {
	Name       string   `json:"name" validate:"required,max=100"`
	Desc       string   `json:"desc" validate:"max=300"`
	Milestones []string `json:"milestones" validate:"required,min=1,unique,dive,required"`
}

func (s *Server) handleCreateMilestoneSet(w http.ResponseWriter, r *http.Request) {
	if _, err := requester(r); err != nil {
		writeError(w, r, err)
		return
	}
	var req milestoneSetRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		writeError(w, r, Wrap("create milestone set", err))
		return
	}

	cfg := gptFrom(r.Context())
	found, err := s.deps.Store.GetMilestones(r.Context(), req.Milestones)
	if err != nil {
		writeError(w, r, Wrap("create milestone set", err))
		return
	}
	if len(found) != len(req.Milestones) {
		writeError(w, r, NewKind("create milestone set", ErrBadRequest, "some milestones do not exist"))
		return
	}
	for i := range found {
		if found[i].Game != cfg.Game || found[i].Playtype != cfg.Playtype {
			writeError(w, r, NewKind("create milestone set", ErrBadRequest,
				"milestone %s is not a %s milestone", found[i].MilestoneID, cfg.ID()))
			return
		}
	}

	set := &model.MilestoneSet{
		SetID:      "S" + uuid.NewString(),
		Game:       cfg.Game,
		Playtype:   cfg.Playtype,
		Name:       req.Name,
		Desc:       req.Desc,
		Milestones: req.Milestones,
	}
	if err := s.deps.Store.PutMilestoneSet(r.Context(), set); err != nil {
		writeError(w, r, Wrap("create milestone set", err))
		return
	}
	writeOK(w, http.StatusCreated, "Created milestone set.", set)
}

func (s *Server) handleGetMilestoneSet(w http.ResponseWriter, r *http.Request) {
	set, milestones, err := s.deps.Targets.GetChildMilestones(r.Context(), chi.URLParam(r, "setID"))
	if err != nil {
		writeError(w, r, Wrap("get milestone set", err))
		return
	}
	cfg := gptFrom(r.Context())
	if set.Game != cfg.Game || set.Playtype != cfg.Playtype {
		writeError(w, r, NewKind("get milestone set", ErrNotFound, "set %s is not a %s set", set.SetID, cfg.ID()))
		return
	}
	writeOK(w, http.StatusOK, "Returning milestone set.", map[string]any{"set": set, "milestones": milestones})
}
