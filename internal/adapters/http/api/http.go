// Package api serves the rgtrack HTTP API.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/okian/rgtrack/internal/adapters/repository"
	"github.com/okian/rgtrack/internal/domain/classes"
	"github.com/okian/rgtrack/internal/domain/convert"
	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/internal/domain/scoreimport"
	"github.com/okian/rgtrack/internal/domain/targets"
	"github.com/okian/rgtrack/pkg/logger"
)

// Store is the persistence the handlers read and write directly.
type Store interface {
	GetScore(ctx context.Context, scoreID string) (*model.Score, error)
	UpdateScore(ctx context.Context, scoreID string, fn func(*model.Score)) (*model.Score, error)
	FindChartByID(ctx context.Context, chartID string) (*model.Chart, error)
	HasPlayed(ctx context.Context, userID int, game, playtype string) (bool, error)

	PutGoal(ctx context.Context, g *model.Goal) (bool, error)
	GetGoal(ctx context.Context, goalID string) (*model.Goal, error)
	GetMilestone(ctx context.Context, id string) (*model.Milestone, error)
	GetMilestones(ctx context.Context, ids []string) ([]model.Milestone, error)
	SearchMilestones(ctx context.Context, game, playtype, search string, limit int) ([]model.Milestone, error)
	DeleteMilestone(ctx context.Context, id string) error
	PutMilestoneSet(ctx context.Context, set *model.MilestoneSet) error

	GetUserGameStats(ctx context.Context, userID int, game, playtype string) (*model.UserGameStats, error)
	GetGameSettings(ctx context.Context, userID int, game, playtype string) (*model.GameSettings, error)
	ListImports(ctx context.Context, userID int, f repository.ImportFilter) ([]model.ImportDocument, error)
	ListClassAchievements(ctx context.Context, userID int, since time.Time, limit int) ([]model.ClassAchievement, error)
}

// Leaderboard answers personal-best ranking queries per chart.
type Leaderboard interface {
	TopN(chartID string, n int) ([]repository.ChartEntry, error)
	Rank(chartID string, userID int) (repository.ChartEntry, error)
	ChartCount(chartID string) int
}

// Targets is the goal and milestone engine.
type Targets interface {
	EvaluateGoalForUser(ctx context.Context, g *model.Goal, userID int) (*model.GoalProgress, error)
	SubscribeToGoal(ctx context.Context, userID int, g *model.Goal, cancelIfAchieved bool) (*model.GoalSubscription, error)
	UnsubscribeFromGoal(ctx context.Context, userID int, goalID string) error

	GetGoalsInMilestone(ctx context.Context, m *model.Milestone) ([]model.Goal, error)
	EvaluateMilestoneProgress(ctx context.Context, userID int, m *model.Milestone) (*targets.MilestoneEvaluation, error)
	SubscribeToMilestone(ctx context.Context, userID int, m *model.Milestone, cancelIfAchieved bool) (*targets.MilestoneSubscribed, error)
	UnsubscribeFromMilestone(ctx context.Context, userID int, milestoneID string) error
	CreateMilestone(ctx context.Context, m *model.Milestone, goals []model.Goal) error
	GetChildMilestones(ctx context.Context, setID string) (*model.MilestoneSet, []model.Milestone, error)

	GetMostSubscribedGoals(ctx context.Context, game, playtype string, limit int) ([]repository.CountedGoal, error)
	GetMostSubscribedMilestones(ctx context.Context, game, playtype string, limit int) ([]repository.CountedMilestone, error)
	GetRecentlyAchievedGoals(ctx context.Context, userID int, game, playtype string, limit int) ([]targets.GoalFeedItem, error)
	GetRecentlyInteractedGoals(ctx context.Context, userID int, game, playtype string, limit int) ([]targets.GoalFeedItem, error)
	GetRecentlyAchievedMilestones(ctx context.Context, userID int, game, playtype string, limit int) ([]targets.MilestoneFeedItem, error)
	GetRecentlyInteractedMilestones(ctx context.Context, userID int, game, playtype string, limit int) ([]targets.MilestoneFeedItem, error)
}

// Importer runs one import.
type Importer interface {
	Import(ctx context.Context, in scoreimport.Input) (*model.ImportDocument, error)
}

// Parser splits an import body into entries.
type Parser interface {
	Parse(importType string, body []byte, sc convert.SourceContext) ([]json.RawMessage, convert.SourceContext, error)
}

// JobQueue accepts background jobs. It returns queue.ErrFull under backpressure.
type JobQueue interface {
	Enqueue(ctx context.Context, job model.Job) error
}

// Deps bundles everything the handlers need.
type Deps struct {
	Store    Store
	Charts   Leaderboard
	Targets  Targets
	Importer Importer
	Parser   Parser
	Jobs     JobQueue
	Stats    StatsProvider

	// ClassProviders optionally attaches remote class sources to an import.
	ClassProviders func(r *http.Request, importType string) []classes.Provider
}

// Server wires HTTP routes for the API.
type Server struct {
	deps Deps
	log  logger.Logger

	corsOrigins    []string
	importPerMin   int
	maxRecentLimit int
	maxBodyBytes   int64
	mounts         []func(chi.Router)
}

// NewServer creates an API server.
func NewServer(deps Deps, opts ...Option) *Server {
	s := &Server{
		deps:           deps,
		log:            logger.Named("http"),
		corsOrigins:    []string{"*"},
		importPerMin:   60,
		maxRecentLimit: 100,
		maxBodyBytes:   16 << 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with every route attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.corsMiddleware())
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Method(http.MethodGet, "/metrics", metricsHandler())
	for _, mount := range s.mounts {
		mount(r)
	}

	limit := s.importRateLimit()
	r.With(limit).Post("/ir/usc/{playtype}/scores", s.handleUSCScore)
	r.With(limit).Post("/ir/barbatos/score/submit", s.handleBarbatosScore)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limit)
			r.Post("/import/file/eamusement-iidx-csv", s.handleImportCSV)
			r.Post("/import/{kind}/{name}", s.handleImport)
		})

		r.Get("/games", s.handleListGames)
		r.Route("/games/{game}/{playtype}", func(r chi.Router) {
			r.Use(gptContext)
			r.Get("/", s.handleGetGPT)
			r.Get("/charts/{chartID}/pbs", s.handleChartPBs)
			r.Get("/charts/{chartID}/pbs/{userID}", s.handleUserChartPB)
			r.Route("/targets", s.registerTargets)
		})

		r.Get("/scores/{scoreID}", s.handleGetScore)
		r.Patch("/scores/{scoreID}", s.handlePatchScore)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Use(userContext)
			r.Get("/imports", s.handleListImports)
			r.Get("/imports/with-user-intent", s.handleListIntentImports)
			r.Get("/class-achievements", s.handleClassAchievements)
			r.Route("/games/{game}/{playtype}", func(r chi.Router) {
				r.Use(gptContext)
				r.Get("/", s.handleUserGameStats)
				r.Get("/targets/recently-achieved", s.handleRecentlyAchieved)
				r.Get("/targets/recently-raised", s.handleRecentlyRaised)
				r.Put("/targets/goals/{goalID}", s.handleSubscribeGoal)
				r.Delete("/targets/goals/{goalID}", s.handleUnsubscribeGoal)
				r.Put("/targets/milestones/{milestoneID}", s.handleSubscribeMilestone)
				r.Delete("/targets/milestones/{milestoneID}", s.handleUnsubscribeMilestone)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, NewKind("route", ErrNotFound, "no route for %s %s", r.Method, r.URL.Path))
	})
	return r
}

type envelope struct {
	Success     bool   `json:"success"`
	Description string `json:"description"`
	Body        any    `json:"body,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, status int, description string, body any) {
	writeJSON(w, status, envelope{Success: true, Description: description, Body: body})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Named("http").Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path), logger.String("method", r.Method), logger.Error(err))
	}
	writeJSON(w, status, envelope{Success: false, Description: err.Error()})
}

// decodeBody reads a JSON request body into v.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := s.readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return WrapKind("decode body", ErrBadRequest, err)
	}
	return nil
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, WrapKind("read body", ErrBadRequest, err)
		}
		return nil, WrapKind("read body", ErrInternal, err)
	}
	return body, nil
}

// intParam parses a positive integer path parameter.
func intParam(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || v < 1 {
		return 0, NewKind("param", ErrBadRequest, "%s must be a positive integer", name)
	}
	return v, nil
}

// limitQuery reads ?limit=, defaulting to def and capped at max.
func limitQuery(r *http.Request, def, max int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > max {
		return 0, NewKind("query", ErrBadRequest, "limit must be between 1 and %d", max)
	}
	return n, nil
}

func boolQuery(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}
