// Package targets evaluates goals and milestones and keeps user subscriptions to them current.
//
// A user subscribed to a milestone is subscribed to every goal in it. Milestone edits do
// not enforce this; UpdateMilestoneSubscriptions repairs it afterwards.
package targets

import (
	"context"
	"time"

	"github.com/okian/rgtrack/internal/adapters/repository"
	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/pkg/logger"
)

// Store is the persistence the engine needs.
type Store interface {
	FindChartsByIDs(ctx context.Context, chartIDs []string) ([]model.Chart, error)
	GetUserScoresOnCharts(ctx context.Context, userID int, game, playtype string, chartIDs []string) (map[string][]model.Score, error)

	PutGoal(ctx context.Context, g *model.Goal) (bool, error)
	GetGoal(ctx context.Context, goalID string) (*model.Goal, error)
	GetGoals(ctx context.Context, goalIDs []string) ([]model.Goal, error)
	InsertGoalSub(ctx context.Context, sub *model.GoalSubscription) error
	PutGoalSub(ctx context.Context, sub *model.GoalSubscription) error
	GetGoalSub(ctx context.Context, userID int, goalID string) (*model.GoalSubscription, error)
	GetGoalSubs(ctx context.Context, userID int, goalIDs []string) ([]model.GoalSubscription, error)
	DeleteGoalSub(ctx context.Context, userID int, goalID string) error
	ListGoalSubs(ctx context.Context, userID int, game, playtype string) ([]model.GoalSubscription, error)
	MostSubscribedGoals(ctx context.Context, game, playtype string, limit int) ([]repository.CountedGoal, error)

	PutMilestone(ctx context.Context, m *model.Milestone) error
	GetMilestone(ctx context.Context, id string) (*model.Milestone, error)
	GetMilestones(ctx context.Context, ids []string) ([]model.Milestone, error)
	DeleteMilestone(ctx context.Context, id string) error
	InsertMilestoneSub(ctx context.Context, sub *model.MilestoneSubscription) error
	PutMilestoneSub(ctx context.Context, sub *model.MilestoneSubscription) error
	GetMilestoneSub(ctx context.Context, userID int, id string) (*model.MilestoneSubscription, error)
	DeleteMilestoneSub(ctx context.Context, userID int, id string) error
	ListMilestoneSubs(ctx context.Context, userID int, game, playtype string) ([]model.MilestoneSubscription, error)
	ListMilestoneSubscribers(ctx context.Context, id string) ([]model.MilestoneSubscription, error)
	MostSubscribedMilestones(ctx context.Context, game, playtype string, limit int) ([]repository.CountedMilestone, error)
	GetMilestoneSet(ctx context.Context, id string) (*model.MilestoneSet, error)
}

// Notifier delivers in-app notifications.
type Notifier interface {
	BulkSendNotification(ctx context.Context, title string, userIDs []int, body model.NotificationBody) error
}

// Emitter publishes webhook events without blocking the caller.
type Emitter interface {
	Emit(ctx context.Context, ev model.WebhookEvent)
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the time source used for subscription timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithEmitter sets the webhook emitter.
func WithEmitter(em Emitter) Option {
	return func(e *Engine) {
		e.emitter = em
	}
}

// WithNotifier sets the notification sender used by reconciliation.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithEvalConcurrency bounds how many goals are evaluated at once when a milestone is
// evaluated without a subscription.
func WithEvalConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.evalConcurrency = n
		}
	}
}

// Engine evaluates and persists goal and milestone state.
type Engine struct {
	store           Store
	emitter         Emitter
	notifier        Notifier
	now             func() time.Time
	evalConcurrency int
	log             logger.Logger
}

// New creates an Engine.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:           store,
		now:             time.Now,
		evalConcurrency: 8,
		log:             logger.Named("targets"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) emit(ctx context.Context, ev model.WebhookEvent) {
	if e.emitter != nil {
		e.emitter.Emit(ctx, ev)
	}
}

func (e *Engine) timestamp() *time.Time {
	t := e.now()
	return &t
}
