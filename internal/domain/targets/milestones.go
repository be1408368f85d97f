package targets

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/rgtrack/internal/adapters/repository"
	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/pkg/logger"
	"github.com/okian/rgtrack/pkg/metrics"
)

// GoalResult is a user's progress on one goal of a milestone.
type GoalResult struct {
	GoalID string `json:"goalID"`
	model.GoalProgress
}

// MilestoneEvaluation is a milestone's goals and the user's progress on them.
type MilestoneEvaluation struct {
	Goals       []model.Goal  `json:"goals"`
	GoalResults []GoalResult  `json:"results"`
	model.MilestoneProgress
}

// MilestoneSubscribed is the result of SubscribeToMilestone.
type MilestoneSubscribed struct {
	Subscription *model.MilestoneSubscription `json:"milestoneSub"`
	Goals        []model.Goal                 `json:"goals"`
	GoalResults  []GoalResult                 `json:"results"`
}

// GetGoalIDsFromMilestone flattens the milestone sections into goalIDs, in order.
func GetGoalIDsFromMilestone(m *model.Milestone) []string {
	var ids []string
	for _, section := range m.MilestoneData {
		for _, ref := range section.Goals {
			ids = append(ids, ref.GoalID)
		}
	}
	return ids
}

// GetGoalsInMilestone fetches every goal of a milestone in one batch. A count mismatch or
// fewer than two goals means the milestone is corrupt.
func (e *Engine) GetGoalsInMilestone(ctx context.Context, m *model.Milestone) ([]model.Goal, error) {
	ids := GetGoalIDsFromMilestone(m)
	goals, err := e.store.GetGoals(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch milestone goals: %w", err)
	}
	if len(goals) != len(ids) {
		return nil, e.corrupt(ctx, "milestones", "milestone goal count does not match the goals stored",
			logger.String("milestone", m.Name), logger.Int("expected", len(ids)), logger.Int("found", len(goals)))
	}
	if len(ids) < 2 {
		return nil, e.corrupt(ctx, "milestones", "milestone resolves to less than two goals", logger.String("milestone", m.Name))
	}
	return goals, nil
}

// CalculateMilestoneOutOf returns how many goals must be achieved.
func CalculateMilestoneOutOf(m *model.Milestone) (int, error) {
	switch m.Criteria.Type {
	case model.MilestoneAll:
		return len(GetGoalIDsFromMilestone(m)), nil
	case model.MilestoneTotal:
		if m.Criteria.Value == nil {
			return 0, fmt.Errorf("%w: %s has total criteria without a value", ErrInvalidMilestone, m.MilestoneID)
		}
		return *m.Criteria.Value, nil
	}
	return 0, fmt.Errorf("%w: %s has criteria type %q", ErrInvalidMilestone, m.MilestoneID, m.Criteria.Type)
}

// EvaluateMilestoneProgress evaluates a milestone for a user. Subscribed users have their
// progress read from their goal subscriptions; a missing one is corruption. Otherwise
// every goal is evaluated fresh and nothing is persisted.
func (e *Engine) EvaluateMilestoneProgress(ctx context.Context, userID int, m *model.Milestone) (*MilestoneEvaluation, error) {
	goals, err := e.GetGoalsInMilestone(ctx, m)
	if err != nil {
		return nil, err
	}
	outOf, err := CalculateMilestoneOutOf(m)
	if err != nil {
		return nil, err
	}

	subscribed := true
	if _, err := e.store.GetMilestoneSub(ctx, userID, m.MilestoneID); errors.Is(err, repository.ErrNotFound) {
		subscribed = false
	} else if err != nil {
		return nil, err
	}

	results := make([]GoalResult, len(goals))
	if subscribed {
		ids := make([]string, len(goals))
		for i := range goals {
			ids[i] = goals[i].GoalID
		}
		subs, err := e.store.GetGoalSubs(ctx, userID, ids)
		if err != nil {
			return nil, err
		}
		byGoal := make(map[string]*model.GoalSubscription, len(subs))
		for i := range subs {
			byGoal[subs[i].GoalID] = &subs[i]
		}
		for i := range goals {
			sub, ok := byGoal[goals[i].GoalID]
			if !ok {
				return nil, e.corrupt(ctx, "milestones", "user is subscribed to a milestone but not to all of its goals",
					logger.Int("user_id", userID), logger.String("milestone", m.Name), logger.String("goal_id", goals[i].GoalID))
			}
			results[i] = GoalResult{GoalID: goals[i].GoalID, GoalProgress: sub.GoalProgress}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.evalConcurrency)
		for i := range goals {
			g.Go(func() error {
				res, err := e.EvaluateGoalForUser(gctx, &goals[i], userID)
				if err != nil {
					return fmt.Errorf("goal %s in milestone %s: %w", goals[i].GoalID, m.MilestoneID, err)
				}
				results[i] = GoalResult{GoalID: goals[i].GoalID, GoalProgress: *res}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	progress := 0
	for i := range results {
		if results[i].Achieved {
			progress++
		}
	}
	return &MilestoneEvaluation{
		Goals:             goals,
		GoalResults:       results,
		MilestoneProgress: model.MilestoneProgress{Achieved: progress >= outOf, Progress: progress, OutOf: outOf},
	}, nil
}

// SubscribeToMilestone subscribes a user to a milestone and every goal in it. Goal
// subscriptions are written before the milestone subscription so the milestone is
// never visible without its goals.
func (e *Engine) SubscribeToMilestone(ctx context.Context, userID int, m *model.Milestone, cancelIfAchieved bool) (*MilestoneSubscribed, error) {
	if _, err := e.store.GetMilestoneSub(ctx, userID, m.MilestoneID); err == nil {
		return nil, ErrAlreadySubscribed
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	res, err := e.EvaluateMilestoneProgress(ctx, userID, m)
	if err != nil {
		return nil, err
	}
	if res.Achieved && cancelIfAchieved {
		return nil, ErrAlreadyAchieved
	}

	for i := range res.Goals {
		_, err := e.subscribeToGoal(ctx, userID, &res.Goals[i], false, false)
		if err != nil && !errors.Is(err, ErrAlreadySubscribed) {
			return nil, err
		}
	}

	sub := &model.MilestoneSubscription{
		UserID:               userID,
		MilestoneID:          m.MilestoneID,
		Game:                 m.Game,
		Playtype:             m.Playtype,
		MilestoneProgress:    res.MilestoneProgress,
		WasInstantlyAchieved: res.Achieved,
		TimeSet:              e.now(),
	}
	if res.Achieved {
		sub.TimeAchieved = e.timestamp()
	}
	if err := e.store.InsertMilestoneSub(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrAlreadySubscribed
		}
		return nil, fmt.Errorf("insert milestone subscription: %w", err)
	}

	e.log.Info(ctx, "user subscribed to milestone", logger.Int("user_id", userID), logger.String("milestone", m.Name))
	return &MilestoneSubscribed{Subscription: sub, Goals: res.Goals, GoalResults: res.GoalResults}, nil
}

// UnsubscribeFromMilestone removes the milestone subscription. Goal subscriptions are kept.
func (e *Engine) UnsubscribeFromMilestone(ctx context.Context, userID int, milestoneID string) error {
	err := e.store.DeleteMilestoneSub(ctx, userID, milestoneID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotSubscribed
	}
	return err
}

// CreateMilestone validates m against its goals, stores the goals and the milestone, and
// assigns a milestoneID when m has none.
func (e *Engine) CreateMilestone(ctx context.Context, m *model.Milestone, goals []model.Goal) error {
	byID := make(map[string]bool, len(goals))
	for i := range goals {
		if goals[i].Game != m.Game || goals[i].Playtype != m.Playtype {
			return fmt.Errorf("%w: goal %q is for another gpt", ErrInvalidMilestone, goals[i].Name)
		}
		if err := PrepareGoal(&goals[i]); err != nil {
			return err
		}
		byID[goals[i].GoalID] = true
	}

	ids := GetGoalIDsFromMilestone(m)
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !byID[id] {
			return fmt.Errorf("%w: goal %s is not provided", ErrInvalidMilestone, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: goal %s appears twice", ErrInvalidMilestone, id)
		}
		seen[id] = true
	}
	if len(ids) < 2 {
		return fmt.Errorf("%w: a milestone needs at least two goals", ErrInvalidMilestone)
	}
	outOf, err := CalculateMilestoneOutOf(m)
	if err != nil {
		return err
	}
	if outOf < 1 || outOf > len(ids) {
		return fmt.Errorf("%w: criteria value %d must be between 1 and %d", ErrInvalidMilestone, outOf, len(ids))
	}

	for i := range goals {
		if _, err := e.store.PutGoal(ctx, &goals[i]); err != nil {
			return fmt.Errorf("store goal: %w", err)
		}
	}
	if m.MilestoneID == "" {
		m.MilestoneID = "M" + uuid.NewString()
	}
	if m.TimeCreated.IsZero() {
		m.TimeCreated = e.now()
	}
	return e.store.PutMilestone(ctx, m)
}

// UpdateMilestoneSubscriptions subscribes every subscriber of a milestone to each of its
// current goals. New subscriptions trigger one bulk notification. If the milestone was
// deleted, every subscriber is unsubscribed instead. Goals removed from the milestone
// keep their subscriptions.
func (e *Engine) UpdateMilestoneSubscriptions(ctx context.Context, milestoneID string) (int, error) {
	e.log.Info(ctx, "reconciling milestone subscriptions", logger.String("milestone_id", milestoneID))

	subs, err := e.store.ListMilestoneSubscribers(ctx, milestoneID)
	if err != nil {
		metrics.RecordReconciliation("failed")
		return 0, err
	}

	m, err := e.store.GetMilestone(ctx, milestoneID)
	if errors.Is(err, repository.ErrNotFound) {
		e.log.Info(ctx, "milestone deleted, unsubscribing users",
			logger.String("milestone_id", milestoneID), logger.Int("subscribers", len(subs)))
		for i := range subs {
			if err := e.UnsubscribeFromMilestone(ctx, subs[i].UserID, milestoneID); err != nil && !errors.Is(err, ErrNotSubscribed) {
				metrics.RecordReconciliation("failed")
				return 0, err
			}
		}
		metrics.RecordReconciliation("deleted")
		return 0, nil
	}
	if err != nil {
		metrics.RecordReconciliation("failed")
		return 0, err
	}

	goals, err := e.GetGoalsInMilestone(ctx, m)
	if err != nil {
		metrics.RecordReconciliation("failed")
		return 0, err
	}

	created := 0
	for i := range subs {
		for j := range goals {
			_, err := e.subscribeToGoal(ctx, subs[i].UserID, &goals[j], false, false)
			if errors.Is(err, ErrAlreadySubscribed) {
				continue
			}
			if err != nil {
				metrics.RecordReconciliation("failed")
				return created, err
			}
			created++
		}
	}

	if created == 0 {
		metrics.RecordReconciliation("unchanged")
		return 0, nil
	}

	e.log.Info(ctx, "milestone reconciliation subscribed users to new goals",
		logger.String("milestone", m.Name), logger.Int("new_subscriptions", created))
	if e.notifier != nil {
		userIDs := make([]int, len(subs))
		for i := range subs {
			userIDs[i] = subs[i].UserID
		}
		err := e.notifier.BulkSendNotification(ctx,
			fmt.Sprintf("The milestone '%s' has changed, You have been automatically subscribed to some new goals.", m.Name),
			userIDs,
			model.NotificationBody{
				Type:    model.NotificationMilestoneChanged,
				Content: map[string]any{"milestoneID": milestoneID},
			})
		if err != nil {
			metrics.RecordReconciliation("failed")
			return created, fmt.Errorf("notify subscribers: %w", err)
		}
	}
	metrics.RecordReconciliation("updated")
	return created, nil
}
