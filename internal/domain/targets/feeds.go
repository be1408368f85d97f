package targets

import (
	"context"
	"sort"

	"github.com/okian/rgtrack/internal/adapters/repository"
	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/pkg/logger"
)

// GoalFeedItem pairs a subscription with its goal.
type GoalFeedItem struct {
	Goal         model.Goal             `json:"goal"`
	Subscription model.GoalSubscription `json:"goalSub"`
}

// MilestoneFeedItem pairs a subscription with its milestone.
type MilestoneFeedItem struct {
	Milestone    model.Milestone             `json:"milestone"`
	Subscription model.MilestoneSubscription `json:"milestoneSub"`
}

// GetRecentlyAchievedGoals returns goals the user achieved after subscribing, newest first.
func (e *Engine) GetRecentlyAchievedGoals(ctx context.Context, userID int, game, playtype string, limit int) ([]GoalFeedItem, error) {
	return e.goalFeed(ctx, userID, game, playtype, limit,
		func(s *model.GoalSubscription) bool {
			return s.Achieved && !s.WasInstantlyAchieved && s.TimeAchieved != nil
		},
		func(a, b *model.GoalSubscription) bool { return a.TimeAchieved.After(*b.TimeAchieved) })
}

// GetRecentlyInteractedGoals returns unachieved goals an import moved, most recent first.
func (e *Engine) GetRecentlyInteractedGoals(ctx context.Context, userID int, game, playtype string, limit int) ([]GoalFeedItem, error) {
	return e.goalFeed(ctx, userID, game, playtype, limit,
		func(s *model.GoalSubscription) bool { return !s.Achieved && s.LastInteraction != nil },
		func(a, b *model.GoalSubscription) bool { return a.LastInteraction.After(*b.LastInteraction) })
}

func (e *Engine) goalFeed(ctx context.Context, userID int, game, playtype string, limit int,
	keep func(*model.GoalSubscription) bool, newer func(a, b *model.GoalSubscription) bool,
) ([]GoalFeedItem, error) {
	if limit < 1 {
		return nil, repository.ErrInvalidLimit
	}
	subs, err := e.store.ListGoalSubs(ctx, userID, game, playtype)
	if err != nil {
		return nil, err
	}
	var picked []model.GoalSubscription
	for i := range subs {
		if keep(&subs[i]) {
			picked = append(picked, subs[i])
		}
	}
	sort.SliceStable(picked, func(i, j int) bool { return newer(&picked[i], &picked[j]) })
	if len(picked) > limit {
		picked = picked[:limit]
	}

	ids := make([]string, len(picked))
	for i := range picked {
		ids[i] = picked[i].GoalID
	}
	goals, err := e.store.GetGoals(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(goals) != len(ids) {
		return nil, e.corrupt(ctx, "goals", "goal subscriptions reference goals that do not exist",
			logger.Int("user_id", userID), logger.Int("expected", len(ids)), logger.Int("found", len(goals)))
	}
	byID := make(map[string]model.Goal, len(goals))
	for _, g := range goals {
		byID[g.GoalID] = g
	}
	out := make([]GoalFeedItem, len(picked))
	for i := range picked {
		out[i] = GoalFeedItem{Goal: byID[picked[i].GoalID], Subscription: picked[i]}
	}
	return out, nil
}

// GetRecentlyAchievedMilestones returns milestones the user achieved after subscribing, newest first.
func (e *Engine) GetRecentlyAchievedMilestones(ctx context.Context, userID int, game, playtype string, limit int) ([]MilestoneFeedItem, error) {
	return e.milestoneFeed(ctx, userID, game, playtype, limit,
		func(s *model.MilestoneSubscription) bool {
			return s.Achieved && !s.WasInstantlyAchieved && s.TimeAchieved != nil
		},
		func(a, b *model.MilestoneSubscription) bool { return a.TimeAchieved.After(*b.TimeAchieved) })
}

// GetRecentlyInteractedMilestones returns unachieved milestones an import moved, most recent first.
func (e *Engine) GetRecentlyInteractedMilestones(ctx context.Context, userID int, game, playtype string, limit int) ([]MilestoneFeedItem, error) {
	return e.milestoneFeed(ctx, userID, game, playtype, limit,
		func(s *model.MilestoneSubscription) bool { return !s.Achieved && s.LastInteraction != nil },
		func(a, b *model.MilestoneSubscription) bool { return a.LastInteraction.After(*b.LastInteraction) })
}

func (e *Engine) milestoneFeed(ctx context.Context, userID int, game, playtype string, limit int,
	keep func(*model.MilestoneSubscription) bool, newer func(a, b *model.MilestoneSubscription) bool,
) ([]MilestoneFeedItem, error) {
	if limit < 1 {
		return nil, repository.ErrInvalidLimit
	}
	subs, err := e.store.ListMilestoneSubs(ctx, userID, game, playtype)
	if err != nil {
		return nil, err
	}
	var picked []model.MilestoneSubscription
	for i := range subs {
		if keep(&subs[i]) {
			picked = append(picked, subs[i])
		}
	}
	sort.SliceStable(picked, func(i, j int) bool { return newer(&picked[i], &picked[j]) })
	if len(picked) > limit {
		picked = picked[:limit]
	}

	ids := make([]string, len(picked))
	for i := range picked {
		ids[i] = picked[i].MilestoneID
	}
	milestones, err := e.store.GetMilestones(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(milestones) != len(ids) {
		return nil, e.corrupt(ctx, "milestones", "milestone subscriptions reference milestones that do not exist",
			logger.Int("user_id", userID), logger.Int("expected", len(ids)), logger.Int("found", len(milestones)))
	}
	byID := make(map[string]model.Milestone, len(milestones))
	for _, m := range milestones {
		byID[m.MilestoneID] = m
	}
	out := make([]MilestoneFeedItem, len(picked))
	for i := range picked {
		out[i] = MilestoneFeedItem{Milestone: byID[picked[i].MilestoneID], Subscription: picked[i]}
	}
	return out, nil
}

// GetMostSubscribedGoals returns a GPT's goals ordered by subscriber count.
func (e *Engine) GetMostSubscribedGoals(ctx context.Context, game, playtype string, limit int) ([]repository.CountedGoal, error) {
	return e.store.MostSubscribedGoals(ctx, game, playtype, limit)
}

// GetMostSubscribedMilestones returns a GPT's milestones ordered by subscriber count.
func (e *Engine) GetMostSubscribedMilestones(ctx context.Context, game, playtype string, limit int) ([]repository.CountedMilestone, error) {
	return e.store.MostSubscribedMilestones(ctx, game, playtype, limit)
}

// GetChildMilestones returns a milestone set and its milestones in set order.
func (e *Engine) GetChildMilestones(ctx context.Context, setID string) (*model.MilestoneSet, []model.Milestone, error) {
	set, err := e.store.GetMilestoneSet(ctx, setID)
	if err != nil {
		return nil, nil, err
	}
	milestones, err := e.store.GetMilestones(ctx, set.Milestones)
	if err != nil {
		return nil, nil, err
	}
	if len(milestones) != len(set.Milestones) {
		return nil, nil, e.corrupt(ctx, "milestones", "milestone set references milestones that do not exist",
			logger.String("set_id", setID), logger.Int("expected", len(set.Milestones)), logger.Int("found", len(milestones)))
	}
	return set, milestones, nil
}
