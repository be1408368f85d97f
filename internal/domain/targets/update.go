package targets

import (
	"context"
	"fmt"
	"slices"

	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/pkg/logger"
	"github.com/okian/rgtrack/pkg/metrics"
)

func progressEqual(a, b model.GoalProgress) bool {
	if a.Achieved != b.Achieved || a.OutOf != b.OutOf {
		return false
	}
	if a.Progress == nil || b.Progress == nil {
		return a.Progress == b.Progress
	}
	return *a.Progress == *b.Progress
}

// UpdateGoalsForUser re-evaluates the user's unachieved goal subscriptions on a GPT. When
// chartIDs is non-empty only goals touching one of those charts are evaluated. Changed
// subscriptions get new progress and lastInteraction; newly achieved ones also get
// timeAchieved and are reported in one goals-achieved/v1 event.
func (e *Engine) UpdateGoalsForUser(ctx context.Context, userID int, game, playtype string, chartIDs []string) ([]model.GoalImportInfo, error) {
	subs, err := e.store.ListGoalSubs(ctx, userID, game, playtype)
	if err != nil {
		return nil, err
	}

	pending := make(map[string]*model.GoalSubscription)
	ids := make([]string, 0, len(subs))
	for i := range subs {
		if subs[i].Achieved {
			continue
		}
		pending[subs[i].GoalID] = &subs[i]
		ids = append(ids, subs[i].GoalID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	goals, err := e.store.GetGoals(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(goals) != len(ids) {
		return nil, e.corrupt(ctx, "goals", "user has subscriptions to goals that do not exist",
			logger.Int("user_id", userID), logger.Int("expected", len(ids)), logger.Int("found", len(goals)))
	}

	var infos []model.GoalImportInfo
	for i := range goals {
		g := &goals[i]
		if len(chartIDs) > 0 && !touches(g, chartIDs) {
			continue
		}
		sub := pending[g.GoalID]
		res, err := e.EvaluateGoalForUser(ctx, g, userID)
		if err != nil {
			return infos, fmt.Errorf("evaluate goal %s: %w", g.GoalID, err)
		}
		if progressEqual(sub.GoalProgress, *res) {
			continue
		}

		info := model.GoalImportInfo{GoalID: g.GoalID, Old: sub.GoalProgress, New: *res}
		sub.GoalProgress = *res
		sub.LastInteraction = e.timestamp()
		if res.Achieved {
			sub.TimeAchieved = sub.LastInteraction
			metrics.RecordGoalAchieved()
		}
		if err := e.store.PutGoalSub(ctx, sub); err != nil {
			return infos, fmt.Errorf("update goal subscription: %w", err)
		}
		infos = append(infos, info)
	}

	var achieved []model.GoalImportInfo
	for _, info := range infos {
		if info.New.Achieved {
			achieved = append(achieved, info)
		}
	}
	if len(achieved) > 0 {
		e.emit(ctx, model.WebhookEvent{
			Type:    model.WebhookGoalsAchieved,
			Content: model.GoalsAchievedContent{UserID: userID, Goals: achieved},
		})
	}
	return infos, nil
}

func touches(g *model.Goal, chartIDs []string) bool {
	for _, id := range g.Charts.Data {
		if slices.Contains(chartIDs, id) {
			return true
		}
	}
	return false
}

// UpdateMilestonesForUser re-evaluates the user's unachieved milestone subscriptions that
// contain one of the changed goals. It must run after UpdateGoalsForUser, since progress
// is read from goal subscriptions.
func (e *Engine) UpdateMilestonesForUser(ctx context.Context, userID int, game, playtype string, changed []model.GoalImportInfo) ([]model.MilestoneImportInfo, error) {
	if len(changed) == 0 {
		return nil, nil
	}
	changedGoals := make([]string, len(changed))
	for i := range changed {
		changedGoals[i] = changed[i].GoalID
	}

	subs, err := e.store.ListMilestoneSubs(ctx, userID, game, playtype)
	if err != nil {
		return nil, err
	}
	pending := make(map[string]*model.MilestoneSubscription)
	ids := make([]string, 0, len(subs))
	for i := range subs {
		if subs[i].Achieved {
			continue
		}
		pending[subs[i].MilestoneID] = &subs[i]
		ids = append(ids, subs[i].MilestoneID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	milestones, err := e.store.GetMilestones(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(milestones) != len(ids) {
		return nil, e.corrupt(ctx, "milestones", "user has subscriptions to milestones that do not exist",
			logger.Int("user_id", userID), logger.Int("expected", len(ids)), logger.Int("found", len(milestones)))
	}

	var infos []model.MilestoneImportInfo
	for i := range milestones {
		m := &milestones[i]
		if !containsAny(GetGoalIDsFromMilestone(m), changedGoals) {
			continue
		}
		sub := pending[m.MilestoneID]
		res, err := e.EvaluateMilestoneProgress(ctx, userID, m)
		if err != nil {
			return infos, fmt.Errorf("evaluate milestone %s: %w", m.MilestoneID, err)
		}
		if res.MilestoneProgress == sub.MilestoneProgress {
			continue
		}

		infos = append(infos, model.MilestoneImportInfo{MilestoneID: m.MilestoneID, Old: sub.MilestoneProgress, New: res.MilestoneProgress})
		sub.MilestoneProgress = res.MilestoneProgress
		sub.LastInteraction = e.timestamp()
		if res.Achieved {
			sub.TimeAchieved = sub.LastInteraction
			metrics.RecordMilestoneAchieved()
			e.emit(ctx, model.WebhookEvent{
				Type: model.WebhookMilestoneAchieved,
				Content: model.MilestoneAchievedContent{
					UserID: userID, MilestoneID: m.MilestoneID, Game: game, Playtype: playtype,
				},
			})
		}
		if err := e.store.PutMilestoneSub(ctx, sub); err != nil {
			return infos, fmt.Errorf("update milestone subscription: %w", err)
		}
	}
	return infos, nil
}

func containsAny(haystack, needles []string) bool {
	for _, n := range needles {
		if slices.Contains(haystack, n) {
			return true
		}
	}
	return false
}
