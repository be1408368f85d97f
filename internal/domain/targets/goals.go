package targets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/rgtrack/internal/adapters/repository"
	"github.com/okian/rgtrack/internal/domain/gpt"
	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/pkg/logger"
	"github.com/okian/rgtrack/pkg/metrics"
)

// CreateGoalID derives a goal's ID from its GPT, charts and criteria, so equal goals
// share one document. Chart order does not matter.
func CreateGoalID(g *model.Goal) string {
	charts := slices.Clone(g.Charts.Data)
	slices.Sort(charts)

	count := "null"
	if g.Criteria.CountNum != nil {
		count = strconv.FormatFloat(*g.Criteria.CountNum, 'g', -1, 64)
	}
	parts := []string{
		g.Game, g.Playtype, g.Charts.Type, strings.Join(charts, ","),
		g.Criteria.Key, strconv.FormatFloat(g.Criteria.Value, 'g', -1, 64), g.Criteria.Mode, count,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return "G" + hex.EncodeToString(sum[:])
}

// ValidateGoal checks a goal's charts and criteria against its GPT config.
func ValidateGoal(g *model.Goal) (*gpt.Config, error) {
	cfg, err := gpt.Get(g.Game, g.Playtype)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGoal, err)
	}

	n := len(g.Charts.Data)
	switch g.Charts.Type {
	case model.GoalChartsSingle:
		if n != 1 {
			return nil, fmt.Errorf("%w: single charts must reference exactly one chart", ErrInvalidGoal)
		}
	case model.GoalChartsMulti:
		if n < 2 {
			return nil, fmt.Errorf("%w: multi charts must reference at least two charts", ErrInvalidGoal)
		}
	default:
		return nil, fmt.Errorf("%w: unknown charts type %q", ErrInvalidGoal, g.Charts.Type)
	}

	key := g.Criteria.Key
	def, section, ok := cfg.Metric(key)
	if !ok || section == gpt.Additional || def.Kind == gpt.Graph {
		return nil, fmt.Errorf("%w: %s cannot be used as a goal metric for %s", ErrInvalidGoal, key, cfg.ID())
	}
	v := g.Criteria.Value
	if def.Kind == gpt.Enum {
		if _, ok := cfg.EnumValue(key, int(v)); !ok || v != math.Trunc(v) {
			return nil, fmt.Errorf("%w: %v is not a valid %s index", ErrInvalidGoal, v, key)
		}
	} else {
		if (def.Min != nil && v < *def.Min) || (def.Max != nil && v > *def.Max) {
			return nil, fmt.Errorf("%w: %s of %v is out of range", ErrInvalidGoal, key, v)
		}
	}

	count := g.Criteria.CountNum
	switch g.Criteria.Mode {
	case model.CriteriaSingle:
		if count != nil {
			return nil, fmt.Errorf("%w: single mode takes no countNum", ErrInvalidGoal)
		}
	case model.CriteriaAbsolute:
		if count == nil || *count != math.Trunc(*count) || *count < 1 || int(*count) > n || g.Charts.Type != model.GoalChartsMulti {
			return nil, fmt.Errorf("%w: absolute mode needs an integer countNum between 1 and %d on multiple charts", ErrInvalidGoal, n)
		}
	case model.CriteriaProportion:
		if count == nil || *count <= 0 || *count > 1 || math.Floor(*count*float64(n)) < 1 || g.Charts.Type != model.GoalChartsMulti {
			return nil, fmt.Errorf("%w: proportion mode needs a countNum in (0, 1] covering at least one chart", ErrInvalidGoal)
		}
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidGoal, g.Criteria.Mode)
	}
	return cfg, nil
}

// PrepareGoal validates g, fills in its goalID and, when empty, a generated name.
func PrepareGoal(g *model.Goal) error {
	cfg, err := ValidateGoal(g)
	if err != nil {
		return err
	}
	g.GoalID = CreateGoalID(g)
	if g.Name == "" {
		g.Name = defaultGoalName(cfg, g)
	}
	return nil
}

func defaultGoalName(cfg *gpt.Config, g *model.Goal) string {
	target := humanValue(cfg, g.Criteria.Key, g.Criteria.Value)
	n := len(g.Charts.Data)
	switch g.Criteria.Mode {
	case model.CriteriaAbsolute:
		return fmt.Sprintf("Get %s on %d of %d charts", target, int(*g.Criteria.CountNum), n)
	case model.CriteriaProportion:
		return fmt.Sprintf("Get %s on %s%% of %d charts", target, strconv.FormatFloat(*g.Criteria.CountNum*100, 'f', -1, 64), n)
	}
	if n == 1 {
		return fmt.Sprintf("Get %s on %s", target, g.Charts.Data[0])
	}
	return fmt.Sprintf("Get %s on any of %d charts", target, n)
}

// humanValue renders a criteria or progress value the way the GPT displays it.
func humanValue(cfg *gpt.Config, key string, v float64) string {
	def, _, _ := cfg.Metric(key)
	switch {
	case def.Kind == gpt.Enum:
		if s, ok := cfg.EnumValue(key, int(v)); ok {
			return s
		}
		return strconv.Itoa(int(v))
	case key == "percent":
		return fmt.Sprintf("%.2f%%", v)
	case def.Kind == gpt.Integer:
		return strconv.FormatInt(int64(v), 10)
	default:
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
}

// scoreValue reads the goal metric off a score. ENUM metrics compare by index.
func scoreValue(cfg *gpt.Config, s *model.Score, key string) (float64, bool) {
	def, _, ok := cfg.Metric(key)
	if !ok {
		return 0, false
	}
	if def.Kind == gpt.Enum {
		idx, ok := s.ScoreData.EnumIndexes[key]
		return float64(idx), ok
	}
	return s.ScoreData.Metrics.Num(key)
}

func (e *Engine) corrupt(ctx context.Context, component, msg string, fields ...logger.Field) error {
	metrics.RecordCorruption(component)
	e.log.Severe(ctx, msg, append(fields, logger.String("component", component))...)
	return fmt.Errorf("%w: %s", ErrCorrupt, msg)
}

// EvaluateGoalForUser evaluates a goal against the user's current scores. It reads
// nothing from and writes nothing to subscriptions.
func (e *Engine) EvaluateGoalForUser(ctx context.Context, g *model.Goal, userID int) (*model.GoalProgress, error) {
	cfg, err := gpt.Get(g.Game, g.Playtype)
	if err != nil {
		return nil, e.corrupt(ctx, "goals", "goal has an unknown gpt", logger.String("goal_id", g.GoalID), logger.Error(err))
	}

	chartIDs := g.Charts.Data
	charts, err := e.store.FindChartsByIDs(ctx, chartIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch goal charts: %w", err)
	}
	if len(charts) != len(chartIDs) {
		return nil, e.corrupt(ctx, "goals", "goal references charts that do not exist",
			logger.String("goal_id", g.GoalID), logger.Int("expected", len(chartIDs)), logger.Int("found", len(charts)))
	}

	scores, err := e.store.GetUserScoresOnCharts(ctx, userID, g.Game, g.Playtype, chartIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch goal scores: %w", err)
	}

	key, target := g.Criteria.Key, g.Criteria.Value
	var (
		best    *float64
		reached int
	)
	for _, chartID := range chartIDs {
		var chartBest *float64
		for i := range scores[chartID] {
			v, ok := scoreValue(cfg, &scores[chartID][i], key)
			if ok && (chartBest == nil || v > *chartBest) {
				chartBest = &v
			}
		}
		if chartBest == nil {
			continue
		}
		if best == nil || *chartBest > *best {
			best = chartBest
		}
		if *chartBest >= target {
			reached++
		}
	}

	switch g.Criteria.Mode {
	case model.CriteriaSingle:
		res := &model.GoalProgress{
			Achieved:      best != nil && *best >= target,
			Progress:      best,
			OutOf:         target,
			ProgressHuman: "NO DATA",
			OutOfHuman:    humanValue(cfg, key, target),
		}
		if best != nil {
			res.ProgressHuman = humanValue(cfg, key, *best)
		}
		return res, nil
	case model.CriteriaAbsolute, model.CriteriaProportion:
		if g.Criteria.CountNum == nil {
			return nil, e.corrupt(ctx, "goals", "goal has no countNum", logger.String("goal_id", g.GoalID))
		}
		outOf := *g.Criteria.CountNum
		if g.Criteria.Mode == model.CriteriaProportion {
			outOf = math.Floor(outOf * float64(len(chartIDs)))
		}
		progress := float64(reached)
		return &model.GoalProgress{
			Achieved:      progress >= outOf,
			Progress:      &progress,
			OutOf:         outOf,
			ProgressHuman: strconv.Itoa(reached),
			OutOfHuman:    strconv.Itoa(int(outOf)),
		}, nil
	}
	return nil, e.corrupt(ctx, "goals", "goal has an unknown criteria mode", logger.String("goal_id", g.GoalID))
}

// SubscribeToGoal subscribes a user to a goal on their own. See subscribeToGoal.
func (e *Engine) SubscribeToGoal(ctx context.Context, userID int, g *model.Goal, cancelIfAchieved bool) (*model.GoalSubscription, error) {
	return e.subscribeToGoal(ctx, userID, g, cancelIfAchieved, true)
}

// subscribeToGoal stores the goal if needed and creates the subscription with the
// user's current progress. It fails with ErrAlreadySubscribed when one exists, and
// with ErrAlreadyAchieved when cancelIfAchieved is set and the goal is already met.
func (e *Engine) subscribeToGoal(ctx context.Context, userID int, g *model.Goal, cancelIfAchieved, standalone bool) (*model.GoalSubscription, error) {
	if _, err := e.store.GetGoalSub(ctx, userID, g.GoalID); err == nil {
		return nil, ErrAlreadySubscribed
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	res, err := e.EvaluateGoalForUser(ctx, g, userID)
	if err != nil {
		return nil, err
	}
	if res.Achieved && cancelIfAchieved {
		return nil, ErrAlreadyAchieved
	}

	if _, err := e.store.PutGoal(ctx, g); err != nil {
		return nil, fmt.Errorf("store goal: %w", err)
	}

	sub := &model.GoalSubscription{
		UserID:                userID,
		GoalID:                g.GoalID,
		Game:                  g.Game,
		Playtype:              g.Playtype,
		GoalProgress:          *res,
		WasInstantlyAchieved:  res.Achieved,
		WasAssignedStandalone: standalone,
		TimeSet:               e.now(),
	}
	if res.Achieved {
		sub.TimeAchieved = e.timestamp()
	}
	if err := e.store.InsertGoalSub(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrAlreadySubscribed
		}
		return nil, fmt.Errorf("insert goal subscription: %w", err)
	}

	e.log.Debug(ctx, "user subscribed to goal", logger.Int("user_id", userID), logger.String("goal_id", g.GoalID))
	return sub, nil
}

// UnsubscribeFromGoal removes a goal subscription. Goals required by one of the user's
// milestone subscriptions cannot be removed.
func (e *Engine) UnsubscribeFromGoal(ctx context.Context, userID int, goalID string) error {
	sub, err := e.store.GetGoalSub(ctx, userID, goalID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotSubscribed
	}
	if err != nil {
		return err
	}

	msSubs, err := e.store.ListMilestoneSubs(ctx, userID, sub.Game, sub.Playtype)
	if err != nil {
		return err
	}
	if len(msSubs) > 0 {
		ids := make([]string, len(msSubs))
		for i := range msSubs {
			ids[i] = msSubs[i].MilestoneID
		}
		milestones, err := e.store.GetMilestones(ctx, ids)
		if err != nil {
			return err
		}
		for i := range milestones {
			if slices.Contains(GetGoalIDsFromMilestone(&milestones[i]), goalID) {
				return fmt.Errorf("%w: %s", ErrGoalInMilestone, milestones[i].Name)
			}
		}
	}

	if err := e.store.DeleteGoalSub(ctx, userID, goalID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotSubscribed
		}
		return err
	}
	return nil
}
