package targets

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rgtrack/internal/adapters/repository"
	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/pkg/logger"
)

func init() {
	_ = logger.InitWithWriter(io.Discard)
}

type recorder struct {
	mu            sync.Mutex
	events        []model.WebhookEvent
	notifications [][]int
}

func (r *recorder) Emit(_ context.Context, ev model.WebhookEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) BulkSendNotification(_ context.Context, _ string, userIDs []int, _ model.NotificationBody) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, userIDs)
	return nil
}

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

var lampIndex = map[string]int{"FAILED": 1, "CLEAR": 4, "HARD CLEAR": 5}

func iidxScore(userID int, chartID, lamp string, percent float64) model.Score {
	return model.Score{
		ScoreID:  "R" + chartID + lamp,
		UserID:   userID,
		Game:     "iidx",
		Playtype: "SP",
		ChartID:  chartID,
		ScoreData: model.ScoreData{
			Metrics: model.Metrics{
				"lamp":    model.EnumMetric(lamp),
				"percent": model.DecMetric(percent),
			},
			EnumIndexes: map[string]int{"lamp": lampIndex[lamp]},
		},
	}
}

func setup() (*repository.Store, *Engine, *recorder) {
	ctx := context.Background()
	store, err := repository.Open(ctx)
	if err != nil {
		panic(err)
	}
	for _, id := range []string{"c1", "c2", "c3"} {
		if err := store.PutChart(ctx, &model.Chart{ChartID: id, SongID: 1, Game: "iidx", Playtype: "SP", Difficulty: "ANOTHER", IsPrimary: true}); err != nil {
			panic(err)
		}
	}
	_, _, err = store.InsertScores(ctx, []model.Score{
		iidxScore(1, "c1", "HARD CLEAR", 90),
		iidxScore(1, "c2", "CLEAR", 70),
	})
	if err != nil {
		panic(err)
	}
	rec := &recorder{}
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	engine := New(store, WithEmitter(rec), WithNotifier(rec), WithClock(func() time.Time { return clock }))
	return store, engine, rec
}

func lampGoal(chart string, lamp int) *model.Goal {
	g := &model.Goal{
		Game: "iidx", Playtype: "SP",
		Charts:   model.GoalCharts{Type: model.GoalChartsSingle, Data: []string{chart}},
		Criteria: model.GoalCriteria{Key: "lamp", Value: float64(lamp), Mode: model.CriteriaSingle},
	}
	if err := PrepareGoal(g); err != nil {
		panic(err)
	}
	return g
}

func TestGoalIdentity(t *testing.T) {
	Convey("Given two goals that differ only in chart order", t, func() {
		a := &model.Goal{Game: "iidx", Playtype: "SP",
			Charts:   model.GoalCharts{Type: model.GoalChartsMulti, Data: []string{"c1", "c2"}},
			Criteria: model.GoalCriteria{Key: "lamp", Value: 4, Mode: model.CriteriaAbsolute, CountNum: fptr(2)}}
		b := *a
		b.Charts.Data = []string{"c2", "c1"}

		Convey("Then they share a goalID", func() {
			So(CreateGoalID(a), ShouldEqual, CreateGoalID(&b))
			So(CreateGoalID(a), ShouldStartWith, "G")
		})

		Convey("Then changing the criteria changes the goalID", func() {
			b.Criteria.Value = 5
			So(CreateGoalID(a), ShouldNotEqual, CreateGoalID(&b))
		})
	})

	Convey("Given invalid goals", t, func() {
		base := func() *model.Goal {
			return &model.Goal{Game: "iidx", Playtype: "SP",
				Charts:   model.GoalCharts{Type: model.GoalChartsMulti, Data: []string{"c1", "c2", "c3"}},
				Criteria: model.GoalCriteria{Key: "lamp", Value: 4, Mode: model.CriteriaAbsolute, CountNum: fptr(2)}}
		}

		g := base()
		_, err := ValidateGoal(g)
		So(err, ShouldBeNil)

		g = base()
		g.Criteria.Key = "bp"
		_, err = ValidateGoal(g)
		So(errors.Is(err, ErrInvalidGoal), ShouldBeTrue)

		g = base()
		g.Criteria.Value = 42
		_, err = ValidateGoal(g)
		So(errors.Is(err, ErrInvalidGoal), ShouldBeTrue)

		g = base()
		g.Criteria.CountNum = fptr(4)
		_, err = ValidateGoal(g)
		So(errors.Is(err, ErrInvalidGoal), ShouldBeTrue)

		g = base()
		g.Criteria.Mode = model.CriteriaProportion
		g.Criteria.CountNum = fptr(0.2)
		_, err = ValidateGoal(g)
		So(errors.Is(err, ErrInvalidGoal), ShouldBeTrue)

		g = base()
		g.Charts = model.GoalCharts{Type: model.GoalChartsSingle, Data: []string{"c1", "c2"}}
		_, err = ValidateGoal(g)
		So(errors.Is(err, ErrInvalidGoal), ShouldBeTrue)
	})
}

func TestEvaluateGoalForUser(t *testing.T) {
	Convey("Given a user with scores on two of three charts", t, func() {
		ctx := context.Background()
		store, engine, _ := setup()
		defer store.Close()

		Convey("When the goal is a lamp on one chart", func() {
			res, err := engine.EvaluateGoalForUser(ctx, lampGoal("c1", 5), 1)

			Convey("Then the best lamp is reported by name", func() {
				So(err, ShouldBeNil)
				So(res.Achieved, ShouldBeTrue)
				So(*res.Progress, ShouldEqual, 5.0)
				So(res.ProgressHuman, ShouldEqual, "HARD CLEAR")
				So(res.OutOfHuman, ShouldEqual, "HARD CLEAR")
			})
		})

		Convey("When the user never played the chart", func() {
			g := &model.Goal{Game: "iidx", Playtype: "SP",
				Charts:   model.GoalCharts{Type: model.GoalChartsSingle, Data: []string{"c3"}},
				Criteria: model.GoalCriteria{Key: "percent", Value: 80, Mode: model.CriteriaSingle}}
			res, err := engine.EvaluateGoalForUser(ctx, g, 1)

			Convey("Then progress is empty", func() {
				So(err, ShouldBeNil)
				So(res.Achieved, ShouldBeFalse)
				So(res.Progress, ShouldBeNil)
				So(res.OutOfHuman, ShouldEqual, "80.00%")
			})
		})

		Convey("When the goal counts charts", func() {
			g := &model.Goal{Game: "iidx", Playtype: "SP",
				Charts:   model.GoalCharts{Type: model.GoalChartsMulti, Data: []string{"c1", "c2", "c3"}},
				Criteria: model.GoalCriteria{Key: "lamp", Value: 4, Mode: model.CriteriaAbsolute, CountNum: fptr(3)}}
			res, err := engine.EvaluateGoalForUser(ctx, g, 1)

			Convey("Then progress is the number of charts at or above the target", func() {
				So(err, ShouldBeNil)
				So(*res.Progress, ShouldEqual, 2.0)
				So(res.OutOf, ShouldEqual, 3.0)
				So(res.Achieved, ShouldBeFalse)
				So(res.ProgressHuman, ShouldEqual, "2")
			})

			Convey("Then a proportion floors the chart count", func() {
				g.Criteria.Mode = model.CriteriaProportion
				g.Criteria.CountNum = fptr(0.5)
				res, err := engine.EvaluateGoalForUser(ctx, g, 1)
				So(err, ShouldBeNil)
				So(res.OutOf, ShouldEqual, 1.0)
				So(res.Achieved, ShouldBeTrue)
			})
		})

		Convey("When the goal references a missing chart", func() {
			_, err := engine.EvaluateGoalForUser(ctx, lampGoal("missing", 4), 1)

			Convey("Then it is treated as corruption", func() {
				So(errors.Is(err, ErrCorrupt), ShouldBeTrue)
			})
		})
	})
}

func TestGoalSubscriptions(t *testing.T) {
	Convey("Given the goal engine", t, func() {
		ctx := context.Background()
		store, engine, _ := setup()
		defer store.Close()

		Convey("When subscribing to an achieved goal with cancelIfAchieved", func() {
			_, err := engine.SubscribeToGoal(ctx, 1, lampGoal("c1", 4), true)

			Convey("Then nothing is created", func() {
				So(errors.Is(err, ErrAlreadyAchieved), ShouldBeTrue)
				_, err := store.GetGoalSub(ctx, 1, lampGoal("c1", 4).GoalID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When forcing the subscription", func() {
			sub, err := engine.SubscribeToGoal(ctx, 1, lampGoal("c1", 4), false)

			Convey("Then it is instantly achieved", func() {
				So(err, ShouldBeNil)
				So(sub.WasInstantlyAchieved, ShouldBeTrue)
				So(sub.WasAssignedStandalone, ShouldBeTrue)
				So(sub.TimeAchieved, ShouldNotBeNil)
			})

			Convey("Then subscribing again fails", func() {
				_, err := engine.SubscribeToGoal(ctx, 1, lampGoal("c1", 4), false)
				So(errors.Is(err, ErrAlreadySubscribed), ShouldBeTrue)
			})

			Convey("Then unsubscribing removes it", func() {
				So(engine.UnsubscribeFromGoal(ctx, 1, sub.GoalID), ShouldBeNil)
				So(errors.Is(engine.UnsubscribeFromGoal(ctx, 1, sub.GoalID), ErrNotSubscribed), ShouldBeTrue)
			})
		})
	})
}

func newMilestone(goals ...*model.Goal) (*model.Milestone, []model.Goal) {
	m := &model.Milestone{
		Game: "iidx", Playtype: "SP", Name: "Clear set",
		Criteria: model.MilestoneCriteria{Type: model.MilestoneAll},
	}
	section := model.MilestoneSection{Title: "main"}
	list := make([]model.Goal, len(goals))
	for i, g := range goals {
		section.Goals = append(section.Goals, model.MilestoneGoalRef{GoalID: g.GoalID})
		list[i] = *g
	}
	m.MilestoneData = []model.MilestoneSection{section}
	return m, list
}

func TestMilestones(t *testing.T) {
	Convey("Given a milestone of one achieved and one open goal", t, func() {
		ctx := context.Background()
		store, engine, rec := setup()
		defer store.Close()

		achieved := lampGoal("c1", 4)
		open := lampGoal("c3", 4)
		m, goals := newMilestone(achieved, open)
		So(engine.CreateMilestone(ctx, m, goals), ShouldBeNil)
		So(m.MilestoneID, ShouldStartWith, "M")

		Convey("When evaluating without a subscription", func() {
			res, err := engine.EvaluateMilestoneProgress(ctx, 1, m)

			Convey("Then every goal is evaluated fresh", func() {
				So(err, ShouldBeNil)
				So(res.Progress, ShouldEqual, 1)
				So(res.OutOf, ShouldEqual, 2)
				So(res.Achieved, ShouldBeFalse)
				So(res.GoalResults, ShouldHaveLength, 2)
			})
		})

		Convey("When the user subscribes", func() {
			out, err := engine.SubscribeToMilestone(ctx, 1, m, true)
			So(err, ShouldBeNil)
			So(out.Subscription.WasInstantlyAchieved, ShouldBeFalse)

			Convey("Then they are subscribed to every goal", func() {
				subs, err := store.GetGoalSubs(ctx, 1, []string{achieved.GoalID, open.GoalID})
				So(err, ShouldBeNil)
				So(subs, ShouldHaveLength, 2)
				So(subs[0].WasAssignedStandalone, ShouldBeFalse)
			})

			Convey("Then subscribing again fails", func() {
				_, err := engine.SubscribeToMilestone(ctx, 1, m, true)
				So(errors.Is(err, ErrAlreadySubscribed), ShouldBeTrue)
			})

			Convey("Then a goal it needs cannot be unsubscribed", func() {
				err := engine.UnsubscribeFromGoal(ctx, 1, open.GoalID)
				So(errors.Is(err, ErrGoalInMilestone), ShouldBeTrue)
			})

			Convey("Then a missing goal subscription is corruption", func() {
				So(store.DeleteGoalSub(ctx, 1, open.GoalID), ShouldBeNil)
				_, err := engine.EvaluateMilestoneProgress(ctx, 1, m)
				So(errors.Is(err, ErrCorrupt), ShouldBeTrue)
			})

			Convey("Then a new score moves goals and the milestone", func() {
				_, _, err := store.InsertScores(ctx, []model.Score{iidxScore(1, "c3", "CLEAR", 75)})
				So(err, ShouldBeNil)

				goalInfo, err := engine.UpdateGoalsForUser(ctx, 1, "iidx", "SP", []string{"c3"})
				So(err, ShouldBeNil)
				So(goalInfo, ShouldHaveLength, 1)
				So(goalInfo[0].GoalID, ShouldEqual, open.GoalID)
				So(goalInfo[0].New.Achieved, ShouldBeTrue)

				msInfo, err := engine.UpdateMilestonesForUser(ctx, 1, "iidx", "SP", goalInfo)
				So(err, ShouldBeNil)
				So(msInfo, ShouldHaveLength, 1)
				So(msInfo[0].New.Achieved, ShouldBeTrue)

				So(rec.events, ShouldHaveLength, 2)
				So(rec.events[0].Type, ShouldEqual, model.WebhookGoalsAchieved)
				So(rec.events[1].Type, ShouldEqual, model.WebhookMilestoneAchieved)

				feed, err := engine.GetRecentlyAchievedMilestones(ctx, 1, "iidx", "SP", 10)
				So(err, ShouldBeNil)
				So(feed, ShouldHaveLength, 1)
				So(feed[0].Milestone.MilestoneID, ShouldEqual, m.MilestoneID)
			})

			Convey("Then adding a goal is repaired by reconciliation", func() {
				extra := lampGoal("c2", 4)
				_, err := store.PutGoal(ctx, extra)
				So(err, ShouldBeNil)
				m.MilestoneData[0].Goals = append(m.MilestoneData[0].Goals, model.MilestoneGoalRef{GoalID: extra.GoalID})
				So(store.PutMilestone(ctx, m), ShouldBeNil)

				created, err := engine.UpdateMilestoneSubscriptions(ctx, m.MilestoneID)
				So(err, ShouldBeNil)
				So(created, ShouldEqual, 1)
				So(rec.notifications, ShouldHaveLength, 1)
				So(rec.notifications[0], ShouldResemble, []int{1})

				created, err = engine.UpdateMilestoneSubscriptions(ctx, m.MilestoneID)
				So(err, ShouldBeNil)
				So(created, ShouldEqual, 0)
				So(rec.notifications, ShouldHaveLength, 1)
			})

			Convey("Then deleting the milestone unsubscribes its users", func() {
				So(store.DeleteMilestone(ctx, m.MilestoneID), ShouldBeNil)
				_, err := engine.UpdateMilestoneSubscriptions(ctx, m.MilestoneID)
				So(err, ShouldBeNil)
				_, err = store.GetMilestoneSub(ctx, 1, m.MilestoneID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})

	Convey("Given milestone criteria", t, func() {
		m, _ := newMilestone(lampGoal("c1", 4), lampGoal("c2", 4), lampGoal("c3", 4))

		n, err := CalculateMilestoneOutOf(m)
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 3)

		m.Criteria = model.MilestoneCriteria{Type: model.MilestoneTotal, Value: iptr(2)}
		n, _ = CalculateMilestoneOutOf(m)
		So(n, ShouldEqual, 2)

		m.Criteria.Value = nil
		_, err = CalculateMilestoneOutOf(m)
		So(errors.Is(err, ErrInvalidMilestone), ShouldBeTrue)
	})
}
