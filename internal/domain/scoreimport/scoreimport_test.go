package scoreimport

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rgtrack/internal/adapters/repository"
	"github.com/okian/rgtrack/internal/domain/classes"
	"github.com/okian/rgtrack/internal/domain/convert"
	"github.com/okian/rgtrack/internal/domain/hydrate"
	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/internal/domain/rating"
	"github.com/okian/rgtrack/internal/domain/targets"
	"github.com/okian/rgtrack/pkg/logger"
)

func init() {
	_ = logger.InitWithWriter(io.Discard)
}

func intp(v int) *int { return &v }

type harness struct {
	store    *repository.Store
	registry *convert.Registry
	targets  *targets.Engine
	importer *Importer
}

func newHarness() *harness {
	ctx := context.Background()
	store, err := repository.Open(ctx)
	if err != nil {
		panic(err)
	}
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(store.PutSong(ctx, &model.Song{ID: 10, Game: "iidx", Title: "5.1.1."}))
	must(store.PutChart(ctx, &model.Chart{ChartID: "i-spa", SongID: 10, Game: "iidx", Playtype: "SP", Difficulty: "ANOTHER",
		IsPrimary: true, LevelNum: 12, Data: model.ChartData{InGameID: intp(1000), Notecount: 786}}))
	must(store.PutChart(ctx, &model.Chart{ChartID: "i-sph", SongID: 10, Game: "iidx", Playtype: "SP", Difficulty: "HYPER",
		IsPrimary: true, LevelNum: 10, Data: model.ChartData{InGameID: intp(1000), Notecount: 500}}))

	ratings, err := rating.New()
	must(err)
	hy, err := hydrate.New(ratings)
	must(err)
	reg := convert.NewRegistry(store)
	tg := targets.New(store)
	clock := time.Date(2021, 9, 1, 18, 0, 0, 0, time.UTC)

	return &harness{
		store:    store,
		registry: reg,
		targets:  tg,
		importer: New(store, reg, hy, ratings, classes.New(store, nil), tg,
			WithConcurrency(2), WithClock(func() time.Time { return clock })),
	}
}

func (h *harness) input(scores []map[string]any, withClass bool) Input {
	doc := map[string]any{
		"meta":   map[string]any{"game": "iidx", "playtype": "SP", "service": "manual"},
		"scores": scores,
	}
	if withClass {
		doc["classes"] = map[string]any{"dan": "KAIDEN"}
	}
	body, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	entries, sc, err := h.registry.Parse("file/batch-manual", body, convert.SourceContext{UserID: 1})
	if err != nil {
		panic(err)
	}
	return Input{UserID: 1, ImportType: "file/batch-manual", Payloads: entries, Source: sc, UserIntent: true}
}

func entry(diff string, score int, lamp string, at int64) map[string]any {
	return map[string]any{"matchType": "inGameID", "identifier": "1000", "difficulty": diff,
		"score": score, "lamp": lamp, "timeAchieved": at}
}

func TestImport(t *testing.T) {
	Convey("Given a catalog with two IIDX charts", t, func() {
		ctx := context.Background()
		h := newHarness()
		defer h.store.Close()

		goal := &model.Goal{Game: "iidx", Playtype: "SP",
			Charts:   model.GoalCharts{Type: model.GoalChartsSingle, Data: []string{"i-spa"}},
			Criteria: model.GoalCriteria{Key: "lamp", Value: 5, Mode: model.CriteriaSingle}}
		So(targets.PrepareGoal(goal), ShouldBeNil)
		_, err := h.targets.SubscribeToGoal(ctx, 1, goal, true)
		So(err, ShouldBeNil)

		in := h.input([]map[string]any{
			entry("ANOTHER", 1500, "HARD CLEAR", 1630499640000),
			entry("HYPER", 900, "CLEAR", 1630499700000),
			entry("ANOTHER", 1500, "HARD CLEAR", 1630499640000),
			entry("ANOTHER", 1400, "GREAT CLEAR", 1630499760000),
			{"matchType": "inGameID", "identifier": "9999", "difficulty": "ANOTHER", "score": 10, "lamp": "FAILED"},
		}, true)

		Convey("When the batch is imported", func() {
			doc, err := h.importer.Import(ctx, in)
			So(err, ShouldBeNil)

			Convey("Then valid entries are stored once", func() {
				So(doc.ScoreIDs, ShouldHaveLength, 2)
				n, err := h.store.CountScores(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
			})

			Convey("Then failing entries are reported by index", func() {
				So(doc.Errors, ShouldHaveLength, 2)
				So(doc.Errors[0].Index, ShouldEqual, 3)
				So(doc.Errors[0].Type, ShouldEqual, string(convert.KindInvalidScore))
				So(doc.Errors[1].Index, ShouldEqual, 4)
				So(doc.Errors[1].Type, ShouldEqual, string(convert.KindSongOrChartNotFound))
			})

			Convey("Then profile state is refreshed", func() {
				So(doc.Playtypes, ShouldResemble, []string{"SP"})
				So(doc.ClassDeltas, ShouldHaveLength, 1)
				So(doc.ClassDeltas[0].Set, ShouldEqual, "dan")
				So(doc.ClassDeltas[0].Old, ShouldBeNil)
				So(doc.ClassDeltas[0].New, ShouldEqual, 18)

				stats, err := h.store.GetUserGameStats(ctx, 1, "iidx", "SP")
				So(err, ShouldBeNil)
				So(stats.Ratings, ShouldContainKey, "ktLampRating")
				So(stats.Classes["dan"], ShouldEqual, 18)
			})

			Convey("Then a session is created and the goal achieved", func() {
				So(doc.CreatedSessions, ShouldHaveLength, 1)
				So(doc.CreatedSessions[0].Type, ShouldEqual, "Created")
				sess, err := h.store.GetSession(ctx, doc.CreatedSessions[0].SessionID)
				So(err, ShouldBeNil)
				So(sess.ScoreIDs, ShouldHaveLength, 2)
				So(sess.SessionID, ShouldEqual, "Q1")

				So(doc.GoalInfo, ShouldHaveLength, 1)
				So(doc.GoalInfo[0].GoalID, ShouldEqual, goal.GoalID)
				So(doc.GoalInfo[0].New.Achieved, ShouldBeTrue)
			})

			Convey("Then the import document is stored", func() {
				stored, err := h.store.GetImport(ctx, doc.ImportID)
				So(err, ShouldBeNil)
				So(stored.ScoreIDs, ShouldResemble, doc.ScoreIDs)
				So(stored.UserIntent, ShouldBeTrue)
			})

			Convey("And the same batch is imported again", func() {
				again, err := h.importer.Import(ctx, in)

				Convey("Then nothing new is stored", func() {
					So(err, ShouldBeNil)
					So(again.ScoreIDs, ShouldBeEmpty)
					So(again.CreatedSessions, ShouldBeEmpty)
				})
			})

			Convey("And a later score is imported", func() {
				later, err := h.importer.Import(ctx, h.input([]map[string]any{
					entry("HYPER", 950, "HARD CLEAR", 1630503000000),
				}, false))

				Convey("Then it joins the open session", func() {
					So(err, ShouldBeNil)
					So(later.CreatedSessions, ShouldHaveLength, 1)
					So(later.CreatedSessions[0].Type, ShouldEqual, "Appended")
					So(later.CreatedSessions[0].SessionID, ShouldEqual, doc.CreatedSessions[0].SessionID)
				})
			})
		})
	})

	Convey("Given a user left subscribed to a milestone that no longer exists", t, func() {
		ctx := context.Background()
		h := newHarness()
		defer h.store.Close()

		goal := &model.Goal{Game: "iidx", Playtype: "SP",
			Charts:   model.GoalCharts{Type: model.GoalChartsSingle, Data: []string{"i-spa"}},
			Criteria: model.GoalCriteria{Key: "lamp", Value: 5, Mode: model.CriteriaSingle}}
		So(targets.PrepareGoal(goal), ShouldBeNil)
		_, err := h.targets.SubscribeToGoal(ctx, 1, goal, true)
		So(err, ShouldBeNil)
		So(h.store.InsertMilestoneSub(ctx, &model.MilestoneSubscription{
			UserID: 1, MilestoneID: "Mgone", Game: "iidx", Playtype: "SP",
		}), ShouldBeNil)

		Convey("When the user imports a score", func() {
			doc, err := h.importer.Import(ctx, h.input([]map[string]any{
				entry("ANOTHER", 1500, "HARD CLEAR", 1630499640000),
			}, false))

			Convey("Then the scores and the import document are still stored", func() {
				So(err, ShouldBeNil)
				So(doc.ScoreIDs, ShouldHaveLength, 1)
				So(doc.Errors, ShouldHaveLength, 1)
				So(doc.Errors[0].Index, ShouldEqual, -1)
				So(doc.Errors[0].Type, ShouldEqual, ErrorTypeRefresh)
				So(doc.Errors[0].Message, ShouldContainSubstring, "corrupt")

				stored, err := h.store.GetImport(ctx, doc.ImportID)
				So(err, ShouldBeNil)
				So(stored.Errors, ShouldHaveLength, 1)

				n, err := h.store.CountScores(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})
	})

	Convey("Given malformed input", t, func() {
		h := newHarness()
		defer h.store.Close()

		_, err := h.importer.Import(context.Background(), Input{UserID: 0, Payloads: []json.RawMessage{json.RawMessage(`{}`)}})
		So(errors.Is(err, ErrInvalidUser), ShouldBeTrue)

		_, err = h.importer.Import(context.Background(), Input{UserID: 1})
		So(errors.Is(err, ErrNoPayloads), ShouldBeTrue)
	})
}
