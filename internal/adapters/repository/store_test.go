package repository

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/pkg/logger"
)

func init() {
	_ = logger.InitWithWriter(io.Discard)
}

func testScore(id string, userID int, chartID string, percent float64) model.Score {
	return model.Score{
		ScoreID:  id,
		UserID:   userID,
		Game:     "iidx",
		Playtype: "SP",
		SongID:   10,
		ChartID:  chartID,
		ScoreData: model.ScoreData{Metrics: model.Metrics{
			"score":   model.IntMetric(1000),
			"percent": model.DecMetric(percent),
			"lamp":    model.EnumMetric("CLEAR"),
		}},
	}
}

func TestStore_Scores(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		ctx := context.Background()
		s, err := Open(ctx)
		So(err, ShouldBeNil)
		defer s.Close()

		inserted, dups, err := s.InsertScores(ctx, []model.Score{
			testScore("R1", 1, "c1", 60),
			testScore("R2", 1, "c1", 75),
			testScore("R3", 2, "c1", 50),
		})
		So(err, ShouldBeNil)
		So(inserted, ShouldHaveLength, 3)
		So(dups, ShouldBeEmpty)

		Convey("Then re-inserting reports duplicates", func() {
			inserted, dups, err := s.InsertScores(ctx, []model.Score{testScore("R1", 1, "c1", 60)})
			So(err, ShouldBeNil)
			So(inserted, ShouldBeEmpty)
			So(dups, ShouldResemble, []string{"R1"})
		})

		Convey("Then the chart index keeps each user's best", func() {
			entry, err := s.Charts().Rank("c1", 1)
			So(err, ShouldBeNil)
			So(entry.ScoreID, ShouldEqual, "R2")
			So(entry.Rank, ShouldEqual, 1)
			So(s.Charts().ChartCount("c1"), ShouldEqual, 2)
		})

		Convey("Then counting and lookups work", func() {
			n, err := s.CountScores(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 3)

			played, err := s.HasPlayed(ctx, 2, "iidx", "SP")
			So(err, ShouldBeNil)
			So(played, ShouldBeTrue)

			played, err = s.HasPlayed(ctx, 3, "iidx", "SP")
			So(err, ShouldBeNil)
			So(played, ShouldBeFalse)

			_, err = s.GetScore(ctx, "missing")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)

			got, err := s.GetScores(ctx, []string{"R3", "missing", "R1"})
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 2)
		})

		Convey("Then a score comment can be changed", func() {
			comment := "nice"
			sc, err := s.UpdateScore(ctx, "R1", func(sc *model.Score) { sc.Comment = &comment })
			So(err, ShouldBeNil)
			So(*sc.Comment, ShouldEqual, "nice")

			again, err := s.GetScore(ctx, "R1")
			So(err, ShouldBeNil)
			So(*again.Comment, ShouldEqual, "nice")
		})

		Convey("When a score is indexed under a stale key", func() {
			err := s.update(ctx, func(txn *badger.Txn) error {
				return txn.Set([]byte(scoreUserGPTPrefix(1, "iidx", "SP")+"old-chart:R1"), nil)
			})
			So(err, ShouldBeNil)

			groups, err := s.FindDuplicateScoreIDs(ctx)
			So(err, ShouldBeNil)

			Convey("Then the duplicate is found and the stale key removed", func() {
				So(groups, ShouldHaveLength, 1)
				So(groups[0].ScoreID, ShouldEqual, "R1")
				So(groups[0].Keys, ShouldHaveLength, 2)

				removed, err := s.RemoveDuplicateScores(ctx, groups)
				So(err, ShouldBeNil)
				So(removed, ShouldEqual, 1)

				groups, err = s.FindDuplicateScoreIDs(ctx)
				So(err, ShouldBeNil)
				So(groups, ShouldBeEmpty)

				scores, err := s.ListUserScores(ctx, 1, "iidx", "SP")
				So(err, ShouldBeNil)
				So(scores, ShouldHaveLength, 2)
			})
		})
	})
}

func TestStore_Persistence(t *testing.T) {
	Convey("Given a store on disk with scores", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		s, err := Open(ctx, WithDataDir(dir))
		So(err, ShouldBeNil)
		_, _, err = s.InsertScores(ctx, []model.Score{testScore("R1", 1, "c1", 60), testScore("R2", 2, "c1", 70)})
		So(err, ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		Convey("When it is reopened", func() {
			s, err := Open(ctx, WithDataDir(dir))
			So(err, ShouldBeNil)
			defer s.Close()

			Convey("Then the chart index is rebuilt from stored scores", func() {
				So(s.Charts().Count(), ShouldEqual, 2)
				top, err := s.Charts().TopN("c1", 1)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 1)
				So(top[0].UserID, ShouldEqual, 2)
			})
		})
	})
}

func TestStore_Catalog(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		ctx := context.Background()
		s, err := Open(ctx)
		So(err, ShouldBeNil)
		defer s.Close()

		Convey("When loading a valid catalog", func() {
			songs, charts, err := s.LoadCatalog(ctx, strings.NewReader(`{
				"songs": [{"id": 1, "game": "iidx", "title": "A"}],
				"charts": [{"chartID": "c1", "songID": 1, "game": "iidx", "playtype": "SP", "difficulty": "ANOTHER", "isPrimary": true}]
			}`))

			Convey("Then songs and charts are stored", func() {
				So(err, ShouldBeNil)
				So(songs, ShouldEqual, 1)
				So(charts, ShouldEqual, 1)

				chart, err := s.FindChartByID(ctx, "c1")
				So(err, ShouldBeNil)
				So(chart.Difficulty, ShouldEqual, "ANOTHER")

				song, err := s.FindSongOnID(ctx, "iidx", 1)
				So(err, ShouldBeNil)
				So(song.Title, ShouldEqual, "A")
			})
		})

		Convey("When a chart references an unknown song", func() {
			_, _, err := s.LoadCatalog(ctx, strings.NewReader(`{
				"charts": [{"chartID": "c9", "songID": 9, "game": "iidx", "playtype": "SP", "difficulty": "ANOTHER"}]
			}`))

			Convey("Then nothing is stored", func() {
				So(err, ShouldNotBeNil)
				_, err := s.FindChartByID(ctx, "c9")
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the catalog is not JSON", func() {
			_, _, err := s.LoadCatalog(ctx, strings.NewReader("nope"))

			Convey("Then decoding fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestStore_ImportsAndCounters(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		ctx := context.Background()
		s, err := Open(ctx)
		So(err, ShouldBeNil)
		defer s.Close()

		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		docs := []model.ImportDocument{
			{ImportID: "I1", UserID: 1, UserIntent: true, TimeFinished: base},
			{ImportID: "I2", UserID: 1, UserIntent: false, TimeFinished: base.Add(time.Minute)},
			{ImportID: "I3", UserID: 1, UserIntent: true, TimeFinished: base.Add(2 * time.Minute)},
		}
		for i := range docs {
			So(s.InsertImport(ctx, &docs[i]), ShouldBeNil)
		}

		Convey("Then imports list newest first", func() {
			out, err := s.ListImports(ctx, 1, ImportFilter{Limit: 10})
			So(err, ShouldBeNil)
			So(out, ShouldHaveLength, 3)
			So(out[0].ImportID, ShouldEqual, "I3")
		})

		Convey("Then filters narrow the listing", func() {
			out, err := s.ListImports(ctx, 1, ImportFilter{UserIntentOnly: true, Limit: 10})
			So(err, ShouldBeNil)
			So(out, ShouldHaveLength, 2)

			out, err = s.ListImports(ctx, 1, ImportFilter{FinishedBefore: base.Add(2 * time.Minute), Limit: 10})
			So(err, ShouldBeNil)
			So(out, ShouldHaveLength, 2)
			So(out[0].ImportID, ShouldEqual, "I2")

			_, err = s.ListImports(ctx, 1, ImportFilter{})
			So(errors.Is(err, ErrInvalidLimit), ShouldBeTrue)
		})

		Convey("Then a repeated import ID is rejected", func() {
			err := s.InsertImport(ctx, &model.ImportDocument{ImportID: "I1", UserID: 1, TimeFinished: base})
			So(errors.Is(err, ErrAlreadyExists), ShouldBeTrue)
		})

		Convey("Then counters hand out values and can be rolled back", func() {
			a, err := s.GetNextCounterValue(ctx, "sessions")
			So(err, ShouldBeNil)
			b, err := s.GetNextCounterValue(ctx, "sessions")
			So(err, ShouldBeNil)
			So([]int{a, b}, ShouldResemble, []int{1, 2})

			next, err := s.DecrementCounterValue(ctx, "sessions")
			So(err, ShouldBeNil)
			So(next, ShouldEqual, 2)
		})

		Convey("Then deleting a milestone removes every subscription to it", func() {
			So(s.PutMilestone(ctx, &model.Milestone{MilestoneID: "M1", Game: "iidx", Playtype: "SP", Name: "m"}), ShouldBeNil)
			So(s.PutMilestone(ctx, &model.Milestone{MilestoneID: "M2", Game: "iidx", Playtype: "SP", Name: "keep"}), ShouldBeNil)
			for _, sub := range []model.MilestoneSubscription{
				{UserID: 1, MilestoneID: "M1", Game: "iidx", Playtype: "SP"},
				{UserID: 2, MilestoneID: "M1", Game: "iidx", Playtype: "SP"},
				{UserID: 1, MilestoneID: "M2", Game: "iidx", Playtype: "SP"},
			} {
				So(s.InsertMilestoneSub(ctx, &sub), ShouldBeNil)
			}

			So(s.DeleteMilestone(ctx, "M1"), ShouldBeNil)

			subs, err := s.ListMilestoneSubscribers(ctx, "M1")
			So(err, ShouldBeNil)
			So(subs, ShouldBeEmpty)
			_, err = s.GetMilestoneSub(ctx, 2, "M1")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)

			left, err := s.ListMilestoneSubs(ctx, 1, "iidx", "SP")
			So(err, ShouldBeNil)
			So(left, ShouldHaveLength, 1)
			So(left[0].MilestoneID, ShouldEqual, "M2")

			So(errors.Is(s.DeleteMilestone(ctx, "M1"), ErrNotFound), ShouldBeTrue)
		})

		Convey("Then goals are inserted once", func() {
			g := &model.Goal{GoalID: "G1", Game: "iidx", Playtype: "SP", Name: "clear"}
			created, err := s.PutGoal(ctx, g)
			So(err, ShouldBeNil)
			So(created, ShouldBeTrue)

			created, err = s.PutGoal(ctx, g)
			So(err, ShouldBeNil)
			So(created, ShouldBeFalse)
		})
	})
}
