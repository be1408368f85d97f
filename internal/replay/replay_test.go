package replay_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rgtrack/internal/adapters/http/api"
	"github.com/okian/rgtrack/internal/adapters/repository"
	"github.com/okian/rgtrack/internal/domain/classes"
	"github.com/okian/rgtrack/internal/domain/convert"
	"github.com/okian/rgtrack/internal/domain/hydrate"
	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/internal/domain/rating"
	"github.com/okian/rgtrack/internal/domain/scoreimport"
	"github.com/okian/rgtrack/internal/domain/targets"
	"github.com/okian/rgtrack/internal/replay"
	"github.com/okian/rgtrack/pkg/logger"
)

func init() {
	_ = logger.InitWithWriter(io.Discard)
}

func intp(v int) *int { return &v }

func newTracker() (*httptest.Server, *repository.Store) {
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
	srv := api.NewServer(api.Deps{
		Store:    store,
		Charts:   store.Charts(),
		Targets:  tg,
		Importer: scoreimport.New(store, reg, hy, ratings, classes.New(store, nil), tg),
		Parser:   reg,
	}, api.WithImportRateLimit(0))
	return httptest.NewServer(srv.Router()), store
}

func charts() []replay.ChartRef {
	return []replay.ChartRef{
		{Identifier: "1000", Difficulty: "ANOTHER", MaxScore: 1572},
		{Identifier: "1000", Difficulty: "HYPER", MaxScore: 1000},
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a seeded configuration", t, func() {
		cfg := &replay.Config{Charts: charts(), Users: 3, FirstUserID: 7, ScoresPerUser: 5, Seed: 42}

		Convey("When generating twice", func() {
			a := replay.Generate(cfg)
			b := replay.Generate(cfg)

			Convey("Then the batches are identical and well formed", func() {
				So(a, ShouldResemble, b)
				So(a, ShouldHaveLength, 3)
				So(a[0].UserID, ShouldEqual, 7)
				So(a[2].UserID, ShouldEqual, 9)
				So(a[0].Meta.Game, ShouldEqual, "iidx")
				for _, batch := range a {
					So(batch.Scores, ShouldHaveLength, 5)
					for _, e := range batch.Scores {
						So(e.Score, ShouldBeBetweenOrEqual, 0, 1572)
						So(e.Lamp, ShouldNotBeEmpty)
					}
				}
			})
		})
	})
}

func TestParseChartRef(t *testing.T) {
	Convey("Given chart references", t, func() {
		Convey("Then a full reference parses", func() {
			ref, err := replay.ParseChartRef("1000:ANOTHER:1572")
			So(err, ShouldBeNil)
			So(ref, ShouldResemble, replay.ChartRef{Identifier: "1000", Difficulty: "ANOTHER", MaxScore: 1572})
		})

		Convey("Then malformed references are rejected", func() {
			for _, s := range []string{"1000", "1000:ANOTHER", "1000:ANOTHER:x", "1000:ANOTHER:0"} {
				_, err := replay.ParseChartRef(s)
				So(errors.Is(err, replay.ErrBadChartRef), ShouldBeTrue)
			}
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running tracker", t, func() {
		srv, store := newTracker()
		defer store.Close()
		defer srv.Close()

		Convey("When replaying generated batches", func() {
			out := filepath.Join(t.TempDir(), "batches.json")
			stats, err := replay.Run(context.Background(), &replay.Config{
				BaseURL:       srv.URL,
				Charts:        charts(),
				Users:         4,
				ScoresPerUser: 6,
				Workers:       2,
				Seed:          7,
				OutputFile:    out,
			})

			Convey("Then every personal best matches what was sent", func() {
				So(err, ShouldBeNil)
				So(stats.BatchesSubmitted, ShouldEqual, 4)
				So(stats.BatchesFailed, ShouldEqual, 0)
				So(stats.ScoresImported, ShouldBeGreaterThan, 0)
				So(stats.PBsVerified, ShouldBeGreaterThan, 0)
				So(stats.Mismatches, ShouldBeEmpty)
			})

			Convey("Then the batches were saved", func() {
				info, statErr := os.Stat(out)
				So(statErr, ShouldBeNil)
				So(info.Size(), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When no charts are configured", func() {
			_, err := replay.Run(context.Background(), &replay.Config{BaseURL: srv.URL, Users: 1})

			Convey("Then the run is refused", func() {
				So(errors.Is(err, replay.ErrNoCharts), ShouldBeTrue)
			})
		})
	})

	Convey("Given a tracker that is down", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		Convey("Then the health check fails the run", func() {
			_, err := replay.Run(context.Background(), &replay.Config{BaseURL: srv.URL, Charts: charts(), Users: 1})
			So(errors.Is(err, replay.ErrUnhealthy), ShouldBeTrue)
		})
	})
}
