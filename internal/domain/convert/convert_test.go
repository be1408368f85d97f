package convert

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rgtrack/internal/adapters/repository"
	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/pkg/logger"
)

func init() {
	_ = logger.InitWithWriter(io.Discard)
}

type fakeCatalog struct {
	songs  []model.Song
	charts []model.Chart
}

func (f *fakeCatalog) FindSongOnID(_ context.Context, game string, id int) (*model.Song, error) {
	for i := range f.songs {
		if f.songs[i].Game == game && f.songs[i].ID == id {
			return &f.songs[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCatalog) FindSongOnTitle(_ context.Context, game, title string) (*model.Song, error) {
	for i := range f.songs {
		if f.songs[i].Game == game && strings.EqualFold(f.songs[i].Title, title) {
			return &f.songs[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCatalog) FindChartByID(_ context.Context, chartID string) (*model.Chart, error) {
	for i := range f.charts {
		if f.charts[i].ChartID == chartID {
			return &f.charts[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCatalog) match(c *model.Chart, game, playtype, difficulty, version string) bool {
	if c.Game != game || c.Playtype != playtype || c.Difficulty != difficulty {
		return false
	}
	if version == "" {
		return c.IsPrimary
	}
	return slices.Contains(c.Versions, version)
}

func (f *fakeCatalog) FindChartOnInGameIDVersion(_ context.Context, game string, inGameID int, playtype, difficulty, version string) (*model.Chart, error) {
	for i := range f.charts {
		c := &f.charts[i]
		if c.Data.InGameID != nil && *c.Data.InGameID == inGameID && f.match(c, game, playtype, difficulty, version) {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCatalog) FindChartOnSongDifficulty(_ context.Context, game string, songID int, playtype, difficulty, version string) (*model.Chart, error) {
	for i := range f.charts {
		c := &f.charts[i]
		if c.SongID == songID && f.match(c, game, playtype, difficulty, version) {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCatalog) FindChartOnHash(_ context.Context, game, hash string) (*model.Chart, error) {
	for i := range f.charts {
		if f.charts[i].Game == game && f.charts[i].Data.Hash == hash {
			return &f.charts[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func intp(v int) *int { return &v }

func newCatalog() *fakeCatalog {
	return &fakeCatalog{
		songs: []model.Song{
			{ID: 1, Game: "museca", Title: "Museca Song"},
			{ID: 10, Game: "iidx", Title: "5.1.1."},
			{ID: 20, Game: "sdvx", Title: "VVD Song"},
			{ID: 30, Game: "usc", Title: "Custom Chart"},
		},
		charts: []model.Chart{
			{ChartID: "m-red", SongID: 1, Game: "museca", Playtype: "Single", Difficulty: "Red", IsPrimary: true,
				Versions: []string{"1.5-b"}, Data: model.ChartData{InGameID: intp(100)}},
			{ChartID: "m-orphan", SongID: 99, Game: "museca", Playtype: "Single", Difficulty: "Green", IsPrimary: true,
				Versions: []string{"1.5-b"}, Data: model.ChartData{InGameID: intp(101)}},
			{ChartID: "i-spa", SongID: 10, Game: "iidx", Playtype: "SP", Difficulty: "ANOTHER", IsPrimary: true,
				Versions: []string{"HEROIC VERSE", "BISTROVER"}, Data: model.ChartData{InGameID: intp(1000), Notecount: 786}},
			{ChartID: "s-vvd", SongID: 20, Game: "sdvx", Playtype: "Single", Difficulty: "VVD", IsPrimary: true,
				Versions: []string{"vivid", "exceed"}, Data: model.ChartData{InGameID: intp(500)}},
			{ChartID: "u-exh", SongID: 30, Game: "usc", Playtype: "Controller", Difficulty: "EXH", IsPrimary: true,
				Data: model.ChartData{Hash: "abc123"}},
		},
	}
}

func raw(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func failureKind(err error) FailureKind {
	f, ok := AsFailure(err)
	if !ok {
		return ""
	}
	return f.Kind
}

func TestScoreUtilities(t *testing.T) {
	Convey("Given the shared score utilities", t, func() {
		Convey("MusecaGetLamp orders its checks", func() {
			So(MusecaGetLamp(1_000_000, 0), ShouldEqual, "PERFECT CONNECT ALL")
			So(MusecaGetLamp(900_000, 0), ShouldEqual, "CONNECT ALL")
			So(MusecaGetLamp(800_000, 3), ShouldEqual, "CLEAR")
			So(MusecaGetLamp(799_999, 3), ShouldEqual, "FAILED")
		})

		Convey("SDVXLampFromClearType maps every clear type", func() {
			lamp, err := SDVXLampFromClearType(0)
			So(err, ShouldBeNil)
			So(lamp, ShouldEqual, "FAILED")
			lamp, _ = SDVXLampFromClearType(4)
			So(lamp, ShouldEqual, "PERFECT ULTIMATE CHAIN")
			_, err = SDVXLampFromClearType(9)
			So(failureKind(err), ShouldEqual, KindInvalidScore)
		})

		Convey("IIDXLampFromKai skips NO PLAY", func() {
			_, err := IIDXLampFromKai(0)
			So(failureKind(err), ShouldEqual, KindSkip)
			lamp, err := IIDXLampFromKai(5)
			So(err, ShouldBeNil)
			So(lamp, ShouldEqual, "HARD CLEAR")
			_, err = IIDXLampFromKai(8)
			So(failureKind(err), ShouldEqual, KindInvalidScore)
		})

		Convey("ParseDate accepts the common formats", func() {
			want := time.Date(2021, 9, 1, 12, 34, 0, 0, time.UTC)
			So(ParseDate("2021-09-01T12:34:00Z").Equal(want), ShouldBeTrue)
			So(ParseDate("2021-09-01 12:34").Equal(want), ShouldBeTrue)
			So(ParseDate("1630499640").Equal(want), ShouldBeTrue)
			So(ParseDate("1630499640000").Equal(want), ShouldBeTrue)
			So(ParseDate(""), ShouldBeNil)
			So(ParseDate("yesterday"), ShouldBeNil)
		})
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given a registry over a small catalog", t, func() {
		ctx := context.Background()
		reg := NewRegistry(newCatalog())

		Convey("When the import type is unknown", func() {
			_, err := reg.Normalize(ctx, raw(map[string]any{}), SourceContext{}, "api/nope")

			Convey("Then ErrUnknownImportType is returned", func() {
				So(errors.Is(err, ErrUnknownImportType), ShouldBeTrue)
			})
		})

		Convey("When converting a CG MÚSECA score", func() {
			entry := map[string]any{
				"internalId": 100, "difficulty": 2, "version": 2, "score": 950_000,
				"maxChain": 300, "critical": 290, "near": 8, "error": 2, "dateTime": "2021-09-01 12:34:00",
			}
			res, err := reg.Normalize(ctx, raw(entry), SourceContext{Service: "dev"}, "api/cg-museca")

			Convey("Then the dry score holds mandatory and supplied optional metrics only", func() {
				So(err, ShouldBeNil)
				So(res.Chart.ChartID, ShouldEqual, "m-red")
				So(res.Song.ID, ShouldEqual, 1)
				So(res.DryScore.Metrics, ShouldHaveLength, 2)
				So(res.DryScore.Metrics["score"].Int(), ShouldEqual, 950_000)
				So(res.DryScore.Metrics["lamp"].Str, ShouldEqual, "CLEAR")
				So(res.DryScore.Optional["maxCombo"].Int(), ShouldEqual, 300)
				So(res.DryScore.Judgements["miss"], ShouldEqual, 2)
				So(res.DryScore.Service, ShouldEqual, "CG Dev")
				So(res.DryScore.TimeAchieved, ShouldNotBeNil)
			})
		})

		Convey("When the MÚSECA version is unsupported", func() {
			entry := map[string]any{"internalId": 100, "difficulty": 2, "version": 1, "score": 1}
			_, err := reg.Normalize(ctx, raw(entry), SourceContext{}, "api/cg-museca")

			Convey("Then the entry is an invalid score", func() {
				So(failureKind(err), ShouldEqual, KindInvalidScore)
			})
		})

		Convey("When no chart matches", func() {
			entry := map[string]any{"internalId": 404, "difficulty": 0, "version": 2, "score": 1}
			_, err := reg.Normalize(ctx, raw(entry), SourceContext{}, "api/cg-museca")

			Convey("Then the entry is SongOrChartNotFound", func() {
				So(failureKind(err), ShouldEqual, KindSongOrChartNotFound)
			})
		})

		Convey("When the chart's song is missing", func() {
			entry := map[string]any{"internalId": 101, "difficulty": 0, "version": 2, "score": 1, "error": 1}
			_, err := reg.Normalize(ctx, raw(entry), SourceContext{}, "api/cg-museca")

			Convey("Then an internal failure is raised", func() {
				So(failureKind(err), ShouldEqual, KindInternal)
				So(errors.Is(err, ErrInternal), ShouldBeTrue)
			})
		})

		Convey("When converting kai IIDX scores", func() {
			entry := map[string]any{
				"music_id": 1000, "play_style": "SINGLE", "difficulty": "ANOTHER", "version_played": 28,
				"lamp": 4, "ex_score": 1400, "miss_count": 12, "timestamp": "2021-09-01T12:34:00Z",
			}
			res, err := reg.Normalize(ctx, raw(entry), SourceContext{Service: "FLO"}, "api/kai-iidx")

			Convey("Then the chart is resolved by in-game ID and version", func() {
				So(err, ShouldBeNil)
				So(res.Chart.ChartID, ShouldEqual, "i-spa")
				So(res.DryScore.Metrics["lamp"].Str, ShouldEqual, "CLEAR")
				So(res.DryScore.Optional["bp"].Int(), ShouldEqual, 12)
				So(res.DryScore.Service, ShouldEqual, "FLOWER")
			})

			Convey("Then BEGINNER is rejected", func() {
				entry["difficulty"] = "BEGINNER"
				_, err := reg.Normalize(ctx, raw(entry), SourceContext{Service: "FLO"}, "api/kai-iidx")
				So(failureKind(err), ShouldEqual, KindInvalidScore)
			})

			Convey("Then an unknown service is rejected", func() {
				_, err := reg.Normalize(ctx, raw(entry), SourceContext{Service: "XYZ"}, "api/kai-iidx")
				So(failureKind(err), ShouldEqual, KindInvalidScore)
			})
		})

		Convey("When converting a kai SDVX score on the fourth difficulty", func() {
			entry := map[string]any{
				"music_id": 500, "music_difficulty": 3, "played_version": 5, "clear_type": 2,
				"score": 9_800_000, "max_chain": 1200, "critical": 1100, "near": 90, "error": 10,
				"gauge_type": 1, "gauge_rate": 45, "timestamp": "2021-09-01T12:34:00Z",
			}
			res, err := reg.Normalize(ctx, raw(entry), SourceContext{Service: "EAG"}, "api/kai-sdvx")

			Convey("Then each fourth-slot name is tried until one matches", func() {
				So(err, ShouldBeNil)
				So(res.Chart.Difficulty, ShouldEqual, "VVD")
				So(res.DryScore.Metrics["lamp"].Str, ShouldEqual, "EXCESSIVE CLEAR")
				So(res.DryScore.Optional["gauge"].Num, ShouldEqual, 45.0)
			})
		})

		Convey("When converting a Barbatos score", func() {
			entry := map[string]any{
				"song_id": 500, "difficulty": 3, "level": 18, "score": 9_700_000, "clear_type": 3,
				"did_fail": false, "max_chain": 1100, "critical": 1050, "near": 120, "error": 8,
				"percentage": 72.5, "early": 40, "late": 80,
			}
			res, err := reg.Normalize(ctx, raw(entry), SourceContext{}, "ir/barbatos")

			Convey("Then it resolves the exceed chart and keeps the gauge", func() {
				So(err, ShouldBeNil)
				So(res.Chart.ChartID, ShouldEqual, "s-vvd")
				So(res.DryScore.Service, ShouldEqual, "Barbatos")
				So(res.DryScore.Metrics["lamp"].Str, ShouldEqual, "EXCESSIVE CLEAR")
				So(res.DryScore.Optional["gauge"].Num, ShouldEqual, 72.5)
				So(res.DryScore.ScoreMeta["slow"], ShouldEqual, 80)
			})

			Convey("Then a failed play is FAILED whatever the clear type", func() {
				entry["did_fail"] = true
				res, err := reg.Normalize(ctx, raw(entry), SourceContext{}, "ir/barbatos")
				So(err, ShouldBeNil)
				So(res.DryScore.Metrics["lamp"].Str, ShouldEqual, "FAILED")
			})

			Convey("Then an unknown clear type is invalid", func() {
				entry["clear_type"] = 9
				_, err := reg.Normalize(ctx, raw(entry), SourceContext{}, "ir/barbatos")
				So(failureKind(err), ShouldEqual, KindInvalidScore)
			})
		})

		Convey("When converting a USC score", func() {
			entry := map[string]any{
				"chartHash": "abc123",
				"score": map[string]any{
					"score": 9_500_000, "gauge": 0.8, "timestamp": 1630499640, "crit": 900, "near": 40, "error": 3,
					"options": map[string]any{"gaugeType": 0},
				},
			}
			res, err := reg.Normalize(ctx, raw(entry), SourceContext{Playtype: "Controller"}, "ir/usc")

			Convey("Then the lamp comes from the gauge", func() {
				So(err, ShouldBeNil)
				So(res.DryScore.Metrics["lamp"].Str, ShouldEqual, "CLEAR")
				So(res.DryScore.Optional["gauge"].Num, ShouldAlmostEqual, 80.0, 1e-9)
			})

			Convey("Then a keyboard import cannot use a controller chart", func() {
				_, err := reg.Normalize(ctx, raw(entry), SourceContext{Playtype: "Keyboard"}, "ir/usc")
				So(failureKind(err), ShouldEqual, KindSongOrChartNotFound)
			})
		})
	})
}

func TestUSCLamp(t *testing.T) {
	Convey("Given USC scores", t, func() {
		s := &USCClientScore{Score: 9_000_000, Error: 5}

		So(USCLamp(&USCClientScore{Score: 10_000_000}), ShouldEqual, "PERFECT ULTIMATE CHAIN")
		So(USCLamp(&USCClientScore{Score: 9_900_000, Error: 0}), ShouldEqual, "ULTIMATE CHAIN")

		s.Options.GaugeType = uscGaugeHard
		s.Gauge = 0.01
		So(USCLamp(s), ShouldEqual, "EXCESSIVE CLEAR")

		s.Gauge = 0
		So(USCLamp(s), ShouldEqual, "FAILED")

		s.Options.GaugeType = uscGaugeNormal
		s.Gauge = 0.69
		So(USCLamp(s), ShouldEqual, "FAILED")
		s.Gauge = 0.7
		So(USCLamp(s), ShouldEqual, "CLEAR")
	})
}

func TestBatchManual(t *testing.T) {
	Convey("Given a batch-manual document", t, func() {
		ctx := context.Background()
		reg := NewRegistry(newCatalog())
		doc := map[string]any{
			"meta":    map[string]any{"game": "iidx", "playtype": "SP", "service": "manual"},
			"classes": map[string]any{"dan": "KAIDEN"},
			"scores": []any{
				map[string]any{"matchType": "tachiSongID", "identifier": "10", "difficulty": "ANOTHER", "score": 1500, "lamp": "HARD CLEAR", "timeAchieved": 1630499640000},
				map[string]any{"matchType": "songTitle", "identifier": "5.1.1.", "difficulty": "ANOTHER", "score": 1500, "lamp": "GREAT CLEAR"},
				map[string]any{"matchType": "inGameID", "identifier": "1000", "difficulty": "ANOTHER", "score": 1500},
				map[string]any{"matchType": "uscChartHash", "identifier": "abc123", "score": 1500, "lamp": "CLEAR"},
			},
		}

		entries, sc, err := reg.Parse("file/batch-manual", raw(doc), SourceContext{UserID: 1})

		Convey("Then the header sets the source context", func() {
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 4)
			So(sc.Game, ShouldEqual, "iidx")
			So(sc.Playtype, ShouldEqual, "SP")
			So(sc.Classes["dan"], ShouldEqual, "KAIDEN")
			So(sc.Service, ShouldEqual, "manual (BATCH-MANUAL)")
		})

		Convey("Then each entry is converted or failed on its own", func() {
			res, err := reg.Normalize(ctx, entries[0], sc, "file/batch-manual")
			So(err, ShouldBeNil)
			So(res.Chart.ChartID, ShouldEqual, "i-spa")
			So(res.DryScore.Metrics["lamp"].Str, ShouldEqual, "HARD CLEAR")
			So(res.DryScore.TimeAchieved, ShouldNotBeNil)

			_, err = reg.Normalize(ctx, entries[1], sc, "file/batch-manual")
			So(failureKind(err), ShouldEqual, KindInvalidScore)

			_, err = reg.Normalize(ctx, entries[2], sc, "file/batch-manual")
			So(failureKind(err), ShouldEqual, KindInvalidScore)

			_, err = reg.Normalize(ctx, entries[3], sc, "file/batch-manual")
			So(failureKind(err), ShouldEqual, KindInvalidScore)
		})

		Convey("Then a score above the chart's maximum is rejected", func() {
			over := map[string]any{"matchType": "inGameID", "identifier": "1000", "difficulty": "ANOTHER", "score": 9999, "lamp": "CLEAR"}
			_, err := reg.Normalize(ctx, raw(over), sc, "file/batch-manual")
			So(failureKind(err), ShouldEqual, KindInvalidScore)

			over["score"] = 1572
			res, err := reg.Normalize(ctx, raw(over), sc, "file/batch-manual")
			So(err, ShouldBeNil)
			So(res.DryScore.Metrics["score"].Num, ShouldEqual, 1572)

			over["score"] = 1000
			over["optional"] = map[string]any{"bp": 800}
			_, err = reg.Normalize(ctx, raw(over), sc, "file/batch-manual")
			So(failureKind(err), ShouldEqual, KindInvalidScore)
		})

		Convey("Then classes that cannot be submitted are rejected", func() {
			doc["meta"] = map[string]any{"game": "sdvx", "playtype": "Single", "service": "manual"}
			doc["classes"] = map[string]any{"vfClass": "IMPERIAL_I"}
			_, _, err := reg.Parse("file/batch-manual", raw(doc), SourceContext{})
			So(errors.Is(err, ErrParse), ShouldBeTrue)
		})
	})
}

func TestEamusementCSV(t *testing.T) {
	Convey("Given an e-amusement CSV export", t, func() {
		ctx := context.Background()
		reg := NewRegistry(newCatalog())

		header := make([]string, eamColumns)
		for i := range header {
			header[i] = "h"
		}
		row := []string{"HEROIC VERSE", "5.1.1.", "genre", "artist", "12"}
		row = append(row, "0", "0", "0", "0", "---", "NO PLAY", "---") // BEGINNER
		row = append(row, "5", "0", "0", "0", "---", "NO PLAY", "---") // NORMAL
		row = append(row, "8", "900", "400", "100", "20", "EASY CLEAR", "A") // HYPER
		row = append(row, "10", "1400", "600", "200", "5", "HARD CLEAR", "AA") // ANOTHER
		row = append(row, "0", "0", "0", "0", "---", "NO PLAY", "---") // LEGGENDARIA
		row = append(row, "2021-09-01 12:34")
		body := strings.Join(header, ",") + "\n" + strings.Join(row, ",") + "\n"

		entries, sc, err := reg.Parse("file/eamusement-iidx-csv", []byte(body), SourceContext{})

		Convey("Then one entry is produced per charted difficulty", func() {
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 3)
			So(sc.Playtype, ShouldEqual, "SP")
		})

		Convey("Then NO PLAY is skipped and played charts convert", func() {
			_, err := reg.Normalize(ctx, entries[0], sc, "file/eamusement-iidx-csv")
			So(failureKind(err), ShouldEqual, KindSkip)

			_, err = reg.Normalize(ctx, entries[1], sc, "file/eamusement-iidx-csv")
			So(failureKind(err), ShouldEqual, KindSongOrChartNotFound)

			res, err := reg.Normalize(ctx, entries[2], sc, "file/eamusement-iidx-csv")
			So(err, ShouldBeNil)
			So(res.Chart.ChartID, ShouldEqual, "i-spa")
			So(res.DryScore.Metrics["score"].Int(), ShouldEqual, 1400)
			So(res.DryScore.Judgements["pgreat"], ShouldEqual, 600)
			So(res.DryScore.Optional["bp"].Int(), ShouldEqual, 5)
		})

		Convey("Then a short row fails the whole parse", func() {
			_, _, err := reg.Parse("file/eamusement-iidx-csv", []byte("a,b,c\n"), SourceContext{})
			So(errors.Is(err, ErrParse), ShouldBeTrue)
		})
	})
}
