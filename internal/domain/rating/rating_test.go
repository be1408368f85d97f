package rating

import (
	"context"
	"errors"
	"io"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rgtrack/internal/domain/gpt"
	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/pkg/logger"
)

func init() {
	_ = logger.InitWithWriter(io.Discard)
}

func vfClass(name string) int {
	return gpt.MustGet("sdvx", "Single").ClassIndex("vfClass", name)
}

func TestSDVXVF6ToClass(t *testing.T) {
	ctx := context.Background()

	Convey("Given profile VF6 values", t, func() {
		Convey("When under 10 the linear regime applies", func() {
			So(SDVXVF6ToClass(ctx, 0), ShouldEqual, vfClass("SIENNA_I"))
			So(SDVXVF6ToClass(ctx, 9.99), ShouldEqual, vfClass("SIENNA_IV"))
		})

		Convey("When in the half-step regime", func() {
			So(SDVXVF6ToClass(ctx, 10), ShouldEqual, vfClass("COBALT_I"))
			So(SDVXVF6ToClass(ctx, 13.99), ShouldEqual, 11)
			So(SDVXVF6ToClass(ctx, 13.99), ShouldEqual, vfClass("DANDELION_IV"))
		})

		Convey("When in the quarter-step regime", func() {
			So(SDVXVF6ToClass(ctx, 14), ShouldEqual, vfClass("CYAN_I"))
			So(SDVXVF6ToClass(ctx, 19.99), ShouldEqual, vfClass("CRIMSON_IV"))
		})

		Convey("When at or above 20", func() {
			So(SDVXVF6ToClass(ctx, 20), ShouldEqual, vfClass("IMPERIAL_I"))
			So(SDVXVF6ToClass(ctx, 23.5), ShouldEqual, vfClass("IMPERIAL_IV"))
		})

		Convey("When at or above 24 it is clamped", func() {
			So(SDVXVF6ToClass(ctx, 24), ShouldEqual, vfClass("IMPERIAL_IV"))
			So(SDVXVF6ToClass(ctx, 30), ShouldEqual, vfClass("IMPERIAL_IV"))
		})
	})
}

func TestBandedColours(t *testing.T) {
	Convey("Given the banded class mappings", t, func() {
		Convey("Gitadora band edges are inclusive on the lower bound", func() {
			So(GitadoraSkillToColour(8500), ShouldEqual, classIndex(gpt.GitadoraColours, "RAINBOW"))
			So(GitadoraSkillToColour(8499), ShouldEqual, classIndex(gpt.GitadoraColours, "GOLD"))
			So(GitadoraSkillToColour(0), ShouldEqual, classIndex(gpt.GitadoraColours, "WHITE"))
		})

		Convey("The other games use their own bands", func() {
			So(WACCARateToColour(299), ShouldEqual, classIndex(gpt.WACCAColours, "ASH"))
			So(WACCARateToColour(2500), ShouldEqual, classIndex(gpt.WACCAColours, "RAINBOW"))
			So(PopnClassPointsToClass(20.99), ShouldEqual, classIndex(gpt.PopnClasses, "KITTY"))
			So(PopnClassPointsToClass(91), ShouldEqual, classIndex(gpt.PopnClasses, "GOD"))
			So(ChunithmRatingToColour(14.5), ShouldEqual, classIndex(gpt.ChunithmColours, "PLATINUM"))
			So(JubeatJubilityToColour(249), ShouldEqual, classIndex(gpt.JubeatColours, "BLACK"))
			So(MaimaiDXRateToColour(1000), ShouldEqual, classIndex(gpt.MaimaiDXColours, "BLUE"))
		})
	})
}

func TestEngine(t *testing.T) {
	Convey("Given a rating engine with the builtin algorithms", t, func() {
		e, err := New()
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("When computing an sdvx score", func() {
			cfg := gpt.MustGet("sdvx", "Single")
			out, err := e.CalculateScore(ScoreInput{
				Config: cfg,
				Chart:  &model.Chart{LevelNum: 18},
				Metrics: model.Metrics{
					"score": model.IntMetric(9_900_000),
					"lamp":  model.EnumMetric("CLEAR"),
					"grade": model.EnumMetric("AAA+"),
				},
			})

			Convey("Then VF6 is present", func() {
				So(err, ShouldBeNil)
				So(out["VF6"], ShouldAlmostEqual, 0.363, 0.0001)
			})
		})

		Convey("When an algorithm has no data it is omitted", func() {
			cfg := gpt.MustGet("iidx", "SP")
			out, err := e.CalculateScore(ScoreInput{
				Config: cfg,
				Chart:  &model.Chart{LevelNum: 12},
				Metrics: model.Metrics{
					"score": model.IntMetric(1500),
					"lamp":  model.EnumMetric("HARD CLEAR"),
				},
			})

			So(err, ShouldBeNil)
			So(out, ShouldContainKey, "ktLampRating")
			So(out, ShouldNotContainKey, "BPI")
			So(out["ktLampRating"], ShouldEqual, 12.0)
		})

		Convey("When computing profile ratings", func() {
			cfg := gpt.MustGet("sdvx", "Single")
			scores := []model.Score{
				{ChartID: "a", IsPrimary: true, CalculatedData: map[string]float64{"VF6": 0.4}},
				{ChartID: "a", IsPrimary: true, CalculatedData: map[string]float64{"VF6": 0.1}},
				{ChartID: "b", IsPrimary: true, CalculatedData: map[string]float64{"VF6": 0.3}},
				{ChartID: "c", IsPrimary: false, CalculatedData: map[string]float64{"VF6": 0.45}},
			}
			ratings := e.CalculateProfile(cfg, scores)

			Convey("Then only the best primary score per chart counts", func() {
				So(ratings["VF6"], ShouldAlmostEqual, 0.7, 0.0001)
			})

			Convey("And classes are derived from them", func() {
				So(e.Classes(ctx, cfg, ratings), ShouldResemble, map[string]int{"vfClass": 0})
			})
		})

		Convey("When a rating is missing no class is produced", func() {
			cfg := gpt.MustGet("gitadora", "Dora")
			So(e.Classes(ctx, cfg, map[string]float64{}), ShouldBeNil)
		})

		Convey("When an undeclared algorithm is requested", func() {
			_, err := e.ScoreRating("nope", ScoreInput{Config: gpt.MustGet("sdvx", "Single")})
			So(errors.Is(err, ErrUnknownAlg), ShouldBeTrue)
		})
	})
}

func TestFormulas(t *testing.T) {
	Convey("Given the score formulas", t, func() {
		Convey("BPI is 0 at the kaiden average and 100 at the world record", func() {
			So(CalculateBPI(3000, 3000, 3800, 4000, defaultBPICoefficient), ShouldEqual, 0.0)
			So(CalculateBPI(3800, 3000, 3800, 4000, defaultBPICoefficient), ShouldEqual, 100.0)
			So(CalculateBPI(100, 3000, 3800, 4000, defaultBPICoefficient), ShouldEqual, -15.0)
		})

		Convey("CHUNITHM rating caps at level + 2", func() {
			So(CalculateChunithmRating(1_010_000, 14), ShouldEqual, 16.0)
			So(CalculateChunithmRating(975_000, 14), ShouldEqual, 14.0)
			So(CalculateChunithmRating(400_000, 14), ShouldEqual, 0.0)
		})

		Convey("VF6 rejects unknown grades", func() {
			_, ok := CalculateVF6(18, 9_000_000, "Z", "CLEAR")
			So(ok, ShouldBeFalse)
		})
	})
}
