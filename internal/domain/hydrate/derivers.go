package hydrate

import (
	"fmt"
	"strings"

	"github.com/okian/rgtrack/internal/domain/model"
)

// Deriver computes one derived metric from the mandatory metrics, earlier derived metrics and the chart.
type Deriver func(ms model.Metrics, chart *model.Chart) (model.Metric, error)

// Derivation binds a deriver to the metric it fills.
type Derivation struct {
	Metric string
	Fn     Deriver
}

type gradeBand struct {
	min   float64
	grade string
}

// gradeFrom returns the first band whose lower bound the value reaches.
func gradeFrom(source string, bands []gradeBand, bottom string) Deriver {
	return func(ms model.Metrics, _ *model.Chart) (model.Metric, error) {
		v, ok := ms.Num(source)
		if !ok {
			return model.Metric{}, fmt.Errorf("%w: %s", ErrMissingMetric, source)
		}
		for _, b := range bands {
			if v >= b.min {
				return model.EnumMetric(b.grade), nil
			}
		}
		return model.EnumMetric(bottom), nil
	}
}

func percentOf(maxScore float64) Deriver {
	return func(ms model.Metrics, _ *model.Chart) (model.Metric, error) {
		score, ok := ms.Num("score")
		if !ok {
			return model.Metric{}, fmt.Errorf("%w: score", ErrMissingMetric)
		}
		return model.DecMetric(100 * score / maxScore), nil
	}
}

func iidxPercent(ms model.Metrics, chart *model.Chart) (model.Metric, error) {
	if chart.Data.Notecount <= 0 {
		return model.Metric{}, fmt.Errorf("%w: notecount on %s", ErrChartData, chart.ChartID)
	}
	score, ok := ms.Num("score")
	if !ok {
		return model.Metric{}, fmt.Errorf("%w: score", ErrMissingMetric)
	}
	return model.DecMetric(100 * score / float64(chart.Data.Notecount*2)), nil
}

// IIDX grades sit on ninths of the max EX score.
var iidxGrades = []gradeBand{
	{100, "MAX"}, {100 * 17 / 18.0, "MAX-"}, {100 * 8 / 9.0, "AAA"}, {100 * 7 / 9.0, "AA"},
	{100 * 6 / 9.0, "A"}, {100 * 5 / 9.0, "B"}, {100 * 4 / 9.0, "C"}, {100 * 3 / 9.0, "D"}, {100 * 2 / 9.0, "E"},
}

var sdvxGrades = []gradeBand{
	{10_000_000, "PUC"}, {9_900_000, "S"}, {9_800_000, "AAA+"}, {9_700_000, "AAA"}, {9_500_000, "AA+"},
	{9_300_000, "AA"}, {9_000_000, "A+"}, {8_700_000, "A"}, {7_500_000, "B"}, {6_500_000, "C"},
}

var musecaGrades = []gradeBand{
	{1_000_000, "傑G"}, {975_000, "傑"}, {950_000, "秀"}, {900_000, "優"}, {850_000, "良"},
	{800_000, "佳"}, {700_000, "凡"}, {600_000, "拙"},
}

var gitadoraGrades = []gradeBand{{100, "MAX"}, {95, "SS"}, {80, "S"}, {73, "A"}, {63, "B"}}

var popnGrades = []gradeBand{
	{98_000, "S"}, {95_000, "AAA"}, {90_000, "AA"}, {82_000, "A"}, {72_000, "B"}, {62_000, "C"}, {50_000, "D"},
}

var jubeatGrades = []gradeBand{
	{1_000_000, "EXC"}, {980_000, "SSS"}, {950_000, "SS"}, {900_000, "S"}, {850_000, "A"},
	{800_000, "B"}, {700_000, "C"}, {500_000, "D"},
}

var waccaGrades = []gradeBand{
	{1_000_000, "MASTER"}, {990_000, "SSS+"}, {980_000, "SSS"}, {970_000, "SS+"}, {960_000, "SS"},
	{950_000, "S+"}, {940_000, "S"}, {920_000, "AAA"}, {900_000, "AA"}, {850_000, "A"},
	{800_000, "B"}, {700_000, "C"},
}

var chunithmGrades = []gradeBand{
	{1_009_000, "SSS+"}, {1_007_500, "SSS"}, {1_005_000, "SS+"}, {1_000_000, "SS"}, {990_000, "S+"},
	{975_000, "S"}, {950_000, "AAA"}, {925_000, "AA"}, {900_000, "A"}, {800_000, "BBB"},
	{700_000, "BB"}, {600_000, "B"}, {500_000, "C"},
}

var maimaiDXGrades = []gradeBand{
	{100.5, "SSS+"}, {100, "SSS"}, {99.5, "SS+"}, {99, "SS"}, {98, "S+"}, {97, "S"}, {94, "AAA"},
	{90, "AA"}, {80, "A"}, {75, "BBB"}, {70, "BB"}, {60, "B"}, {50, "C"},
}

// popnLamp collapses the clear medal into the coarser lamp.
func popnLamp(ms model.Metrics, _ *model.Chart) (model.Metric, error) {
	medal, ok := ms.Enum("clearMedal")
	if !ok {
		return model.Metric{}, fmt.Errorf("%w: clearMedal", ErrMissingMetric)
	}
	switch {
	case strings.HasPrefix(medal, "failed"):
		return model.EnumMetric("FAILED"), nil
	case medal == "easyClear":
		return model.EnumMetric("EASY CLEAR"), nil
	case strings.HasPrefix(medal, "clear"):
		return model.EnumMetric("CLEAR"), nil
	case strings.HasPrefix(medal, "fullCombo"):
		return model.EnumMetric("FULL COMBO"), nil
	case medal == "perfect":
		return model.EnumMetric("PERFECT"), nil
	}
	return model.Metric{}, fmt.Errorf("%w: clearMedal %q", ErrUnexpectedMetric, medal)
}

func builtinDerivers() map[string][]Derivation {
	sdvxLike := []Derivation{
		{"percent", percentOf(10_000_000)},
		{"grade", gradeFrom("score", sdvxGrades, "D")},
	}
	iidx := []Derivation{
		{"percent", iidxPercent},
		{"grade", gradeFrom("percent", iidxGrades, "F")},
	}
	gitadora := []Derivation{{"grade", gradeFrom("percent", gitadoraGrades, "C")}}

	return map[string][]Derivation{
		"iidx:SP":        iidx,
		"iidx:DP":        iidx,
		"sdvx:Single":    sdvxLike,
		"usc:Controller": sdvxLike,
		"usc:Keyboard":   sdvxLike,
		"museca:Single": {
			{"percent", percentOf(1_000_000)},
			{"grade", gradeFrom("score", musecaGrades, "没")},
		},
		"gitadora:Gita": gitadora,
		"gitadora:Dora": gitadora,
		"popn:9B": {
			{"lamp", popnLamp},
			{"grade", gradeFrom("score", popnGrades, "E")},
		},
		"jubeat:Single":   {{"grade", gradeFrom("score", jubeatGrades, "E")}},
		"wacca:Single":    {{"grade", gradeFrom("score", waccaGrades, "D")}},
		"chunithm:Single": {{"grade", gradeFrom("score", chunithmGrades, "D")}},
		"maimaidx:Single": {{"grade", gradeFrom("percent", maimaiDXGrades, "D")}},
	}
}
