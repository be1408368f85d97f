package rating

import (
	"math"

	"github.com/okian/rgtrack/internal/domain/gpt"
	"github.com/okian/rgtrack/internal/domain/model"
)

// ScoreInput is what a score algorithm sees: the hydrated scoreData metrics and the chart.
type ScoreInput struct {
	Config  *gpt.Config
	Metrics model.Metrics
	Chart   *model.Chart
	// ESD is nil for games without a standard-deviation model.
	ESD *float64
}

// ScoreAlg computes one calculatedData value. A nil result means "not applicable".
type ScoreAlg func(in ScoreInput) (*float64, error)

func ptr(v float64) *float64 { return &v }

func floorTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Floor(v*p) / p
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// lampAtLeast reports whether the score's lamp ranks at or above lamp.
func lampAtLeast(in ScoreInput, lamp string) bool {
	got, ok := in.Metrics.Enum("lamp")
	if !ok {
		return false
	}
	return in.Config.EnumIndex("lamp", got) >= in.Config.EnumIndex("lamp", lamp)
}

// IIDXLampRating rewards clear lamps, using the chart's tierlist placement where it is higher than its level.
func IIDXLampRating(in ScoreInput) (*float64, error) {
	if !lampAtLeast(in, "CLEAR") {
		return ptr(0), nil
	}
	best := in.Chart.LevelNum
	tiers := []struct{ lamp, tierlist string }{
		{"CLEAR", "kt-NC"}, {"HARD CLEAR", "kt-HC"}, {"EX HARD CLEAR", "kt-EXHC"}, {"CLEAR", "dp-tier"},
	}
	for _, t := range tiers {
		if !lampAtLeast(in, t.lamp) {
			continue
		}
		if e, ok := in.Chart.TierlistInfo[t.tierlist]; ok && e.Value > best {
			best = e.Value
		}
	}
	return ptr(best), nil
}

const defaultBPICoefficient = 1.175

// pikaGreat is the "PikaGreatFunction" BPI is built on.
func pikaGreat(ex, maxEx float64) float64 {
	if ex == maxEx {
		return maxEx * 0.8
	}
	return 1 + (ex/maxEx-0.5)/(1-ex/maxEx)
}

// CalculateBPI returns the BPI of an EX score against the kaiden average and world record.
func CalculateBPI(ex, kavg, wr, maxEx, coef float64) float64 {
	you := pikaGreat(ex, maxEx) / pikaGreat(kavg, maxEx)
	top := pikaGreat(wr, maxEx) / pikaGreat(kavg, maxEx)

	bpi := 100 * math.Pow(math.Abs(math.Log(you)), coef) / math.Pow(math.Log(top), coef)
	if ex < kavg {
		bpi = -bpi
	}
	return roundTo(math.Max(bpi, -15), 2)
}

// IIDXBPI only applies to charts that carry kaiden average and world record data.
func IIDXBPI(in ScoreInput) (*float64, error) {
	d := in.Chart.Data
	if d.KaiAverage == nil || d.WorldRecord == nil || d.Notecount == 0 {
		return nil, nil
	}
	ex, ok := in.Metrics.Num("score")
	if !ok {
		return nil, nil
	}
	maxEx := float64(d.Notecount * 2)
	kavg, wr := float64(*d.KaiAverage), float64(*d.WorldRecord)
	if kavg <= 0 || wr <= kavg || wr > maxEx {
		return nil, nil
	}
	coef := defaultBPICoefficient
	if d.BPICoefficient != nil && *d.BPICoefficient > 0 {
		coef = *d.BPICoefficient
	}
	return ptr(CalculateBPI(ex, kavg, wr, maxEx, coef)), nil
}

var sdvxGradeCoef = map[string]float64{
	"PUC": 1.05, "S": 1.05, "AAA+": 1.02, "AAA": 1, "AA+": 0.97, "AA": 0.94,
	"A+": 0.91, "A": 0.88, "B": 0.85, "C": 0.82, "D": 0.8,
}

var sdvxLampCoef = map[string]float64{
	"PERFECT ULTIMATE CHAIN": 1.1, "ULTIMATE CHAIN": 1.05, "MAXXIVE CLEAR": 1.04,
	"EXCESSIVE CLEAR": 1.02, "CLEAR": 1, "FAILED": 0.5,
}

// CalculateVF6 returns the per-chart VOLFORCE contribution.
func CalculateVF6(level, score float64, grade, lamp string) (float64, bool) {
	gc, ok := sdvxGradeCoef[grade]
	if !ok {
		return 0, false
	}
	lc, ok := sdvxLampCoef[lamp]
	if !ok {
		return 0, false
	}
	return math.Floor(level*20*(score/10_000_000)*gc*lc) / 1000, true
}

// SDVXVF6 is shared by sdvx and usc.
func SDVXVF6(in ScoreInput) (*float64, error) {
	score, ok := in.Metrics.Num("score")
	if !ok || in.Chart.LevelNum <= 0 {
		return nil, nil
	}
	grade, _ := in.Metrics.Enum("grade")
	lamp, _ := in.Metrics.Enum("lamp")
	vf, ok := CalculateVF6(in.Chart.LevelNum, score, grade, lamp)
	if !ok {
		return nil, nil
	}
	return ptr(vf), nil
}

var musecaLampBonus = map[string]float64{
	"FAILED": 0.5, "CLEAR": 1, "CONNECT ALL": 1.05, "PERFECT CONNECT ALL": 1.1,
}

// MusecaCuratorSkill scales the level by score and clear type.
func MusecaCuratorSkill(in ScoreInput) (*float64, error) {
	score, ok := in.Metrics.Num("score")
	if !ok {
		return nil, nil
	}
	lamp, _ := in.Metrics.Enum("lamp")
	bonus, ok := musecaLampBonus[lamp]
	if !ok {
		return nil, nil
	}
	return ptr(math.Floor(in.Chart.LevelNum * (score / 1_000_000) * 100 * bonus)), nil
}

// GitadoraSkill is level * percent * 20, truncated to two decimals.
func GitadoraSkill(in ScoreInput) (*float64, error) {
	pct, ok := in.Metrics.Num("percent")
	if !ok {
		return nil, nil
	}
	return ptr(floorTo(in.Chart.LevelNum*(pct/100)*20, 2)), nil
}

var waccaRateBands = []struct {
	min  float64
	mult float64
}{
	{990_000, 4}, {980_000, 3.75}, {970_000, 3.5}, {960_000, 3.25}, {950_000, 3},
	{940_000, 2.75}, {920_000, 2.5}, {900_000, 2}, {850_000, 1.5}, {800_000, 1},
	{700_000, 0.8}, {600_000, 0.7}, {500_000, 0.5}, {400_000, 0.3}, {300_000, 0.2},
	{200_000, 0.1}, {1, 0.01},
}

// WACCARate multiplies the chart level by the multiplier of the score band.
func WACCARate(in ScoreInput) (*float64, error) {
	score, ok := in.Metrics.Num("score")
	if !ok {
		return nil, nil
	}
	for _, b := range waccaRateBands {
		if score >= b.min {
			return ptr(roundTo(in.Chart.LevelNum*b.mult, 3)), nil
		}
	}
	return ptr(0), nil
}

// PopnClassPoints follows the in-game formula. Scores under 50,000 are worth nothing.
func PopnClassPoints(in ScoreInput) (*float64, error) {
	score, ok := in.Metrics.Num("score")
	if !ok {
		return nil, nil
	}
	if score < 50_000 {
		return ptr(0), nil
	}
	bonus := 0.0
	if lamp, _ := in.Metrics.Enum("lamp"); lamp != "" && lamp != "FAILED" {
		bonus = 3000
	}
	return ptr(floorTo((10_000*in.Chart.LevelNum+score-50_000+bonus)/5440, 2)), nil
}

// CalculateChunithmRating returns the play rating for a score on a chart constant.
func CalculateChunithmRating(score, level float64) float64 {
	var r float64
	switch {
	case score >= 1_007_500:
		r = level + 2
	case score >= 1_005_000:
		r = level + 1.5 + (score-1_005_000)/2500*0.5
	case score >= 1_000_000:
		r = level + 1 + (score-1_000_000)/5000*0.5
	case score >= 975_000:
		r = level + (score-975_000)/25_000
	case score >= 925_000:
		r = level - 3 + (score-925_000)/50_000*3
	case score >= 900_000:
		r = level - 5 + (score-900_000)/25_000*2
	case score >= 800_000:
		r = (level - 5) / 2 * (1 + (score-800_000)/100_000)
	case score >= 500_000:
		r = (level - 5) / 2 * (score - 500_000) / 300_000
	}
	return floorTo(math.Max(r, 0), 2)
}

// ChunithmRating uses the chart constant held in levelNum.
func ChunithmRating(in ScoreInput) (*float64, error) {
	score, ok := in.Metrics.Num("score")
	if !ok {
		return nil, nil
	}
	return ptr(CalculateChunithmRating(score, in.Chart.LevelNum)), nil
}

// JubeatJubility scales the level by the music rate.
func JubeatJubility(in ScoreInput) (*float64, error) {
	rate, ok := in.Metrics.Num("musicRate")
	if !ok {
		return nil, nil
	}
	return ptr(roundTo(in.Chart.LevelNum*12.5*(rate/100), 1)), nil
}

var maimaiDXCoef = []struct {
	min  float64
	coef float64
}{
	{100.5, 22.4}, {100, 21.6}, {99.5, 21.1}, {99, 20.8}, {98, 20.3}, {97, 20},
	{94, 16.8}, {90, 15.2}, {80, 13.6}, {75, 12}, {70, 11.2}, {60, 9.6}, {50, 8},
}

// MaimaiDXRate is floor(level * min(percent, 100.5)% * coefficient).
func MaimaiDXRate(in ScoreInput) (*float64, error) {
	pct, ok := in.Metrics.Num("percent")
	if !ok {
		return nil, nil
	}
	for _, c := range maimaiDXCoef {
		if pct >= c.min {
			return ptr(math.Floor(in.Chart.LevelNum * math.Min(pct, 100.5) / 100 * c.coef)), nil
		}
	}
	return ptr(0), nil
}
