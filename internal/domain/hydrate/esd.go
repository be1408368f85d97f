package hydrate

import "math"

// JudgementWindow is a ± window in milliseconds and the share of max score a hit inside it earns.
type JudgementWindow struct {
	MS     float64
	Weight float64
}

// Windows per GPT, tightest first. Weights of a GPT sum to 1.
var judgementWindows = map[string][]JudgementWindow{
	"iidx:SP":        {{16.67, 0.5}, {33.33, 0.5}},
	"iidx:DP":        {{16.67, 0.5}, {33.33, 0.5}},
	"sdvx:Single":    {{25, 0.5}, {75, 0.5}},
	"usc:Controller": {{46, 0.5}, {92, 0.5}},
	"usc:Keyboard":   {{46, 0.5}, {92, 0.5}},
	"museca:Single":  {{33.33, 0.5}, {100, 0.5}},
}

const (
	esdMin        = 0.0
	esdMax        = 200.0
	esdIterations = 64
)

// expectedFraction is the expected share of max score for hits normally distributed with stddev sigma.
func expectedFraction(windows []JudgementWindow, sigma float64) float64 {
	var f float64
	for _, w := range windows {
		f += w.Weight * math.Erf(w.MS/(sigma*math.Sqrt2))
	}
	return f
}

// CalculateESD inverts expectedFraction by bisection. fraction is percent/100.
// It returns nil for GPTs without judgement windows.
func CalculateESD(gptID string, fraction float64) *float64 {
	windows, ok := judgementWindows[gptID]
	if !ok || math.IsNaN(fraction) {
		return nil
	}

	lo, hi := 1e-6, esdMax
	switch {
	case fraction >= expectedFraction(windows, lo):
		v := esdMin
		return &v
	case fraction <= expectedFraction(windows, hi):
		v := esdMax
		return &v
	}

	for range esdIterations {
		mid := (lo + hi) / 2
		if expectedFraction(windows, mid) > fraction {
			lo = mid
		} else {
			hi = mid
		}
	}
	v := math.Round((lo+hi)/2*1000) / 1000
	return &v
}
