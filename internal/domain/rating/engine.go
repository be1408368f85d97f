// Package rating computes calculatedData for scores, profile and session ratings,
// and the classes derived from profile ratings.
package rating

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/okian/rgtrack/internal/domain/gpt"
	"github.com/okian/rgtrack/internal/domain/model"
)

// Aggregate reduces a list of per-chart bests (sorted descending) to one value.
type Aggregate func(sorted []float64) float64

// SumBest sums the best n values.
func SumBest(n int) Aggregate {
	return func(sorted []float64) float64 {
		var sum float64
		for _, v := range sorted[:min(n, len(sorted))] {
			sum += v
		}
		return sum
	}
}

// AvgBest averages the best n values.
func AvgBest(n int) Aggregate {
	return func(sorted []float64) float64 {
		top := sorted[:min(n, len(sorted))]
		return SumBest(n)(sorted) / float64(len(top))
	}
}

// Scaled multiplies another aggregate.
func Scaled(agg Aggregate, factor float64) Aggregate {
	return func(sorted []float64) float64 { return agg(sorted) * factor }
}

// ProfileAlg aggregates one score algorithm's per-chart bests.
type ProfileAlg struct {
	// Source is the score algorithm read from calculatedData.
	Source string
	Agg    Aggregate
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithScoreAlg registers or replaces a score algorithm for a GPT ("game:playtype").
func WithScoreAlg(gptID, name string, alg ScoreAlg) Option {
	return func(e *Engine) {
		if alg == nil {
			return
		}
		if e.score[gptID] == nil {
			e.score[gptID] = map[string]ScoreAlg{}
		}
		e.score[gptID][name] = alg
	}
}

// WithClassHandler registers or replaces the class handler of a GPT.
func WithClassHandler(gptID string, h ClassHandler) Option {
	return func(e *Engine) {
		if h != nil {
			e.classes[gptID] = h
		}
	}
}

// Engine dispatches named algorithms. It is read-only after New and safe for concurrent use.
type Engine struct {
	score   map[string]map[string]ScoreAlg
	profile map[string]map[string]ProfileAlg
	session map[string]map[string]ProfileAlg
	classes map[string]ClassHandler
}

// New builds the engine with every builtin algorithm and checks that each GPT's
// declared algorithms are implemented.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		score:   builtinScoreAlgs(),
		classes: builtinClassHandlers(),
	}
	e.profile, e.session = builtinAggregates()

	for _, opt := range opts {
		opt(e)
	}

	for _, c := range gpt.All() {
		if err := e.check(c); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Engine) check(c *gpt.Config) error {
	for name := range c.ScoreRatingAlgs {
		if _, ok := e.score[c.ID()][name]; !ok {
			return fmt.Errorf("%w: score alg %s for %s", ErrMissingAlg, name, c.ID())
		}
	}
	for name := range c.ProfileRatingAlgs {
		if _, ok := e.profile[c.ID()][name]; !ok {
			return fmt.Errorf("%w: profile alg %s for %s", ErrMissingAlg, name, c.ID())
		}
	}
	for name := range c.SessionRatingAlgs {
		if _, ok := e.session[c.ID()][name]; !ok {
			return fmt.Errorf("%w: session alg %s for %s", ErrMissingAlg, name, c.ID())
		}
	}
	return nil
}

// ScoreRating runs one named score algorithm.
func (e *Engine) ScoreRating(name string, in ScoreInput) (*float64, error) {
	alg, ok := e.score[in.Config.ID()][name]
	if !ok || !in.Config.HasScoreAlg(name) {
		return nil, fmt.Errorf("%w: %s for %s", ErrUnknownAlg, name, in.Config.ID())
	}
	v, err := alg(in)
	if err != nil {
		return nil, fmt.Errorf("score alg %s: %w", name, err)
	}
	if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
		return nil, nil
	}
	return v, nil
}

// CalculateScore runs every score algorithm the GPT declares. Algorithms without a result are omitted.
func (e *Engine) CalculateScore(in ScoreInput) (map[string]float64, error) {
	out := make(map[string]float64, len(in.Config.ScoreRatingAlgs))
	for name := range in.Config.ScoreRatingAlgs {
		v, err := e.ScoreRating(name, in)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out[name] = *v
		}
	}
	return out, nil
}

// CalculateProfile computes every profile rating from all of a user's scores on a GPT.
// Ratings with no contributing score are omitted.
func (e *Engine) CalculateProfile(c *gpt.Config, scores []model.Score) map[string]float64 {
	return aggregate(e.profile[c.ID()], scores)
}

// CalculateSession computes every session rating from the scores of one session.
func (e *Engine) CalculateSession(c *gpt.Config, scores []model.Score) map[string]float64 {
	return aggregate(e.session[c.ID()], scores)
}

// Classes derives class values from profile ratings.
func (e *Engine) Classes(ctx context.Context, c *gpt.Config, ratings map[string]float64) map[string]int {
	h, ok := e.classes[c.ID()]
	if !ok {
		return nil
	}
	return h(ctx, ratings)
}

func aggregate(algs map[string]ProfileAlg, scores []model.Score) map[string]float64 {
	out := make(map[string]float64, len(algs))
	for name, alg := range algs {
		best := map[string]float64{}
		for i := range scores {
			if !scores[i].IsPrimary {
				continue
			}
			v, ok := scores[i].Calculated(alg.Source)
			if !ok {
				continue
			}
			if cur, seen := best[scores[i].ChartID]; !seen || v > cur {
				best[scores[i].ChartID] = v
			}
		}
		if len(best) == 0 {
			continue
		}
		values := make([]float64, 0, len(best))
		for _, v := range best {
			values = append(values, v)
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(values)))
		out[name] = alg.Agg(values)
	}
	return out
}

func builtinScoreAlgs() map[string]map[string]ScoreAlg {
	return map[string]map[string]ScoreAlg{
		"iidx:SP":         {"ktLampRating": IIDXLampRating, "BPI": IIDXBPI},
		"iidx:DP":         {"ktLampRating": IIDXLampRating, "BPI": IIDXBPI},
		"sdvx:Single":     {"VF6": SDVXVF6},
		"usc:Controller":  {"VF6": SDVXVF6},
		"usc:Keyboard":    {"VF6": SDVXVF6},
		"museca:Single":   {"curatorSkill": MusecaCuratorSkill},
		"gitadora:Gita":   {"skill": GitadoraSkill},
		"gitadora:Dora":   {"skill": GitadoraSkill},
		"wacca:Single":    {"rate": WACCARate},
		"popn:9B":         {"classPoints": PopnClassPoints},
		"chunithm:Single": {"rating": ChunithmRating},
		"jubeat:Single":   {"jubility": JubeatJubility},
		"maimaidx:Single": {"rate": MaimaiDXRate},
	}
}

func builtinAggregates() (profile, session map[string]map[string]ProfileAlg) {
	avg10 := func(source string) ProfileAlg { return ProfileAlg{Source: source, Agg: AvgBest(10)} }

	iidxProfile := map[string]ProfileAlg{
		"ktLampRating": {Source: "ktLampRating", Agg: AvgBest(20)},
		"BPI":          {Source: "BPI", Agg: AvgBest(20)},
	}
	iidxSession := map[string]ProfileAlg{"ktLampRating": avg10("ktLampRating"), "BPI": avg10("BPI")}
	vfProfile := map[string]ProfileAlg{"VF6": {Source: "VF6", Agg: SumBest(50)}}
	vfSession := map[string]ProfileAlg{"ProfileVF6": {Source: "VF6", Agg: Scaled(AvgBest(10), 50)}}
	skillProfile := map[string]ProfileAlg{"skill": {Source: "skill", Agg: SumBest(50)}}
	skillSession := map[string]ProfileAlg{"skill": avg10("skill")}

	profile = map[string]map[string]ProfileAlg{
		"iidx:SP":         iidxProfile,
		"iidx:DP":         iidxProfile,
		"sdvx:Single":     vfProfile,
		"usc:Controller":  vfProfile,
		"usc:Keyboard":    vfProfile,
		"museca:Single":   {"curatorSkill": {Source: "curatorSkill", Agg: SumBest(20)}},
		"gitadora:Gita":   skillProfile,
		"gitadora:Dora":   skillProfile,
		"wacca:Single":    {"naiveRate": {Source: "rate", Agg: SumBest(50)}},
		"popn:9B":         {"naiveClassPoints": {Source: "classPoints", Agg: AvgBest(20)}},
		"chunithm:Single": {"naiveRating": {Source: "rating", Agg: AvgBest(30)}},
		"jubeat:Single":   {"jubility": {Source: "jubility", Agg: SumBest(60)}},
		"maimaidx:Single": {"naiveRate": {Source: "rate", Agg: SumBest(50)}},
	}
	session = map[string]map[string]ProfileAlg{
		"iidx:SP":         iidxSession,
		"iidx:DP":         iidxSession,
		"sdvx:Single":     vfSession,
		"usc:Controller":  vfSession,
		"usc:Keyboard":    vfSession,
		"museca:Single":   {"curatorSkill": avg10("curatorSkill")},
		"gitadora:Gita":   skillSession,
		"gitadora:Dora":   skillSession,
		"wacca:Single":    {"rate": avg10("rate")},
		"popn:9B":         {"classPoints": avg10("classPoints")},
		"chunithm:Single": {"naiveRating": avg10("rating")},
		"jubeat:Single":   {"jubility": avg10("jubility")},
		"maimaidx:Single": {"rate": avg10("rate")},
	}
	return profile, session
}
