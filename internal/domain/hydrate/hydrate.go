// Package hydrate turns dry scores into canonical score documents.
package hydrate

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/rgtrack/internal/domain/gpt"
	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/internal/domain/rating"
	"github.com/okian/rgtrack/pkg/metrics"
)

// Option applies a configuration option to the Hydrator.
type Option func(*Hydrator)

// WithClock replaces time.Now for timeAdded.
func WithClock(now func() time.Time) Option {
	return func(h *Hydrator) {
		if now != nil {
			h.now = now
		}
	}
}

// WithDerivation registers or replaces the deriver of one derived metric.
func WithDerivation(gptID, metric string, fn Deriver) Option {
	return func(h *Hydrator) {
		list := h.derivers[gptID]
		for i := range list {
			if list[i].Metric == metric {
				list[i].Fn = fn
				return
			}
		}
		h.derivers[gptID] = append(list, Derivation{Metric: metric, Fn: fn})
	}
}

// Hydrator is generic over GPT configuration; game logic lives in the derivers and the rating engine.
type Hydrator struct {
	ratings  *rating.Engine
	derivers map[string][]Derivation
	now      func() time.Time
}

// New builds a hydrator and fails if any GPT has a derived metric without a deriver.
func New(ratings *rating.Engine, opts ...Option) (*Hydrator, error) {
	h := &Hydrator{
		ratings:  ratings,
		derivers: builtinDerivers(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}

	for _, c := range gpt.All() {
		have := map[string]bool{}
		for _, d := range h.derivers[c.ID()] {
			have[d.Metric] = true
		}
		for name := range c.DerivedMetrics {
			if !have[name] {
				return nil, fmt.Errorf("%w: %s on %s", ErrMissingDeriver, name, c.ID())
			}
		}
	}
	return h, nil
}

// Hydrate builds the score document. It does not persist it.
func (h *Hydrator) Hydrate(_ context.Context, userID int, dry *model.DryScore, chart *model.Chart, song *model.Song, scoreID string) (*model.Score, error) {
	started := time.Now()
	defer func() { metrics.RecordHydrationLatency(float64(time.Since(started).Microseconds()) / 1000) }()

	cfg, err := gpt.Get(dry.Game, chart.Playtype)
	if err != nil {
		return nil, err
	}

	scoreData, err := h.scoreData(cfg, dry, chart)
	if err != nil {
		return nil, err
	}

	calculated, err := h.ratings.CalculateScore(rating.ScoreInput{
		Config:  cfg,
		Metrics: scoreData.Metrics,
		Chart:   chart,
		ESD:     scoreData.ESD,
	})
	if err != nil {
		return nil, err
	}

	return &model.Score{
		ScoreID:        scoreID,
		UserID:         userID,
		Game:           dry.Game,
		Playtype:       chart.Playtype,
		SongID:         song.ID,
		ChartID:        chart.ChartID,
		IsPrimary:      chart.IsPrimary,
		Highlight:      false,
		Comment:        dry.Comment,
		ImportType:     dry.ImportType,
		Service:        dry.Service,
		ScoreData:      *scoreData,
		CalculatedData: calculated,
		ScoreMeta:      dry.ScoreMeta,
		TimeAdded:      h.now(),
		TimeAchieved:   dry.TimeAchieved,
	}, nil
}

func (h *Hydrator) scoreData(cfg *gpt.Config, dry *model.DryScore, chart *model.Chart) (*model.ScoreData, error) {
	for name := range dry.Metrics {
		if _, ok := cfg.MandatoryMetrics[name]; !ok {
			return nil, fmt.Errorf("%w: %s on %s", ErrUnexpectedMetric, name, cfg.ID())
		}
	}
	for name := range cfg.MandatoryMetrics {
		if _, ok := dry.Metrics[name]; !ok {
			return nil, fmt.Errorf("%w: %s on %s", ErrMissingMetric, name, cfg.ID())
		}
	}

	ms := dry.Metrics.Clone()
	for _, d := range h.derivers[cfg.ID()] {
		v, err := d.Fn(ms, chart)
		if err != nil {
			return nil, fmt.Errorf("derive %s: %w", d.Metric, err)
		}
		if err := checkDerived(cfg, d.Metric, v); err != nil {
			return nil, err
		}
		ms[d.Metric] = v
	}

	enumIndexes := map[string]int{}
	for _, name := range cfg.ScoreDataMetrics() {
		def, _, _ := cfg.Metric(name)
		if def.Kind != gpt.Enum {
			continue
		}
		v, _ := ms.Enum(name)
		enumIndexes[name] = cfg.EnumIndex(name, v)
	}

	var esd *float64
	if pct, ok := ms.Num("percent"); ok {
		esd = CalculateESD(cfg.ID(), pct/100)
	}

	optional := dry.Optional
	if optional == nil {
		optional = model.Metrics{}
	}

	return &model.ScoreData{
		Metrics:     ms,
		Optional:    optional,
		Judgements:  dry.Judgements,
		EnumIndexes: enumIndexes,
		ESD:         esd,
	}, nil
}

// checkDerived holds derived numeric metrics to their declared bounds.
func checkDerived(cfg *gpt.Config, name string, v model.Metric) error {
	def, ok := cfg.DerivedMetrics[name]
	if !ok || !v.Numeric() {
		return nil
	}
	if (def.Min != nil && v.Num < *def.Min) || (def.Max != nil && v.Num > *def.Max) {
		return fmt.Errorf("%w: %s of %v on %s", ErrMetricOutOfRange, name, v.Num, cfg.ID())
	}
	return nil
}
