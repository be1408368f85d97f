// Package classes applies class (dan, colour, tier) changes to user profiles.
//
// Non-downgradable sets only ever move up; the compare and the write are a single
// store transaction so concurrent imports cannot lower a class.
package classes

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/rgtrack/internal/adapters/repository"
	"github.com/okian/rgtrack/internal/domain/gpt"
	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/pkg/logger"
	"github.com/okian/rgtrack/pkg/metrics"
)

// Outcome is the result of comparing a class against the stored one.
type Outcome int

const (
	// NoPrevious means the user had no value for the set.
	NoPrevious Outcome = iota
	// Improved means the new value is strictly greater.
	Improved
	// NotImproved means the new value is lower or equal.
	NotImproved
)

func (o Outcome) String() string {
	switch o {
	case NoPrevious:
		return "no_previous"
	case Improved:
		return "improved"
	default:
		return "not_improved"
	}
}

// ReturnClassIfGreater compares value against the user's current class for set.
func ReturnClassIfGreater(set string, value int, stats *model.UserGameStats) Outcome {
	if stats == nil {
		return NoPrevious
	}
	old, ok := stats.Classes[set]
	if !ok {
		return NoPrevious
	}
	if value > old {
		return Improved
	}
	return NotImproved
}

// Store is the persistence the engine needs.
type Store interface {
	UpdateClassIfGreater(ctx context.Context, userID int, game, playtype, set string, value int) (repository.ClassOutcome, error)
	SetClass(ctx context.Context, userID int, game, playtype, set string, value int) (repository.ClassOutcome, error)
	InsertClassAchievement(ctx context.Context, a *model.ClassAchievement) error
}

// Emitter publishes webhook events without blocking the caller.
type Emitter interface {
	Emit(ctx context.Context, ev model.WebhookEvent)
}

// Provider supplies classes from outside the rating engine, e.g. a network profile.
type Provider func(ctx context.Context, cfg *gpt.Config, userID int) map[string]int

// Change is one class set that was written.
type Change struct {
	Set     string
	Old     *int
	New     int
	Outcome Outcome
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the achievement timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine writes class changes and their side effects.
type Engine struct {
	store   Store
	emitter Emitter
	now     func() time.Time
	log     logger.Logger
}

// New creates an Engine. emitter may be nil.
func New(store Store, emitter Emitter, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		emitter: emitter,
		now:     time.Now,
		log:     logger.Named("classes"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// UpdateClassIfGreater writes value when it beats the stored class. On a write it
// appends a class achievement and emits class-update/v1.
func (e *Engine) UpdateClassIfGreater(ctx context.Context, userID int, game, playtype, set string, value int) (Outcome, error) {
	c, err := e.write(ctx, userID, game, playtype, set, value, false)
	return c.Outcome, err
}

// SetClass writes value regardless of the stored class. Achievements are only
// appended when the value went up.
func (e *Engine) SetClass(ctx context.Context, userID int, game, playtype, set string, value int) (Outcome, error) {
	c, err := e.write(ctx, userID, game, playtype, set, value, true)
	return c.Outcome, err
}

func (e *Engine) write(ctx context.Context, userID int, game, playtype, set string, value int, downgradable bool) (Change, error) {
	c := Change{Set: set, New: value, Outcome: NotImproved}

	var (
		res repository.ClassOutcome
		err error
	)
	if downgradable {
		res, err = e.store.SetClass(ctx, userID, game, playtype, set, value)
	} else {
		res, err = e.store.UpdateClassIfGreater(ctx, userID, game, playtype, set, value)
	}
	if err != nil {
		return c, fmt.Errorf("write class %s: %w", set, err)
	}

	c.Old = res.Old
	switch {
	case res.Old == nil:
		c.Outcome = NoPrevious
	case value > *res.Old:
		c.Outcome = Improved
	}
	metrics.RecordClassUpdate(set, c.Outcome.String())

	if !res.Changed {
		return c, nil
	}
	if res.Created {
		e.log.Info(ctx, "created game stats",
			logger.Int("user_id", userID), logger.String("game", game), logger.String("playtype", playtype))
	}

	if c.Outcome != NotImproved {
		err := e.store.InsertClassAchievement(ctx, &model.ClassAchievement{
			UserID:        userID,
			Game:          game,
			Playtype:      playtype,
			ClassSet:      set,
			ClassOldValue: res.Old,
			ClassValue:    value,
			TimeAchieved:  e.now(),
		})
		if err != nil {
			return c, fmt.Errorf("insert class achievement: %w", err)
		}
	}

	if e.emitter != nil {
		e.emitter.Emit(ctx, model.WebhookEvent{
			Type: model.WebhookClassUpdate,
			Content: model.ClassUpdateContent{
				UserID: userID, Game: game, Playtype: playtype, Set: set, Old: res.Old, New: value,
			},
		})
	}
	return c, nil
}

// ApplyClasses merges classes with whatever the providers report (taking the higher
// value per set) and writes each set. Downgradable sets keep the latest value.
func (e *Engine) ApplyClasses(ctx context.Context, userID int, cfg *gpt.Config, classes map[string]int, providers ...Provider) ([]Change, error) {
	merged := make(map[string]int, len(classes))
	for set, v := range classes {
		merged[set] = v
	}
	for _, p := range providers {
		for set, v := range p(ctx, cfg, userID) {
			if cur, ok := merged[set]; !ok || v > cur {
				merged[set] = v
			}
		}
	}

	sets := make([]string, 0, len(merged))
	for set := range merged {
		sets = append(sets, set)
	}
	sort.Strings(sets)

	var changes []Change
	for _, set := range sets {
		value := merged[set]
		def, ok := cfg.SupportedClasses[set]
		if !ok {
			return changes, fmt.Errorf("%w: %s for %s", ErrUnknownClassSet, set, cfg.ID())
		}
		if value < 0 || value >= len(def.Values) {
			return changes, fmt.Errorf("%w: %d for %s", ErrInvalidClassValue, value, set)
		}

		c, err := e.write(ctx, userID, cfg.Game, cfg.Playtype, set, value, def.Downgradable)
		if err != nil {
			return changes, err
		}
		if c.Outcome != NotImproved || (def.Downgradable && c.Old != nil && *c.Old != value) {
			changes = append(changes, c)
		}
	}
	return changes, nil
}
