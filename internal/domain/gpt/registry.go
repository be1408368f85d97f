package gpt

import (
	"fmt"
	"slices"
	"sort"
)

var (
	games   = map[string]GameConfig{} //nolint:gochecknoglobals // static registry
	configs = map[string]*Config{}    //nolint:gochecknoglobals // static registry
)

func register(game string, gc GameConfig, cfgs ...*Config) {
	games[game] = gc
	for _, c := range cfgs {
		configs[c.ID()] = c
	}
}

// Get returns the configuration for a game and playtype.
func Get(game, playtype string) (*Config, error) {
	c, ok := configs[game+":"+playtype]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrUnknownGPT, game, playtype)
	}
	return c, nil
}

// MustGet is Get for static call sites; it panics on unknown pairs.
func MustGet(game, playtype string) *Config {
	c, err := Get(game, playtype)
	if err != nil {
		panic(err)
	}
	return c
}

// Game returns the game-level configuration.
func Game(game string) (GameConfig, error) {
	g, ok := games[game]
	if !ok {
		return GameConfig{}, fmt.Errorf("%w: %s", ErrUnknownGame, game)
	}
	return g, nil
}

// All returns every configuration ordered by game then playtype.
func All() []*Config {
	out := make([]*Config, 0, len(configs))
	for _, c := range configs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Games returns every configured game, sorted.
func Games() []string {
	out := make([]string, 0, len(games))
	for g := range games {
		out = append(out, g)
	}
	slices.Sort(out)
	return out
}

// Playtypes returns the playtypes of game, or nil if the game is unknown.
func Playtypes(game string) []string {
	return games[game].ValidPlaytypes
}

// Validate checks the structural invariants of a configuration.
func Validate(c *Config) error {
	if _, ok := c.MandatoryMetrics[c.PrimaryMetric]; !ok {
		if _, ok := c.DerivedMetrics[c.PrimaryMetric]; !ok {
			return fmt.Errorf("%w: %s: primary metric %q is not mandatory or derived", ErrInvalidConfig, c.ID(), c.PrimaryMetric)
		}
	}

	seen := map[string]Section{}
	sections := []struct {
		s Section
		m map[string]MetricDef
	}{{Mandatory, c.MandatoryMetrics}, {Derived, c.DerivedMetrics}, {Additional, c.AdditionalMetrics}}
	for _, sec := range sections {
		for name, def := range sec.m {
			if prev, dup := seen[name]; dup {
				return fmt.Errorf("%w: %s: metric %q declared in %s and %s", ErrInvalidConfig, c.ID(), name, prev, sec.s)
			}
			seen[name] = sec.s
			if def.Kind == Enum && !slices.Contains(def.Values, def.MinimumRelevantValue) {
				return fmt.Errorf("%w: %s: %q minimumRelevantValue %q is not a value", ErrInvalidConfig, c.ID(), name, def.MinimumRelevantValue)
			}
		}
	}

	if c.Difficulties.Type == Fixed && !slices.Contains(c.Difficulties.Order, c.Difficulties.Default) {
		return fmt.Errorf("%w: %s: default difficulty %q not in order", ErrInvalidConfig, c.ID(), c.Difficulties.Default)
	}

	if !c.HasScoreAlg(c.DefaultScoreRatingAlg) ||
		!c.HasSessionAlg(c.DefaultSessionRatingAlg) ||
		!c.HasProfileAlg(c.DefaultProfileRatingAlg) {
		return fmt.Errorf("%w: %s: default rating alg is not declared", ErrInvalidConfig, c.ID())
	}

	if c.ScoreBucket != "" {
		if def, _, ok := c.Metric(string(c.ScoreBucket)); !ok || def.Kind != Enum {
			return fmt.Errorf("%w: %s: score bucket %q is not an enum metric", ErrInvalidConfig, c.ID(), c.ScoreBucket)
		}
	}
	return nil
}
