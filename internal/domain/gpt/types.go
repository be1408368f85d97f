// Package gpt holds the static per-game-and-playtype configuration that drives
// conversion, hydration, rating and class handling.
package gpt

import "slices"

// MetricKind is the value shape of a metric.
type MetricKind string

const (
	Integer MetricKind = "INTEGER"
	Decimal MetricKind = "DECIMAL"
	Enum    MetricKind = "ENUM"
	Graph   MetricKind = "GRAPH"
)

// Section says which metric group a metric belongs to.
type Section string

const (
	Mandatory  Section = "mandatory"
	Derived    Section = "derived"
	Additional Section = "additional"
)

// MetricDef describes one metric. Values and MinimumRelevantValue are only set for ENUM metrics.
// Min and Max bound numeric metrics when the bound does not depend on the chart.
type MetricDef struct {
	Kind                 MetricKind `json:"type"`
	Values               []string   `json:"values,omitempty"`
	MinimumRelevantValue string     `json:"minimumRelevantValue,omitempty"`
	Min                  *float64   `json:"min,omitempty"`
	Max                  *float64   `json:"max,omitempty"`
}

// AlgDef documents a rating algorithm. The implementation lives in the rating package.
type AlgDef struct {
	Description string `json:"description"`
}

// DifficultyType distinguishes closed difficulty sets from free-form ones.
type DifficultyType string

const (
	Fixed   DifficultyType = "FIXED"
	Dynamic DifficultyType = "DYNAMIC"
)

// DifficultyConfig is the difficulty scheme of a GPT.
type DifficultyConfig struct {
	Type      DifficultyType    `json:"type"`
	Order     []string          `json:"difficultyOrder,omitempty"`
	Shorthand map[string]string `json:"difficultyShorthand,omitempty"`
	Colours   map[string]string `json:"difficultyColours,omitempty"`
	Default   string            `json:"defaultDifficulty,omitempty"`
}

// ClassDef is one class dimension; the index of a value is its rank.
type ClassDef struct {
	Downgradable              bool     `json:"downgradable"`
	CanBeBatchManualSubmitted bool     `json:"canBeBatchManualSubmitted"`
	Values                    []string `json:"values"`
}

// ScoreBucket is the enum metric used to group scores in folder views.
type ScoreBucket string

const (
	BucketLamp  ScoreBucket = "lamp"
	BucketGrade ScoreBucket = "grade"
)

// Config is the immutable configuration of one game+playtype.
type Config struct {
	Game     string `json:"game"`
	Playtype string `json:"playtype"`

	MandatoryMetrics  map[string]MetricDef `json:"mandatoryMetrics"`
	DerivedMetrics    map[string]MetricDef `json:"derivedMetrics"`
	AdditionalMetrics map[string]MetricDef `json:"additionalMetrics"`
	PrimaryMetric     string               `json:"primaryMetric"`

	ScoreRatingAlgs   map[string]AlgDef `json:"scoreRatingAlgs"`
	SessionRatingAlgs map[string]AlgDef `json:"sessionRatingAlgs"`
	ProfileRatingAlgs map[string]AlgDef `json:"profileRatingAlgs"`

	DefaultScoreRatingAlg   string `json:"defaultScoreRatingAlg"`
	DefaultSessionRatingAlg string `json:"defaultSessionRatingAlg"`
	DefaultProfileRatingAlg string `json:"defaultProfileRatingAlg"`

	Difficulties     DifficultyConfig    `json:"difficultyConfig"`
	SupportedClasses map[string]ClassDef `json:"supportedClasses"`

	OrderedJudgements   []string          `json:"orderedJudgements"`
	ScoreBucket         ScoreBucket       `json:"scoreBucket"`
	SupportedVersions   []string          `json:"supportedVersions"`
	SupportedTierlists  map[string]AlgDef `json:"supportedTierlists"`
	SupportedMatchTypes []string          `json:"supportedMatchTypes"`
}

// GameConfig is the per-game part of the configuration.
type GameConfig struct {
	Name            string   `json:"name"`
	DefaultPlaytype string   `json:"defaultPlaytype"`
	ValidPlaytypes  []string `json:"validPlaytypes"`
}

// ID returns "game:playtype".
func (c *Config) ID() string { return c.Game + ":" + c.Playtype }

// Metric finds a metric in any of the three sections.
func (c *Config) Metric(name string) (MetricDef, Section, bool) {
	if d, ok := c.MandatoryMetrics[name]; ok {
		return d, Mandatory, true
	}
	if d, ok := c.DerivedMetrics[name]; ok {
		return d, Derived, true
	}
	if d, ok := c.AdditionalMetrics[name]; ok {
		return d, Additional, true
	}
	return MetricDef{}, "", false
}

// ScoreDataMetrics returns the metric names persisted in scoreData: mandatory and derived.
func (c *Config) ScoreDataMetrics() []string {
	out := make([]string, 0, len(c.MandatoryMetrics)+len(c.DerivedMetrics))
	for k := range c.MandatoryMetrics {
		out = append(out, k)
	}
	for k := range c.DerivedMetrics {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// EnumIndex returns the rank of value in an ENUM metric, or -1.
func (c *Config) EnumIndex(metric, value string) int {
	d, _, ok := c.Metric(metric)
	if !ok || d.Kind != Enum {
		return -1
	}
	return slices.Index(d.Values, value)
}

// EnumValue returns the value at index for an ENUM metric.
func (c *Config) EnumValue(metric string, index int) (string, bool) {
	d, _, ok := c.Metric(metric)
	if !ok || d.Kind != Enum || index < 0 || index >= len(d.Values) {
		return "", false
	}
	return d.Values[index], true
}

// ClassIndex returns the rank of value in a class set, or -1.
func (c *Config) ClassIndex(set, value string) int {
	d, ok := c.SupportedClasses[set]
	if !ok {
		return -1
	}
	return slices.Index(d.Values, value)
}

// ClassValue returns the class value for a rank.
func (c *Config) ClassValue(set string, index int) (string, bool) {
	d, ok := c.SupportedClasses[set]
	if !ok || index < 0 || index >= len(d.Values) {
		return "", false
	}
	return d.Values[index], true
}

func (c *Config) HasScoreAlg(name string) bool   { _, ok := c.ScoreRatingAlgs[name]; return ok }
func (c *Config) HasProfileAlg(name string) bool { _, ok := c.ProfileRatingAlgs[name]; return ok }
func (c *Config) HasSessionAlg(name string) bool { _, ok := c.SessionRatingAlgs[name]; return ok }

// SupportsVersion reports whether version is a known version of this GPT.
func (c *Config) SupportsVersion(version string) bool {
	return slices.Contains(c.SupportedVersions, version)
}

// SupportsMatchType reports whether batch-manual imports may use matchType.
func (c *Config) SupportsMatchType(matchType string) bool {
	return slices.Contains(c.SupportedMatchTypes, matchType)
}

// ValidDifficulty reports whether diff is allowed. DYNAMIC configs accept any non-empty string.
func (c *Config) ValidDifficulty(diff string) bool {
	if c.Difficulties.Type == Dynamic {
		return diff != ""
	}
	return slices.Contains(c.Difficulties.Order, diff)
}

func bound(v float64) *float64 { return &v }

func intMetric(lo, hi float64) MetricDef {
	return MetricDef{Kind: Integer, Min: bound(lo), Max: bound(hi)}
}

func decMetric(lo, hi float64) MetricDef {
	return MetricDef{Kind: Decimal, Min: bound(lo), Max: bound(hi)}
}

func enumMetric(minRelevant string, values ...string) MetricDef {
	return MetricDef{Kind: Enum, Values: values, MinimumRelevantValue: minRelevant}
}
