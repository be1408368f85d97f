// Package replay drives a running tracker with generated score batches and
// checks that the personal-best index agrees with what was sent.
package replay

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ChartRef names a chart the way a batch-manual entry does.
type ChartRef struct {
	Identifier string // in-game ID
	Difficulty string
	MaxScore   int // highest legal score, e.g. notecount*2 for IIDX
}

// Config holds configuration for a replay run.
type Config struct {
	BaseURL       string
	Game          string
	Playtype      string
	Charts        []ChartRef
	Lamps         []string
	PrimaryMetric string // metric the chart index ranks by

	Users         int
	FirstUserID   int
	ScoresPerUser int
	Workers       int
	Retries       int
	Timeout       time.Duration
	Seed          uint64

	OutputFile string
	Verbose    bool
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.Game == "" {
		out.Game = "iidx"
	}
	if out.Playtype == "" {
		out.Playtype = "SP"
	}
	if len(out.Lamps) == 0 {
		out.Lamps = []string{"FAILED", "EASY CLEAR", "CLEAR", "HARD CLEAR"}
	}
	if out.PrimaryMetric == "" {
		out.PrimaryMetric = "percent"
	}
	if out.FirstUserID <= 0 {
		out.FirstUserID = 1
	}
	if out.Workers <= 0 {
		out.Workers = 4
	}
	if out.Retries <= 0 {
		out.Retries = 3
	}
	if out.Timeout <= 0 {
		out.Timeout = 30 * time.Second
	}
	return &out
}

// Entry is one batch-manual score.
type Entry struct {
	MatchType    string `json:"matchType"`
	Identifier   string `json:"identifier"`
	Difficulty   string `json:"difficulty"`
	Score        int    `json:"score"`
	Lamp         string `json:"lamp"`
	TimeAchieved int64  `json:"timeAchieved"`
}

// BatchMeta is the batch-manual header.
type BatchMeta struct {
	Game     string `json:"game"`
	Playtype string `json:"playtype"`
	Service  string `json:"service"`
}

// Batch is everything one user submits in a single import.
type Batch struct {
	UserID int       `json:"-"`
	Meta   BatchMeta `json:"meta"`
	Scores []Entry   `json:"scores"`
}

// Stats holds run statistics.
type Stats struct {
	Users            int
	BatchesSubmitted int
	BatchesFailed    int
	Throttled        int
	ScoresImported   int
	ImportErrors     int
	PBsVerified      int
	Mismatches       []string
	StartTime        time.Time
	Duration         time.Duration
}

// ParseChartRef reads "identifier:difficulty:maxScore".
func ParseChartRef(s string) (ChartRef, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return ChartRef{}, fmt.Errorf("%w: %q is not identifier:difficulty:maxScore", ErrBadChartRef, s)
	}
	maxScore, err := strconv.Atoi(parts[2])
	if err != nil || maxScore <= 0 {
		return ChartRef{}, fmt.Errorf("%w: bad max score in %q", ErrBadChartRef, s)
	}
	return ChartRef{Identifier: parts[0], Difficulty: parts[1], MaxScore: maxScore}, nil
}
