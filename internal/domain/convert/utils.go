package convert

import (
	"context"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/okian/rgtrack/internal/domain/gpt"
	"github.com/okian/rgtrack/internal/domain/model"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04",
	"2006/01/02 15:04:05",
	"2006-01-02",
}

// ParseDate parses the timestamp formats sources send. Numeric strings are unix
// seconds, or milliseconds when large enough. Empty or unparseable input yields nil.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ParseUnix(n)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// ParseUnix interprets n as unix milliseconds when it is beyond the year 2286 in seconds.
func ParseUnix(n int64) *time.Time {
	if n <= 0 {
		return nil
	}
	var t time.Time
	if n > 10_000_000_000 {
		t = time.UnixMilli(n).UTC()
	} else {
		t = time.Unix(n, 0).UTC()
	}
	return &t
}

// MusecaGetLamp derives the MÚSECA lamp from score and error count.
func MusecaGetLamp(score, errorCount int) string {
	switch {
	case score == 1_000_000:
		return "PERFECT CONNECT ALL"
	case errorCount == 0:
		return "CONNECT ALL"
	case score >= 800_000:
		return "CLEAR"
	default:
		return "FAILED"
	}
}

// SDVXLampFromClearType maps a kai clear_type to an SDVX lamp. 0 is a played but failed chart.
func SDVXLampFromClearType(clearType int) (string, error) {
	switch clearType {
	case 0:
		return "FAILED", nil
	case 1:
		return "CLEAR", nil
	case 2:
		return "EXCESSIVE CLEAR", nil
	case 3:
		return "ULTIMATE CHAIN", nil
	case 4:
		return "PERFECT ULTIMATE CHAIN", nil
	}
	return "", invalid("invalid clear_type %d", clearType)
}

// IIDXLampFromKai maps a kai lamp number to an IIDX lamp. NO PLAY entries are skipped.
func IIDXLampFromKai(lamp int) (string, error) {
	if lamp == 0 {
		return "", skip("lamp is NO PLAY")
	}
	if lamp < 0 || lamp >= len(gpt.IIDXLamps) {
		return "", invalid("invalid lamp %d", lamp)
	}
	return gpt.IIDXLamps[lamp], nil
}

// checkDry validates a dry score against its GPT: every mandatory metric present, every
// metric known to its section and in range, and judgements limited to the GPT's names.
func checkDry(cfg *gpt.Config, dry *model.DryScore) error {
	for name := range cfg.MandatoryMetrics {
		if _, ok := dry.Metrics[name]; !ok {
			return invalid("missing metric %s", name)
		}
	}
	for name, m := range dry.Metrics {
		def, ok := cfg.MandatoryMetrics[name]
		if !ok {
			return invalid("unexpected metric %s", name)
		}
		fixed, err := checkMetric(name, def, m)
		if err != nil {
			return err
		}
		dry.Metrics[name] = fixed
	}
	for name, m := range dry.Optional {
		def, ok := cfg.AdditionalMetrics[name]
		if !ok {
			return invalid("unexpected optional metric %s", name)
		}
		fixed, err := checkMetric(name, def, m)
		if err != nil {
			return err
		}
		dry.Optional[name] = fixed
	}
	for name, v := range dry.Judgements {
		if !slices.Contains(cfg.OrderedJudgements, name) {
			return invalid("unexpected judgement %s", name)
		}
		if v < 0 {
			return invalid("judgement %s is negative", name)
		}
	}
	return nil
}

// checkMetric checks m against def, coercing between the numeric kinds where lossless.
func checkMetric(name string, def gpt.MetricDef, m model.Metric) (model.Metric, error) {
	switch def.Kind {
	case gpt.Enum:
		if m.Kind != gpt.Enum || !slices.Contains(def.Values, m.Str) {
			return m, invalid("invalid %s %s, expected one of %s", name, m, strings.Join(def.Values, ", "))
		}
		return m, nil
	case gpt.Graph:
		if m.Kind != gpt.Graph {
			return m, invalid("%s must be a list of numbers", name)
		}
		return m, nil
	}

	if !m.Numeric() || math.IsNaN(m.Num) || math.IsInf(m.Num, 0) {
		return m, invalid("%s must be a number", name)
	}
	if def.Kind == gpt.Integer {
		if m.Num != math.Trunc(m.Num) {
			return m, invalid("%s must be an integer, got %v", name, m.Num)
		}
		m.Kind = gpt.Integer
	} else {
		m.Kind = gpt.Decimal
	}
	if def.Min != nil && m.Num < *def.Min {
		return m, invalid("%s of %v is below %v", name, m.Num, *def.Min)
	}
	if def.Max != nil && m.Num > *def.Max {
		return m, invalid("%s of %v is above %v", name, m.Num, *def.Max)
	}
	return m, nil
}

// newDry fills the fields every converter sets the same way.
func newDry(game, importType, service string, timeAchieved *time.Time) *model.DryScore {
	return &model.DryScore{
		Game:         game,
		ImportType:   importType,
		TimeAchieved: timeAchieved,
		Service:      service,
		Metrics:      model.Metrics{},
		Optional:     model.Metrics{},
		Judgements:   map[string]int{},
		ScoreMeta:    map[string]any{},
	}
}

// finish validates dry against the chart's GPT and resolves the song.
func finish(ctx context.Context, cat Catalog, chart *model.Chart, dry *model.DryScore) (*Result, error) {
	cfg, err := gpt.Get(chart.Game, chart.Playtype)
	if err != nil {
		return nil, internal("chart %s has unknown gpt %s:%s", chart.ChartID, chart.Game, chart.Playtype)
	}
	if err := checkDry(cfg, dry); err != nil {
		return nil, err
	}
	if err := checkChartBounds(chart, dry); err != nil {
		return nil, err
	}
	song, err := songForChart(ctx, cat, chart.Game, chart)
	if err != nil {
		return nil, err
	}
	return &Result{Song: song, Chart: chart, DryScore: dry}, nil
}

// chartScoreMax is the highest score a chart allows for GPTs whose score bound depends
// on the chart. IIDX EX score is two points per note.
func chartScoreMax(chart *model.Chart) (float64, bool) {
	switch chart.Game {
	case "iidx":
		if chart.Data.Notecount > 0 {
			return float64(chart.Data.Notecount * 2), true
		}
	}
	return 0, false
}

// checkChartBounds rejects metrics the chart itself makes impossible.
func checkChartBounds(chart *model.Chart, dry *model.DryScore) error {
	limit, ok := chartScoreMax(chart)
	if !ok {
		return nil
	}
	if score, ok := dry.Metrics.Num("score"); ok && score > limit {
		return invalid("score of %v is above the maximum of %v on chart %s", score, limit, chart.ChartID)
	}
	if chart.Game == "iidx" {
		if bp, ok := dry.Optional.Num("bp"); ok && bp > float64(chart.Data.Notecount) {
			return invalid("bp of %v is above the notecount of %d", bp, chart.Data.Notecount)
		}
	}
	return nil
}
