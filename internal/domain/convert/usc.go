package convert

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/rgtrack/internal/domain/model"
)

// USC gauge types.
const (
	uscGaugeNormal     = 0
	uscGaugeHard       = 1
	uscGaugePermissive = 2
)

// USCClientScore is the score body a USC client submits.
type USCClientScore struct {
	Score     int     `json:"score"`
	Gauge     float64 `json:"gauge"`
	Timestamp int64   `json:"timestamp"`
	Crit      int     `json:"crit"`
	Near      int     `json:"near"`
	Error     int     `json:"error"`
	Early     *int    `json:"early"`
	Late      *int    `json:"late"`
	Combo     *int    `json:"combo"`
	Options   struct {
		GaugeType int  `json:"gaugeType"`
		GaugeOpt  int  `json:"gaugeOpt"`
		Mirror    bool `json:"mirror"`
		Random    bool `json:"random"`
		AutoFlags int  `json:"autoFlags"`
	} `json:"options"`
}

// USCEntry pairs a score with the hash of the chart it was played on.
type USCEntry struct {
	ChartHash string         `json:"chartHash"`
	Score     USCClientScore `json:"score"`
}

// USCLamp derives the lamp from the score, the error count and the gauge.
func USCLamp(s *USCClientScore) string {
	switch {
	case s.Score == 10_000_000:
		return "PERFECT ULTIMATE CHAIN"
	case s.Error == 0:
		return "ULTIMATE CHAIN"
	case s.Options.GaugeType == uscGaugeHard && s.Gauge > 0:
		return "EXCESSIVE CLEAR"
	case s.Options.GaugeType != uscGaugeHard && s.Gauge >= 0.7:
		return "CLEAR"
	default:
		return "FAILED"
	}
}

// ConvertUSC converts a score submitted over the USC IR protocol.
func ConvertUSC(ctx context.Context, cat Catalog, raw json.RawMessage, sc SourceContext, importType string) (*Result, error) {
	data, err := decode[USCEntry](raw)
	if err != nil {
		return nil, err
	}
	if sc.Playtype != "Controller" && sc.Playtype != "Keyboard" {
		return nil, invalid("invalid USC playtype %q", sc.Playtype)
	}
	if data.Score.Options.AutoFlags != 0 {
		return nil, invalid("autoplay scores are not accepted")
	}
	if data.Score.Options.GaugeType < uscGaugeNormal || data.Score.Options.GaugeType > uscGaugePermissive {
		return nil, invalid("invalid gaugeType %d", data.Score.Options.GaugeType)
	}

	found, err := cat.FindChartOnHash(ctx, "usc", data.ChartHash)
	chart, err := chartOrNotFound(found, err, "could not find chart with hash %s", data.ChartHash)
	if err != nil {
		return nil, err
	}
	if chart.Playtype != sc.Playtype {
		return nil, notFound("chart %s is not available for %s", data.ChartHash, sc.Playtype)
	}

	s := &data.Score
	var achieved *time.Time
	if s.Timestamp > 0 {
		achieved = ParseUnix(s.Timestamp)
	}

	dry := newDry("usc", importType, "USC-IR", achieved)
	dry.Metrics["score"] = model.IntMetric(s.Score)
	dry.Metrics["lamp"] = model.EnumMetric(USCLamp(s))
	dry.Judgements["critical"] = s.Crit
	dry.Judgements["near"] = s.Near
	dry.Judgements["miss"] = s.Error
	if s.Gauge >= 0 && s.Gauge <= 1 {
		dry.Optional["gauge"] = model.DecMetric(s.Gauge * 100)
	}
	if s.Combo != nil {
		dry.Optional["maxCombo"] = model.IntMetric(*s.Combo)
	}
	if s.Early != nil && s.Late != nil {
		dry.ScoreMeta["fast"] = *s.Early
		dry.ScoreMeta["slow"] = *s.Late
	}
	dry.ScoreMeta["gaugeType"] = s.Options.GaugeType
	dry.ScoreMeta["noteMod"] = uscNoteMod(s.Options.Mirror, s.Options.Random)
	return finish(ctx, cat, chart, dry)
}

func uscNoteMod(mirror, random bool) string {
	switch {
	case mirror && random:
		return "MIR-RAN"
	case mirror:
		return "MIRROR"
	case random:
		return "RANDOM"
	default:
		return "NORMAL"
	}
}
