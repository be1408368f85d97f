package convert

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/okian/rgtrack/internal/domain/model"
)

// BarbatosScore is one SDVX score submitted by a Barbatos client.
type BarbatosScore struct {
	SongID     int     `json:"song_id"`
	Difficulty int     `json:"difficulty"`
	Level      int     `json:"level"`
	Score      int     `json:"score"`
	ClearType  int     `json:"clear_type"`
	DidFail    bool    `json:"did_fail"`
	MaxChain   int     `json:"max_chain"`
	Critical   int     `json:"critical"`
	Near       int     `json:"near"`
	Error      int     `json:"error"`
	Percentage float64 `json:"percentage"`
	Early      *int    `json:"early"`
	Late       *int    `json:"late"`
}

// Barbatos only runs on the latest SDVX release.
const barbatosVersion = "exceed"

// barbatosLamp maps a Barbatos clear_type. A failed play is FAILED whatever the clear type.
func barbatosLamp(clearType int, failed bool) (string, error) {
	if failed {
		return "FAILED", nil
	}
	switch clearType {
	case 1:
		return "FAILED", nil
	case 2:
		return "CLEAR", nil
	case 3:
		return "EXCESSIVE CLEAR", nil
	case 4:
		return "ULTIMATE CHAIN", nil
	case 5:
		return "PERFECT ULTIMATE CHAIN", nil
	}
	return "", invalid("invalid clear_type %d", clearType)
}

// ConvertBarbatos converts a Barbatos SDVX score. Difficulty indexes follow kai's.
func ConvertBarbatos(ctx context.Context, cat Catalog, raw json.RawMessage, _ SourceContext, importType string) (*Result, error) {
	data, err := decode[BarbatosScore](raw)
	if err != nil {
		return nil, err
	}
	lamp, err := barbatosLamp(data.ClearType, data.DidFail)
	if err != nil {
		return nil, err
	}
	chart, err := findKaiSDVXChart(ctx, cat, data.SongID, data.Difficulty, barbatosVersion)
	if err != nil {
		return nil, err
	}

	dry := newDry("sdvx", importType, "Barbatos", nil)
	dry.Metrics["score"] = model.IntMetric(data.Score)
	dry.Metrics["lamp"] = model.EnumMetric(lamp)
	dry.Judgements["critical"] = data.Critical
	dry.Judgements["near"] = data.Near
	dry.Judgements["miss"] = data.Error
	dry.Optional["maxCombo"] = model.IntMetric(data.MaxChain)
	if data.Percentage >= 0 && data.Percentage <= 100 {
		dry.Optional["gauge"] = model.DecMetric(data.Percentage)
	}
	if data.Early != nil && data.Late != nil {
		dry.ScoreMeta["fast"] = *data.Early
		dry.ScoreMeta["slow"] = *data.Late
	}
	return finish(ctx, cat, chart, dry)
}
