package convert

import (
	"context"
	"strings"

	"github.com/goccy/go-json"

	"github.com/okian/rgtrack/internal/domain/model"
)

// CGMusecaScore is a score as sent by CG servers.
type CGMusecaScore struct {
	InternalID int    `json:"internalId"`
	Difficulty int    `json:"difficulty"`
	Version    int    `json:"version"`
	Score      int    `json:"score"`
	MaxChain   *int   `json:"maxChain"`
	Critical   int    `json:"critical"`
	Near       int    `json:"near"`
	Error      int    `json:"error"`
	DateTime   string `json:"dateTime"`
}

func musecaDifficulty(d int) (string, error) {
	switch d {
	case 0:
		return "Green", nil
	case 1:
		return "Yellow", nil
	case 2:
		return "Red", nil
	}
	return "", invalid("invalid difficulty of %d, could not convert", d)
}

func musecaVersion(v int) (string, error) {
	if v == 2 {
		return "1.5-b", nil
	}
	return "", invalid("unknown or unsupported game version %d", v)
}

// formatCGService turns a CG service code into a display name.
func formatCGService(service string) string {
	switch strings.ToLower(service) {
	case "dev":
		return "CG Dev"
	case "gan":
		return "GAN"
	case "nag":
		return "NAG"
	case "":
		return "CG"
	}
	return "CG " + service
}

// ConvertCGMuseca converts a CG MÚSECA score.
func ConvertCGMuseca(ctx context.Context, cat Catalog, raw json.RawMessage, sc SourceContext, importType string) (*Result, error) {
	data, err := decode[CGMusecaScore](raw)
	if err != nil {
		return nil, err
	}
	difficulty, err := musecaDifficulty(data.Difficulty)
	if err != nil {
		return nil, err
	}
	version, err := musecaVersion(data.Version)
	if err != nil {
		return nil, err
	}

	found, err := cat.FindChartOnInGameIDVersion(ctx, "museca", data.InternalID, "Single", difficulty, version)
	chart, err := chartOrNotFound(found, err, "could not find chart with songID %d (%s - version %s)", data.InternalID, difficulty, version)
	if err != nil {
		return nil, err
	}

	dry := newDry("museca", importType, formatCGService(sc.Service), ParseDate(data.DateTime))
	dry.Metrics["score"] = model.IntMetric(data.Score)
	dry.Metrics["lamp"] = model.EnumMetric(MusecaGetLamp(data.Score, data.Error))
	dry.Judgements["critical"] = data.Critical
	dry.Judgements["near"] = data.Near
	dry.Judgements["miss"] = data.Error
	if data.MaxChain != nil {
		dry.Optional["maxCombo"] = model.IntMetric(*data.MaxChain)
	}
	return finish(ctx, cat, chart, dry)
}
