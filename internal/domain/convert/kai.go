package convert

import (
	"context"
	"errors"

	"github.com/goccy/go-json"

	"github.com/okian/rgtrack/internal/adapters/repository"
	"github.com/okian/rgtrack/internal/domain/model"
)

// KaiIIDXScore is an IIDX score from a kai-compatible network.
type KaiIIDXScore struct {
	MusicID       int    `json:"music_id"`
	PlayStyle     string `json:"play_style"`
	Difficulty    string `json:"difficulty"`
	VersionPlayed int    `json:"version_played"`
	Lamp          int    `json:"lamp"`
	ExScore       int    `json:"ex_score"`
	MissCount     *int   `json:"miss_count"`
	FastCount     *int   `json:"fast_count"`
	SlowCount     *int   `json:"slow_count"`
	Timestamp     string `json:"timestamp"`
}

// KaiSDVXScore is an SDVX score from a kai-compatible network.
type KaiSDVXScore struct {
	MusicID         int    `json:"music_id"`
	MusicDifficulty int    `json:"music_difficulty"`
	PlayedVersion   int    `json:"played_version"`
	ClearType       int    `json:"clear_type"`
	Score           int    `json:"score"`
	MaxChain        int    `json:"max_chain"`
	Critical        int    `json:"critical"`
	Near            int    `json:"near"`
	Error           *int   `json:"error"`
	Early           *int   `json:"early"`
	Late            *int   `json:"late"`
	GaugeType       int    `json:"gauge_type"`
	GaugeRate       int    `json:"gauge_rate"`
	Timestamp       string `json:"timestamp"`
}

var kaiServices = map[string]string{
	"EAG": "EAGLE",
	"FLO": "FLOWER",
	"MIN": "MINERVA",
}

var kaiIIDXVersions = map[int]string{
	20: "tricoro", 21: "SPADA", 22: "PENDUAL", 23: "copula", 24: "SINOBUZ", 25: "CANNON BALLERS",
	26: "ROOTAGE", 27: "HEROIC VERSE", 28: "BISTROVER", 29: "CastHour", 30: "Resident",
}

var kaiSDVXVersions = map[int]string{
	1: "booth", 2: "inf", 3: "gw", 4: "heaven", 5: "vivid", 6: "exceed",
}

// The fourth SDVX slot changed name across versions.
var sdvxFourthDifficulties = []string{"INF", "GRV", "HVN", "VVD", "XCD"}

func kaiService(code string) (string, error) {
	s, ok := kaiServices[code]
	if !ok {
		return "", invalid("unknown kai service %q", code)
	}
	return s, nil
}

// ConvertKaiIIDX converts a kai IIDX score.
func ConvertKaiIIDX(ctx context.Context, cat Catalog, raw json.RawMessage, sc SourceContext, importType string) (*Result, error) {
	data, err := decode[KaiIIDXScore](raw)
	if err != nil {
		return nil, err
	}
	service, err := kaiService(sc.Service)
	if err != nil {
		return nil, err
	}

	var playtype string
	switch data.PlayStyle {
	case "SINGLE":
		playtype = "SP"
	case "DOUBLE":
		playtype = "DP"
	default:
		return nil, invalid("invalid play_style %q", data.PlayStyle)
	}

	switch data.Difficulty {
	case "NORMAL", "HYPER", "ANOTHER", "LEGGENDARIA":
	case "BEGINNER":
		return nil, invalid("BEGINNER charts are not supported")
	default:
		return nil, invalid("invalid difficulty %q", data.Difficulty)
	}

	version, ok := kaiIIDXVersions[data.VersionPlayed]
	if !ok {
		return nil, invalid("unknown or unsupported game version %d", data.VersionPlayed)
	}

	lamp, err := IIDXLampFromKai(data.Lamp)
	if err != nil {
		return nil, err
	}

	found, err := cat.FindChartOnInGameIDVersion(ctx, "iidx", data.MusicID, playtype, data.Difficulty, version)
	chart, err := chartOrNotFound(found, err, "could not find chart with songID %d (%s %s - version %s)", data.MusicID, playtype, data.Difficulty, version)
	if err != nil {
		return nil, err
	}

	dry := newDry("iidx", importType, service, ParseDate(data.Timestamp))
	dry.Metrics["score"] = model.IntMetric(data.ExScore)
	dry.Metrics["lamp"] = model.EnumMetric(lamp)
	if data.MissCount != nil && *data.MissCount >= 0 {
		dry.Optional["bp"] = model.IntMetric(*data.MissCount)
	}
	if data.FastCount != nil && data.SlowCount != nil {
		dry.ScoreMeta["fast"] = *data.FastCount
		dry.ScoreMeta["slow"] = *data.SlowCount
	}
	return finish(ctx, cat, chart, dry)
}

// ConvertKaiSDVX converts a kai SDVX score.
func ConvertKaiSDVX(ctx context.Context, cat Catalog, raw json.RawMessage, sc SourceContext, importType string) (*Result, error) {
	data, err := decode[KaiSDVXScore](raw)
	if err != nil {
		return nil, err
	}
	service, err := kaiService(sc.Service)
	if err != nil {
		return nil, err
	}

	version, ok := kaiSDVXVersions[data.PlayedVersion]
	if !ok {
		return nil, invalid("unknown or unsupported game version %d", data.PlayedVersion)
	}

	lamp, err := SDVXLampFromClearType(data.ClearType)
	if err != nil {
		return nil, err
	}

	chart, err := findKaiSDVXChart(ctx, cat, data.MusicID, data.MusicDifficulty, version)
	if err != nil {
		return nil, err
	}

	dry := newDry("sdvx", importType, service, ParseDate(data.Timestamp))
	dry.Metrics["score"] = model.IntMetric(data.Score)
	dry.Metrics["lamp"] = model.EnumMetric(lamp)
	dry.Judgements["critical"] = data.Critical
	dry.Judgements["near"] = data.Near
	if data.Error != nil {
		dry.Judgements["miss"] = *data.Error
	}
	dry.Optional["maxCombo"] = model.IntMetric(data.MaxChain)
	if data.GaugeRate >= 0 && data.GaugeRate <= 100 {
		dry.Optional["gauge"] = model.DecMetric(float64(data.GaugeRate))
	}
	if data.Early != nil && data.Late != nil {
		dry.ScoreMeta["fast"] = *data.Early
		dry.ScoreMeta["slow"] = *data.Late
	}
	return finish(ctx, cat, chart, dry)
}

func findKaiSDVXChart(ctx context.Context, cat Catalog, musicID, difficulty int, version string) (*model.Chart, error) {
	var candidates []string
	switch difficulty {
	case 0:
		candidates = []string{"NOV"}
	case 1:
		candidates = []string{"ADV"}
	case 2:
		candidates = []string{"EXH"}
	case 3:
		candidates = sdvxFourthDifficulties
	case 4:
		candidates = []string{"MXM"}
	default:
		return nil, invalid("invalid music_difficulty %d", difficulty)
	}

	for _, diff := range candidates {
		chart, err := cat.FindChartOnInGameIDVersion(ctx, "sdvx", musicID, "Single", diff, version)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return chart, nil
	}
	return nil, notFound("could not find chart with songID %d (difficulty %d - version %s)", musicID, difficulty, version)
}
