package convert

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/okian/rgtrack/internal/adapters/repository"
	"github.com/okian/rgtrack/internal/domain/gpt"
	"github.com/okian/rgtrack/internal/domain/model"
)

// BatchManual is the generic import document.
type BatchManual struct {
	Meta    BatchManualMeta   `json:"meta"`
	Scores  []json.RawMessage `json:"scores"`
	Classes map[string]string `json:"classes"`
}

// BatchManualMeta identifies the GPT and origin of a batch-manual document.
type BatchManualMeta struct {
	Game     string `json:"game"`
	Playtype string `json:"playtype"`
	Service  string `json:"service"`
	Version  string `json:"version"`
}

// BatchManualScore is one batch-manual entry. Keys other than the reserved ones
// are read as mandatory metrics.
type BatchManualScore struct {
	MatchType    string         `json:"matchType"`
	Identifier   string         `json:"identifier"`
	Difficulty   string         `json:"difficulty"`
	TimeAchieved *int64         `json:"timeAchieved"`
	Comment      *string        `json:"comment"`
	Judgements   map[string]int `json:"judgements"`
	Optional     model.Metrics  `json:"optional"`
	ScoreMeta    map[string]any `json:"scoreMeta"`

	Metrics model.Metrics `json:"-"`
}

var batchManualReserved = map[string]bool{
	"matchType": true, "identifier": true, "difficulty": true, "timeAchieved": true,
	"comment": true, "judgements": true, "optional": true, "scoreMeta": true,
}

// UnmarshalJSON splits the reserved keys from the metric keys.
func (s *BatchManualScore) UnmarshalJSON(b []byte) error {
	type plain BatchManualScore
	if err := json.Unmarshal(b, (*plain)(s)); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	s.Metrics = model.Metrics{}
	for k, v := range all {
		if batchManualReserved[k] {
			continue
		}
		var m model.Metric
		if err := json.Unmarshal(v, &m); err != nil {
			return fmt.Errorf("metric %s: %w", k, err)
		}
		s.Metrics[k] = m
	}
	return nil
}

// ParseBatchManual validates the document header and returns its scores.
func ParseBatchManual(body []byte, sc SourceContext) ([]json.RawMessage, SourceContext, error) {
	var doc BatchManual
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, sc, fmt.Errorf("%w: %v", ErrParse, err)
	}
	cfg, err := gpt.Get(doc.Meta.Game, doc.Meta.Playtype)
	if err != nil {
		return nil, sc, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if doc.Meta.Service == "" {
		return nil, sc, fmt.Errorf("%w: meta.service is required", ErrParse)
	}
	if doc.Meta.Version != "" && !cfg.SupportsVersion(doc.Meta.Version) {
		return nil, sc, fmt.Errorf("%w: unsupported version %q", ErrParse, doc.Meta.Version)
	}
	for set, value := range doc.Classes {
		def, ok := cfg.SupportedClasses[set]
		if !ok || !def.CanBeBatchManualSubmitted {
			return nil, sc, fmt.Errorf("%w: class %s cannot be submitted", ErrParse, set)
		}
		if cfg.ClassIndex(set, value) < 0 {
			return nil, sc, fmt.Errorf("%w: invalid %s class %q", ErrParse, set, value)
		}
	}

	sc.Game = cfg.Game
	sc.Playtype = cfg.Playtype
	sc.Service = doc.Meta.Service + " (BATCH-MANUAL)"
	sc.Version = doc.Meta.Version
	sc.Classes = doc.Classes
	return doc.Scores, sc, nil
}

// ConvertBatchManual converts one batch-manual entry using the GPT from the document header.
func ConvertBatchManual(ctx context.Context, cat Catalog, raw json.RawMessage, sc SourceContext, importType string) (*Result, error) {
	data, err := decode[BatchManualScore](raw)
	if err != nil {
		return nil, err
	}
	cfg, err := gpt.Get(sc.Game, sc.Playtype)
	if err != nil {
		return nil, invalid("%v", err)
	}

	chart, err := resolveBatchManualChart(ctx, cat, cfg, data, sc.Version)
	if err != nil {
		return nil, err
	}

	dry := newDry(cfg.Game, importType, sc.Service, nil)
	if data.TimeAchieved != nil {
		dry.TimeAchieved = ParseUnix(*data.TimeAchieved)
	}
	dry.Comment = data.Comment
	dry.Metrics = data.Metrics
	if data.Optional != nil {
		dry.Optional = data.Optional
	}
	if data.Judgements != nil {
		dry.Judgements = data.Judgements
	}
	if data.ScoreMeta != nil {
		dry.ScoreMeta = data.ScoreMeta
	}
	return finish(ctx, cat, chart, dry)
}

func resolveBatchManualChart(ctx context.Context, cat Catalog, cfg *gpt.Config, s *BatchManualScore, version string) (*model.Chart, error) {
	if !cfg.SupportsMatchType(s.MatchType) {
		return nil, invalid("matchType %q is not supported for %s", s.MatchType, cfg.ID())
	}

	switch s.MatchType {
	case "uscChartHash", "popnChartHash":
		found, err := cat.FindChartOnHash(ctx, cfg.Game, s.Identifier)
		chart, err := chartOrNotFound(found, err, "could not find chart with hash %s", s.Identifier)
		if err != nil {
			return nil, err
		}
		if chart.Playtype != cfg.Playtype {
			return nil, notFound("chart %s is not a %s chart", s.Identifier, cfg.Playtype)
		}
		return chart, nil
	}

	if s.MatchType == "sdvxInGameID" && s.Difficulty == "ANY_INF" {
		id, err := numericIdentifier(s.Identifier)
		if err != nil {
			return nil, err
		}
		return findKaiSDVXChart(ctx, cat, id, 3, version)
	}
	if !cfg.ValidDifficulty(s.Difficulty) {
		return nil, invalid("invalid difficulty %q for %s", s.Difficulty, cfg.ID())
	}

	switch s.MatchType {
	case "inGameID", "sdvxInGameID":
		id, err := numericIdentifier(s.Identifier)
		if err != nil {
			return nil, err
		}
		found, err := cat.FindChartOnInGameIDVersion(ctx, cfg.Game, id, cfg.Playtype, s.Difficulty, version)
		return chartOrNotFound(found, err, "could not find chart with inGameID %d (%s)", id, s.Difficulty)
	case "tachiSongID":
		id, err := numericIdentifier(s.Identifier)
		if err != nil {
			return nil, err
		}
		found, err := cat.FindChartOnSongDifficulty(ctx, cfg.Game, id, cfg.Playtype, s.Difficulty, version)
		return chartOrNotFound(found, err, "could not find chart for songID %d (%s)", id, s.Difficulty)
	case "songTitle":
		song, err := cat.FindSongOnTitle(ctx, cfg.Game, s.Identifier)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("could not find song with title %q", s.Identifier)
		}
		if err != nil {
			return nil, err
		}
		chart, err := cat.FindChartOnSongDifficulty(ctx, cfg.Game, song.ID, cfg.Playtype, s.Difficulty, version)
		return chartOrNotFound(chart, err, "could not find %s chart for %q", s.Difficulty, s.Identifier)
	}
	return nil, invalid("unknown matchType %q", s.MatchType)
}

func numericIdentifier(id string) (int, error) {
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0, invalid("identifier %q is not numeric", id)
	}
	return n, nil
}
