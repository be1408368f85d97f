package convert

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/okian/rgtrack/internal/adapters/repository"
	"github.com/okian/rgtrack/internal/domain/gpt"
	"github.com/okian/rgtrack/internal/domain/model"
)

// e-amusement IIDX CSV layout: five song columns, seven columns for each of the
// five difficulties, then the last played timestamp.
const (
	eamColumns         = 41
	eamSongColumns     = 5
	eamDifficultyWidth = 7
	eamTimestampColumn = 40
)

var eamDifficulties = []string{"BEGINNER", "NORMAL", "HYPER", "ANOTHER", "LEGGENDARIA"}

// EamusementEntry is one difficulty of one CSV row.
type EamusementEntry struct {
	Version    string `json:"version"`
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`
	Level      string `json:"level"`
	ExScore    int    `json:"exScore"`
	PGreat     int    `json:"pgreat"`
	Great      int    `json:"great"`
	Miss       *int   `json:"miss"`
	Lamp       string `json:"lamp"`
	Timestamp  string `json:"timestamp"`
}

// ParseEamusementCSV splits an IIDX e-amusement CSV export into one entry per played
// difficulty. BEGINNER columns and difficulties a song lacks are dropped.
func ParseEamusementCSV(body []byte, sc SourceContext) ([]json.RawMessage, SourceContext, error) {
	if sc.Playtype == "" {
		sc.Playtype = "SP"
	}
	if sc.Playtype != "SP" && sc.Playtype != "DP" {
		return nil, sc, fmt.Errorf("%w: invalid playtype %q", ErrParse, sc.Playtype)
	}
	sc.Game = "iidx"
	if sc.Service == "" {
		sc.Service = "e-amusement"
	}

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = eamColumns
	r.LazyQuotes = true

	var out []json.RawMessage
	for row := 0; ; row++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, sc, fmt.Errorf("%w: %v", ErrParse, err)
		}
		if row == 0 && !isNumeric(rec[4]) {
			continue
		}
		entries, err := eamRowEntries(rec)
		if err != nil {
			return nil, sc, fmt.Errorf("%w: row %d: %v", ErrParse, row+1, err)
		}
		out = append(out, entries...)
	}
	if len(out) == 0 {
		return nil, sc, fmt.Errorf("%w: no scores in csv", ErrParse)
	}
	return out, sc, nil
}

func eamRowEntries(rec []string) ([]json.RawMessage, error) {
	var out []json.RawMessage
	for i, diff := range eamDifficulties {
		if diff == "BEGINNER" {
			continue
		}
		col := rec[eamSongColumns+i*eamDifficultyWidth : eamSongColumns+(i+1)*eamDifficultyWidth]
		level := strings.TrimSpace(col[0])
		if level == "" || level == "0" {
			continue
		}

		e := EamusementEntry{
			Version:    strings.TrimSpace(rec[0]),
			Title:      strings.TrimSpace(rec[1]),
			Difficulty: diff,
			Level:      level,
			Lamp:       strings.TrimSpace(col[5]),
			Timestamp:  strings.TrimSpace(rec[eamTimestampColumn]),
		}
		var err error
		if e.ExScore, err = strconv.Atoi(strings.TrimSpace(col[1])); err != nil {
			return nil, fmt.Errorf("%s ex score: %w", diff, err)
		}
		if e.PGreat, err = strconv.Atoi(strings.TrimSpace(col[2])); err != nil {
			return nil, fmt.Errorf("%s pgreat: %w", diff, err)
		}
		if e.Great, err = strconv.Atoi(strings.TrimSpace(col[3])); err != nil {
			return nil, fmt.Errorf("%s great: %w", diff, err)
		}
		if miss := strings.TrimSpace(col[4]); miss != "---" && miss != "" {
			n, err := strconv.Atoi(miss)
			if err != nil {
				return nil, fmt.Errorf("%s miss count: %w", diff, err)
			}
			e.Miss = &n
		}

		b, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func isNumeric(s string) bool {
	_, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil
}

// ConvertEamusementCSV converts one entry produced by ParseEamusementCSV.
func ConvertEamusementCSV(ctx context.Context, cat Catalog, raw json.RawMessage, sc SourceContext, importType string) (*Result, error) {
	data, err := decode[EamusementEntry](raw)
	if err != nil {
		return nil, err
	}
	if data.Lamp == "NO PLAY" {
		return nil, skip("%s %s has not been played", data.Title, data.Difficulty)
	}
	if !slices.Contains(gpt.IIDXLamps, data.Lamp) {
		return nil, invalid("invalid clear type %q", data.Lamp)
	}
	if data.ExScore != data.PGreat*2+data.Great {
		return nil, invalid("ex score %d does not match %d pgreats and %d greats", data.ExScore, data.PGreat, data.Great)
	}

	song, err := cat.FindSongOnTitle(ctx, "iidx", data.Title)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("could not find song with title %q", data.Title)
	}
	if err != nil {
		return nil, err
	}
	found, err := cat.FindChartOnSongDifficulty(ctx, "iidx", song.ID, sc.Playtype, data.Difficulty, sc.Version)
	chart, err := chartOrNotFound(found, err, "could not find %s %s chart for %q", sc.Playtype, data.Difficulty, data.Title)
	if err != nil {
		return nil, err
	}

	dry := newDry("iidx", importType, sc.Service, ParseDate(data.Timestamp))
	dry.Metrics["score"] = model.IntMetric(data.ExScore)
	dry.Metrics["lamp"] = model.EnumMetric(data.Lamp)
	dry.Judgements["pgreat"] = data.PGreat
	dry.Judgements["great"] = data.Great
	if data.Miss != nil {
		dry.Optional["bp"] = model.IntMetric(*data.Miss)
	}
	return finish(ctx, cat, chart, dry)
}
