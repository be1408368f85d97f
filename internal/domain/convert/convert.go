// Package convert normalizes raw score payloads from each import source into dry scores.
package convert

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"github.com/okian/rgtrack/internal/adapters/repository"
	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/pkg/logger"
	"github.com/okian/rgtrack/pkg/metrics"
)

// Catalog is the read-only song/chart lookup converters need. Misses return repository.ErrNotFound.
type Catalog interface {
	FindSongOnID(ctx context.Context, game string, id int) (*model.Song, error)
	FindSongOnTitle(ctx context.Context, game, title string) (*model.Song, error)
	FindChartByID(ctx context.Context, chartID string) (*model.Chart, error)
	FindChartOnInGameIDVersion(ctx context.Context, game string, inGameID int, playtype, difficulty, version string) (*model.Chart, error)
	FindChartOnSongDifficulty(ctx context.Context, game string, songID int, playtype, difficulty, version string) (*model.Chart, error)
	FindChartOnHash(ctx context.Context, game, hash string) (*model.Chart, error)
}

// SourceContext is the import-wide context shared by every entry.
type SourceContext struct {
	UserID   int
	Game     string
	Playtype string
	Version  string
	Service  string
	// Classes are classes the source asserts directly, keyed by class set.
	Classes map[string]string
}

// Result is a successfully normalized entry.
type Result struct {
	Song     *model.Song
	Chart    *model.Chart
	DryScore *model.DryScore
}

// ConverterFunc converts one raw entry.
type ConverterFunc func(ctx context.Context, cat Catalog, raw json.RawMessage, sc SourceContext, importType string) (*Result, error)

// ParserFunc splits an import body into raw entries and the shared context.
type ParserFunc func(body []byte, sc SourceContext) ([]json.RawMessage, SourceContext, error)

// ImportType binds a parser to a converter.
type ImportType struct {
	Name    string
	Parse   ParserFunc
	Convert ConverterFunc
}

// Registry maps import type names to their handlers.
type Registry struct {
	catalog Catalog
	types   map[string]ImportType
}

// NewRegistry returns a registry with every builtin import type.
func NewRegistry(cat Catalog) *Registry {
	r := &Registry{catalog: cat, types: map[string]ImportType{}}
	for _, it := range builtinImportTypes() {
		r.Register(it)
	}
	return r
}

// Register adds or replaces an import type.
func (r *Registry) Register(it ImportType) {
	r.types[it.Name] = it
}

// Types lists the registered import type names.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Parse splits an import body for importType.
func (r *Registry) Parse(importType string, body []byte, sc SourceContext) ([]json.RawMessage, SourceContext, error) {
	it, ok := r.types[importType]
	if !ok {
		return nil, sc, fmt.Errorf("%w: %s", ErrUnknownImportType, importType)
	}
	if it.Parse == nil {
		return nil, sc, fmt.Errorf("%w: %s accepts no body", ErrParse, importType)
	}
	return it.Parse(body, sc)
}

// Normalize converts one raw entry. Per-entry problems are returned as *Failure.
func (r *Registry) Normalize(ctx context.Context, raw json.RawMessage, sc SourceContext, importType string) (*Result, error) {
	it, ok := r.types[importType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownImportType, importType)
	}

	res, err := it.Convert(ctx, r.catalog, raw, sc, importType)
	if err != nil {
		if f, ok := AsFailure(err); ok {
			metrics.RecordConverterFailure(importType, string(f.Kind))
			if f.Kind == KindInternal {
				logger.Named("convert").Severe(ctx, f.Message, logger.String("import_type", importType))
			}
		}
		return nil, err
	}
	return res, nil
}

// songForChart resolves the chart's song. A missing song is catalog corruption.
func songForChart(ctx context.Context, cat Catalog, game string, chart *model.Chart) (*model.Song, error) {
	song, err := cat.FindSongOnID(ctx, game, chart.SongID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, internal("song-chart desync with song ID %d (%s)", chart.SongID, game)
	}
	if err != nil {
		return nil, err
	}
	return song, nil
}

// chartOrNotFound turns a catalog miss into a SongOrChartNotFound failure.
func chartOrNotFound(chart *model.Chart, err error, format string, args ...any) (*model.Chart, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound(format, args...)
	}
	if err != nil {
		return nil, err
	}
	return chart, nil
}

func decode[T any](raw json.RawMessage) (*T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, invalid("malformed entry: %v", err)
	}
	return &v, nil
}

func builtinImportTypes() []ImportType {
	return []ImportType{
		{Name: "api/cg-museca", Parse: parseJSONList, Convert: ConvertCGMuseca},
		{Name: "api/kai-iidx", Parse: parseJSONList, Convert: ConvertKaiIIDX},
		{Name: "api/kai-sdvx", Parse: parseJSONList, Convert: ConvertKaiSDVX},
		{Name: "ir/usc", Parse: parseJSONList, Convert: ConvertUSC},
		{Name: "ir/barbatos", Parse: parseJSONList, Convert: ConvertBarbatos},
		{Name: "file/batch-manual", Parse: ParseBatchManual, Convert: ConvertBatchManual},
		{Name: "file/eamusement-iidx-csv", Parse: ParseEamusementCSV, Convert: ConvertEamusementCSV},
	}
}

// parseJSONList accepts a JSON array of entries.
func parseJSONList(body []byte, sc SourceContext) ([]json.RawMessage, SourceContext, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, sc, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return items, sc, nil
}
