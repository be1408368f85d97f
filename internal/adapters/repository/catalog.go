package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/okian/rgtrack/internal/domain/model"
)

const (
	songPrefix         = "song:"
	chartPrefix        = "chart:"
	chartInGamePrefix  = "chart_ingame:"
	chartSongPrefix    = "chart_song:"
	chartHashKeyPrefix = "chart_hash:"
)

func songKey(game string, id int) string { return songPrefix + game + ":" + strconv.Itoa(id) }
func chartKey(chartID string) string     { return chartPrefix + chartID }

func chartInGameKey(c *model.Chart) string {
	return fmt.Sprintf("%s%s:%s:%s:%d:%s", chartInGamePrefix, c.Game, c.Playtype, c.Difficulty, *c.Data.InGameID, c.ChartID)
}

func chartSongKey(c *model.Chart) string {
	return fmt.Sprintf("%s%s:%d:%s:%s:%s", chartSongPrefix, c.Game, c.SongID, c.Playtype, c.Difficulty, c.ChartID)
}

func chartHashKey(game, hash string) string { return chartHashKeyPrefix + game + ":" + hash }

// PutSong inserts or replaces a song.
func (s *Store) PutSong(ctx context.Context, song *model.Song) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, songKey(song.Game, song.ID), song)
	})
}

// PutChart inserts or replaces a chart and its lookup keys.
func (s *Store) PutChart(ctx context.Context, chart *model.Chart) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return putChart(txn, chart)
	})
}

func putChart(txn *badger.Txn, chart *model.Chart) error {
	if old, err := getJSON[model.Chart](txn, chartKey(chart.ChartID)); err == nil {
		if err := deleteChartIndexes(txn, old); err != nil {
			return err
		}
	}
	if err := setJSON(txn, chartKey(chart.ChartID), chart); err != nil {
		return err
	}
	id := []byte(chart.ChartID)
	if err := txn.Set([]byte(chartSongKey(chart)), id); err != nil {
		return err
	}
	if chart.Data.InGameID != nil {
		if err := txn.Set([]byte(chartInGameKey(chart)), id); err != nil {
			return err
		}
	}
	if chart.Data.Hash != "" {
		if err := txn.Set([]byte(chartHashKey(chart.Game, chart.Data.Hash)), id); err != nil {
			return err
		}
	}
	return nil
}

func deleteChartIndexes(txn *badger.Txn, c *model.Chart) error {
	if err := del(txn, chartSongKey(c)); err != nil {
		return err
	}
	if c.Data.InGameID != nil {
		if err := del(txn, chartInGameKey(c)); err != nil {
			return err
		}
	}
	if c.Data.Hash != "" {
		return del(txn, chartHashKey(c.Game, c.Data.Hash))
	}
	return nil
}

// FindSongOnID returns the song or ErrNotFound.
func (s *Store) FindSongOnID(_ context.Context, game string, id int) (*model.Song, error) {
	var song *model.Song
	err := s.view(func(txn *badger.Txn) (err error) {
		song, err = getJSON[model.Song](txn, songKey(game, id))
		return err
	})
	return song, err
}

// FindSongsByIDs fetches songs in one transaction. Missing songs are skipped.
func (s *Store) FindSongsByIDs(_ context.Context, game string, ids []int) ([]model.Song, error) {
	out := make([]model.Song, 0, len(ids))
	err := s.view(func(txn *badger.Txn) error {
		for _, id := range ids {
			song, err := getJSON[model.Song](txn, songKey(game, id))
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, *song)
		}
		return nil
	})
	return out, err
}

// FindSongOnTitle matches title or an alt title case-insensitively.
func (s *Store) FindSongOnTitle(_ context.Context, game, title string) (*model.Song, error) {
	var found *model.Song
	want := strings.ToLower(strings.TrimSpace(title))
	err := s.view(func(txn *badger.Txn) error {
		return scanJSON(txn, songPrefix+game+":", func(_ string, song *model.Song) bool {
			if strings.ToLower(song.Title) == want || slices.ContainsFunc(song.AltTitles, func(t string) bool {
				return strings.ToLower(t) == want
			}) {
				found = song
				return false
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// FindChartByID returns a chart or ErrNotFound.
func (s *Store) FindChartByID(_ context.Context, chartID string) (*model.Chart, error) {
	var chart *model.Chart
	err := s.view(func(txn *badger.Txn) (err error) {
		chart, err = getJSON[model.Chart](txn, chartKey(chartID))
		return err
	})
	return chart, err
}

// FindChartsByIDs fetches charts in one transaction. Missing charts are skipped;
// callers compare lengths to detect them.
func (s *Store) FindChartsByIDs(_ context.Context, chartIDs []string) ([]model.Chart, error) {
	out := make([]model.Chart, 0, len(chartIDs))
	err := s.view(func(txn *badger.Txn) error {
		for _, id := range chartIDs {
			c, err := getJSON[model.Chart](txn, chartKey(id))
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, *c)
		}
		return nil
	})
	return out, err
}

func (s *Store) chartsUnder(txn *badger.Txn, prefix string) ([]model.Chart, error) {
	var ids []string
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
		v, err := it.Item().ValueCopy(nil)
		if err != nil {
			it.Close()
			return nil, err
		}
		ids = append(ids, string(v))
	}
	it.Close()

	out := make([]model.Chart, 0, len(ids))
	for _, id := range ids {
		c, err := getJSON[model.Chart](txn, chartKey(id))
		if err != nil {
			return nil, fmt.Errorf("chart index points at %s: %w", id, err)
		}
		out = append(out, *c)
	}
	return out, nil
}

// FindChartOnInGameIDVersion resolves an in-game chart. With an empty version the primary chart wins.
func (s *Store) FindChartOnInGameIDVersion(_ context.Context, game string, inGameID int, playtype, difficulty, version string) (*model.Chart, error) {
	var found *model.Chart
	err := s.view(func(txn *badger.Txn) error {
		prefix := fmt.Sprintf("%s%s:%s:%s:%d:", chartInGamePrefix, game, playtype, difficulty, inGameID)
		charts, err := s.chartsUnder(txn, prefix)
		if err != nil {
			return err
		}
		found = pickChart(charts, version)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// FindChartOnSongDifficulty resolves a chart from its song. With an empty version the primary chart wins.
func (s *Store) FindChartOnSongDifficulty(_ context.Context, game string, songID int, playtype, difficulty, version string) (*model.Chart, error) {
	var found *model.Chart
	err := s.view(func(txn *badger.Txn) error {
		prefix := fmt.Sprintf("%s%s:%d:%s:%s:", chartSongPrefix, game, songID, playtype, difficulty)
		charts, err := s.chartsUnder(txn, prefix)
		if err != nil {
			return err
		}
		found = pickChart(charts, version)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// FindChartOnHash resolves a chart by content hash (USC, pop'n).
func (s *Store) FindChartOnHash(_ context.Context, game, hash string) (*model.Chart, error) {
	var chart *model.Chart
	err := s.view(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(chartHashKey(game, hash)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		chart, err = getJSON[model.Chart](txn, chartKey(string(id)))
		return err
	})
	return chart, err
}

func pickChart(charts []model.Chart, version string) *model.Chart {
	for i := range charts {
		if version == "" && charts[i].IsPrimary {
			return &charts[i]
		}
		if version != "" && slices.Contains(charts[i].Versions, version) {
			return &charts[i]
		}
	}
	if version == "" && len(charts) > 0 {
		return &charts[0]
	}
	return nil
}

// ListCharts returns every chart of a game and playtype.
func (s *Store) ListCharts(_ context.Context, game, playtype string) ([]model.Chart, error) {
	var out []model.Chart
	err := s.view(func(txn *badger.Txn) error {
		return scanJSON(txn, chartPrefix, func(_ string, c *model.Chart) bool {
			if c.Game == game && c.Playtype == playtype {
				out = append(out, *c)
			}
			return true
		})
	})
	return out, err
}

// Catalog is the seed file layout.
type Catalog struct {
	Songs  []model.Song  `json:"songs"`
	Charts []model.Chart `json:"charts"`
}

// LoadCatalog decodes a catalog from r and upserts every song and chart.
// A chart whose song is absent from both the file and the store is rejected.
func (s *Store) LoadCatalog(ctx context.Context, r io.Reader) (songs, charts int, err error) {
	var cat Catalog
	if err := json.NewDecoder(r).Decode(&cat); err != nil {
		return 0, 0, fmt.Errorf("decode catalog: %w", err)
	}

	err = s.update(ctx, func(txn *badger.Txn) error {
		for i := range cat.Songs {
			if err := setJSON(txn, songKey(cat.Songs[i].Game, cat.Songs[i].ID), &cat.Songs[i]); err != nil {
				return err
			}
		}
		for i := range cat.Charts {
			c := &cat.Charts[i]
			ok, err := exists(txn, songKey(c.Game, c.SongID))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("chart %s references missing song %s/%d", c.ChartID, c.Game, c.SongID)
			}
			if err := putChart(txn, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return len(cat.Songs), len(cat.Charts), nil
}
