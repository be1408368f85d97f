package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/okian/rgtrack/internal/domain/gpt"
	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/pkg/logger"
)

const (
	scorePrefix     = "score:"
	scoreUserPrefix = "score_user:"
)

func scoreKey(id string) string { return scorePrefix + id }

func scoreUserGPTPrefix(userID int, game, playtype string) string {
	return fmt.Sprintf("%s%d:%s:%s:", scoreUserPrefix, userID, game, playtype)
}

func scoreUserKey(s *model.Score) string {
	return scoreUserGPTPrefix(s.UserID, s.Game, s.Playtype) + s.ChartID + ":" + s.ScoreID
}

// InsertScores stores each score that does not exist yet and returns the inserted ones
// and the IDs that were already present.
func (s *Store) InsertScores(ctx context.Context, scores []model.Score) (inserted []model.Score, duplicates []string, err error) {
	for i := range scores {
		sc := &scores[i]
		dup := false
		err := s.update(ctx, func(txn *badger.Txn) error {
			ok, err := exists(txn, scoreKey(sc.ScoreID))
			if err != nil {
				return err
			}
			if ok {
				dup = true
				return nil
			}
			if err := setJSON(txn, scoreKey(sc.ScoreID), sc); err != nil {
				return err
			}
			return txn.Set([]byte(scoreUserKey(sc)), nil)
		})
		if err != nil {
			return inserted, duplicates, err
		}
		if dup {
			duplicates = append(duplicates, sc.ScoreID)
			continue
		}
		inserted = append(inserted, *sc)
		s.indexScore(sc)
	}
	return inserted, duplicates, nil
}

func (s *Store) indexScore(sc *model.Score) {
	c, err := gpt.Get(sc.Game, sc.Playtype)
	if err != nil {
		return
	}
	if v, ok := sc.ScoreData.Metrics.Num(c.PrimaryMetric); ok {
		s.charts.UpdateBest(sc.ChartID, sc.UserID, v, sc.ScoreID)
	}
}

func (s *Store) rebuildChartIndex(_ context.Context) error {
	return s.view(func(txn *badger.Txn) error {
		return scanJSON(txn, scorePrefix, func(_ string, sc *model.Score) bool {
			s.indexScore(sc)
			return true
		})
	})
}

// ScoreExists reports whether scoreID is stored.
func (s *Store) ScoreExists(_ context.Context, scoreID string) (bool, error) {
	var ok bool
	err := s.view(func(txn *badger.Txn) (err error) {
		ok, err = exists(txn, scoreKey(scoreID))
		return err
	})
	return ok, err
}

// GetScore returns a score or ErrNotFound.
func (s *Store) GetScore(_ context.Context, scoreID string) (*model.Score, error) {
	var sc *model.Score
	err := s.view(func(txn *badger.Txn) (err error) {
		sc, err = getJSON[model.Score](txn, scoreKey(scoreID))
		return err
	})
	return sc, err
}

// GetScores fetches scores in one transaction, skipping missing ones.
func (s *Store) GetScores(_ context.Context, scoreIDs []string) ([]model.Score, error) {
	out := make([]model.Score, 0, len(scoreIDs))
	err := s.view(func(txn *badger.Txn) error {
		for _, id := range scoreIDs {
			sc, err := getJSON[model.Score](txn, scoreKey(id))
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, *sc)
		}
		return nil
	})
	return out, err
}

// UpdateScore applies fn to a stored score. Only highlight and comment are meant to change.
func (s *Store) UpdateScore(ctx context.Context, scoreID string, fn func(*model.Score)) (*model.Score, error) {
	var sc *model.Score
	err := s.update(ctx, func(txn *badger.Txn) (err error) {
		sc, err = getJSON[model.Score](txn, scoreKey(scoreID))
		if err != nil {
			return err
		}
		fn(sc)
		return setJSON(txn, scoreKey(scoreID), sc)
	})
	return sc, err
}

func (s *Store) scoresUnder(txn *badger.Txn, prefix string) ([]model.Score, error) {
	var ids []string
	scanKeys(txn, prefix, func(key string) bool {
		ids = append(ids, key[strings.LastIndexByte(key, ':')+1:])
		return true
	})
	out := make([]model.Score, 0, len(ids))
	for _, id := range ids {
		sc, err := getJSON[model.Score](txn, scoreKey(id))
		if errors.Is(err, ErrNotFound) {
			logger.Get().Warn(context.Background(), "score index points at missing score", logger.String("scoreID", id))
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *sc)
	}
	return out, nil
}

// ListUserScores returns every score of a user on a GPT.
func (s *Store) ListUserScores(_ context.Context, userID int, game, playtype string) ([]model.Score, error) {
	var out []model.Score
	err := s.view(func(txn *badger.Txn) (err error) {
		out, err = s.scoresUnder(txn, scoreUserGPTPrefix(userID, game, playtype))
		return err
	})
	return out, err
}

// GetUserScoresOnCharts returns a user's scores grouped by chart, reading all charts in one transaction.
func (s *Store) GetUserScoresOnCharts(_ context.Context, userID int, game, playtype string, chartIDs []string) (map[string][]model.Score, error) {
	out := make(map[string][]model.Score, len(chartIDs))
	err := s.view(func(txn *badger.Txn) error {
		for _, chartID := range chartIDs {
			scores, err := s.scoresUnder(txn, scoreUserGPTPrefix(userID, game, playtype)+chartID+":")
			if err != nil {
				return err
			}
			if len(scores) > 0 {
				out[chartID] = scores
			}
		}
		return nil
	})
	return out, err
}

// HasPlayed reports whether a user has any score on a GPT.
func (s *Store) HasPlayed(_ context.Context, userID int, game, playtype string) (bool, error) {
	found := false
	err := s.view(func(txn *badger.Txn) error {
		scanKeys(txn, scoreUserGPTPrefix(userID, game, playtype), func(string) bool {
			found = true
			return false
		})
		return nil
	})
	return found, err
}

// DuplicateScoreGroup is a scoreID referenced by more than one user index key.
type DuplicateScoreGroup struct {
	ScoreID string
	Keys    []string
}

// FindDuplicateScoreIDs groups index keys by scoreID and keeps groups with count > 1.
func (s *Store) FindDuplicateScoreIDs(_ context.Context) ([]DuplicateScoreGroup, error) {
	groups := map[string][]string{}
	err := s.view(func(txn *badger.Txn) error {
		scanKeys(txn, scoreUserPrefix, func(key string) bool {
			id := key[strings.LastIndexByte(key, ':')+1:]
			groups[id] = append(groups[id], key)
			return true
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []DuplicateScoreGroup
	for id, keys := range groups {
		if len(keys) > 1 {
			sort.Strings(keys)
			out = append(out, DuplicateScoreGroup{ScoreID: id, Keys: keys})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScoreID < out[j].ScoreID })
	return out, nil
}

// RemoveDuplicateScores drops every index key of each group except the one that matches the stored score.
func (s *Store) RemoveDuplicateScores(ctx context.Context, groups []DuplicateScoreGroup) (removed int, err error) {
	for _, g := range groups {
		n := 0
		err := s.update(ctx, func(txn *badger.Txn) error {
			n = 0
			sc, err := getJSON[model.Score](txn, scoreKey(g.ScoreID))
			keep := ""
			if err == nil {
				keep = scoreUserKey(sc)
			} else if !errors.Is(err, ErrNotFound) {
				return err
			}
			for _, k := range g.Keys {
				if k == keep {
					continue
				}
				if err := del(txn, k); err != nil {
					return err
				}
				n++
			}
			return nil
		})
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, nil
}

// CountScores returns the number of stored scores.
func (s *Store) CountScores(_ context.Context) (int, error) {
	n := 0
	err := s.view(func(txn *badger.Txn) error {
		scanKeys(txn, scorePrefix, func(string) bool { n++; return true })
		return nil
	})
	return n, err
}
