package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/okian/rgtrack/internal/domain/model"
)

const (
	gameStatsPrefix    = "gamestats:"
	gameSettingsPrefix = "gamesettings:"
	classAchPrefix     = "classach:"
)

func gptSuffix(userID int, game, playtype string) string {
	return fmt.Sprintf("%d:%s:%s", userID, game, playtype)
}

func gameStatsKey(userID int, game, playtype string) string {
	return gameStatsPrefix + gptSuffix(userID, game, playtype)
}

func gameSettingsKey(userID int, game, playtype string) string {
	return gameSettingsPrefix + gptSuffix(userID, game, playtype)
}

var classAchSeq atomic.Uint64 //nolint:gochecknoglobals // disambiguates achievements sharing a timestamp

func classAchKey(a *model.ClassAchievement) string {
	return fmt.Sprintf("%s%d:%020d:%d", classAchPrefix, a.UserID, a.TimeAchieved.UnixNano(), classAchSeq.Add(1))
}

// ClassOutcome is the result of a class write.
type ClassOutcome struct {
	// Old is the previous value; nil when the user had none.
	Old *int
	// Changed reports whether the stored value was written.
	Changed bool
	// Created reports whether the stats document was created by this call.
	Created bool
}

// GetUserGameStats returns the stats document or ErrNotFound.
func (s *Store) GetUserGameStats(_ context.Context, userID int, game, playtype string) (*model.UserGameStats, error) {
	var st *model.UserGameStats
	err := s.view(func(txn *badger.Txn) (err error) {
		st, err = getJSON[model.UserGameStats](txn, gameStatsKey(userID, game, playtype))
		return err
	})
	return st, err
}

// ListUserGameStats returns every GPT the user has stats for.
func (s *Store) ListUserGameStats(_ context.Context, userID int) ([]model.UserGameStats, error) {
	var out []model.UserGameStats
	err := s.view(func(txn *badger.Txn) error {
		return scanJSON(txn, fmt.Sprintf("%s%d:", gameStatsPrefix, userID), func(_ string, st *model.UserGameStats) bool {
			out = append(out, *st)
			return true
		})
	})
	return out, err
}

// GetGameSettings returns the settings document or ErrNotFound.
func (s *Store) GetGameSettings(_ context.Context, userID int, game, playtype string) (*model.GameSettings, error) {
	var gs *model.GameSettings
	err := s.view(func(txn *badger.Txn) (err error) {
		gs, err = getJSON[model.GameSettings](txn, gameSettingsKey(userID, game, playtype))
		return err
	})
	return gs, err
}

// loadOrCreateStats reads the stats document inside txn, creating it (and default
// game settings) when absent.
func loadOrCreateStats(txn *badger.Txn, userID int, game, playtype string) (*model.UserGameStats, bool, error) {
	st, err := getJSON[model.UserGameStats](txn, gameStatsKey(userID, game, playtype))
	if err == nil {
		if st.Classes == nil {
			st.Classes = map[string]int{}
		}
		if st.Ratings == nil {
			st.Ratings = map[string]float64{}
		}
		return st, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	st = &model.UserGameStats{
		UserID: userID, Game: game, Playtype: playtype,
		Ratings: map[string]float64{}, Classes: map[string]int{},
	}
	settingsExist, err := exists(txn, gameSettingsKey(userID, game, playtype))
	if err != nil {
		return nil, false, err
	}
	if !settingsExist {
		gs := &model.GameSettings{UserID: userID, Game: game, Playtype: playtype, Rivals: []int{}}
		if err := setJSON(txn, gameSettingsKey(userID, game, playtype), gs); err != nil {
			return nil, false, err
		}
	}
	return st, true, nil
}

// UpsertRatings replaces the profile ratings, creating the stats document if needed.
// Ratings absent from the map are removed.
func (s *Store) UpsertRatings(ctx context.Context, userID int, game, playtype string, ratings map[string]float64) (*model.UserGameStats, error) {
	var out *model.UserGameStats
	err := s.update(ctx, func(txn *badger.Txn) error {
		st, _, err := loadOrCreateStats(txn, userID, game, playtype)
		if err != nil {
			return err
		}
		st.Ratings = ratings
		out = st
		return setJSON(txn, gameStatsKey(userID, game, playtype), st)
	})
	return out, err
}

// UpdateClassIfGreater writes value only if the user has no value for set or a lower one.
// The comparison and the write happen in one transaction; a concurrent writer causes a
// conflict and the whole read-compare-write is retried.
func (s *Store) UpdateClassIfGreater(ctx context.Context, userID int, game, playtype, set string, value int) (ClassOutcome, error) {
	return s.writeClass(ctx, userID, game, playtype, set, value, func(old int) bool { return value > old })
}

// SetClass writes value unconditionally (used for downgradable class sets).
func (s *Store) SetClass(ctx context.Context, userID int, game, playtype, set string, value int) (ClassOutcome, error) {
	return s.writeClass(ctx, userID, game, playtype, set, value, func(old int) bool { return value != old })
}

func (s *Store) writeClass(ctx context.Context, userID int, game, playtype, set string, value int, shouldWrite func(old int) bool) (ClassOutcome, error) {
	var out ClassOutcome
	err := s.update(ctx, func(txn *badger.Txn) error {
		out = ClassOutcome{}
		st, created, err := loadOrCreateStats(txn, userID, game, playtype)
		if err != nil {
			return err
		}
		out.Created = created
		if old, ok := st.Classes[set]; ok {
			o := old
			out.Old = &o
			if !shouldWrite(old) {
				return nil
			}
		}
		st.Classes[set] = value
		out.Changed = true
		return setJSON(txn, gameStatsKey(userID, game, playtype), st)
	})
	return out, err
}

// InsertClassAchievement appends to the achievement log.
func (s *Store) InsertClassAchievement(ctx context.Context, a *model.ClassAchievement) error {
	key := classAchKey(a)
	return s.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, key, a)
	})
}

// ListClassAchievements returns a user's achievements, newest first. since filters by time when non-zero.
func (s *Store) ListClassAchievements(_ context.Context, userID int, since time.Time, limit int) ([]model.ClassAchievement, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	var out []model.ClassAchievement
	err := s.view(func(txn *badger.Txn) error {
		return scanJSON(txn, fmt.Sprintf("%s%d:", classAchPrefix, userID), func(_ string, a *model.ClassAchievement) bool {
			if since.IsZero() || !a.TimeAchieved.Before(since) {
				out = append(out, *a)
			}
			return true
		})
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].TimeAchieved.After(out[j].TimeAchieved) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, err
}
