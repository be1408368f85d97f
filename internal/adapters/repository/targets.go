package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/okian/rgtrack/internal/domain/model"
)

const (
	goalPrefix             = "goal:"
	goalSubPrefix          = "goalsub:"
	goalSubByGoalPrefix    = "goalsub_by_goal:"
	milestonePrefix        = "milestone:"
	milestoneSubPrefix     = "milestonesub:"
	milestoneSubByMsPrefix = "milestonesub_by_ms:"
	milestoneSetPrefix     = "milestoneset:"
)

func goalKey(id string) string                  { return goalPrefix + id }
func goalSubKey(userID int, goalID string) string { return fmt.Sprintf("%s%d:%s", goalSubPrefix, userID, goalID) }
func goalSubByGoalKey(goalID string, userID int) string {
	return fmt.Sprintf("%s%s:%d", goalSubByGoalPrefix, goalID, userID)
}
func milestoneKey(id string) string { return milestonePrefix + id }
func milestoneSubKey(userID int, id string) string {
	return fmt.Sprintf("%s%d:%s", milestoneSubPrefix, userID, id)
}
func milestoneSubByMsKey(id string, userID int) string {
	return fmt.Sprintf("%s%s:%d", milestoneSubByMsPrefix, id, userID)
}
func milestoneSetKey(id string) string { return milestoneSetPrefix + id }

// PutGoal inserts a goal. Goals are content-addressed, so an existing goalID is left as is.
func (s *Store) PutGoal(ctx context.Context, g *model.Goal) (created bool, err error) {
	err = s.update(ctx, func(txn *badger.Txn) error {
		ok, err := exists(txn, goalKey(g.GoalID))
		if err != nil || ok {
			created = false
			return err
		}
		created = true
		return setJSON(txn, goalKey(g.GoalID), g)
	})
	return created, err
}

// GetGoal returns a goal or ErrNotFound.
func (s *Store) GetGoal(_ context.Context, goalID string) (*model.Goal, error) {
	var g *model.Goal
	err := s.view(func(txn *badger.Txn) (err error) {
		g, err = getJSON[model.Goal](txn, goalKey(goalID))
		return err
	})
	return g, err
}

// GetGoals fetches goals in one transaction, skipping missing ones.
func (s *Store) GetGoals(_ context.Context, goalIDs []string) ([]model.Goal, error) {
	out := make([]model.Goal, 0, len(goalIDs))
	err := s.view(func(txn *badger.Txn) error {
		for _, id := range goalIDs {
			g, err := getJSON[model.Goal](txn, goalKey(id))
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, *g)
		}
		return nil
	})
	return out, err
}

// InsertGoalSub creates a goal subscription, failing with ErrAlreadyExists.
func (s *Store) InsertGoalSub(ctx context.Context, sub *model.GoalSubscription) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		ok, err := exists(txn, goalSubKey(sub.UserID, sub.GoalID))
		if err != nil {
			return err
		}
		if ok {
			return ErrAlreadyExists
		}
		if err := setJSON(txn, goalSubKey(sub.UserID, sub.GoalID), sub); err != nil {
			return err
		}
		return txn.Set([]byte(goalSubByGoalKey(sub.GoalID, sub.UserID)), nil)
	})
}

// PutGoalSub replaces an existing goal subscription.
func (s *Store) PutGoalSub(ctx context.Context, sub *model.GoalSubscription) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, goalSubKey(sub.UserID, sub.GoalID), sub)
	})
}

// GetGoalSub returns a goal subscription or ErrNotFound.
func (s *Store) GetGoalSub(_ context.Context, userID int, goalID string) (*model.GoalSubscription, error) {
	var sub *model.GoalSubscription
	err := s.view(func(txn *badger.Txn) (err error) {
		sub, err = getJSON[model.GoalSubscription](txn, goalSubKey(userID, goalID))
		return err
	})
	return sub, err
}

// GetGoalSubs fetches a user's subscriptions to goalIDs in one transaction, skipping missing ones.
func (s *Store) GetGoalSubs(_ context.Context, userID int, goalIDs []string) ([]model.GoalSubscription, error) {
	out := make([]model.GoalSubscription, 0, len(goalIDs))
	err := s.view(func(txn *badger.Txn) error {
		for _, id := range goalIDs {
			sub, err := getJSON[model.GoalSubscription](txn, goalSubKey(userID, id))
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, *sub)
		}
		return nil
	})
	return out, err
}

// DeleteGoalSub removes a goal subscription.
func (s *Store) DeleteGoalSub(ctx context.Context, userID int, goalID string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		ok, err := exists(txn, goalSubKey(userID, goalID))
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		if err := del(txn, goalSubKey(userID, goalID)); err != nil {
			return err
		}
		return del(txn, goalSubByGoalKey(goalID, userID))
	})
}

// ListGoalSubs returns a user's goal subscriptions on a GPT.
func (s *Store) ListGoalSubs(_ context.Context, userID int, game, playtype string) ([]model.GoalSubscription, error) {
	var out []model.GoalSubscription
	err := s.view(func(txn *badger.Txn) error {
		return scanJSON(txn, fmt.Sprintf("%s%d:", goalSubPrefix, userID), func(_ string, sub *model.GoalSubscription) bool {
			if sub.Game == game && sub.Playtype == playtype {
				out = append(out, *sub)
			}
			return true
		})
	})
	return out, err
}

// CountedGoal is a goal with its subscriber count.
type CountedGoal struct {
	model.Goal
	Subscriptions int `json:"__subscriptions"`
}

// MostSubscribedGoals groups subscriptions by goal, counts them and returns the top goals of a GPT.
func (s *Store) MostSubscribedGoals(ctx context.Context, game, playtype string, limit int) ([]CountedGoal, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	counts := map[string]int{}
	err := s.view(func(txn *badger.Txn) error {
		scanKeys(txn, goalSubByGoalPrefix, func(key string) bool {
			rest := strings.TrimPrefix(key, goalSubByGoalPrefix)
			counts[rest[:strings.LastIndexByte(rest, ':')]]++
			return true
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	goals, err := s.GetGoals(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]CountedGoal, 0, len(goals))
	for _, g := range goals {
		if g.Game == game && g.Playtype == playtype {
			out = append(out, CountedGoal{Goal: g, Subscriptions: counts[g.GoalID]})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subscriptions != out[j].Subscriptions {
			return out[i].Subscriptions > out[j].Subscriptions
		}
		return out[i].GoalID < out[j].GoalID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PutMilestone inserts or replaces a milestone.
func (s *Store) PutMilestone(ctx context.Context, m *model.Milestone) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, milestoneKey(m.MilestoneID), m)
	})
}

// GetMilestone returns a milestone or ErrNotFound.
func (s *Store) GetMilestone(_ context.Context, id string) (*model.Milestone, error) {
	var m *model.Milestone
	err := s.view(func(txn *badger.Txn) (err error) {
		m, err = getJSON[model.Milestone](txn, milestoneKey(id))
		return err
	})
	return m, err
}

// GetMilestones fetches milestones in one transaction, skipping missing ones.
func (s *Store) GetMilestones(_ context.Context, ids []string) ([]model.Milestone, error) {
	out := make([]model.Milestone, 0, len(ids))
	err := s.view(func(txn *badger.Txn) error {
		for _, id := range ids {
			m, err := getJSON[model.Milestone](txn, milestoneKey(id))
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, *m)
		}
		return nil
	})
	return out, err
}

// DeleteMilestone removes a milestone and every subscription to it in one transaction.
func (s *Store) DeleteMilestone(ctx context.Context, id string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		ok, err := exists(txn, milestoneKey(id))
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		var byMs []string
		scanKeys(txn, milestoneSubByMsPrefix+id+":", func(key string) bool {
			byMs = append(byMs, key)
			return true
		})
		for _, key := range byMs {
			user := key[strings.LastIndexByte(key, ':')+1:]
			if err := del(txn, milestoneSubPrefix+user+":"+id); err != nil {
				return err
			}
			if err := del(txn, key); err != nil {
				return err
			}
		}
		return del(txn, milestoneKey(id))
	})
}

// SearchMilestones lists a GPT's milestones whose name or description contains search.
func (s *Store) SearchMilestones(_ context.Context, game, playtype, search string, limit int) ([]model.Milestone, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	needle := strings.ToLower(search)
	var out []model.Milestone
	err := s.view(func(txn *badger.Txn) error {
		return scanJSON(txn, milestonePrefix, func(_ string, m *model.Milestone) bool {
			if m.Game != game || m.Playtype != playtype {
				return true
			}
			if needle == "" || strings.Contains(strings.ToLower(m.Name), needle) || strings.Contains(strings.ToLower(m.Desc), needle) {
				out = append(out, *m)
			}
			return len(out) < limit
		})
	})
	return out, err
}

// InsertMilestoneSub creates a milestone subscription, failing with ErrAlreadyExists.
func (s *Store) InsertMilestoneSub(ctx context.Context, sub *model.MilestoneSubscription) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		ok, err := exists(txn, milestoneSubKey(sub.UserID, sub.MilestoneID))
		if err != nil {
			return err
		}
		if ok {
			return ErrAlreadyExists
		}
		if err := setJSON(txn, milestoneSubKey(sub.UserID, sub.MilestoneID), sub); err != nil {
			return err
		}
		return txn.Set([]byte(milestoneSubByMsKey(sub.MilestoneID, sub.UserID)), nil)
	})
}

// PutMilestoneSub replaces an existing milestone subscription.
func (s *Store) PutMilestoneSub(ctx context.Context, sub *model.MilestoneSubscription) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, milestoneSubKey(sub.UserID, sub.MilestoneID), sub)
	})
}

// GetMilestoneSub returns a milestone subscription or ErrNotFound.
func (s *Store) GetMilestoneSub(_ context.Context, userID int, id string) (*model.MilestoneSubscription, error) {
	var sub *model.MilestoneSubscription
	err := s.view(func(txn *badger.Txn) (err error) {
		sub, err = getJSON[model.MilestoneSubscription](txn, milestoneSubKey(userID, id))
		return err
	})
	return sub, err
}

// DeleteMilestoneSub removes a milestone subscription.
func (s *Store) DeleteMilestoneSub(ctx context.Context, userID int, id string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		ok, err := exists(txn, milestoneSubKey(userID, id))
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		if err := del(txn, milestoneSubKey(userID, id)); err != nil {
			return err
		}
		return del(txn, milestoneSubByMsKey(id, userID))
	})
}

// ListMilestoneSubs returns a user's milestone subscriptions on a GPT.
func (s *Store) ListMilestoneSubs(_ context.Context, userID int, game, playtype string) ([]model.MilestoneSubscription, error) {
	var out []model.MilestoneSubscription
	err := s.view(func(txn *badger.Txn) error {
		return scanJSON(txn, fmt.Sprintf("%s%d:", milestoneSubPrefix, userID), func(_ string, sub *model.MilestoneSubscription) bool {
			if sub.Game == game && sub.Playtype == playtype {
				out = append(out, *sub)
			}
			return true
		})
	})
	return out, err
}

// ListMilestoneSubscribers returns every subscription to a milestone.
func (s *Store) ListMilestoneSubscribers(_ context.Context, id string) ([]model.MilestoneSubscription, error) {
	var out []model.MilestoneSubscription
	err := s.view(func(txn *badger.Txn) error {
		var users []string
		scanKeys(txn, milestoneSubByMsPrefix+id+":", func(key string) bool {
			users = append(users, key[strings.LastIndexByte(key, ':')+1:])
			return true
		})
		for _, u := range users {
			sub, err := getJSON[model.MilestoneSubscription](txn, milestoneSubPrefix+u+":"+id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, *sub)
		}
		return nil
	})
	return out, err
}

// CountedMilestone is a milestone with its subscriber count.
type CountedMilestone struct {
	model.Milestone
	Subscriptions int `json:"__subscriptions"`
}

// MostSubscribedMilestones groups milestone subscriptions by milestone and returns the top ones of a GPT.
func (s *Store) MostSubscribedMilestones(ctx context.Context, game, playtype string, limit int) ([]CountedMilestone, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	counts := map[string]int{}
	err := s.view(func(txn *badger.Txn) error {
		scanKeys(txn, milestoneSubByMsPrefix, func(key string) bool {
			rest := strings.TrimPrefix(key, milestoneSubByMsPrefix)
			counts[rest[:strings.LastIndexByte(rest, ':')]]++
			return true
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	ms, err := s.GetMilestones(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]CountedMilestone, 0, len(ms))
	for _, m := range ms {
		if m.Game == game && m.Playtype == playtype {
			out = append(out, CountedMilestone{Milestone: m, Subscriptions: counts[m.MilestoneID]})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subscriptions != out[j].Subscriptions {
			return out[i].Subscriptions > out[j].Subscriptions
		}
		return out[i].MilestoneID < out[j].MilestoneID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PutMilestoneSet inserts or replaces a milestone set.
func (s *Store) PutMilestoneSet(ctx context.Context, set *model.MilestoneSet) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, milestoneSetKey(set.SetID), set)
	})
}

// GetMilestoneSet returns a milestone set or ErrNotFound.
func (s *Store) GetMilestoneSet(_ context.Context, id string) (*model.MilestoneSet, error) {
	var set *model.MilestoneSet
	err := s.view(func(txn *badger.Txn) (err error) {
		set, err = getJSON[model.MilestoneSet](txn, milestoneSetKey(id))
		return err
	})
	return set, err
}
