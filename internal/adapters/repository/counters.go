package repository

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
)

const counterPrefix = "counter:"

type counter struct {
	Value int `json:"value"`
}

// GetNextCounterValue returns the counter's current value and increments it.
// Counters start at 1.
func (s *Store) GetNextCounterValue(ctx context.Context, name string) (int, error) {
	var current int
	err := s.update(ctx, func(txn *badger.Txn) error {
		c, err := getJSON[counter](txn, counterPrefix+name)
		if errors.Is(err, ErrNotFound) {
			c, err = &counter{Value: 1}, nil
		}
		if err != nil {
			return err
		}
		current = c.Value
		c.Value++
		return setJSON(txn, counterPrefix+name, c)
	})
	return current, err
}

// DecrementCounterValue undoes one GetNextCounterValue and returns the new next value.
func (s *Store) DecrementCounterValue(ctx context.Context, name string) (int, error) {
	var next int
	err := s.update(ctx, func(txn *badger.Txn) error {
		c, err := getJSON[counter](txn, counterPrefix+name)
		if err != nil {
			return err
		}
		c.Value--
		next = c.Value
		return setJSON(txn, counterPrefix+name, c)
	})
	return next, err
}
