// Package repository persists rgtrack documents in badger and keeps an in-memory
// per-chart personal-best index.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/okian/rgtrack/pkg/logger"
)

// Store is the badger-backed document store. Each collection lives under its own key prefix.
type Store struct {
	db              *badger.DB
	dataDir         string
	conflictRetries int
	charts          *ChartIndex
}

// Open opens (or creates) the store. Without WithDataDir the store is in memory.
func Open(ctx context.Context, opts ...Option) (*Store, error) {
	s := &Store{conflictRetries: 8}
	for _, opt := range opts {
		opt(s)
	}

	bopts := badger.DefaultOptions(s.dataDir).WithLogger(nil)
	if s.dataDir == "" {
		bopts = bopts.WithInMemory(true)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	s.db = db

	if s.charts == nil {
		s.charts = NewChartIndex()
	}
	if err := s.rebuildChartIndex(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Get().Info(ctx, "document store opened",
		logger.String("data_dir", s.dataDir),
		logger.Bool("in_memory", s.dataDir == ""),
		logger.Int("chart_index_entries", s.charts.Count()))
	return s, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Charts exposes the chart personal-best index.
func (s *Store) Charts() *ChartIndex { return s.charts }

// view runs a read-only transaction.
func (s *Store) view(fn func(txn *badger.Txn) error) error {
	return s.db.View(fn)
}

// update runs a read-write transaction, retrying on badger conflicts.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 0; attempt < s.conflictRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return ErrConflict
}

func getJSON[T any](txn *badger.Txn, key string) (*T, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	var v T
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &v) }); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &v, nil
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := txn.Set([]byte(key), data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func exists(txn *badger.Txn, key string) (bool, error) {
	_, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	return true, nil
}

func del(txn *badger.Txn, key string) error {
	if err := txn.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// scanJSON decodes every value under prefix. fn returns false to stop.
func scanJSON[T any](txn *badger.Txn, prefix string, fn func(key string, v *T) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
		item := it.Item()
		var v T
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &v) }); err != nil {
			return fmt.Errorf("decode %s: %w", item.Key(), err)
		}
		if !fn(string(item.KeyCopy(nil)), &v) {
			return nil
		}
	}
	return nil
}

// scanKeys visits every key under prefix without reading values.
func scanKeys(txn *badger.Txn, prefix string, fn func(key string) bool) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
		if !fn(string(it.Item().KeyCopy(nil))) {
			return
		}
	}
}
