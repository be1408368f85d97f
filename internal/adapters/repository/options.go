package repository

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithDataDir persists data under dir. An empty dir keeps the store in memory.
func WithDataDir(dir string) Option {
	return func(s *Store) {
		s.dataDir = dir
	}
}

// WithConflictRetries bounds retries of a read-modify-write transaction on badger conflicts.
func WithConflictRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.conflictRetries = n
		}
	}
}

// WithChartIndex replaces the chart leaderboard index.
func WithChartIndex(idx *ChartIndex) Option {
	return func(s *Store) {
		if idx != nil {
			s.charts = idx
		}
	}
}
