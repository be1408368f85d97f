package scoreimport

import (
	"time"

	"github.com/okian/rgtrack/internal/domain/dedupe"
)

// Option applies a configuration option to the Importer.
type Option func(*Importer)

// WithConcurrency bounds how many entries are normalized and hydrated at once.
func WithConcurrency(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.concurrency = n
		}
	}
}

// WithDeduper shares a scoreID claim set between importers.
func WithDeduper(d dedupe.Deduper) Option {
	return func(im *Importer) {
		if d != nil {
			im.deduper = d
		}
	}
}

// WithSessionGap sets how long after a session ends new scores still join it.
func WithSessionGap(d time.Duration) Option {
	return func(im *Importer) {
		if d > 0 {
			im.sessionGap = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(im *Importer) {
		if now != nil {
			im.now = now
		}
	}
}
