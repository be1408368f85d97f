// Package dedupe tracks scoreIDs that an import has already claimed, so the same score
// submitted twice in one batch, or by two concurrent imports, is persisted once.
package dedupe

import (
	"context"
	"sync"

	"github.com/okian/rgtrack/pkg/metrics"
)

// Deduper claims scoreIDs.
type Deduper interface {
	// Claim reports whether scoreID was free and, if it was, records it.
	// A false return means some other entry already holds the scoreID.
	Claim(ctx context.Context, scoreID string) bool

	// Release frees a claimed scoreID. Imports release IDs whose score failed to
	// persist so a later import can retry them.
	Release(ctx context.Context, scoreID string)

	Len() int
}

// ring is a bounded claim set. Once full, the oldest claim is forgotten.
type ring struct {
	mu    sync.Mutex
	slots []string
	next  int
	index map[string]int // scoreID -> slot
	max   int
}

// New builds an in-memory Deduper. Without WithMaxSize it keeps 50000 claims.
func New(opts ...Option) Deduper {
	r := &ring{max: 50000}
	for _, opt := range opts {
		opt(r)
	}
	r.index = make(map[string]int)
	if r.max > 0 {
		r.slots = make([]string, r.max)
	}
	return r
}

func (r *ring) Claim(_ context.Context, scoreID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, held := r.index[scoreID]; held {
		metrics.RecordDuplicateScore()
		return false
	}
	if r.max <= 0 {
		r.index[scoreID] = -1
		return true
	}

	if old := r.slots[r.next]; old != "" {
		delete(r.index, old)
	}
	r.slots[r.next] = scoreID
	r.index[scoreID] = r.next
	r.next = (r.next + 1) % r.max
	return true
}

func (r *ring) Release(_ context.Context, scoreID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, held := r.index[scoreID]
	if !held {
		return
	}
	delete(r.index, scoreID)
	if slot >= 0 {
		r.slots[slot] = ""
	}
}

func (r *ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.index)
}
