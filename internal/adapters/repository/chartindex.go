package repository

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/rgtrack/pkg/metrics"
)

// ChartIndex keeps one treap per chart holding each user's personal best on that chart,
// ordered by the GPT's primary metric.
//
// Ordering: value DESC, then userID ASC (deterministic). "less" means ranks earlier,
// so in-order traversal yields the leaderboard from best to worst.

// valueScale controls fixed-point scaling from float64. Primary metrics stay below 1e8.
const valueScale = 1_000_000

type valueFP int64

func toFixedPoint(x float64) valueFP {
	switch {
	case math.IsNaN(x):
		return 0
	case math.IsInf(x, 1):
		return valueFP(math.MaxInt64)
	case math.IsInf(x, -1):
		return valueFP(math.MinInt64)
	}
	scaled := x * valueScale
	if scaled > float64(math.MaxInt64) {
		return valueFP(math.MaxInt64)
	}
	if scaled < float64(math.MinInt64) {
		return valueFP(math.MinInt64)
	}
	return valueFP(math.Round(scaled))
}

func toFloat(x valueFP) float64 { return float64(x) / valueScale }

// ChartEntry is a leaderboard row for one chart.
type ChartEntry struct {
	Rank    int     `json:"rank"`
	UserID  int     `json:"userID"`
	Value   float64 `json:"value"`
	ScoreID string  `json:"scoreID"`
}

type record struct {
	value   valueFP
	scoreID string
}

type node struct {
	userID int
	value  valueFP
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(aValue valueFP, aID int, bValue valueFP, bID int) bool {
	if aValue != bValue {
		return aValue > bValue
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id int, value valueFP) *node {
	if n == nil {
		return &node{userID: id, value: value, prio: rand.Uint64(), size: 1}
	}
	if less(value, id, n.value, n.userID) {
		n.left = insert(n.left, id, value)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, value)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id int, value valueFP) *node {
	if n == nil {
		return nil
	}
	switch {
	case value == n.value && id == n.userID:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, value)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, value)
		}
	case less(value, id, n.value, n.userID):
		n.left = deleteNode(n.left, id, value)
	default:
		n.right = deleteNode(n.right, id, value)
	}
	fix(n)
	return n
}

// countGreater returns how many entries have a value strictly greater than v.
func countGreater(n *node, v valueFP) int {
	count := 0
	for n != nil {
		if n.value > v {
			count += 1 + nsize(n.left)
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

func collectTopN(n *node, limit int, out *[]ChartEntry, byUser map[int]record) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out, byUser)
	if len(*out) < limit {
		*out = append(*out, ChartEntry{UserID: n.userID, Value: toFloat(n.value), ScoreID: byUser[n.userID].scoreID})
	}
	collectTopN(n.right, limit, out, byUser)
}

type board struct {
	root   *node
	byUser map[int]record
}

// ChartIndex is safe for concurrent use.
type ChartIndex struct {
	mu     sync.RWMutex
	boards map[string]*board
	total  int
}

// NewChartIndex returns an empty index.
func NewChartIndex() *ChartIndex {
	return &ChartIndex{boards: make(map[string]*board)}
}

// UpdateBest records value as userID's best on chartID if it beats the existing one.
func (c *ChartIndex) UpdateBest(chartID string, userID int, value float64, scoreID string) bool {
	start := time.Now()
	defer func() { metrics.RecordChartIndexLatency(float64(time.Since(start).Microseconds()) / 1000) }()

	nv := toFixedPoint(value)

	c.mu.Lock()
	b, ok := c.boards[chartID]
	if !ok {
		b = &board{byUser: make(map[int]record)}
		c.boards[chartID] = b
	}
	if old, ok := b.byUser[userID]; ok {
		if nv <= old.value {
			c.mu.Unlock()
			return false
		}
		b.root = deleteNode(b.root, userID, old.value)
	} else {
		c.total++
	}
	b.byUser[userID] = record{value: nv, scoreID: scoreID}
	b.root = insert(b.root, userID, nv)
	total := c.total
	c.mu.Unlock()

	metrics.UpdateChartIndexEntries(total)
	return true
}

// Remove drops userID's best on chartID.
func (c *ChartIndex) Remove(chartID string, userID int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.boards[chartID]
	if !ok {
		return
	}
	if old, ok := b.byUser[userID]; ok {
		b.root = deleteNode(b.root, userID, old.value)
		delete(b.byUser, userID)
		c.total--
	}
	metrics.UpdateChartIndexEntries(c.total)
}

// Rank returns userID's position on chartID. Equal values share a rank ("1224" ranking).
func (c *ChartIndex) Rank(chartID string, userID int) (ChartEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.boards[chartID]
	if !ok {
		return ChartEntry{}, ErrNotFound
	}
	rec, ok := b.byUser[userID]
	if !ok {
		return ChartEntry{}, ErrNotFound
	}
	return ChartEntry{
		Rank:    1 + countGreater(b.root, rec.value),
		UserID:  userID,
		Value:   toFloat(rec.value),
		ScoreID: rec.scoreID,
	}, nil
}

// TopN returns the best n entries of chartID.
func (c *ChartIndex) TopN(chartID string, n int) ([]ChartEntry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.boards[chartID]
	if !ok {
		return []ChartEntry{}, nil
	}
	out := make([]ChartEntry, 0, min(n, len(b.byUser)))
	collectTopN(b.root, n, &out, b.byUser)
	assignRanks(out)
	return out, nil
}

// ChartCount returns the number of users with a best on chartID.
func (c *ChartIndex) ChartCount(chartID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if b, ok := c.boards[chartID]; ok {
		return len(b.byUser)
	}
	return 0
}

// Count returns the number of personal bests across all charts.
func (c *ChartIndex) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.total
}

func assignRanks(entries []ChartEntry) {
	for i := range entries {
		if i > 0 && entries[i].Value == entries[i-1].Value {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
}
