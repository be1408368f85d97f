package replay

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/okian/rgtrack/pkg/logger"
)

const valueTolerance = 1e-6

type scoreDoc struct {
	ScoreID   string `json:"scoreID"`
	UserID    int    `json:"userID"`
	ChartID   string `json:"chartID"`
	ScoreData struct {
		Metrics map[string]any `json:"metrics"`
	} `json:"scoreData"`
}

func (s *scoreDoc) metric(name string) (float64, bool) {
	v, ok := s.ScoreData.Metrics[name].(float64)
	return v, ok
}

type pbKey struct {
	userID  int
	chartID string
}

type pbEntry struct {
	Rank   int     `json:"rank"`
	UserID int     `json:"userID"`
	Value  float64 `json:"value"`
}

// verify fetches every imported score, derives the expected best per user and
// chart, and compares it against the tracker's personal-best answers.
func verify(ctx context.Context, c *client, cfg *Config, scoreIDs []string, stats *Stats) error {
	log := logger.Named("replay")
	best, err := expectedBests(ctx, c, cfg, scoreIDs)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	mismatch := func(format string, args ...any) {
		mu.Lock()
		stats.Mismatches = append(stats.Mismatches, fmt.Sprintf(format, args...))
		mu.Unlock()
	}

	gpt := "/api/v1/games/" + url.PathEscape(cfg.Game) + "/" + url.PathEscape(cfg.Playtype)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for key, want := range best {
		g.Go(func() error {
			var out struct {
				PB    scoreDoc `json:"pb"`
				Rank  int      `json:"rank"`
				OutOf int      `json:"outOf"`
			}
			path := gpt + "/charts/" + url.PathEscape(key.chartID) + "/pbs/" + strconv.Itoa(key.userID)
			if _, err := c.do(gctx, http.MethodGet, path, "", nil, &out); err != nil {
				mismatch("user %d chart %s: %v", key.userID, key.chartID, err)
				return nil
			}
			got, _ := out.PB.metric(cfg.PrimaryMetric)
			if math.Abs(got-want) > valueTolerance {
				mismatch("user %d chart %s: pb %s is %g, want %g", key.userID, key.chartID, cfg.PrimaryMetric, got, want)
			}
			if out.Rank < 1 || out.Rank > out.OutOf {
				mismatch("user %d chart %s: rank %d out of %d", key.userID, key.chartID, out.Rank, out.OutOf)
			}
			mu.Lock()
			stats.PBsVerified++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, chartID := range chartsOf(best) {
		var out struct {
			PBs   []pbEntry `json:"pbs"`
			OutOf int       `json:"outOf"`
		}
		path := gpt + "/charts/" + url.PathEscape(chartID) + "/pbs?limit=500"
		if _, err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
			mismatch("chart %s leaderboard: %v", chartID, err)
			continue
		}
		for i := 1; i < len(out.PBs); i++ {
			if out.PBs[i].Value > out.PBs[i-1].Value {
				mismatch("chart %s leaderboard not sorted at position %d", chartID, i)
				break
			}
		}
		if cfg.Verbose && len(out.PBs) > 0 {
			log.Info(ctx, "chart leaderboard",
				logger.String("chart_id", chartID),
				logger.Int("top_user", out.PBs[0].UserID),
				logger.Float64("top_value", out.PBs[0].Value),
				logger.Int("out_of", out.OutOf))
		}
	}
	return nil
}

func expectedBests(ctx context.Context, c *client, cfg *Config, scoreIDs []string) (map[pbKey]float64, error) {
	var mu sync.Mutex
	best := make(map[pbKey]float64)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, id := range scoreIDs {
		g.Go(func() error {
			var s scoreDoc
			if _, err := c.do(gctx, http.MethodGet, "/api/v1/scores/"+url.PathEscape(id), "", nil, &s); err != nil {
				return fmt.Errorf("fetch score %s: %w", id, err)
			}
			v, ok := s.metric(cfg.PrimaryMetric)
			if !ok {
				return nil
			}
			key := pbKey{userID: s.UserID, chartID: s.ChartID}
			mu.Lock()
			if cur, seen := best[key]; !seen || v > cur {
				best[key] = v
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return best, nil
}

func chartsOf(best map[pbKey]float64) []string {
	seen := make(map[string]struct{})
	for k := range best {
		seen[k.chartID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
