package replay

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/okian/rgtrack/pkg/logger"
)

const (
	directoryPermission = 0o750
	filePermission      = 0o600
	importPath          = "/api/v1/import/file/batch-manual"
	backoffBase         = 200 * time.Millisecond
)

// importResult is the part of an import document the replay reads.
type importResult struct {
	ScoreIDs []string          `json:"scoreIDs"`
	Errors   []json.RawMessage `json:"errors"`
}

// Run generates batches, submits them concurrently and verifies the resulting
// personal bests. A verification disagreement returns ErrMismatch with the
// stats still populated.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	cfg = cfg.withDefaults()
	if len(cfg.Charts) == 0 {
		return nil, ErrNoCharts
	}
	log := logger.Named("replay")
	stats := &Stats{StartTime: time.Now(), Users: cfg.Users}
	c := newClient(cfg.BaseURL, &http.Client{Timeout: cfg.Timeout})

	log.Info(ctx, "starting replay",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", cfg.Users),
		logger.Int("scoresPerUser", cfg.ScoresPerUser),
		logger.Int("workers", cfg.Workers))

	if _, err := c.do(ctx, http.MethodGet, "/healthz", "", nil, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnhealthy, err)
	}

	batches := Generate(cfg)
	if cfg.OutputFile != "" {
		if err := saveBatches(cfg.OutputFile, batches); err != nil {
			log.Warn(ctx, "failed to save batches", logger.Error(err))
		}
	}

	scoreIDs, err := submit(ctx, c, cfg, batches, stats)
	if err != nil {
		return stats, err
	}
	if err := verify(ctx, c, cfg, scoreIDs, stats); err != nil {
		stats.Duration = time.Since(stats.StartTime)
		return stats, err
	}

	stats.Duration = time.Since(stats.StartTime)
	log.Info(ctx, "replay finished",
		logger.Int("scoresImported", stats.ScoresImported),
		logger.Int("importErrors", stats.ImportErrors),
		logger.Int("pbsVerified", stats.PBsVerified),
		logger.Int("mismatches", len(stats.Mismatches)),
		logger.String("duration", stats.Duration.String()))
	if len(stats.Mismatches) > 0 {
		return stats, fmt.Errorf("%w: %d disagreements", ErrMismatch, len(stats.Mismatches))
	}
	return stats, nil
}

// submit posts every batch with at most cfg.Workers in flight. A failed batch
// is counted, not fatal.
func submit(ctx context.Context, c *client, cfg *Config, batches []Batch, stats *Stats) ([]string, error) {
	log := logger.Named("replay")
	var (
		mu  sync.Mutex
		ids []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, b := range batches {
		g.Go(func() error {
			res, throttled, err := submitOne(gctx, c, cfg, b)

			mu.Lock()
			defer mu.Unlock()
			stats.Throttled += throttled
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				stats.BatchesFailed++
				log.Warn(gctx, "batch failed", logger.Int("user_id", b.UserID), logger.Error(err))
				return nil
			}
			stats.BatchesSubmitted++
			stats.ScoresImported += len(res.ScoreIDs)
			stats.ImportErrors += len(res.Errors)
			ids = append(ids, res.ScoreIDs...)
			if cfg.Verbose {
				log.Info(gctx, "batch imported", logger.Int("user_id", b.UserID), logger.Int("scores", len(res.ScoreIDs)))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	return ids, nil
}

// submitOne retries on 429 with exponential backoff.
func submitOne(ctx context.Context, c *client, cfg *Config, b Batch) (*importResult, int, error) {
	throttled := 0
	for attempt := 0; ; attempt++ {
		var res importResult
		status, err := c.do(ctx, http.MethodPost, importPath, b.userHeader(), b, &res)
		if err == nil {
			return &res, throttled, nil
		}
		if status != http.StatusTooManyRequests || attempt >= cfg.Retries {
			return nil, throttled, err
		}
		throttled++
		select {
		case <-ctx.Done():
			return nil, throttled, ctx.Err()
		case <-time.After(backoffBase << attempt):
		}
	}
}

func saveBatches(filename string, batches []Batch) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	type saved struct {
		UserID string `json:"userID"`
		Batch
	}
	out := make([]saved, len(batches))
	for i, b := range batches {
		out[i] = saved{UserID: strconv.Itoa(b.UserID), Batch: b}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, filePermission)
}
