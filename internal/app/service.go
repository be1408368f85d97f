// Package service assembles the rgtrack components and exposes them to the
// HTTP API and the process supervisor.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/okian/rgtrack/internal/adapters/http/api"
	"github.com/okian/rgtrack/internal/adapters/mq/queue"
	"github.com/okian/rgtrack/internal/adapters/mq/worker"
	"github.com/okian/rgtrack/internal/adapters/notify"
	"github.com/okian/rgtrack/internal/adapters/repository"
	"github.com/okian/rgtrack/internal/adapters/webhook"
	"github.com/okian/rgtrack/internal/domain/classes"
	"github.com/okian/rgtrack/internal/domain/convert"
	"github.com/okian/rgtrack/internal/domain/dedupe"
	"github.com/okian/rgtrack/internal/domain/hydrate"
	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/internal/domain/rating"
	"github.com/okian/rgtrack/internal/domain/scoreimport"
	"github.com/okian/rgtrack/internal/domain/targets"
	"github.com/okian/rgtrack/pkg/logger"
	"github.com/okian/rgtrack/pkg/metrics"
)

// ErrNotStarted is returned by accessors used before Start.
var ErrNotStarted = errors.New("service not started")

// Headers carrying ARC credentials on an IIDX import.
const (
	HeaderARCProfile = "X-ARC-Profile-ID"
	HeaderARCToken   = "X-ARC-Token"
)

// Service owns every long-lived component of the tracker.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      *repository.Store
	registry   *convert.Registry
	ratings    *rating.Engine
	hydrator   *hydrate.Hydrator
	classes    *classes.Engine
	targets    *targets.Engine
	importer   *scoreimport.Importer
	jobs       *queue.InMemoryQueue
	pool       *worker.Pool
	bus        *webhook.Bus
	dispatcher *webhook.Dispatcher
	arc        *classes.ARCClient

	// Configuration
	dataDir           string
	catalogPath       string
	workerCount       int
	queueSize         int
	importConcurrency int
	dedupeSize        int
	webhookURLs       []string
	webhookTimeout    time.Duration
	webhookRate       float64
	arcURL            string
	serverVersion     string
	jobTimeout        time.Duration

	// State
	started   bool
	startTime time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDataDir persists documents under dir. Empty keeps everything in memory.
func WithDataDir(dir string) Option {
	return func(s *Service) {
		s.dataDir = dir
	}
}

// WithCatalog seeds songs and charts from a JSON catalog file on start.
func WithCatalog(path string) Option {
	return func(s *Service) {
		s.catalogPath = path
	}
}

// WithWorkerCount sets the number of background job workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the background job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithImportConcurrency bounds how many entries of one import convert at once.
func WithImportConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.importConcurrency = n
		}
	}
}

// WithDedupeSize sets how many recent score IDs are held for duplicate detection.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithWebhooks sets the webhook listener URLs and per-request timeout.
func WithWebhooks(urls []string, timeout time.Duration) Option {
	return func(s *Service) {
		s.webhookURLs = urls
		if timeout > 0 {
			s.webhookTimeout = timeout
		}
	}
}

// WithWebhookRate limits deliveries per listener.
func WithWebhookRate(perSecond float64) Option {
	return func(s *Service) {
		if perSecond > 0 {
			s.webhookRate = perSecond
		}
	}
}

// WithARC enables ARC class lookups against baseURL.
func WithARC(baseURL string) Option {
	return func(s *Service) {
		s.arcURL = baseURL
	}
}

// WithServerVersion sets the version reported in status webhooks.
func WithServerVersion(v string) Option {
	return func(s *Service) {
		if v != "" {
			s.serverVersion = v
		}
	}
}

// WithJobTimeout caps each background job.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Nothing is opened until Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:       runtime.NumCPU(),
		queueSize:         10_000,
		importConcurrency: 16,
		dedupeSize:        10_000,
		webhookTimeout:    5 * time.Second,
		webhookRate:       10,
		serverVersion:     "dev",
		jobTimeout:        time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store and builds the pipeline. Background services are
// returned by Services and must be run by the caller.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	s.logger.Info(ctx, "starting rgtrack service...")

	store, err := repository.Open(ctx, repository.WithDataDir(s.dataDir))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if s.catalogPath != "" {
		if err := seedCatalog(ctx, store, s.catalogPath); err != nil {
			_ = store.Close()
			return err
		}
	}

	ratings, err := rating.New()
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("build rating engine: %w", err)
	}
	hydrator, err := hydrate.New(ratings)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("build hydrator: %w", err)
	}

	s.store = store
	s.ratings = ratings
	s.hydrator = hydrator
	s.registry = convert.NewRegistry(store)
	s.bus = webhook.NewBus(s.queueSize)
	s.classes = classes.New(store, s.bus)
	s.targets = targets.New(store,
		targets.WithEmitter(s.bus),
		targets.WithNotifier(notify.New(store)),
	)
	s.importer = scoreimport.New(store, s.registry, hydrator, ratings, s.classes, s.targets,
		scoreimport.WithConcurrency(s.importConcurrency),
		scoreimport.WithDeduper(dedupe.New(dedupe.WithMaxSize(s.dedupeSize))),
	)
	s.jobs = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.jobs, worker.HandlerFunc(s.handleJob),
		worker.WithWorkers(s.workerCount),
		worker.WithJobTimeout(s.jobTimeout),
	)
	s.dispatcher = webhook.NewDispatcher(s.bus, s.webhookURLs,
		webhook.WithHTTPClient(&http.Client{Timeout: s.webhookTimeout}),
		webhook.WithRate(s.webhookRate, 1),
	)
	if s.arcURL != "" {
		s.arc = classes.NewARCClient(s.arcURL)
	}

	s.started = true
	s.startTime = time.Now()
	s.logger.Info(ctx, "rgtrack service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("webhooks", len(s.webhookURLs)),
		logger.Bool("arc", s.arc != nil),
	)
	return nil
}

func seedCatalog(ctx context.Context, store *repository.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	songs, charts, err := store.LoadCatalog(ctx, f)
	if err != nil {
		return fmt.Errorf("load catalog %s: %w", path, err)
	}
	logger.Get().Info(ctx, "catalog loaded",
		logger.String("path", path), logger.Int("songs", songs), logger.Int("charts", charts))
	return nil
}

// Stop closes the queue, the webhook bus and the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping rgtrack service...")

	if s.jobs != nil {
		_ = s.jobs.Close()
	}
	if s.bus != nil {
		_ = s.bus.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error(ctx, "close store failed", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "rgtrack service stopped")
}

// handleJob runs one background job from the queue.
func (s *Service) handleJob(ctx context.Context, job model.Job) error {
	switch job.Kind {
	case model.JobReconcileMilestone:
		n, err := s.targets.UpdateMilestoneSubscriptions(ctx, job.MilestoneID)
		if err != nil {
			return fmt.Errorf("reconcile milestone %s: %w", job.MilestoneID, err)
		}
		s.logger.Debug(ctx, "milestone subscriptions reconciled",
			logger.String("milestone_id", job.MilestoneID), logger.Int("subscriptions", n))
		return nil
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

// Services returns the background loops the supervisor must run.
func (s *Service) Services() ([]suture.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	return []suture.Service{s.pool, s.dispatcher, &announcer{s: s}}, nil
}

// announcer emits a status webhook once the dispatcher is listening.
type announcer struct {
	s *Service
}

func (a *announcer) Serve(ctx context.Context) error {
	select {
	case <-a.s.dispatcher.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}
	a.s.bus.Emit(ctx, model.WebhookEvent{
		Type: model.WebhookStatus,
		Content: model.StatusContent{
			ServerVersion: a.s.serverVersion,
			StartTime:     a.s.startTime,
			Status:        "started",
		},
	})
	return suture.ErrDoNotRestart
}

func (a *announcer) String() string { return "status-announcer" }

// Deps returns the handler dependencies backed by this service.
func (s *Service) Deps() (api.Deps, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return api.Deps{}, ErrNotStarted
	}
	return api.Deps{
		Store:          s.store,
		Charts:         s.store.Charts(),
		Targets:        s.targets,
		Importer:       s.importer,
		Parser:         s.registry,
		Jobs:           s.jobs,
		Stats:          s,
		ClassProviders: s.classProviders,
	}, nil
}

// Store exposes the document store for maintenance commands.
func (s *Service) Store() *repository.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// classProviders attaches the ARC dan lookup to IIDX imports that carry ARC credentials.
func (s *Service) classProviders(r *http.Request, importType string) []classes.Provider {
	if s.arc == nil {
		return nil
	}
	profile, token := r.Header.Get(HeaderARCProfile), r.Header.Get(HeaderARCToken)
	if profile == "" || token == "" {
		return nil
	}
	s.logger.Debug(r.Context(), "attaching ARC class provider", logger.String("import_type", importType))
	return []classes.Provider{s.arc.Provider(r.Context(), profile, token)}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":       s.started,
		"serverVersion": s.serverVersion,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"dedupeSize":    s.dedupeSize,
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	queueLen := s.jobs.Len()
	stats["queueLength"] = queueLen
	stats["uptimeSeconds"] = int64(time.Since(s.startTime).Seconds())
	stats["personalBests"] = s.store.Charts().Count()
	if n, err := s.store.CountScores(ctx); err == nil {
		stats["scores"] = n
	} else {
		s.logger.Warn(ctx, "count scores failed", logger.Error(err))
	}

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateChartIndexEntries(s.store.Charts().Count())
	return stats
}
