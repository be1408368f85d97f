package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/okian/rgtrack/internal/adapters/http/api"
	"github.com/okian/rgtrack/internal/adapters/http/swagger"
	app "github.com/okian/rgtrack/internal/app"
	"github.com/okian/rgtrack/internal/config"
	"github.com/okian/rgtrack/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 30 * time.Second
	writeTimeout           = 60 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Custom system metrics replace the default Go collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "rgtrack exited", logger.Error(err))
		os.Exit(1)
	}
}

// run starts the service and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := newService(cfg)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	sup, err := newSupervisor(svc, cfg)
	if err != nil {
		return err
	}

	log.Info(ctx, "rgtrack running", logger.String("addr", cfg.Addr), logger.String("version", cfg.ServerVersion))
	err = sup.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info(context.Background(), "rgtrack stopped")
	return nil
}

func newService(cfg *config.Config) *app.Service {
	return app.New(
		app.WithLogger(logger.Named("service")),
		app.WithDataDir(cfg.DataDir),
		app.WithCatalog(cfg.CatalogPath),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithImportConcurrency(cfg.ImportConcurrency),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithWebhooks(cfg.WebhookURLs, time.Duration(cfg.WebhookTimeoutMS)*time.Millisecond),
		app.WithWebhookRate(cfg.WebhookRatePerSec),
		app.WithARC(cfg.ARCAPIURL),
		app.WithServerVersion(cfg.ServerVersion),
	)
}

// newSupervisor builds the supervision tree around a started service.
func newSupervisor(svc *app.Service, cfg *config.Config) (*suture.Supervisor, error) {
	deps, err := svc.Deps()
	if err != nil {
		return nil, err
	}
	background, err := svc.Services()
	if err != nil {
		return nil, err
	}

	apiServer := api.NewServer(deps,
		api.WithCORSOrigins(cfg.CORSOrigins),
		api.WithImportRateLimit(cfg.RateLimitPerMin),
		api.WithMaxRecentLimit(cfg.MaxRecentLimit),
		api.WithMount(swagger.Register),
	)

	hook := (&sutureslog.Handler{Logger: logger.Slog()}).MustHook()
	root := suture.New("rgtrack", suture.Spec{
		EventHook: hook,
		Timeout:   shutdownTimeout,
	})
	root.Add(newHTTPService(&http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Router(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}))
	for _, s := range background {
		root.Add(s)
	}
	root.Add(&ticker{name: "system-metrics", every: systemMetricsInterval, tick: updateSystemMetrics})
	root.Add(&ticker{name: "service-metrics", every: serviceMetricsInterval, tick: func() { svc.GetStats() }})
	return root, nil
}
