package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/okian/rgtrack/pkg/logger"
	"github.com/okian/rgtrack/pkg/metrics"
)

const nanosecondsPerMillisecond = 1e6

// httpService runs an http.Server under the supervisor.
type httpService struct {
	server *http.Server
	log    logger.Logger
}

func newHTTPService(srv *http.Server) *httpService {
	return &httpService{server: srv, log: logger.Named("http")}
}

func (h *httpService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		h.log.Info(ctx, "starting HTTP server", logger.String("addr", h.server.Addr))
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		h.log.Info(shutdownCtx, "shutting down HTTP server...")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		return ctx.Err()
	}
}

func (h *httpService) String() string { return "http-server" }

// ticker calls tick every interval until cancelled.
type ticker struct {
	name  string
	every time.Duration
	tick  func()
}

func (t *ticker) Serve(ctx context.Context) error {
	tk := time.NewTicker(t.every)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tk.C:
			t.tick()
		}
	}
}

func (t *ticker) String() string { return t.name }

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
