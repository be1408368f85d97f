package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/okian/rgtrack/internal/domain/gpt"
	"github.com/okian/rgtrack/pkg/metrics"
)

// HeaderUserID carries the authenticated user. An upstream auth proxy sets it.
const HeaderUserID = "X-User-ID"

type ctxKey int

const (
	ctxGPT ctxKey = iota
	ctxUser
)

// MetricsMiddleware records request count, latency and errors per route pattern.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			endpoint = rctx.RoutePattern()
		}
		status := strconv.Itoa(wrapped.statusCode)
		metrics.RecordHTTPRequest(endpoint, r.Method, status, float64(time.Since(start).Milliseconds()))
		if wrapped.statusCode >= http.StatusBadRequest {
			metrics.RecordErrorByEndpoint(endpoint, r.Method, getErrorType(wrapped.statusCode))
		}
	})
}

// getErrorType returns a standardized error type based on HTTP status code.
func getErrorType(statusCode int) string {
	switch {
	case statusCode >= http.StatusInternalServerError:
		return "server_error"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limit"
	case statusCode == http.StatusNotFound:
		return "not_found"
	case statusCode == http.StatusConflict:
		return "conflict"
	case statusCode >= http.StatusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (s *Server) corsMiddleware() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", HeaderUserID},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	})
}

// importRateLimit throttles imports per client IP and user.
func (s *Server) importRateLimit() func(http.Handler) http.Handler {
	if s.importPerMin < 1 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(s.importPerMin, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP, func(r *http.Request) (string, error) {
			return r.Header.Get(HeaderUserID), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, NewKind("import", ErrBackpressure, "too many imports, slow down"))
		}),
	)
}

// gptContext resolves {game}/{playtype} and rejects unknown pairs with 404.
func gptContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg, err := gpt.Get(chi.URLParam(r, "game"), chi.URLParam(r, "playtype"))
		if err != nil {
			writeError(w, r, Wrap("resolve gpt", err))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxGPT, cfg)))
	})
}

func gptFrom(ctx context.Context) *gpt.Config {
	cfg, _ := ctx.Value(ctxGPT).(*gpt.Config)
	return cfg
}

// userContext resolves the {userID} path parameter.
func userContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := intParam(r, "userID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUser, id)))
	})
}

func userFrom(ctx context.Context) int {
	id, _ := ctx.Value(ctxUser).(int)
	return id
}

// requester returns the user named by the X-User-ID header.
func requester(r *http.Request) (int, error) {
	raw := r.Header.Get(HeaderUserID)
	if raw == "" {
		return 0, NewKind("auth", ErrUnauthorized, "missing %s header", HeaderUserID)
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, NewKind("auth", ErrUnauthorized, "invalid %s header", HeaderUserID)
	}
	return id, nil
}

// requireSelf checks the requester is the {userID} in the path.
func requireSelf(r *http.Request) (int, error) {
	id, err := requester(r)
	if err != nil {
		return 0, err
	}
	if id != userFrom(r.Context()) {
		return 0, NewKind("auth", ErrForbidden, "cannot modify another user's targets")
	}
	return id, nil
}
