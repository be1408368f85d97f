package api

import "github.com/go-chi/chi/v5"

// Option configures a Server.
type Option func(*Server)

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}

// WithImportRateLimit sets imports allowed per minute per client. Zero disables the limit.
func WithImportRateLimit(perMinute int) Option {
	return func(s *Server) {
		if perMinute >= 0 {
			s.importPerMin = perMinute
		}
	}
}

// WithMaxRecentLimit caps the limit accepted by feed and listing routes.
func WithMaxRecentLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxRecentLimit = n
		}
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithMount attaches extra routes, such as the API docs, to the root router.
func WithMount(fn func(chi.Router)) Option {
	return func(s *Server) {
		if fn != nil {
			s.mounts = append(s.mounts, fn)
		}
	}
}
