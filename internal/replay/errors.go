package replay

import "errors"

var (
	// ErrBadChartRef is returned for a malformed chart reference.
	ErrBadChartRef = errors.New("invalid chart reference")
	// ErrUnhealthy is returned when the tracker health check fails.
	ErrUnhealthy = errors.New("tracker is not healthy")
	// ErrStatus is returned for an unexpected HTTP status.
	ErrStatus = errors.New("unexpected status")
	// ErrMismatch is returned when verification finds disagreements.
	ErrMismatch = errors.New("personal bests do not match submitted scores")
	// ErrNoCharts is returned when a run has nothing to play.
	ErrNoCharts = errors.New("no charts configured")
)
