package convert

import (
	"errors"
	"fmt"
)

// FailureKind classifies a per-entry conversion failure.
type FailureKind string

const (
	// KindSongOrChartNotFound means the catalog has no chart for the entry.
	KindSongOrChartNotFound FailureKind = "SongOrChartNotFound"
	// KindInvalidScore means the entry cannot be mapped onto the GPT's metrics.
	KindInvalidScore FailureKind = "InvalidScore"
	// KindSkip means the entry is deliberately ignored, e.g. a NO PLAY row.
	KindSkip FailureKind = "Skip"
	// KindInternal means the catalog is inconsistent.
	KindInternal FailureKind = "Internal"
)

// Failure is the error a converter returns for one entry.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

func notFound(format string, args ...any) *Failure {
	return &Failure{Kind: KindSongOrChartNotFound, Message: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) *Failure {
	return &Failure{Kind: KindInvalidScore, Message: fmt.Sprintf(format, args...)}
}

func skip(format string, args ...any) *Failure {
	return &Failure{Kind: KindSkip, Message: fmt.Sprintf(format, args...)}
}

func internal(format string, args ...any) *Failure {
	return &Failure{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: ErrInternal}
}

// AsFailure extracts a Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
