package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/rgtrack/internal/adapters/mq/queue"
	"github.com/okian/rgtrack/internal/adapters/repository"
	"github.com/okian/rgtrack/internal/domain/classes"
	"github.com/okian/rgtrack/internal/domain/convert"
	"github.com/okian/rgtrack/internal/domain/gpt"
	"github.com/okian/rgtrack/internal/domain/scoreimport"
	"github.com/okian/rgtrack/internal/domain/targets"
	"github.com/okian/rgtrack/internal/validation"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrBackpressure = errors.New("backpressure")
	ErrInternal     = errors.New("internal error")
)

// Error is a handler failure tagged with the kind that picks its status code.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Op != "":
		return e.Op + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrap classifies err by the domain sentinel it carries.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Op: op, Kind: kindOf(err), Err: err}
}

// WrapKind tags err with an explicit kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewKind builds an error of kind with a formatted message.
func NewKind(op string, kind error, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

func kindOf(err error) error {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		return ErrBadRequest
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, gpt.ErrUnknownGPT),
		errors.Is(err, gpt.ErrUnknownGame):
		return ErrNotFound
	case errors.Is(err, repository.ErrAlreadyExists),
		errors.Is(err, targets.ErrAlreadySubscribed),
		errors.Is(err, targets.ErrAlreadyAchieved),
		errors.Is(err, targets.ErrGoalInMilestone):
		return ErrConflict
	case errors.Is(err, targets.ErrNotSubscribed):
		return ErrNotFound
	case errors.Is(err, targets.ErrInvalidGoal),
		errors.Is(err, targets.ErrInvalidMilestone),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, convert.ErrUnknownImportType),
		errors.Is(err, convert.ErrParse),
		errors.Is(err, classes.ErrUnknownClassSet),
		errors.Is(err, classes.ErrInvalidClassValue),
		errors.Is(err, scoreimport.ErrNoPayloads),
		errors.Is(err, scoreimport.ErrInvalidUser):
		return ErrBadRequest
	case errors.Is(err, queue.ErrFull):
		return ErrBackpressure
	}
	return ErrInternal
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}
