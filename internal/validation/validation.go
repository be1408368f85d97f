// Package validation validates request structs with go-playground/validator. Besides
// the built-in tags it knows "game" (a registered game) and "importtype" (a name like
// "api/kai-iidx").
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/okian/rgtrack/internal/domain/gpt"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one failed rule.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
}

func (f FieldError) message() string {
	switch f.Tag {
	case "required":
		return f.Field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", f.Field, f.Param)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", f.Field, f.Param)
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", f.Field, f.Param)
	case "game":
		return f.Field + " is not a supported game"
	case "importtype":
		return f.Field + " is not a valid import type"
	}
	return fmt.Sprintf("%s failed %s", f.Field, f.Tag)
}

// Error lists every failed rule of a struct.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.message()
	}
	return strings.Join(msgs, "; ")
}

// Get returns the shared validator.
func Get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("game", func(fl validator.FieldLevel) bool {
			return slices.Contains(gpt.Games(), fl.Field().String())
		})
		_ = validate.RegisterValidation("importtype", func(fl validator.FieldLevel) bool {
			kind, name, ok := strings.Cut(fl.Field().String(), "/")
			return ok && name != "" && (kind == "api" || kind == "file" || kind == "ir")
		})
	})
	return validate
}

// Struct validates s. It returns nil or an *Error.
func Struct(s any) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{Fields: make([]FieldError, len(verrs))}
	for i, fe := range verrs {
		out.Fields[i] = FieldError{Field: fieldPath(fe.Namespace()), Tag: fe.Tag(), Param: fe.Param()}
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
