// Package engine is the request/response boundary of the analysis core.
// Every operation validates its request completely before any compute loop
// starts, holds no state between calls, and returns plain data.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/san-kum/phaselab/internal/config"
	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/metrics"
	"github.com/san-kum/phaselab/internal/systems"
)

type Engine struct {
	registry *systems.Registry
	defaults config.Defaults
	log      *slog.Logger
	validate *validator.Validate
}

// New builds an engine. A nil logger discards output.
func New(registry *systems.Registry, defaults config.Defaults, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Engine{registry: registry, defaults: defaults, log: log, validate: v}
}

func (e *Engine) Registry() *systems.Registry { return e.registry }

// Systems lists every model in kind order.
func (e *Engine) Systems() []*systems.Model {
	kinds := e.registry.List()
	out := make([]*systems.Model, 0, len(kinds))
	for _, k := range kinds {
		m, _ := e.registry.Get(k)
		out = append(out, m)
	}
	return out
}

// check runs struct validation and reports the first failing field as a
// dynamo.ValidationError.
func (e *Engine) check(req any) error {
	err := e.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		fe := fields[0]
		reason := "failed " + fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return &dynamo.ValidationError{Field: fe.Field(), Reason: reason}
	}
	return &dynamo.ValidationError{Reason: err.Error()}
}

// ErrorClass buckets an engine error for metrics and transport status.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, dynamo.ErrValidation):
		return "validation"
	case errors.Is(err, dynamo.ErrCanceled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

// observe records duration and failures of one operation. It is deferred
// with a pointer to the named error result.
func (e *Engine) observe(op string, start time.Time, errp *error, attrs ...any) {
	elapsed := time.Since(start)
	metrics.ComputeDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	args := append([]any{"op", op, "elapsed", elapsed}, attrs...)
	if err := *errp; err != nil {
		class := ErrorClass(err)
		metrics.ComputeErrors.WithLabelValues(op, class).Inc()
		args = append(args, "class", class, "error", err)
	}
	e.log.Debug("compute", args...)
}

// resolve turns the system fields of a request into a system, defaulting
// the kind to fallback.
func (e *Engine) resolve(in SystemInput, fallback systems.Kind) (*systems.System, error) {
	return e.registry.Resolve(in.Spec(fallback))
}

func requireFamily(sys *systems.System, op string, families ...systems.Family) error {
	for _, f := range families {
		if sys.Model.Family == f {
			return nil
		}
	}
	return dynamo.Invalid("system_type", "%s is not available for %s systems", op, sys.Model.Family)
}

func errDim(op string, sys *systems.System, want string) error {
	return &dynamo.ValidationError{
		Field:   "map_type",
		Reason:  fmt.Sprintf("%s needs a %s map, %s has dimension %d", op, want, sys.Kind(), sys.Dim()),
		Wrapped: dynamo.ErrDimensionMismatch,
	}
}
