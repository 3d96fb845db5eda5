// Package fallback runs an operation against an ordered chain of providers,
// returning the first success and aggregating errors when every provider
// fails.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// AllFailedError reports that every provider in a chain failed.
type AllFailedError struct {
	Op     string
	Causes []error
}

func (e *AllFailedError) Error() string {
	msgs := make([]string, len(e.Causes))
	for i, c := range e.Causes {
		msgs[i] = c.Error()
	}
	return fmt.Sprintf("%s: all providers failed: %s", e.Op, strings.Join(msgs, "; "))
}

// Unwrap exposes the per-provider causes to errors.Is and errors.As.
func (e *AllFailedError) Unwrap() []error {
	return e.Causes
}

// Invoke calls each provider in order until one succeeds. A provider error
// is logged and the next provider is tried. Context cancellation stops the
// chain immediately.
func Invoke[P any, R any](
	ctx context.Context,
	op string,
	providers []P,
	name func(P) string,
	call func(context.Context, P) (R, error),
	logger *slog.Logger,
) (R, error) {
	var zero R

	if len(providers) == 0 {
		return zero, &AllFailedError{Op: op, Causes: []error{errors.New("no providers configured")}}
	}

	causes := make([]error, 0, len(providers))
	for _, p := range providers {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := call(ctx, p)
		if err == nil {
			return result, nil
		}

		logger.Warn("provider failed, trying next",
			"op", op,
			"provider", name(p),
			"error", err,
		)
		causes = append(causes, fmt.Errorf("%s: %w", name(p), err))
	}

	return zero, &AllFailedError{Op: op, Causes: causes}
}
