// Package generation provides text generation providers and an ordered
// fallback chain over them.
package generation

import (
	"context"
	"errors"
)

// ErrGeneration indicates a failure while producing a completion.
var ErrGeneration = errors.New("generation error")

// Request carries a generation prompt and optional grounding context.
type Request struct {
	// Prompt is the user's question or instruction.
	Prompt string

	// System is an optional system instruction.
	System string

	// Context holds retrieved passages the model should ground its
	// answer in. Providers fold these into the prompt.
	Context []string
}

// Generator produces text completions.
type Generator interface {
	// Generate produces a completion for the given request.
	Generate(ctx context.Context, req Request) (string, error)

	// Name identifies the provider for logging and error reporting.
	Name() string

	// Close releases any resources held by the generator.
	Close() error
}
