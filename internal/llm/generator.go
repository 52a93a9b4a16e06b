// Package llm abstracts the inference backends that turn prompts into
// generated text. Backends stream tokens through a callback and return the
// aggregated result.
package llm

import "context"

// Params captures generation parameters passed to a backend.
type Params struct {
	MaxTokens     int
	Temperature   float32
	TopP          float32
	TopK          int
	Stop          []string
	Seed          int
	RepeatPenalty float32
}

// FinalResult summarizes the generation after streaming.
type FinalResult struct {
	Content      string
	FinishReason string
}

// Generator is a model runtime. Implementations must return promptly when
// the context is canceled.
type Generator interface {
	// Name identifies the backend (server, ollama, cgo, mock).
	Name() string
	// Generate streams tokens for the given prompt. The onToken callback is
	// invoked for each fragment; a nil callback disables streaming.
	Generate(ctx context.Context, prompt string, params Params, onToken func(string) error) (FinalResult, error)
}

// unavailableError signals a missing runtime dependency (e.g., llama.cpp not
// built, server unreachable) so callers can map it to 503.
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return e.msg }

// ErrUnavailable constructs an unavailableError.
func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err indicates a missing/failed backend.
func IsUnavailable(err error) bool {
	_, ok := err.(unavailableError)
	return ok
}
