package llm

import (
	"context"
	"fmt"
)

// Options control a single completion call.
type Options struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// CompletionClient is the boundary to the text-generation service. The
// dispatcher never inspects prompt content; it is opaque payload.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
	Probe(ctx context.Context, model string) error
}

// ModelError reports that the completion service failed to serve a model.
// The executor treats it as the trigger for primary/secondary fallback;
// every other error type is final for the task.
type ModelError struct {
	Model string
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s: %v", e.Model, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }
