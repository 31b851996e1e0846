package ai

import (
	"context"
)

// Request is a single one-shot completion request.
type Request struct {
	Prompt          string
	Model           string
	MaxOutputTokens int
	Temperature     float32
}

// Completer sends a prompt to a generative text model and returns its answer.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFactory builds a Completer authenticated with the API key.
type CompleterFactory func(ctx context.Context, apiKey string) (Completer, error)
