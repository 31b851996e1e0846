package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Embedder converts texts into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Model() string
}

// Loader builds an Embedder, verifying the model is usable.
type Loader func(ctx context.Context) (Embedder, error)

// Provider holds the process-wide embedder. The embedder is loaded on the
// first EnsureInitialized call and shared afterwards; concurrent first calls
// load it only once. A failed load is not cached.
type Provider struct {
	load   Loader
	logger *zap.Logger

	mu       sync.Mutex
	embedder Embedder
}

// NewProvider creates a provider around the loader.
func NewProvider(load Loader, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{load: load, logger: logger}
}

// EnsureInitialized returns the shared embedder, loading it if needed.
func (p *Provider) EnsureInitialized(ctx context.Context) (Embedder, error) {
	if p == nil || p.load == nil {
		return nil, errors.New("embedding provider is not configured")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.embedder != nil {
		return p.embedder, nil
	}

	embedder, err := p.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading embedding model: %w", err)
	}

	p.embedder = embedder
	p.logger.Info("embedding model loaded", zap.String("model", embedder.Model()))
	return embedder, nil
}
