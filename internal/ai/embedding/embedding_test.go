package embedding

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
)

func TestProviderLoadsOnceUnderConcurrency(t *testing.T) {
	var loads atomic.Int32
	p := NewProvider(func(context.Context) (Embedder, error) {
		loads.Add(1)
		return NewHashingEmbedder(16), nil
	}, nil)

	var wg sync.WaitGroup
	results := make([]Embedder, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := p.EnsureInitialized(context.Background())
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results[i] = e
		}(i)
	}
	wg.Wait()

	if loads.Load() != 1 {
		t.Fatalf("expected a single load, got %d", loads.Load())
	}
	for i := range results {
		if results[i] != results[0] {
			t.Fatalf("expected the same embedder instance for every caller")
		}
	}
}

func TestProviderDoesNotCacheFailure(t *testing.T) {
	attempts := 0
	p := NewProvider(func(context.Context) (Embedder, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("model not found")
		}
		return NewHashingEmbedder(8), nil
	}, nil)

	if _, err := p.EnsureInitialized(context.Background()); err == nil {
		t.Fatal("expected first load to fail")
	}
	if _, err := p.EnsureInitialized(context.Background()); err != nil {
		t.Fatalf("expected second load to succeed, got %v", err)
	}
}

func TestProviderNotConfigured(t *testing.T) {
	var p *Provider
	if _, err := p.EnsureInitialized(context.Background()); err == nil {
		t.Fatal("expected error for nil provider")
	}
}

func TestHashingEmbedderIsDeterministicAndNormalized(t *testing.T) {
	h := NewHashingEmbedder(0)
	if h.Model() != "hashing-384" {
		t.Fatalf("unexpected model name %q", h.Model())
	}

	first, err := h.Embed(context.Background(), []string{"Go developer with Kubernetes", ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := h.Embed(context.Background(), []string{"Go developer with Kubernetes"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var norm float64
	for i, v := range first[0] {
		if v != second[0][i] {
			t.Fatalf("expected identical vectors at %d", i)
		}
		norm += v * v
	}
	if math.Abs(norm-1) > 1e-9 {
		t.Fatalf("expected unit vector, got squared norm %v", norm)
	}

	for _, v := range first[1] {
		if v != 0 {
			t.Fatalf("expected zero vector for empty text")
		}
	}
}

type fakeEmbeddings struct {
	resp goopenai.EmbeddingResponse
	err  error
	last goopenai.EmbeddingRequest
}

func (f *fakeEmbeddings) CreateEmbeddings(_ context.Context, conv goopenai.EmbeddingRequestConverter) (goopenai.EmbeddingResponse, error) {
	f.last = conv.Convert()
	return f.resp, f.err
}

func TestRemoteEmbedderOrdersByIndex(t *testing.T) {
	fake := &fakeEmbeddings{resp: goopenai.EmbeddingResponse{Data: []goopenai.Embedding{
		{Index: 1, Embedding: []float32{0, 1}},
		{Index: 0, Embedding: []float32{1, 0}},
	}}}
	e := &RemoteEmbedder{client: fake, model: "all-minilm"}

	vectors, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if vectors[0][0] != 1 || vectors[1][1] != 1 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
	if fake.last.Model != goopenai.EmbeddingModel("all-minilm") {
		t.Fatalf("unexpected model %q", fake.last.Model)
	}
}

func TestRemoteEmbedderErrors(t *testing.T) {
	e := &RemoteEmbedder{client: &fakeEmbeddings{err: errors.New("connection refused")}, model: "m"}
	if _, err := e.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error from endpoint")
	}

	e = &RemoteEmbedder{client: &fakeEmbeddings{}, model: "m"}
	if _, err := e.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error for count mismatch")
	}

	if _, err := e.Embed(context.Background(), nil); err == nil {
		t.Fatal("expected error for no texts")
	}
}
