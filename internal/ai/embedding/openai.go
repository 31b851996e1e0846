package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
)

const (
	DefaultModel   = "all-minilm"
	DefaultBaseURL = "http://localhost:11434/v1"
)

type embeddingsCreator interface {
	CreateEmbeddings(ctx context.Context, conv goopenai.EmbeddingRequestConverter) (goopenai.EmbeddingResponse, error)
}

// RemoteConfig configures an OpenAI compatible embeddings endpoint.
type RemoteConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// RemoteEmbedder embeds texts through an OpenAI compatible /embeddings
// endpoint, typically a local server hosting a sentence-transformers model.
type RemoteEmbedder struct {
	client embeddingsCreator
	model  string
}

// NewRemoteEmbedder creates an embedder for the endpoint without contacting it.
func NewRemoteEmbedder(cfg RemoteConfig) *RemoteEmbedder {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	clientCfg := goopenai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	clientCfg.BaseURL = baseURL

	return &RemoteEmbedder{client: goopenai.NewClientWithConfig(clientCfg), model: model}
}

// RemoteLoader returns a Loader that embeds a warm-up text once so that a
// missing model is reported at load time rather than on the first resume.
func RemoteLoader(cfg RemoteConfig) Loader {
	return func(ctx context.Context) (Embedder, error) {
		e := NewRemoteEmbedder(cfg)
		if _, err := e.Embed(ctx, []string{"warm-up"}); err != nil {
			return nil, fmt.Errorf("checking embedding model %q: %w", e.model, err)
		}
		return e, nil
	}
}

func (e *RemoteEmbedder) Model() string {
	return e.model
}

func (e *RemoteEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts to embed")
	}

	resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count (%d) does not match text count (%d)", len(resp.Data), len(texts))
	}

	vectors := make([][]float64, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		vec := make([]float64, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float64(v)
		}
		vectors[item.Index] = vec
	}

	return vectors, nil
}
