package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/ai/embedding"
	"github.com/spigell/resume-screener/internal/ai/gemini"
	"github.com/spigell/resume-screener/internal/ai/openai"
	"github.com/spigell/resume-screener/internal/resume"
	"github.com/spigell/resume-screener/internal/scoring"
	"github.com/spigell/resume-screener/internal/secrets"
	"github.com/spigell/resume-screener/internal/taxonomy"
)

const (
	backendOpenAI  = "openai"
	backendHashing = "hashing"
)

func loadTaxonomy(config *Config) (*taxonomy.Taxonomy, error) {
	path := strings.TrimSpace(config.TaxonomyFile)
	if path == "" {
		return taxonomy.Default(), nil
	}
	return taxonomy.Load(path)
}

func newExtractor(tax *taxonomy.Taxonomy, config *Config, logger *zap.Logger) *resume.Extractor {
	var recognizer resume.Recognizer = resume.BlankRecognizer{}
	if config.NER.Enabled {
		recognizer = resume.NewProseRecognizer(logger)
	}
	return resume.NewExtractor(tax, recognizer, logger)
}

// newEngine registers every configured strategy. A strategy is never
// replaced silently by another one when its backend is unavailable.
func newEngine(config *Config, logger *zap.Logger) (*scoring.Engine, error) {
	local, err := newLocalStrategy(config.Scoring.Local, logger)
	if err != nil {
		return nil, err
	}

	strategies := []scoring.Strategy{local}

	if cfg := config.Scoring.OpenAI; cfg.Enabled {
		model := cfg.Model
		if model == "" {
			model = openai.DefaultModel
		}
		strategies = append(strategies, scoring.NewRemote(scoring.RemoteConfig{
			ID:              scoring.OpenAI,
			Model:           model,
			MaxOutputTokens: cfg.MaxOutputTokens,
			Timeout:         config.Scoring.Timeout,
			MaxLogLength:    config.Scoring.MaxLogLength,
			APIKey:          cfg.APIKey,
			APIKeyFile:      cfg.APIKeyFile,
			EnvVar:          "OPENAI_API_KEY",
		}, openai.Factory(cfg.BaseURL), logger))
	}

	if cfg := config.Scoring.Gemini; cfg.Enabled {
		model := cfg.Model
		if model == "" {
			model = gemini.DefaultModel
		}
		strategies = append(strategies, scoring.NewRemote(scoring.RemoteConfig{
			ID:              scoring.Gemini,
			Model:           model,
			MaxOutputTokens: cfg.MaxOutputTokens,
			Timeout:         config.Scoring.Timeout,
			MaxLogLength:    config.Scoring.MaxLogLength,
			APIKey:          cfg.APIKey,
			APIKeyFile:      cfg.APIKeyFile,
			EnvVar:          "GEMINI_API_KEY",
		}, gemini.Factory, logger))
	}

	return scoring.NewEngine(logger, strategies...), nil
}

func newLocalStrategy(cfg *LocalConfig, logger *zap.Logger) (*scoring.Local, error) {
	var loader embedding.Loader

	switch backend := strings.ToLower(strings.TrimSpace(cfg.Backend)); backend {
	case "", backendOpenAI:
		apiKey := ""
		if strings.TrimSpace(cfg.APIKeyFile) != "" {
			key, err := secrets.Load(secrets.Source{Name: "embeddings api key", File: cfg.APIKeyFile})
			if err != nil {
				return nil, err
			}
			apiKey = key
		}
		loader = embedding.RemoteLoader(embedding.RemoteConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  apiKey,
			Model:   cfg.Model,
		})
	case backendHashing:
		loader = embedding.HashingLoader(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unsupported embedding backend: %s", cfg.Backend)
	}

	return scoring.NewLocal(embedding.NewProvider(loader, logger), logger), nil
}

// prepare surfaces configuration errors of the selected strategy before any
// document is processed.
func prepare(ctx context.Context, engine *scoring.Engine, id scoring.StrategyID, cred scoring.Credential) error {
	if err := engine.Prepare(ctx, id, cred); err != nil {
		return fmt.Errorf("preparing %s strategy: %w", id, err)
	}
	return nil
}
