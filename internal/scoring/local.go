package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/ai/embedding"
	"github.com/spigell/resume-screener/internal/failure"
)

const maxCommonTokens = 10

var reToken = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Local scores by cosine similarity of sentence embeddings of both texts.
type Local struct {
	models *embedding.Provider
	logger *zap.Logger
}

// NewLocal creates the local embedding strategy over the shared provider.
func NewLocal(models *embedding.Provider, logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{models: models, logger: logger}
}

func (l *Local) ID() StrategyID { return LocalEmbed }

func (l *Local) Prepare(ctx context.Context, _ Credential) error {
	_, err := l.embedder(ctx)
	return err
}

func (l *Local) embedder(ctx context.Context) (embedding.Embedder, error) {
	e, err := l.models.EnsureInitialized(ctx)
	if err != nil {
		return nil, failure.Configuration("load embedding model", err)
	}
	return e, nil
}

func (l *Local) Score(ctx context.Context, resumeText, jobText string, _ Credential) (*Result, error) {
	e, err := l.embedder(ctx)
	if err != nil {
		return nil, err
	}

	a, err := embedOne(ctx, e, resumeText)
	if err != nil {
		return nil, failure.Provider("embed resume", err)
	}
	b, err := embedOne(ctx, e, jobText)
	if err != nil {
		return nil, failure.Provider("embed job description", err)
	}

	sim, err := cosine(a, b)
	if err != nil {
		return nil, failure.Provider("compare embeddings", err)
	}

	score := clamp(round2(sim * 100))
	common := commonTokens(resumeText, jobText, maxCommonTokens)

	l.logger.Debug("local similarity computed",
		zap.String("model", e.Model()),
		zap.Float64("similarity", sim),
		zap.Float64("score", score),
	)

	return &Result{
		Value:    score,
		Strategy: LocalEmbed,
		Metadata: map[string]any{
			"method":        string(LocalEmbed),
			"model":         e.Model(),
			"common_tokens": common,
		},
	}, nil
}

func embedOne(ctx context.Context, e embedding.Embedder, text string) ([]float64, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 vector, got %d", len(vectors))
	}
	return vectors[0], nil
}

// cosine returns the cosine similarity of two vectors, 0 when either is zero.
func cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimensions differ: %d != %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, errors.New("empty vectors")
	}

	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// commonTokens returns up to limit sorted word tokens present in both texts.
func commonTokens(a, b string, limit int) []string {
	left := make(map[string]struct{})
	for _, tok := range reToken.FindAllString(strings.ToLower(a), -1) {
		left[tok] = struct{}{}
	}

	seen := make(map[string]struct{})
	common := make([]string, 0)
	for _, tok := range reToken.FindAllString(strings.ToLower(b), -1) {
		if _, ok := left[tok]; !ok {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		common = append(common, tok)
	}

	slices.Sort(common)
	if len(common) > limit {
		common = common[:limit]
	}
	return common
}
