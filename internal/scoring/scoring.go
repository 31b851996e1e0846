package scoring

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/failure"
)

// StrategyID names a scoring strategy.
type StrategyID string

const (
	LocalEmbed StrategyID = "local_embed"
	OpenAI     StrategyID = "openai"
	Gemini     StrategyID = "gemini"
)

const (
	MinScore = 0.0
	MaxScore = 100.0
)

// ParseStrategyID converts a configured strategy name into a StrategyID.
func ParseStrategyID(name string) (StrategyID, error) {
	id := StrategyID(strings.ToLower(strings.TrimSpace(name)))
	switch id {
	case LocalEmbed, OpenAI, Gemini:
		return id, nil
	default:
		return "", failure.Configuration("parse strategy", fmt.Errorf("unsupported scoring strategy %q", name))
	}
}

// Result is the score of one resume against one job description.
type Result struct {
	Value    float64        `json:"value"`
	Strategy StrategyID     `json:"strategy"`
	Metadata map[string]any `json:"metadata"`
}

// Credential is a caller supplied secret for remote strategies. An empty
// credential falls back to the configured default.
type Credential struct {
	APIKey string
}

// Strategy is one interchangeable implementation of the scoring contract.
type Strategy interface {
	ID() StrategyID
	// Prepare checks that the strategy can score, loading models or
	// resolving credentials without scoring anything.
	Prepare(ctx context.Context, cred Credential) error
	Score(ctx context.Context, resumeText, jobText string, cred Credential) (*Result, error)
}

// Engine dispatches scoring requests to the enabled strategies.
type Engine struct {
	strategies map[StrategyID]Strategy
	logger     *zap.Logger
}

// NewEngine creates an engine with the enabled strategies. A later strategy
// with the same id replaces an earlier one.
func NewEngine(logger *zap.Logger, strategies ...Strategy) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{strategies: make(map[StrategyID]Strategy, len(strategies)), logger: logger}
	for _, s := range strategies {
		if s == nil {
			continue
		}
		e.strategies[s.ID()] = s
	}
	return e
}

// Strategy returns the enabled strategy with the id.
func (e *Engine) Strategy(id StrategyID) (Strategy, error) {
	s, ok := e.strategies[id]
	if !ok {
		return nil, failure.Configuration("select strategy", fmt.Errorf("scoring strategy %q is not enabled (enabled: %s)", id, strings.Join(e.enabledNames(), ", ")))
	}
	return s, nil
}

// Enabled lists the ids of the enabled strategies, sorted.
func (e *Engine) Enabled() []StrategyID {
	ids := make([]StrategyID, 0, len(e.strategies))
	for id := range e.strategies {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (e *Engine) enabledNames() []string {
	names := make([]string, 0, len(e.strategies))
	for _, id := range e.Enabled() {
		names = append(names, string(id))
	}
	return names
}

// Prepare makes the strategy ready to score, surfacing configuration errors
// before any document is processed.
func (e *Engine) Prepare(ctx context.Context, id StrategyID, cred Credential) error {
	s, err := e.Strategy(id)
	if err != nil {
		return err
	}
	return s.Prepare(ctx, cred)
}

// Score scores the resume text against the job text with the strategy.
func (e *Engine) Score(ctx context.Context, id StrategyID, resumeText, jobText string, cred Credential) (*Result, error) {
	s, err := e.Strategy(id)
	if err != nil {
		return nil, err
	}

	result, err := s.Score(ctx, resumeText, jobText, cred)
	if err != nil {
		return nil, err
	}

	result.Value = clamp(result.Value)
	return result, nil
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return MinScore
	}
	return math.Min(MaxScore, math.Max(MinScore, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
