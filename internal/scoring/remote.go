package scoring

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/ai"
	"github.com/spigell/resume-screener/internal/failure"
	"github.com/spigell/resume-screener/internal/logger"
	"github.com/spigell/resume-screener/internal/secrets"
)

//go:embed prompt.md
var promptTemplate string

const (
	DefaultTimeout         = 60 * time.Second
	DefaultMaxOutputTokens = 300
	defaultMaxLogLength    = 200
)

var reNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)

// RemoteConfig configures a generative scoring provider.
type RemoteConfig struct {
	ID              StrategyID
	Model           string
	MaxOutputTokens int
	Timeout         time.Duration
	MaxLogLength    int

	// APIKey and APIKeyFile are the configured default credential, EnvVar the
	// environment variable consulted when neither is set.
	APIKey     string
	APIKeyFile string
	EnvVar     string
}

// Remote asks a generative text model to rate the candidate fit.
type Remote struct {
	cfg     RemoteConfig
	factory ai.CompleterFactory
	logger  *zap.Logger

	mu      sync.Mutex
	clients map[string]ai.Completer
}

// NewRemote creates a remote strategy whose completers are built by factory.
func NewRemote(cfg RemoteConfig, factory ai.CompleterFactory, log *zap.Logger) *Remote {
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxLogLength <= 0 {
		cfg.MaxLogLength = defaultMaxLogLength
	}

	return &Remote{
		cfg:     cfg,
		factory: factory,
		logger:  logger.WithCommonFields(log, string(cfg.ID), cfg.Model),
		clients: make(map[string]ai.Completer),
	}
}

func (r *Remote) ID() StrategyID { return r.cfg.ID }

func (r *Remote) Prepare(ctx context.Context, cred Credential) error {
	_, err := r.completer(ctx, cred)
	return err
}

func (r *Remote) apiKey(cred Credential) (string, error) {
	if key := strings.TrimSpace(cred.APIKey); key != "" {
		return key, nil
	}

	key, err := secrets.Load(secrets.Source{
		Name:  string(r.cfg.ID) + " api key",
		Value: r.cfg.APIKey,
		File:  r.cfg.APIKeyFile,
		Env:   r.cfg.EnvVar,
	})
	if err != nil {
		return "", failure.Configuration("resolve credential", err)
	}
	return key, nil
}

// completer returns the completer for the resolved credential, building it
// on first use.
func (r *Remote) completer(ctx context.Context, cred Credential) (ai.Completer, error) {
	key, err := r.apiKey(cred)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[key]; ok {
		return c, nil
	}

	if r.factory == nil {
		return nil, failure.Configuration("build client", errors.New("no client factory configured"))
	}

	c, err := r.factory(ctx, key)
	if err != nil {
		return nil, failure.Configuration("build client", err)
	}

	r.clients[key] = c
	return c, nil
}

func (r *Remote) Score(ctx context.Context, resumeText, jobText string, cred Credential) (*Result, error) {
	c, err := r.completer(ctx, cred)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(resumeText, jobText)

	r.logger.Debug("completion request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, r.cfg.MaxLogLength)),
	)

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	raw, err := c.Complete(callCtx, ai.Request{
		Prompt:          prompt,
		Model:           r.cfg.Model,
		MaxOutputTokens: r.cfg.MaxOutputTokens,
		Temperature:     0,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, failure.Timeout("complete", err)
		}
		return nil, failure.Provider("complete", err)
	}

	raw = strings.TrimSpace(raw)
	score := ParseScore(raw)

	r.logger.Debug("completion response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, r.cfg.MaxLogLength)),
		zap.Float64("score", score),
	)

	return &Result{
		Value:    score,
		Strategy: r.cfg.ID,
		Metadata: map[string]any{
			"method":     string(r.cfg.ID),
			"model":      r.cfg.Model,
			"raw_output": raw,
		},
	}, nil
}

// BuildPrompt fills the rating prompt with the resume and job texts verbatim.
func BuildPrompt(resumeText, jobText string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Resume:\n{{RESUME}}\n\nJob Description:\n{{JOB}}\n\nScore:"
	}
	return strings.NewReplacer("{{RESUME}}", resumeText, "{{JOB}}", jobText).Replace(template)
}

// ParseScore reads the first number in a model answer. Numbers up to 10 are
// taken as a 1-10 rating and scaled by 10; larger numbers are taken as already
// being on the 0-100 scale. No number yields 0.
func ParseScore(raw string) float64 {
	m := reNumber.FindString(raw)
	if m == "" {
		return 0
	}

	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}

	if v <= 10 {
		v *= 10
	}
	return clamp(round2(v))
}
