package resume

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"
)

const personLabel = "PERSON"

// Recognizer finds person names in text, in document order.
type Recognizer interface {
	Persons(ctx context.Context, text string) ([]string, error)
}

// BlankRecognizer never finds any entity.
type BlankRecognizer struct{}

func (BlankRecognizer) Persons(context.Context, string) ([]string, error) {
	return nil, nil
}

// modelLoader loads the named-entity model. Replaced in tests.
type modelLoader func() (*prose.Model, error)

func loadDefaultModel() (*prose.Model, error) {
	// prose has no exported accessor for its bundled model, so the first
	// document pays the load and exposes it for reuse.
	doc, err := prose.NewDocument("Jane Doe",
		prose.WithSegmentation(false),
	)
	if err != nil {
		return nil, err
	}
	if doc.Model == nil {
		return nil, fmt.Errorf("prose returned no model")
	}
	return doc.Model, nil
}

// ProseRecognizer tags PERSON entities with the prose averaged perceptron
// model. The model is loaded on first use and shared afterwards. When the
// model can not be loaded, the recognizer behaves like BlankRecognizer.
type ProseRecognizer struct {
	logger *zap.Logger
	load   modelLoader

	mu       sync.Mutex
	model    *prose.Model
	degraded bool
	loads    int
}

// NewProseRecognizer creates a recognizer that loads the bundled prose model lazily.
func NewProseRecognizer(logger *zap.Logger) *ProseRecognizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProseRecognizer{logger: logger, load: loadDefaultModel}
}

// EnsureInitialized loads the model once. It is safe for concurrent use and
// returns the load error of the first attempt, if any.
func (r *ProseRecognizer) EnsureInitialized() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.model != nil {
		return nil
	}
	if r.degraded {
		return fmt.Errorf("named entity model is unavailable")
	}

	r.loads++
	model, err := r.load()
	if err != nil {
		r.degraded = true
		r.logger.Warn("named entity model is unavailable, names will not be extracted", zap.Error(err))
		return fmt.Errorf("loading named entity model: %w", err)
	}

	r.model = model
	r.logger.Debug("named entity model loaded")
	return nil
}

// Persons tags every line on its own, so an entity never spans a line break
// and a name header is not merged with the title below it.
func (r *ProseRecognizer) Persons(ctx context.Context, text string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := r.EnsureInitialized(); err != nil {
		return nil, nil
	}

	var persons []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := prose.NewDocument(line,
			prose.UsingModel(r.model),
			prose.WithSegmentation(false),
		)
		if err != nil {
			r.logger.Debug("named entity recognition failed", zap.Error(err))
			continue
		}

		for _, ent := range doc.Entities() {
			if ent.Label == personLabel {
				persons = append(persons, ent.Text)
			}
		}
	}
	return persons, nil
}
