package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/resume-screener/internal/ai/embedding"
	"github.com/spigell/resume-screener/internal/failure"
	"github.com/spigell/resume-screener/internal/resume"
	"github.com/spigell/resume-screener/internal/scoring"
	"github.com/spigell/resume-screener/internal/skills"
)

type stubStrategy struct {
	id    scoring.StrategyID
	value float64
	err   error
}

func (s stubStrategy) ID() scoring.StrategyID { return s.id }

func (s stubStrategy) Prepare(context.Context, scoring.Credential) error { return s.err }

func (s stubStrategy) Score(context.Context, string, string, scoring.Credential) (*scoring.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &scoring.Result{Value: s.value, Strategy: s.id, Metadata: map[string]any{"method": string(s.id)}}, nil
}

type memorySaver struct {
	mu    sync.Mutex
	err   error
	saved []string
	runs  []string
}

func (m *memorySaver) Save(_ context.Context, runID, sourceName string, _ *resume.ParsedResume) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.saved = append(m.saved, sourceName)
	m.runs = append(m.runs, runID)
	return int64(len(m.saved)), nil
}

func newPipeline(engine *scoring.Engine, saver Saver, log *zap.Logger) *Pipeline {
	return New(Deps{
		Extractor:  resume.NewExtractor(nil, resume.BlankRecognizer{}, log),
		Normalizer: skills.NewNormalizer(nil),
		Engine:     engine,
		Saver:      saver,
		Logger:     log,
	})
}

const goResume = "Senior Go developer. 6 years with Go, Docker and Kubernetes. Contact: dev@example.com"

func TestRunProducesRecord(t *testing.T) {
	engine := scoring.NewEngine(nil, stubStrategy{id: scoring.Gemini, value: 80})
	saver := &memorySaver{}
	p := newPipeline(engine, saver, nil)

	record, err := p.Run(context.Background(), "run-1", resume.RawDocument{SourceName: "a.txt", Text: goResume}, JobDescription{Text: "Go engineer"}, scoring.Gemini, scoring.Credential{})
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, "a.txt", record.SourceName)
	assert.Equal(t, int64(1), record.RecordID)
	assert.Equal(t, 80.0, record.Score.Value)
	assert.Equal(t, []string{"dev@example.com"}, record.Resume.Emails)
	assert.Equal(t, 6, record.Resume.YearsExperience)
	assert.True(t, skills.Contains(record.Skills, "docker"))
	assert.True(t, skills.Contains(record.Skills, "kubernetes"))
	assert.Equal(t, []string{"run-1"}, saver.runs)
}

func TestRunScoringFailureYieldsZeroScore(t *testing.T) {
	engine := scoring.NewEngine(nil, stubStrategy{id: scoring.OpenAI, err: failure.Timeout("complete", context.DeadlineExceeded)})
	p := newPipeline(engine, nil, nil)

	record, err := p.Run(context.Background(), "run", resume.RawDocument{SourceName: "a.txt", Text: goResume}, JobDescription{Text: "job"}, scoring.OpenAI, scoring.Credential{})
	require.NoError(t, err)

	assert.Equal(t, 0.0, record.Score.Value)
	assert.Equal(t, scoring.OpenAI, record.Score.Strategy)
	assert.Equal(t, "timeout", record.Score.Metadata["error_kind"])
	assert.Equal(t, "openai", record.Score.Metadata["method"])
	assert.Contains(t, record.Score.Metadata["error"], "timed out")
	assert.NotEmpty(t, record.Resume.Skills)
}

func TestRunConfigurationErrorIsRecorded(t *testing.T) {
	engine := scoring.NewEngine(nil, stubStrategy{id: scoring.Gemini, value: 50})
	p := newPipeline(engine, nil, nil)

	record, err := p.Run(context.Background(), "run", resume.RawDocument{SourceName: "a.txt", Text: goResume}, JobDescription{}, scoring.LocalEmbed, scoring.Credential{})
	require.NoError(t, err)
	assert.Equal(t, "configuration", record.Score.Metadata["error_kind"])
}

func TestRunExtractionFailureReturnsNoRecord(t *testing.T) {
	saver := &memorySaver{}
	p := newPipeline(scoring.NewEngine(nil, stubStrategy{id: scoring.Gemini}), saver, nil)

	record, err := p.Run(context.Background(), "run", resume.RawDocument{SourceName: "bad.txt", Text: "\xff\xfe"}, JobDescription{}, scoring.Gemini, scoring.Credential{})
	require.ErrorIs(t, err, failure.ErrExtraction)
	assert.Nil(t, record)
	assert.Empty(t, saver.saved)
}

func TestRunPersistenceFailureIsNotFatal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	saver := &memorySaver{err: errors.New("database is locked")}
	p := newPipeline(scoring.NewEngine(nil, stubStrategy{id: scoring.Gemini, value: 40}), saver, zap.New(core))

	record, err := p.Run(context.Background(), "run", resume.RawDocument{SourceName: "a.txt", Text: goResume}, JobDescription{}, scoring.Gemini, scoring.Credential{})
	require.NoError(t, err)

	assert.Equal(t, int64(0), record.RecordID)
	assert.Equal(t, 40.0, record.Score.Value)

	entries := logs.FilterMessage("persisting parsed resume failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].ContextMap()["source"])
}

func TestBatchPartialFailure(t *testing.T) {
	saver := &memorySaver{}
	p := newPipeline(scoring.NewEngine(nil, stubStrategy{id: scoring.Gemini, value: 70}), saver, nil)

	docs := []resume.RawDocument{
		{SourceName: "one.txt", Text: goResume},
		{SourceName: "broken.txt", Text: "Jane \xc3\x28 Doe"},
		{SourceName: "three.txt", Text: "Python developer with 2 years of Django"},
	}

	result := NewBatch(p, 2, nil).Run(context.Background(), docs, JobDescription{Text: "developer"}, scoring.Gemini, scoring.Credential{})

	require.Len(t, result.Records, 2)
	assert.Equal(t, "one.txt", result.Records[0].SourceName)
	assert.Equal(t, "three.txt", result.Records[1].SourceName)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "broken.txt", result.Failures[0].SourceName)
	assert.Equal(t, "extraction", result.Failures[0].Kind)

	assert.NotEmpty(t, result.RunID)
	for _, run := range saver.runs {
		assert.Equal(t, result.RunID, run)
	}
}

func TestBatchLocalStrategyIsDeterministic(t *testing.T) {
	local := scoring.NewLocal(embedding.NewProvider(embedding.HashingLoader(64), nil), nil)
	p := newPipeline(scoring.NewEngine(nil, local), nil, nil)

	docs := make([]resume.RawDocument, 8)
	for i := range docs {
		docs[i] = resume.RawDocument{SourceName: "same.txt", Text: goResume}
	}

	result := NewBatch(p, 4, nil).Run(context.Background(), docs, JobDescription{Text: "Go developer with Kubernetes"}, scoring.LocalEmbed, scoring.Credential{})
	require.Len(t, result.Records, len(docs))

	for _, r := range result.Records {
		assert.Equal(t, result.Records[0].Score.Value, r.Score.Value)
		assert.GreaterOrEqual(t, r.Score.Value, 0.0)
		assert.LessOrEqual(t, r.Score.Value, 100.0)
	}
}

func TestBatchCancelledContext(t *testing.T) {
	p := newPipeline(scoring.NewEngine(nil, stubStrategy{id: scoring.Gemini, value: 10}), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewBatch(p, 1, nil).Run(ctx, []resume.RawDocument{{SourceName: "a.txt", Text: goResume}}, JobDescription{}, scoring.Gemini, scoring.Credential{})
	assert.Empty(t, result.Records)
	require.Len(t, result.Failures, 1)
	assert.ErrorIs(t, result.Failures[0].Err, context.Canceled)
}

func TestSortByScore(t *testing.T) {
	records := []*MatchRecord{
		{SourceName: "b.txt", Score: &scoring.Result{Value: 50}},
		{SourceName: "c.txt", Score: &scoring.Result{Value: 90}},
		{SourceName: "a.txt", Score: &scoring.Result{Value: 50}},
		{SourceName: "d.txt"},
	}

	SortByScore(records)

	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.SourceName)
	}
	assert.Equal(t, []string{"c.txt", "a.txt", "b.txt", "d.txt"}, names)
}
