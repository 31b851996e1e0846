package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/failure"
	"github.com/spigell/resume-screener/internal/logger"
	"github.com/spigell/resume-screener/internal/resume"
	"github.com/spigell/resume-screener/internal/scoring"
	"github.com/spigell/resume-screener/internal/skills"
)

// JobDescription is the posting every resume is scored against.
type JobDescription struct {
	Text string `json:"text"`
}

// MatchRecord is the outcome of one resume processed against a job description.
type MatchRecord struct {
	Resume     *resume.ParsedResume `json:"parsed"`
	Skills     []skills.Skill       `json:"skills_normalized"`
	Score      *scoring.Result      `json:"score"`
	SourceName string               `json:"source_name"`
	// RecordID is the persisted row id, 0 when the record was not saved.
	RecordID int64 `json:"record_id,omitempty"`
}

// Saver persists parsed resumes.
type Saver interface {
	Save(ctx context.Context, runID, sourceName string, parsed *resume.ParsedResume) (int64, error)
}

// Deps aggregates the collaborators of the pipeline.
type Deps struct {
	Extractor  *resume.Extractor
	Normalizer *skills.Normalizer
	Engine     *scoring.Engine
	// Saver is optional, nothing is persisted when it is nil.
	Saver  Saver
	Logger *zap.Logger
}

// Pipeline runs extraction, normalization, persistence and scoring for one document.
type Pipeline struct {
	extractor  *resume.Extractor
	normalizer *skills.Normalizer
	engine     *scoring.Engine
	saver      Saver
	logger     *zap.Logger
}

func New(deps Deps) *Pipeline {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		extractor:  deps.Extractor,
		normalizer: deps.Normalizer,
		engine:     deps.Engine,
		saver:      deps.Saver,
		logger:     log,
	}
}

// Run processes one document. An extraction failure returns no record; a
// scoring failure returns a record with a zero score and the error in its
// metadata.
func (p *Pipeline) Run(ctx context.Context, runID string, doc resume.RawDocument, job JobDescription, id scoring.StrategyID, cred scoring.Credential) (*MatchRecord, error) {
	log := logger.WithFields(p.logger, logger.StringFields(
		logger.StringField{Key: logger.FieldSource, Value: doc.SourceName},
		logger.StringField{Key: logger.FieldRunID, Value: runID},
		logger.StringField{Key: logger.FieldStrategy, Value: string(id)},
	)...)

	parsed, err := p.extractor.Extract(ctx, doc.Text)
	if err != nil {
		log.Warn("extraction failed", zap.Error(err))
		return nil, err
	}

	record := &MatchRecord{
		Resume:     parsed,
		Skills:     p.normalizer.Normalize(skills.Tokens(parsed.Skills)),
		SourceName: doc.SourceName,
	}

	if p.saver != nil {
		rowID, err := p.saver.Save(ctx, runID, doc.SourceName, parsed)
		if err != nil {
			log.Warn("persisting parsed resume failed", zap.Error(failure.Persistence("save resume", err)))
		} else {
			record.RecordID = rowID
		}
	}

	result, err := p.engine.Score(ctx, id, parsed.FullText, job.Text, cred)
	if err != nil {
		log.Warn("scoring failed", zap.Error(err), zap.String("error_kind", failure.KindOf(err)))
		result = &scoring.Result{
			Value:    0,
			Strategy: id,
			Metadata: map[string]any{
				"error":      err.Error(),
				"error_kind": failure.KindOf(err),
				"method":     string(id),
			},
		}
	}
	record.Score = result

	log.Debug("document processed",
		zap.Float64("score", result.Value),
		zap.Int("skills", len(record.Skills)),
		zap.Int64("record_id", record.RecordID),
	)

	return record, nil
}
