package pipeline

import (
	"context"
	"runtime"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-screener/internal/failure"
	"github.com/spigell/resume-screener/internal/resume"
	"github.com/spigell/resume-screener/internal/scoring"
)

// Failure is a document the batch could not turn into a record.
type Failure struct {
	SourceName string
	Kind       string
	Err        error
}

// BatchResult holds the records of a batch in input order and the documents that failed.
type BatchResult struct {
	RunID    string
	Records  []*MatchRecord
	Failures []Failure
}

// Batch runs the pipeline over many documents with bounded concurrency.
type Batch struct {
	pipeline *Pipeline
	workers  int
	logger   *zap.Logger
}

// NewBatch creates a batch runner. Workers below 1 default to the number of CPUs.
func NewBatch(p *Pipeline, workers int, logger *zap.Logger) *Batch {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batch{pipeline: p, workers: workers, logger: logger}
}

// Run processes every document. A failing document never aborts the batch.
func (b *Batch) Run(ctx context.Context, docs []resume.RawDocument, job JobDescription, id scoring.StrategyID, cred scoring.Credential) *BatchResult {
	runID := uuid.NewString()
	log := b.logger.With(zap.String("run_id", runID))

	log.Info("starting batch",
		zap.Int("documents", len(docs)),
		zap.Int("workers", b.workers),
		zap.String("scoring_strategy", string(id)),
	)

	records := make([]*MatchRecord, len(docs))
	errs := make([]error, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			records[i], errs[i] = b.pipeline.Run(gctx, runID, doc, job, id, cred)
			return nil
		})
	}

	// workers never return errors, failures are collected per document
	_ = g.Wait()

	result := &BatchResult{RunID: runID, Records: make([]*MatchRecord, 0, len(docs))}
	for i, doc := range docs {
		if errs[i] != nil {
			result.Failures = append(result.Failures, Failure{
				SourceName: doc.SourceName,
				Kind:       failure.KindOf(errs[i]),
				Err:        errs[i],
			})
			continue
		}
		if records[i] != nil {
			result.Records = append(result.Records, records[i])
		}
	}

	log.Info("batch finished",
		zap.Int("records", len(result.Records)),
		zap.Int("failures", len(result.Failures)),
	)

	return result
}

// SortByScore orders records by descending score, then by source name.
func SortByScore(records []*MatchRecord) {
	slices.SortStableFunc(records, func(a, b *MatchRecord) int {
		sa, sb := scoreOf(a), scoreOf(b)
		switch {
		case sa > sb:
			return -1
		case sa < sb:
			return 1
		default:
			return strings.Compare(a.SourceName, b.SourceName)
		}
	})
}

func scoreOf(r *MatchRecord) float64 {
	if r == nil || r.Score == nil {
		return 0
	}
	return r.Score.Value
}
