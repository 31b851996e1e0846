package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/pipeline"
)

type minimumYearsFilter struct {
	disabled bool
	reason   string
	minimum  int
}

// NewMinimumYears creates a filter that removes records with fewer estimated years of experience.
func NewMinimumYears() Filter {
	return &minimumYearsFilter{}
}

func (f *minimumYearsFilter) Name() string { return "minimum_years" }

func (f *minimumYearsFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *minimumYearsFilter) IsEnabled() bool { return !f.disabled }

func (f *minimumYearsFilter) Validate(cfg *Config) error {
	f.minimum = 0
	if cfg == nil {
		return nil
	}
	if cfg.MinimumYears < 0 {
		return fmt.Errorf("minimum years can not be negative: %d", cfg.MinimumYears)
	}
	f.minimum = cfg.MinimumYears
	return nil
}

func (f *minimumYearsFilter) Apply(_ context.Context, deps Deps, records []*pipeline.MatchRecord) ([]*pipeline.MatchRecord, Step, error) {
	initial := len(records)
	if f.minimum == 0 {
		return records, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	kept, dropped := keep(records, func(r *pipeline.MatchRecord) bool {
		return r.Resume != nil && r.Resume.YearsExperience >= f.minimum
	})

	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding candidates below minimum experience",
			zap.Int("minimum_years", f.minimum),
			zap.Strings("excluded_candidates", dropped),
			zap.Int("candidates_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *minimumYearsFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"minimum_years": strconv.Itoa(f.minimum)},
	}
}
