package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/pipeline"
	"github.com/spigell/resume-screener/internal/skills"
)

type requiredSkillsFilter struct {
	disabled bool
	reason   string
	raw      []string
	required []string
}

// NewRequiredSkills creates a filter that keeps only candidates having every required skill.
// Required skills are normalized the same way as the candidate skills, so "Node.js" matches "node".
func NewRequiredSkills() Filter {
	return &requiredSkillsFilter{}
}

func (f *requiredSkillsFilter) Name() string { return "required_skills" }

func (f *requiredSkillsFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *requiredSkillsFilter) IsEnabled() bool { return !f.disabled }

func (f *requiredSkillsFilter) Validate(cfg *Config) error {
	f.raw = nil
	f.required = nil
	if cfg != nil {
		f.raw = append(f.raw, cfg.RequiredSkills...)
	}
	return nil
}

func (f *requiredSkillsFilter) Apply(_ context.Context, deps Deps, records []*pipeline.MatchRecord) ([]*pipeline.MatchRecord, Step, error) {
	initial := len(records)
	if len(f.raw) == 0 {
		return records, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	normalizer := deps.Normalizer
	if normalizer == nil {
		normalizer = skills.NewNormalizer(nil)
	}
	f.required = skills.Canonicals(normalizer.Normalize(skills.Tokens(f.raw)))

	kept, dropped := keep(records, func(r *pipeline.MatchRecord) bool {
		for _, want := range f.required {
			if !skills.Contains(r.Skills, want) {
				return false
			}
		}
		return true
	})

	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding candidates missing required skills",
			zap.Strings("required_skills", f.required),
			zap.Strings("excluded_candidates", dropped),
			zap.Int("candidates_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *requiredSkillsFilter) Status() Status {
	details := map[string]string{}
	if len(f.raw) > 0 {
		details["required_skills"] = strings.Join(f.raw, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
