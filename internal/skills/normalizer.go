package skills

import (
	"regexp"
	"strings"

	"github.com/spigell/resume-screener/internal/taxonomy"
)

var reDelimiters = regexp.MustCompile(`[,;|\n]+`)

// Skill is a normalized skill entry.
type Skill struct {
	Original  string            `json:"original"`
	Canonical string            `json:"skill"`
	Category  taxonomy.Category `json:"category"`
}

// Input is the accepted input of Normalize: either Delimited or Tokens.
type Input interface {
	tokens() []string
}

// Delimited is a single string of skills separated by commas, semicolons,
// pipes or newlines.
type Delimited string

func (d Delimited) tokens() []string {
	return reDelimiters.Split(string(d), -1)
}

// Tokens is an already tokenized list of skills.
type Tokens []string

func (t Tokens) tokens() []string {
	return t
}

// Normalizer maps free-form skill tokens onto canonical taxonomy entries.
type Normalizer struct {
	taxonomy *taxonomy.Taxonomy
}

// NewNormalizer creates a normalizer over the taxonomy. A nil taxonomy means
// the default one.
func NewNormalizer(tax *taxonomy.Taxonomy) *Normalizer {
	if tax == nil {
		tax = taxonomy.Default()
	}
	return &Normalizer{taxonomy: tax}
}

// Normalize cleans, resolves and categorizes every token, keeping only the
// first occurrence of each canonical skill in input order.
func (n *Normalizer) Normalize(in Input) []Skill {
	if in == nil {
		return []Skill{}
	}

	seen := make(map[string]struct{})
	out := make([]Skill, 0)

	for _, raw := range in.tokens() {
		original := strings.TrimSpace(raw)
		if original == "" {
			continue
		}

		cleaned := taxonomy.Clean(original)
		if cleaned == "" {
			continue
		}

		canonical := n.taxonomy.Resolve(cleaned)
		if _, ok := seen[canonical]; ok {
			continue
		}
		seen[canonical] = struct{}{}

		out = append(out, Skill{
			Original:  original,
			Canonical: canonical,
			Category:  n.taxonomy.CategoryOf(canonical),
		})
	}

	return out
}

// Canonicals returns the canonical forms of the skills as Tokens.
func Canonicals(skills []Skill) Tokens {
	out := make(Tokens, 0, len(skills))
	for _, s := range skills {
		out = append(out, s.Canonical)
	}
	return out
}

// Contains reports whether the canonical skill is present.
func Contains(skills []Skill, canonical string) bool {
	for _, s := range skills {
		if s.Canonical == canonical {
			return true
		}
	}
	return false
}
