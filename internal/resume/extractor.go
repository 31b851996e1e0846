package resume

import (
	"context"
	"errors"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/failure"
	"github.com/spigell/resume-screener/internal/taxonomy"
)

// maxEducationTokens excludes paragraph-length lines that happen to mention a degree.
const maxEducationTokens = 12

var (
	reEmail = regexp.MustCompile(`[a-zA-Z0-9.+_-]+@[a-zA-Z0-9._-]+\.[a-zA-Z]+`)
	rePhone = regexp.MustCompile(`\+?\d[\d \-()]{6,}\d`)
	reYears = regexp.MustCompile(`(\d+)\s+years?`)
)

// Extractor turns resume text into a ParsedResume.
type Extractor struct {
	taxonomy   *taxonomy.Taxonomy
	recognizer Recognizer
	logger     *zap.Logger
}

// NewExtractor creates an extractor. A nil taxonomy means the default one
// and a nil recognizer means no name extraction.
func NewExtractor(tax *taxonomy.Taxonomy, recognizer Recognizer, logger *zap.Logger) *Extractor {
	if tax == nil {
		tax = taxonomy.Default()
	}
	if recognizer == nil {
		recognizer = BlankRecognizer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{taxonomy: tax, recognizer: recognizer, logger: logger}
}

// Extract parses the text. The only failure is text that is not valid UTF-8.
func (e *Extractor) Extract(ctx context.Context, text string) (*ParsedResume, error) {
	if !utf8.ValidString(text) {
		return nil, failure.Extraction("parse resume text", errors.New("text is not valid UTF-8"))
	}

	lower := strings.ToLower(text)

	parsed := &ParsedResume{
		Name:            e.name(ctx, text),
		Emails:          distinct(reEmail.FindAllString(text, -1)),
		Phones:          distinct(rePhone.FindAllString(text, -1)),
		Education:       e.education(text),
		Skills:          e.skills(lower),
		YearsExperience: yearsOfExperience(lower),
		FullText:        text,
	}

	e.logger.Debug("resume text parsed",
		zap.Bool("name_found", parsed.Name != ""),
		zap.Int("emails", len(parsed.Emails)),
		zap.Int("phones", len(parsed.Phones)),
		zap.Int("education_lines", len(parsed.Education)),
		zap.Int("skills", len(parsed.Skills)),
		zap.Int("years_experience", parsed.YearsExperience),
	)

	return parsed, nil
}

func (e *Extractor) name(ctx context.Context, text string) string {
	persons, err := e.recognizer.Persons(ctx, text)
	if err != nil {
		e.logger.Debug("name recognition failed", zap.Error(err))
		return ""
	}
	if len(persons) == 0 {
		return ""
	}
	return strings.TrimSpace(persons[0])
}

func (e *Extractor) education(text string) []string {
	keywords := e.taxonomy.EducationKeywords()
	lines := make([]string, 0)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if len(strings.Fields(line)) >= maxEducationTokens {
			continue
		}
		lower := strings.ToLower(line)
		if slices.ContainsFunc(keywords, func(k string) bool { return strings.Contains(lower, k) }) {
			lines = append(lines, strings.TrimSpace(line))
		}
	}

	return lines
}

func (e *Extractor) skills(lower string) []string {
	found := make([]string, 0)
	for _, term := range e.taxonomy.Vocabulary() {
		if strings.Contains(lower, term) {
			found = append(found, term)
		}
	}
	slices.Sort(found)
	return slices.Compact(found)
}

// yearsOfExperience sums every "N years" mention. The sum saturates at
// math.MaxInt, and so does a single number too large for an int.
func yearsOfExperience(lower string) int {
	total := 0
	for _, m := range reYears.FindAllStringSubmatch(lower, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return math.MaxInt
			}
			continue
		}
		if n > math.MaxInt-total {
			return math.MaxInt
		}
		total += n
	}
	return total
}

func distinct(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
