package resume

import (
	"context"
	"errors"
	"math"
	"reflect"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/failure"
)

type stubRecognizer struct {
	persons []string
	err     error
}

func (s stubRecognizer) Persons(context.Context, string) ([]string, error) {
	return s.persons, s.err
}

const sampleResume = `Jane Doe
Contact: a@b.com, +1 555-123-4567
3 years of experience with Python and React
B.Sc in Computer Science, 2015
Earlier: 5 years building Docker based pipelines on AWS.
`

func TestExtractEndToEnd(t *testing.T) {
	e := NewExtractor(nil, stubRecognizer{persons: []string{"Jane Doe", "John Roe"}}, zap.NewNop())

	parsed, err := e.Extract(context.Background(), sampleResume)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(parsed.Emails, []string{"a@b.com"}) {
		t.Fatalf("unexpected emails: %v", parsed.Emails)
	}

	if !slices.Contains(parsed.Phones, "+1 555-123-4567") {
		t.Fatalf("expected phone to be found, got %v", parsed.Phones)
	}

	if parsed.Name != "Jane Doe" {
		t.Fatalf("expected first person, got %q", parsed.Name)
	}

	for _, skill := range []string{"python", "react", "docker", "aws"} {
		if !slices.Contains(parsed.Skills, skill) {
			t.Fatalf("expected skill %q in %v", skill, parsed.Skills)
		}
	}

	if !slices.IsSorted(parsed.Skills) {
		t.Fatalf("expected sorted skills, got %v", parsed.Skills)
	}

	if parsed.YearsExperience != 8 {
		t.Fatalf("expected additive years estimate 8, got %d", parsed.YearsExperience)
	}

	if !slices.Contains(parsed.Education, "B.Sc in Computer Science, 2015") {
		t.Fatalf("expected education line, got %v", parsed.Education)
	}

	if parsed.FullText != sampleResume {
		t.Fatalf("expected full text to be kept")
	}
}

func TestExtractSpecExample(t *testing.T) {
	e := NewExtractor(nil, nil, nil)

	text := "Contact: a@b.com, +1 555-123-4567\n3 years of experience with Python and React"
	parsed, err := e.Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(parsed.Emails, []string{"a@b.com"}) {
		t.Fatalf("unexpected emails: %v", parsed.Emails)
	}
	if parsed.YearsExperience != 3 {
		t.Fatalf("expected 3 years, got %d", parsed.YearsExperience)
	}
	if !slices.Contains(parsed.Skills, "python") || !slices.Contains(parsed.Skills, "react") {
		t.Fatalf("expected python and react, got %v", parsed.Skills)
	}
	if parsed.Name != "" {
		t.Fatalf("expected empty name without recognizer, got %q", parsed.Name)
	}
}

func TestExtractYearsAreSummed(t *testing.T) {
	e := NewExtractor(nil, nil, nil)

	parsed, err := e.Extract(context.Background(), "I spent 3 years at Foo. Then 5 YEARS at Bar. Also 1 year abroad.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.YearsExperience != 9 {
		t.Fatalf("expected 9, got %d", parsed.YearsExperience)
	}
}

func TestExtractYearsSaturate(t *testing.T) {
	e := NewExtractor(nil, nil, nil)

	tests := []struct {
		name   string
		text   string
		expect int
	}{
		{name: "sum overflows", text: "9223372036854775807 years and 1 year", expect: math.MaxInt},
		{name: "number out of range", text: "123456789012345678901234567890 years", expect: math.MaxInt},
		{name: "out of range after a valid mention", text: "2 years, then 99999999999999999999999 years", expect: math.MaxInt},
		{name: "no mentions", text: "years of fun", expect: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := e.Extract(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if parsed.YearsExperience != tt.expect {
				t.Fatalf("expected %d, got %d", tt.expect, parsed.YearsExperience)
			}
		})
	}
}

func TestExtractEducationSkipsLongLines(t *testing.T) {
	e := NewExtractor(nil, nil, nil)

	text := "Master of Science\n" +
		"During my master studies I worked on many different projects that involved a lot of data work\n" +
		"MBA, 2020"
	parsed, err := e.Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Master of Science", "MBA, 2020"}
	if !reflect.DeepEqual(parsed.Education, want) {
		t.Fatalf("expected %v, got %v", want, parsed.Education)
	}
}

func TestExtractDeduplicatesContacts(t *testing.T) {
	e := NewExtractor(nil, nil, nil)

	parsed, err := e.Extract(context.Background(), "a@b.com a@b.com c@d.org\n555 123 4567\n555 123 4567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(parsed.Emails, []string{"a@b.com", "c@d.org"}) {
		t.Fatalf("unexpected emails: %v", parsed.Emails)
	}
	if len(parsed.Phones) != 1 {
		t.Fatalf("expected one phone, got %v", parsed.Phones)
	}
}

func TestExtractRejectsInvalidUTF8(t *testing.T) {
	e := NewExtractor(nil, nil, nil)

	_, err := e.Extract(context.Background(), "bad \xff\xfe bytes")
	if !errors.Is(err, failure.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestExtractIgnoresRecognizerFailure(t *testing.T) {
	e := NewExtractor(nil, stubRecognizer{err: errors.New("model exploded")}, nil)

	parsed, err := e.Extract(context.Background(), "Python developer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Name != "" {
		t.Fatalf("expected empty name, got %q", parsed.Name)
	}
}

func TestProseRecognizerLoadsOnce(t *testing.T) {
	r := NewProseRecognizer(zap.NewNop())
	var calls int
	var mu sync.Mutex
	r.load = func() (*prose.Model, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return &prose.Model{}, nil
	}

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.EnsureInitialized(); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Fatalf("expected model to load once, got %d", calls)
	}
}

func TestProseRecognizerDegradesWhenModelMissing(t *testing.T) {
	r := NewProseRecognizer(zap.NewNop())
	r.load = func() (*prose.Model, error) {
		return nil, errors.New("no model")
	}

	persons, err := r.Persons(context.Background(), "Jane Doe")
	if err != nil {
		t.Fatalf("expected graceful degradation, got %v", err)
	}
	if len(persons) != 0 {
		t.Fatalf("expected no persons, got %v", persons)
	}

	if _, err := r.Persons(context.Background(), "John Roe"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.loads != 1 {
		t.Fatalf("expected a single load attempt, got %d", r.loads)
	}
}

func TestProseRecognizerKeepsLinesApart(t *testing.T) {
	r := NewProseRecognizer(zap.NewNop())
	e := NewExtractor(nil, r, zap.NewNop())

	text := "John Smith\n" +
		"Software Engineer\n" +
		"Contact: john.smith@example.com\n" +
		"John Smith worked with Mary Johnson on the billing platform.\n"

	persons, err := r.Persons(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range persons {
		if strings.Contains(p, "Engineer") || strings.Contains(p, "Contact") {
			t.Fatalf("entity %q crosses a line break, all: %v", p, persons)
		}
	}

	parsed, err := e.Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Name != "John Smith" {
		t.Fatalf("expected John Smith, got %q (persons %v)", parsed.Name, persons)
	}
}

func TestProseRecognizerHonoursCancellation(t *testing.T) {
	r := NewProseRecognizer(zap.NewNop())
	r.load = func() (*prose.Model, error) {
		return &prose.Model{}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Persons(ctx, "Jane Doe\nEngineer"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
