package taxonomy

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category groups canonical skills.
type Category string

const (
	Language  Category = "language"
	Runtime   Category = "runtime"
	Framework Category = "framework"
	Library   Category = "library"
	Tool      Category = "tool"
	Cloud     Category = "cloud"
	Other     Category = "other"
)

var knownCategories = []Category{Language, Runtime, Framework, Library, Tool, Cloud, Other}

// ParseCategory converts a category name into a Category.
func ParseCategory(name string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(name)))
	if slices.Contains(knownCategories, c) {
		return c, nil
	}
	return "", fmt.Errorf("unknown skill category %q", name)
}

var vocabulary = []string{
	"python", "java", "c++", "c", "c#", "r", "sql", "nosql", "matlab", "scala",
	"tensorflow", "pytorch", "keras", "scikit-learn", "opencv", "nltk", "spacy",
	"pandas", "numpy", "matplotlib", "seaborn", "plotly",
	"react", "angular", "vue", "next.js", "node.js", "express", "flask", "django",
	"fastapi", "streamlit", "html", "css", "javascript", "typescript",
	"bootstrap", "tailwindcss",
	"rest api", "graphql", "grpc",
	"docker", "kubernetes", "git", "github", "ci/cd", "jenkins", "linux", "bash",
	"shell scripting", "agile", "scrum",
	"aws", "gcp", "azure", "firebase", "digitalocean",
	"mysql", "postgresql", "mongodb", "sqlite", "redis", "elasticsearch",
	"nlp", "computer vision", "deep learning", "machine learning", "data science",
	"data analysis", "big data", "etl", "power bi", "tableau",
	"hadoop", "spark", "hive", "kafka",
	"openai api", "langchain", "hugging face", "llm", "prompt engineering",
	"numba", "cuda", "parallel computing",
	"cybersecurity", "networking", "devops", "mlops", "apis", "microservices",
}

var educationKeywords = []string{
	"bachelor", "master", "phd", "b.sc", "btech", "m.tech", "mba",
	"msc", "bs", "ms", "degree",
}

var aliases = map[string]string{
	"node.js":      "node",
	"nodejs":       "node",
	"ci/cd":        "ci-cd",
	"cicd":         "ci-cd",
	"js":           "javascript",
	"py":           "python",
	"tf":           "tensorflow",
	"cv":           "opencv",
	"scikitlearn":  "scikit-learn",
	"scikit learn": "scikit-learn",
	"ts":           "typescript",
	"k8s":          "kubernetes",
	"golang":       "go",
	"postgres":     "postgresql",
	"next.js":      "next",
	"nextjs":       "next",
	"vue.js":       "vue",
	"vuejs":        "vue",
	"reactjs":      "react",
	"react.js":     "react",
}

var categories = map[string]Category{
	"python":     Language,
	"java":       Language,
	"c":          Language,
	"c++":        Language,
	"c#":         Language,
	"r":          Language,
	"go":         Language,
	"javascript": Language,
	"typescript": Language,
	"scala":      Language,
	"matlab":     Language,
	"sql":        Language,
	"bash":       Language,

	"node": Runtime,

	"react":     Framework,
	"angular":   Framework,
	"vue":       Framework,
	"next":      Framework,
	"express":   Framework,
	"flask":     Framework,
	"django":    Framework,
	"streamlit": Framework,
	"fastapi":   Framework,
	"spark":     Framework,
	"hadoop":    Framework,

	"pandas":       Library,
	"numpy":        Library,
	"scikit-learn": Library,
	"tensorflow":   Library,
	"pytorch":      Library,
	"keras":        Library,
	"opencv":       Library,
	"nltk":         Library,
	"spacy":        Library,
	"matplotlib":   Library,
	"seaborn":      Library,
	"plotly":       Library,
	"langchain":    Library,
	"numba":        Library,

	"docker":        Tool,
	"kubernetes":    Tool,
	"git":           Tool,
	"github":        Tool,
	"jenkins":       Tool,
	"ci-cd":         Tool,
	"linux":         Tool,
	"kafka":         Tool,
	"tableau":       Tool,
	"power-bi":      Tool,
	"mysql":         Tool,
	"postgresql":    Tool,
	"mongodb":       Tool,
	"sqlite":        Tool,
	"redis":         Tool,
	"elasticsearch": Tool,

	"aws":          Cloud,
	"gcp":          Cloud,
	"azure":        Cloud,
	"firebase":     Cloud,
	"digitalocean": Cloud,
}

var (
	reNoise = regexp.MustCompile(`[^a-z0-9+\-#]+`)
)

// Taxonomy is an immutable lookup of skill vocabulary, aliases and categories.
type Taxonomy struct {
	vocabulary []string
	education  []string
	aliases    map[string]string
	categories map[string]Category
}

// Default returns the built-in taxonomy.
func Default() *Taxonomy {
	t := &Taxonomy{
		vocabulary: slices.Clone(vocabulary),
		education:  slices.Clone(educationKeywords),
		aliases:    make(map[string]string, len(aliases)),
		categories: make(map[string]Category, len(categories)),
	}

	for alias, canonical := range aliases {
		t.addAlias(alias, canonical)
	}
	for canonical, category := range categories {
		t.categories[canonical] = category
	}

	return t
}

// Extension is the on-disk format of a taxonomy extension file.
type Extension struct {
	Vocabulary []string          `yaml:"vocabulary"`
	Aliases    map[string]string `yaml:"aliases"`
	Categories map[string]string `yaml:"categories"`
}

// Load reads a YAML extension file and merges it over the default taxonomy.
// An empty path returns the default taxonomy.
func Load(path string) (*Taxonomy, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy file %q: %w", path, err)
	}

	var ext Extension
	if err := yaml.Unmarshal(data, &ext); err != nil {
		return nil, fmt.Errorf("parsing taxonomy file %q: %w", path, err)
	}

	return Default().Extend(ext)
}

// Extend returns a copy of the taxonomy with the extension applied.
func (t *Taxonomy) Extend(ext Extension) (*Taxonomy, error) {
	out := &Taxonomy{
		vocabulary: slices.Clone(t.vocabulary),
		education:  slices.Clone(t.education),
		aliases:    make(map[string]string, len(t.aliases)+len(ext.Aliases)),
		categories: make(map[string]Category, len(t.categories)+len(ext.Categories)),
	}
	for k, v := range t.aliases {
		out.aliases[k] = v
	}
	for k, v := range t.categories {
		out.categories[k] = v
	}

	for _, term := range ext.Vocabulary {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || slices.Contains(out.vocabulary, term) {
			continue
		}
		out.vocabulary = append(out.vocabulary, term)
	}

	for canonical, name := range ext.Categories {
		category, err := ParseCategory(name)
		if err != nil {
			return nil, err
		}
		out.categories[Clean(canonical)] = category
	}

	targets := make(map[string]struct{}, len(t.aliases))
	for _, canonical := range t.aliases {
		targets[canonical] = struct{}{}
	}

	for alias, canonical := range ext.Aliases {
		canonical = Clean(canonical)
		if canonical == "" {
			return nil, fmt.Errorf("alias %q has an empty canonical form", alias)
		}
		key := Clean(alias)
		if key == canonical {
			continue
		}
		if _, ok := targets[key]; ok {
			return nil, fmt.Errorf("alias %q shadows the canonical skill %q", alias, key)
		}
		if _, ok := out.categories[key]; ok {
			return nil, fmt.Errorf("alias %q shadows the categorized skill %q", alias, key)
		}
		out.addAlias(alias, canonical)
	}

	if err := out.resolveChains(); err != nil {
		return nil, err
	}

	return out, nil
}

// resolveChains points every alias at the end of its chain, so a canonical
// form is never an alias itself.
func (t *Taxonomy) resolveChains() error {
	resolved := make(map[string]string, len(t.aliases))
	for key, target := range t.aliases {
		seen := map[string]struct{}{key: {}}
		for {
			next, ok := t.aliases[target]
			if !ok {
				break
			}
			if _, loop := seen[target]; loop {
				return fmt.Errorf("alias %q is part of a cycle through %q", key, target)
			}
			seen[target] = struct{}{}
			target = next
		}
		resolved[key] = target
	}
	t.aliases = resolved
	return nil
}

func (t *Taxonomy) addAlias(alias, canonical string) {
	key := Clean(alias)
	if key == "" || key == canonical {
		return
	}
	t.aliases[key] = canonical
}

// Clean lowercases a raw skill token and strips punctuation noise: dots are
// removed, slashes become dashes and any other run of characters outside
// [a-z0-9+-#] collapses into a single dash.
func Clean(token string) string {
	low := strings.ToLower(strings.TrimSpace(token))
	low = strings.ReplaceAll(low, ".", "")
	low = strings.ReplaceAll(low, "/", "-")
	low = reNoise.ReplaceAllString(low, "-")
	return strings.Trim(low, "-")
}

// Resolve maps a cleaned token to its canonical form. Unknown tokens are
// their own canonical form.
func (t *Taxonomy) Resolve(cleaned string) string {
	if canonical, ok := t.aliases[cleaned]; ok {
		return canonical
	}
	return cleaned
}

// CategoryOf returns the category of a canonical skill, Other when unmapped.
func (t *Taxonomy) CategoryOf(canonical string) Category {
	if c, ok := t.categories[canonical]; ok {
		return c
	}
	return Other
}

// Vocabulary returns the terms searched for during extraction.
func (t *Taxonomy) Vocabulary() []string {
	return slices.Clone(t.vocabulary)
}

// EducationKeywords returns the lowercase keywords that mark education lines.
func (t *Taxonomy) EducationKeywords() []string {
	return slices.Clone(t.education)
}
