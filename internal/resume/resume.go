package resume

// RawDocument is the decoded text of one uploaded resume.
type RawDocument struct {
	SourceName string
	Text       string
}

// ParsedResume is the structured record extracted from one resume text.
type ParsedResume struct {
	Name      string   `json:"name"`
	Emails    []string `json:"emails"`
	Phones    []string `json:"phones"`
	Education []string `json:"education"`
	Skills    []string `json:"skills"`
	// YearsExperience sums every "<N> years" mention, so repeated mentions
	// of the same period are counted more than once.
	YearsExperience int    `json:"years_experience_est"`
	FullText        string `json:"full_text"`
}
