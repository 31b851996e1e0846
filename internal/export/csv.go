package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spigell/resume-screener/internal/pipeline"
)

var header = []string{"filename", "name", "emails", "skills", "years", "score"}

// WriteCSV writes one row per record in the given order.
func WriteCSV(w io.Writer, records []*pipeline.MatchRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, r := range records {
		if err := cw.Write(row(r)); err != nil {
			return fmt.Errorf("writing csv row for %s: %w", r.SourceName, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// WriteCSVFile writes the records to the file at path, replacing it.
func WriteCSVFile(path string, records []*pipeline.MatchRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}

	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func row(r *pipeline.MatchRecord) []string {
	var (
		name   string
		emails string
		skills string
		years  = "0"
		score  = "0.00"
	)

	if r.Resume != nil {
		name = r.Resume.Name
		emails = strings.Join(r.Resume.Emails, ",")
		skills = strings.Join(r.Resume.Skills, ",")
		years = strconv.Itoa(r.Resume.YearsExperience)
	}
	if r.Score != nil {
		score = fmt.Sprintf("%.2f", r.Score.Value)
	}

	return []string{r.SourceName, name, emails, skills, years, score}
}
