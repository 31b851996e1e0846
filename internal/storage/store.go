package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/spigell/resume-screener/internal/resume"
)

const schema = `CREATE TABLE IF NOT EXISTS resumes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	source_name TEXT NOT NULL,
	name TEXT,
	raw TEXT,
	emails TEXT,
	phones TEXT,
	skills TEXT,
	years INTEGER,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// Row is a persisted parsed resume. List columns hold JSON arrays.
type Row struct {
	ID         int64     `db:"id"`
	RunID      string    `db:"run_id"`
	SourceName string    `db:"source_name"`
	Name       string    `db:"name"`
	Raw        string    `db:"raw"`
	Emails     string    `db:"emails"`
	Phones     string    `db:"phones"`
	Skills     string    `db:"skills"`
	Years      int       `db:"years"`
	CreatedAt  time.Time `db:"created_at"`
}

// Store saves parsed resumes to SQLite.
type Store struct {
	db *sqlx.DB
}

// Open connects to the SQLite database at path and creates the schema.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connecting to sqlite %q: %w", path, err)
	}

	// every connection to :memory: is a separate database
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Save inserts the parsed resume and returns its row id.
func (s *Store) Save(ctx context.Context, runID, sourceName string, parsed *resume.ParsedResume) (int64, error) {
	if parsed == nil {
		return 0, fmt.Errorf("nothing to save for %s", sourceName)
	}

	row := Row{
		RunID:      runID,
		SourceName: sourceName,
		Name:       parsed.Name,
		Raw:        parsed.FullText,
		Years:      parsed.YearsExperience,
	}

	var err error
	if row.Emails, err = encodeList(parsed.Emails); err != nil {
		return 0, err
	}
	if row.Phones, err = encodeList(parsed.Phones); err != nil {
		return 0, err
	}
	if row.Skills, err = encodeList(parsed.Skills); err != nil {
		return 0, err
	}

	res, err := s.db.NamedExecContext(ctx,
		`INSERT INTO resumes (run_id, source_name, name, raw, emails, phones, skills, years)
		 VALUES (:run_id, :source_name, :name, :raw, :emails, :phones, :skills, :years)`,
		row,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting resume %s: %w", sourceName, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted id: %w", err)
	}
	return id, nil
}

// Get returns the row with the id.
func (s *Store) Get(ctx context.Context, id int64) (*Row, error) {
	var row Row
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM resumes WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("getting resume %d: %w", id, err)
	}
	return &row, nil
}

// ListRun returns the rows saved by one batch run in insertion order.
func (s *Store) ListRun(ctx context.Context, runID string) ([]Row, error) {
	rows := make([]Row, 0)
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM resumes WHERE run_id = ? ORDER BY id`, runID); err != nil {
		return nil, fmt.Errorf("listing run %s: %w", runID, err)
	}
	return rows, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encoding list: %w", err)
	}
	return string(data), nil
}

// DecodeList reads a JSON array column.
func DecodeList(column string) ([]string, error) {
	values := make([]string, 0)
	if column == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(column), &values); err != nil {
		return nil, fmt.Errorf("decoding list: %w", err)
	}
	return values, nil
}
