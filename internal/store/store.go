// Package store persists completed forecast runs to a local SQLite archive.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/growthlab/growth-forecast/internal/forecast"
)

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// timeLayout is RFC 3339 with a fixed-width fraction so that lexicographic
// order on the stored strings is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one archived simulation: the resolved scenario inputs and both
// result tables.
type Run struct {
	ID          string                 `json:"id"`
	CreatedAt   time.Time              `json:"createdAt"`
	Years       int                    `json:"years"`
	Scenario    string                 `json:"scenario"`
	Assumptions map[string]float64     `json:"assumptions"`
	Monthly     []forecast.MonthRecord `json:"monthly"`
	Yearly      []forecast.YearRecord  `json:"yearly"`
}

// RunSummary is a listing row without the table payloads.
type RunSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Years     int       `json:"years"`
	Scenario  string    `json:"scenario"`
}

// Store wraps the SQLite archive. A nil *Store is a disabled archive; the
// caller decides whether persistence is configured.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	created_at  TEXT NOT NULL,
	years       INTEGER NOT NULL,
	scenario    TEXT NOT NULL,
	assumptions TEXT NOT NULL DEFAULT '{}',
	monthly     TEXT NOT NULL DEFAULT '[]',
	yearly      TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs (created_at DESC);
`

// Open opens (or creates) the archive database at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	logger.Debug("opened run archive",
		zap.String("op", "store.Open"),
		zap.String("path", path),
	)
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun archives one scenario's projection and returns the stored run with
// its generated ID.
func (s *Store) SaveRun(scenario string, years int, assumptions map[string]float64, projection *forecast.Projection) (*Run, error) {
	run := &Run{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Years:       years,
		Scenario:    scenario,
		Assumptions: assumptions,
		Monthly:     projection.Monthly,
		Yearly:      projection.Yearly,
	}

	_, err := s.db.Exec(`INSERT OR REPLACE INTO runs (id, created_at, years, scenario, assumptions, monthly, yearly)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.CreatedAt.Format(timeLayout),
		run.Years,
		run.Scenario,
		marshalJSON(run.Assumptions),
		marshalJSON(run.Monthly),
		marshalJSON(run.Yearly),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	s.logger.Debug("archived forecast run",
		zap.String("op", "store.SaveRun"),
		zap.String("id", run.ID),
		zap.String("scenario", scenario),
	)
	return run, nil
}

// GetRun loads one archived run with its full tables.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`SELECT id, created_at, years, scenario, assumptions, monthly, yearly
		FROM runs WHERE id = ?`, id)

	var run Run
	var createdAt, assumptionsJSON, monthlyJSON, yearlyJSON string
	err := row.Scan(&run.ID, &createdAt, &run.Years, &run.Scenario,
		&assumptionsJSON, &monthlyJSON, &yearlyJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	_ = json.Unmarshal([]byte(assumptionsJSON), &run.Assumptions)
	_ = json.Unmarshal([]byte(monthlyJSON), &run.Monthly)
	_ = json.Unmarshal([]byte(yearlyJSON), &run.Yearly)
	return &run, nil
}

// ListRuns returns run summaries newest first. A limit of zero or less
// defaults to 50.
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`SELECT id, created_at, years, scenario
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	summaries := []RunSummary{}
	for rows.Next() {
		var summary RunSummary
		var createdAt string
		if err := rows.Scan(&summary.ID, &createdAt, &summary.Years, &summary.Scenario); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		summary.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func marshalJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
