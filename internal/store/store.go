// Package store persists case-study documents and the Gita verse
// corpus in Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/agentworks/casestudio/internal/casestudy"
	"github.com/agentworks/casestudio/internal/trace"
)

type Store struct {
	DB *sql.DB
}

const (
	connectAttempts = 3
	connectDelay    = 2 * time.Second
)

// New connects using DATABASE_URL, or the POSTGRES_* variables when it
// is unset.
func New(ctx context.Context) (*Store, error) {
	return NewWithDSN(ctx, DSNFromEnv())
}

// DSNFromEnv assembles the Postgres DSN from the environment.
func DSNFromEnv() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	host := getenvDefault("POSTGRES_HOST", "localhost")
	port := getenvDefault("POSTGRES_PORT", "5432")
	user := os.Getenv("POSTGRES_USER")
	pass := os.Getenv("POSTGRES_PASSWORD")
	db := os.Getenv("POSTGRES_DB")
	ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
}

// NewWithDSN connects using an explicit DSN. Transient failures are
// retried; credential and missing-database errors fail immediately.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		err := db.PingContext(ctx)
		if err == nil {
			return &Store{DB: db}, nil
		}
		lastErr = err
		if !retryableConnError(err) {
			db.Close()
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if attempt < connectAttempts {
			select {
			case <-ctx.Done():
				db.Close()
				return nil, ctx.Err()
			case <-time.After(connectDelay):
			}
		}
	}
	db.Close()
	return nil, fmt.Errorf("connect to postgres after %d attempts: %w", connectAttempts, lastErr)
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// retryableConnError reports whether a connection error is worth
// retrying. Bad credentials and a missing database never recover on
// their own; timeouts and refused connections often do.
func retryableConnError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, fatal := range []string{"does not exist", "authentication failed", "password"} {
		if strings.Contains(msg, fatal) {
			return false
		}
	}
	for _, transient := range []string{"timeout", "could not connect", "connection refused"} {
		if strings.Contains(msg, transient) {
			return true
		}
	}
	return false
}

// Case-study operations

// UpsertCaseStudy inserts the document or, on an id collision, updates
// the content and curation columns in place.
func (s *Store) UpsertCaseStudy(ctx context.Context, doc casestudy.Document) error {
	params, err := json.Marshal(doc.InputParameters)
	if err != nil {
		return fmt.Errorf("marshal input_parameters: %w", err)
	}
	result, err := json.Marshal(doc.OutputResult)
	if err != nil {
		return fmt.Errorf("marshal output_result: %w", err)
	}
	createdAt, err := casestudy.ParseTimestamp(doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("parse created_at: %w", err)
	}
	updatedAt, err := casestudy.ParseTimestamp(doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("parse updated_at: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
INSERT INTO case_studies (id, agent_slug, title, subtitle, input_parameters, output_result, display, featured, display_order, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  title            = EXCLUDED.title,
  subtitle         = EXCLUDED.subtitle,
  input_parameters = EXCLUDED.input_parameters,
  output_result    = EXCLUDED.output_result,
  display          = EXCLUDED.display,
  featured         = EXCLUDED.featured,
  display_order    = EXCLUDED.display_order,
  updated_at       = EXCLUDED.updated_at
`, doc.ID, doc.AgentSlug, doc.Title, doc.Subtitle, params, result,
		doc.Display, doc.Featured, doc.DisplayOrder, createdAt, updatedAt)
	if err != nil {
		return fmt.Errorf("upsert case study %s: %w", doc.ID, err)
	}
	return nil
}

// ReplaceExecutionSteps swaps the stored trace for a case study in one
// transaction, so a re-import never leaves a mixed trace behind.
func (s *Store) ReplaceExecutionSteps(ctx context.Context, caseStudyID string, steps []trace.ExecutionStep) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM execution_steps WHERE case_study_id=$1`, caseStudyID); err != nil {
		return fmt.Errorf("delete execution steps: %w", err)
	}
	for _, step := range steps {
		details, err := json.Marshal(step.Details)
		if err != nil {
			return fmt.Errorf("marshal step %d details: %w", step.StepNumber, err)
		}
		ts, err := casestudy.ParseTimestamp(step.Timestamp)
		if err != nil {
			return fmt.Errorf("parse step %d timestamp: %w", step.StepNumber, err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO execution_steps (case_study_id, step_number, step_name, step_type, input_summary, output_summary, details, duration_ms, step_timestamp)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`, caseStudyID, step.StepNumber, step.StepName, step.StepType,
			step.InputSummary, step.OutputSummary, details, step.DurationMS, ts); err != nil {
			return fmt.Errorf("insert execution step %d: %w", step.StepNumber, err)
		}
	}
	return tx.Commit()
}

// GetCaseStudy loads a document with its execution trace.
func (s *Store) GetCaseStudy(ctx context.Context, id string) (casestudy.Document, bool, error) {
	var (
		doc            casestudy.Document
		params, result []byte
		displayOrder   sql.NullInt64
		createdAt      time.Time
		updatedAt      time.Time
	)
	err := s.DB.QueryRowContext(ctx, `
SELECT id, agent_slug, title, subtitle, input_parameters, output_result, display, featured, display_order, created_at, updated_at
FROM case_studies
WHERE id=$1
`, id).Scan(&doc.ID, &doc.AgentSlug, &doc.Title, &doc.Subtitle, &params, &result,
		&doc.Display, &doc.Featured, &displayOrder, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return casestudy.Document{}, false, nil
	}
	if err != nil {
		return casestudy.Document{}, false, fmt.Errorf("get case study %s: %w", id, err)
	}
	if err := json.Unmarshal(params, &doc.InputParameters); err != nil {
		return casestudy.Document{}, false, fmt.Errorf("decode input_parameters: %w", err)
	}
	if err := json.Unmarshal(result, &doc.OutputResult); err != nil {
		return casestudy.Document{}, false, fmt.Errorf("decode output_result: %w", err)
	}
	if displayOrder.Valid {
		order := int(displayOrder.Int64)
		doc.DisplayOrder = &order
	}
	doc.CreatedAt = createdAt.UTC().Format("2006-01-02T15:04:05.000Z")
	doc.UpdatedAt = updatedAt.UTC().Format("2006-01-02T15:04:05.000Z")

	steps, err := s.executionSteps(ctx, id)
	if err != nil {
		return casestudy.Document{}, false, err
	}
	doc.ExecutionTrace = steps
	return doc, true, nil
}

func (s *Store) executionSteps(ctx context.Context, caseStudyID string) ([]trace.ExecutionStep, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT step_number, step_name, step_type, input_summary, output_summary, details, duration_ms, step_timestamp
FROM execution_steps
WHERE case_study_id=$1
ORDER BY step_number
`, caseStudyID)
	if err != nil {
		return nil, fmt.Errorf("list execution steps: %w", err)
	}
	defer rows.Close()

	var steps []trace.ExecutionStep
	for rows.Next() {
		var (
			step    trace.ExecutionStep
			details []byte
			ts      time.Time
		)
		if err := rows.Scan(&step.StepNumber, &step.StepName, &step.StepType,
			&step.InputSummary, &step.OutputSummary, &details, &step.DurationMS, &ts); err != nil {
			return nil, fmt.Errorf("scan execution step: %w", err)
		}
		if err := json.Unmarshal(details, &step.Details); err != nil {
			return nil, fmt.Errorf("decode step %d details: %w", step.StepNumber, err)
		}
		step.Timestamp = ts.UTC().Format("2006-01-02T15:04:05.000Z")
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// CaseStudySummary is the listing row for the API; the full trace and
// output stay out of list responses.
type CaseStudySummary struct {
	ID           string `json:"id"`
	AgentSlug    string `json:"agent_slug"`
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	Display      bool   `json:"display"`
	Featured     bool   `json:"featured"`
	DisplayOrder *int   `json:"display_order"`
	StepCount    int    `json:"step_count"`
	CreatedAt    string `json:"created_at"`
}

// ListCaseStudies returns summaries newest-first. When displayedOnly is
// set, hidden documents are excluded and featured ones sort first.
func (s *Store) ListCaseStudies(ctx context.Context, displayedOnly bool) ([]CaseStudySummary, error) {
	query := `
SELECT cs.id, cs.agent_slug, cs.title, cs.subtitle, cs.display, cs.featured, cs.display_order,
       (SELECT COUNT(*) FROM execution_steps es WHERE es.case_study_id = cs.id) AS step_count,
       cs.created_at
FROM case_studies cs
`
	if displayedOnly {
		query += `WHERE cs.display
ORDER BY cs.featured DESC, cs.display_order NULLS LAST, cs.created_at DESC`
	} else {
		query += `ORDER BY cs.created_at DESC`
	}

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list case studies: %w", err)
	}
	defer rows.Close()

	var out []CaseStudySummary
	for rows.Next() {
		var (
			row          CaseStudySummary
			displayOrder sql.NullInt64
			createdAt    time.Time
		)
		if err := rows.Scan(&row.ID, &row.AgentSlug, &row.Title, &row.Subtitle,
			&row.Display, &row.Featured, &displayOrder, &row.StepCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan case study row: %w", err)
		}
		if displayOrder.Valid {
			order := int(displayOrder.Int64)
			row.DisplayOrder = &order
		}
		row.CreatedAt = createdAt.UTC().Format("2006-01-02T15:04:05.000Z")
		out = append(out, row)
	}
	return out, rows.Err()
}

// SetCuration updates the display flags for a case study. Returns
// sql.ErrNoRows when the id is unknown.
func (s *Store) SetCuration(ctx context.Context, id string, display, featured bool, displayOrder *int) error {
	res, err := s.DB.ExecContext(ctx, `
UPDATE case_studies
SET display=$2, featured=$3, display_order=$4, updated_at=NOW()
WHERE id=$1
`, id, display, featured, displayOrder)
	if err != nil {
		return fmt.Errorf("set curation for %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
