// Package casestudy defines the case-study document every agent
// produces, plus the validation and sanitization rules the import
// pipeline applies before anything reaches Postgres.
package casestudy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/agentworks/casestudio/internal/trace"
)

// Document is the JSON file an agent run produces and the importer
// loads. The field layout matches the case_studies table.
type Document struct {
	ID              string                 `json:"id"`
	AgentSlug       string                 `json:"agent_slug"`
	Title           string                 `json:"title"`
	Subtitle        string                 `json:"subtitle"`
	InputParameters map[string]interface{} `json:"input_parameters"`
	OutputResult    map[string]interface{} `json:"output_result"`
	ExecutionTrace  []trace.ExecutionStep  `json:"execution_trace"`
	Display         bool                   `json:"display"`
	Featured        bool                   `json:"featured"`
	DisplayOrder    *int                   `json:"display_order"`
	CreatedAt       string                 `json:"created_at"`
	UpdatedAt       string                 `json:"updated_at"`
}

// New assembles a document with a fresh UUID and UTC timestamps.
// Display defaults to true and featured to false; curation happens
// after import.
func New(slug, title, subtitle string, params, result map[string]interface{}, steps []trace.ExecutionStep) Document {
	now := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	return Document{
		ID:              uuid.NewString(),
		AgentSlug:       slug,
		Title:           title,
		Subtitle:        subtitle,
		InputParameters: params,
		OutputResult:    result,
		ExecutionTrace:  steps,
		Display:         true,
		Featured:        false,
		DisplayOrder:    nil,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// WriteFile writes the document to dir as case_study_YYYYMMDD_HHMMSS.json
// and returns the path.
func (d Document) WriteFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	name := fmt.Sprintf("case_study_%s.json", time.Now().UTC().Format("20060102_150405"))
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal case study: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write case study: %w", err)
	}
	return path, nil
}

// ToMap round-trips the document through JSON into the generic shape the
// validator and importer operate on.
func (d Document) ToMap() (map[string]interface{}, error) {
	return AsMap(d)
}

// AsMap converts any JSON-marshalable value into the generic map shape
// used for input_parameters and output_result.
func AsMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
