package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/agentworks/casestudio/internal/casestudy"
	"github.com/agentworks/casestudio/internal/metrics"
	"github.com/agentworks/casestudio/internal/trace"
)

// Database is the subset of Store the importer writes through.
type Database interface {
	UpsertCaseStudy(ctx context.Context, doc casestudy.Document) error
	ReplaceExecutionSteps(ctx context.Context, caseStudyID string, steps []trace.ExecutionStep) error
}

// Importer loads case_study_*.json files into the database. Batch
// imports run in two phases: every file is validated first, then the
// valid ones are imported one by one, continuing past per-file
// failures.
type Importer struct {
	DB     Database
	Logger *log.Logger

	// DryRun validates files without touching the database.
	DryRun bool
}

func NewImporter(db Database, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.New(log.Writer(), "[IMPORT] ", log.LstdFlags)
	}
	return &Importer{DB: db, Logger: logger}
}

// Stats summarises a batch import.
type Stats struct {
	TotalFiles         int               `json:"total_files"`
	ValidFiles         int               `json:"valid_files"`
	InvalidFiles       int               `json:"invalid_files"`
	SuccessfulImports  int               `json:"successful_imports"`
	FailedImports      int               `json:"failed_imports"`
	ImportedIDs        []string          `json:"imported_case_study_ids"`
	TotalStepsImported int               `json:"total_execution_steps_imported"`
	Duration           time.Duration     `json:"-"`
	ValidationErrors   map[string]string `json:"validation_errors"`
	ImportErrors       map[string]string `json:"import_errors"`
}

// Failed reports whether any file was rejected or failed to import.
func (s Stats) Failed() bool {
	return s.InvalidFiles > 0 || s.FailedImports > 0
}

// LoadFile reads, validates and sanitizes one case-study file.
func LoadFile(path string) (casestudy.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return casestudy.Document{}, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return casestudy.Document{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if err := casestudy.Validate(raw); err != nil {
		return casestudy.Document{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	var doc casestudy.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return casestudy.Document{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	// Older export files omit the curation fields; display defaults on.
	if _, ok := raw["display"]; !ok {
		doc.Display = true
	}
	if doc.UpdatedAt == "" {
		doc.UpdatedAt = doc.CreatedAt
	}

	doc.AgentSlug = casestudy.SanitizeText(doc.AgentSlug)
	doc.Title = casestudy.SanitizeText(doc.Title)
	doc.Subtitle = casestudy.SanitizeText(doc.Subtitle)
	doc.InputParameters = casestudy.SanitizeValue(doc.InputParameters).(map[string]interface{})
	doc.OutputResult = casestudy.SanitizeValue(doc.OutputResult).(map[string]interface{})
	for i, step := range doc.ExecutionTrace {
		step.StepName = casestudy.SanitizeText(step.StepName)
		step.StepType = casestudy.SanitizeText(step.StepType)
		step.InputSummary = casestudy.SanitizeText(step.InputSummary)
		step.OutputSummary = casestudy.SanitizeText(step.OutputSummary)
		if step.Details != nil {
			step.Details = casestudy.SanitizeValue(step.Details).(map[string]interface{})
		}
		doc.ExecutionTrace[i] = step
	}
	return doc, nil
}

// ImportFile validates and imports a single file.
func (imp *Importer) ImportFile(ctx context.Context, path string) error {
	doc, err := LoadFile(path)
	if err != nil {
		return err
	}
	imp.Logger.Printf("importing %s: %s (%d steps)", filepath.Base(path), doc.ID, len(doc.ExecutionTrace))
	if imp.DryRun {
		return nil
	}
	if err := imp.DB.UpsertCaseStudy(ctx, doc); err != nil {
		metrics.Imports.WithLabelValues("failure").Inc()
		return err
	}
	if err := imp.DB.ReplaceExecutionSteps(ctx, doc.ID, doc.ExecutionTrace); err != nil {
		metrics.Imports.WithLabelValues("failure").Inc()
		return err
	}
	metrics.Imports.WithLabelValues("success").Inc()
	return nil
}

// ImportDir discovers case_study_*.json files under dir, validates
// them all, then imports the valid ones. Import failures are recorded
// per file and do not stop the batch.
func (imp *Importer) ImportDir(ctx context.Context, dir string) (Stats, error) {
	files, err := filepath.Glob(filepath.Join(dir, "case_study_*.json"))
	if err != nil {
		return Stats{}, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Strings(files)

	stats := Stats{
		TotalFiles:       len(files),
		ValidationErrors: map[string]string{},
		ImportErrors:     map[string]string{},
	}
	if len(files) == 0 {
		return stats, fmt.Errorf("no case_study_*.json files found in %s", dir)
	}

	// Phase 1: validate everything before writing anything.
	type validFile struct {
		path string
		doc  casestudy.Document
	}
	var valid []validFile
	for _, path := range files {
		doc, err := LoadFile(path)
		if err != nil {
			imp.Logger.Printf("invalid: %v", err)
			stats.ValidationErrors[filepath.Base(path)] = err.Error()
			continue
		}
		valid = append(valid, validFile{path: path, doc: doc})
	}
	stats.ValidFiles = len(valid)
	stats.InvalidFiles = len(files) - len(valid)
	imp.Logger.Printf("validation complete: %d valid, %d invalid", stats.ValidFiles, stats.InvalidFiles)

	if imp.DryRun {
		return stats, nil
	}

	// Phase 2: import the valid files, continuing past failures.
	started := time.Now()
	for _, vf := range valid {
		name := filepath.Base(vf.path)
		imp.Logger.Printf("importing %s: %s (%d steps)", name, vf.doc.ID, len(vf.doc.ExecutionTrace))

		if err := imp.DB.UpsertCaseStudy(ctx, vf.doc); err != nil {
			imp.Logger.Printf("import failed for %s: %v", name, err)
			stats.FailedImports++
			stats.ImportErrors[name] = err.Error()
			metrics.Imports.WithLabelValues("failure").Inc()
			continue
		}
		if err := imp.DB.ReplaceExecutionSteps(ctx, vf.doc.ID, vf.doc.ExecutionTrace); err != nil {
			imp.Logger.Printf("execution steps failed for %s: %v", name, err)
			stats.FailedImports++
			stats.ImportErrors[name] = err.Error()
			metrics.Imports.WithLabelValues("failure").Inc()
			continue
		}
		stats.SuccessfulImports++
		metrics.Imports.WithLabelValues("success").Inc()
		stats.ImportedIDs = append(stats.ImportedIDs, vf.doc.ID)
		stats.TotalStepsImported += len(vf.doc.ExecutionTrace)
	}
	stats.Duration = time.Since(started)
	return stats, nil
}
