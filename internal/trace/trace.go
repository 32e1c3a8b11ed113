// Package trace records the execution steps an agent performs, in the
// shape the case-study import pipeline and the execution_steps table
// expect.
package trace

import (
	"strings"
	"time"

	"github.com/agentworks/casestudio/utils"
)

const summaryLimit = 500

// ExecutionStep is a single step in an agent workflow.
type ExecutionStep struct {
	StepNumber    int                    `json:"step_number"`
	StepName      string                 `json:"step_name"`
	StepType      string                 `json:"step_type"`
	InputSummary  string                 `json:"input_summary"`
	OutputSummary string                 `json:"output_summary"`
	Details       map[string]interface{} `json:"details"`
	DurationMS    int64                  `json:"duration_ms"`
	Timestamp     string                 `json:"timestamp"`
}

// Recorder collects execution steps in order. Agents are strictly
// sequential, so there is no locking here.
type Recorder struct {
	steps []ExecutionStep
	now   func() time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// Record appends a step, assigning its sequence number and timestamp.
// started is when the step began; summaries are truncated to keep the
// trace readable in the case-study viewer.
func (r *Recorder) Record(name, stepType, inputSummary, outputSummary string, details map[string]interface{}, started time.Time) ExecutionStep {
	if details == nil {
		details = map[string]interface{}{}
	}
	step := ExecutionStep{
		StepNumber:    len(r.steps) + 1,
		StepName:      name,
		StepType:      stepType,
		InputSummary:  utils.Truncate(inputSummary, summaryLimit),
		OutputSummary: utils.Truncate(outputSummary, summaryLimit),
		Details:       details,
		DurationMS:    time.Since(started).Milliseconds(),
		Timestamp:     r.now().UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	r.steps = append(r.steps, step)
	return step
}

// Steps returns the recorded steps in order.
func (r *Recorder) Steps() []ExecutionStep {
	return r.steps
}

// Sanitized returns the steps with secret-bearing keys removed from the
// details, so a trace can be published as-is.
func (r *Recorder) Sanitized() []ExecutionStep {
	out := make([]ExecutionStep, len(r.steps))
	for i, s := range r.steps {
		s.Details = sanitizeMap(s.Details)
		out[i] = s
	}
	return out
}

var secretKeys = []string{"api_key", "apikey", "token", "authorization", "password", "secret"}

func isSecretKey(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range secretKeys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func sanitizeMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if isSecretKey(k) {
			continue
		}
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		return sanitizeMap(vv)
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, item := range vv {
			out[i] = sanitizeValue(item)
		}
		return out
	default:
		return v
	}
}
