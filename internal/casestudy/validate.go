package casestudy

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var uuidPattern = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// KnownSlugs are the agents whose documents the importer accepts.
var KnownSlugs = map[string]bool{
	"fraud-trends":   true,
	"article-editor": true,
	"stock-monitor":  true,
	"gita-guide":     true,
}

// requiredInputKeys lists the input_parameters keys each agent's
// documents must carry.
var requiredInputKeys = map[string][]string{
	"fraud-trends":   {"topic", "regions", "time_range"},
	"article-editor": {"original_text"},
	"stock-monitor":  {"watchlist", "time_period"},
	"gita-guide":     {"question"},
}

// requiredOutputKeys lists the output_result keys that must be present
// per agent. Only the fraud-trends report has a fully pinned shape.
var requiredOutputKeys = map[string][]string{
	"fraud-trends": {"executive_summary", "trends", "regulatory_findings", "recommendations", "confidence_level"},
}

var validConfidenceLevels = map[string]bool{"high": true, "medium": true, "low": true}

// Validate applies the full import validation to a decoded document:
// required fields, UUID format, length limits, trace shape, timestamps
// and curation fields. It reports the first violation found.
func Validate(data map[string]interface{}) error {
	for _, field := range []string{"id", "agent_slug", "title", "input_parameters", "output_result", "execution_trace", "created_at"} {
		if _, ok := data[field]; !ok {
			return fmt.Errorf("missing required field %q", field)
		}
	}

	id, ok := data["id"].(string)
	if !ok || id == "" {
		return fmt.Errorf("invalid 'id': must be non-empty string")
	}
	if !uuidPattern.MatchString(id) {
		return fmt.Errorf("invalid 'id': must be valid UUID format")
	}

	slug, ok := data["agent_slug"].(string)
	if !ok || slug == "" {
		return fmt.Errorf("invalid 'agent_slug': must be non-empty string")
	}
	if !KnownSlugs[slug] {
		return fmt.Errorf("invalid 'agent_slug': unknown agent %q", slug)
	}

	title, ok := data["title"].(string)
	if !ok || title == "" {
		return fmt.Errorf("invalid 'title': must be non-empty string")
	}
	if len(title) > 500 {
		return fmt.Errorf("invalid 'title': exceeds 500 character limit")
	}
	if subtitle, present := data["subtitle"]; present && subtitle != nil {
		s, ok := subtitle.(string)
		if !ok {
			return fmt.Errorf("invalid 'subtitle': must be string or null")
		}
		if len(s) > 1000 {
			return fmt.Errorf("invalid 'subtitle': exceeds 1000 character limit")
		}
	}

	params, ok := data["input_parameters"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("invalid 'input_parameters': must be object")
	}
	for _, key := range requiredInputKeys[slug] {
		if _, ok := params[key]; !ok {
			return fmt.Errorf("missing required field 'input_parameters.%s'", key)
		}
	}

	result, ok := data["output_result"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("invalid 'output_result': must be object")
	}
	if len(result) == 0 {
		return fmt.Errorf("invalid 'output_result': cannot be empty")
	}
	for _, key := range requiredOutputKeys[slug] {
		if _, ok := result[key]; !ok {
			return fmt.Errorf("missing required field 'output_result.%s'", key)
		}
	}
	if level, present := result["confidence_level"]; present {
		s, ok := level.(string)
		if !ok || !validConfidenceLevels[s] {
			return fmt.Errorf("invalid 'output_result.confidence_level': must be one of high, medium, low")
		}
	}

	steps, ok := data["execution_trace"].([]interface{})
	if !ok {
		return fmt.Errorf("invalid 'execution_trace': must be array")
	}
	if len(steps) == 0 {
		return fmt.Errorf("invalid 'execution_trace': cannot be empty")
	}
	for idx, raw := range steps {
		step, ok := raw.(map[string]interface{})
		if !ok {
			return fmt.Errorf("invalid 'execution_trace[%d]': must be object", idx)
		}
		for _, field := range []string{"step_number", "step_name", "step_type", "timestamp"} {
			if _, ok := step[field]; !ok {
				return fmt.Errorf("missing required field 'execution_trace[%d].%s'", idx, field)
			}
		}
		num, ok := step["step_number"].(float64)
		if !ok || num != float64(int(num)) || num <= 0 {
			return fmt.Errorf("invalid 'execution_trace[%d].step_number': must be positive integer", idx)
		}
		if name, ok := step["step_name"].(string); !ok || name == "" {
			return fmt.Errorf("invalid 'execution_trace[%d].step_name': must be non-empty string", idx)
		}
		if typ, ok := step["step_type"].(string); !ok || typ == "" {
			return fmt.Errorf("invalid 'execution_trace[%d].step_type': must be non-empty string", idx)
		}
		if ts, ok := step["timestamp"].(string); !ok || ts == "" {
			return fmt.Errorf("invalid 'execution_trace[%d].timestamp': must be non-empty string", idx)
		}
		if dur, present := step["duration_ms"]; present && dur != nil {
			d, ok := dur.(float64)
			if !ok || d < 0 {
				return fmt.Errorf("invalid 'execution_trace[%d].duration_ms': must be non-negative number", idx)
			}
		}
	}

	timestampFields := []string{"created_at"}
	if _, present := data["updated_at"]; present {
		timestampFields = append(timestampFields, "updated_at")
	}
	for _, field := range timestampFields {
		ts, ok := data[field].(string)
		if !ok || ts == "" {
			return fmt.Errorf("invalid %q: must be non-empty string", field)
		}
		if _, err := ParseTimestamp(ts); err != nil {
			return fmt.Errorf("invalid %q: must be valid ISO 8601 timestamp", field)
		}
	}

	if display, present := data["display"]; present && display != nil {
		if _, ok := display.(bool); !ok {
			return fmt.Errorf("invalid 'display': must be boolean")
		}
	}
	if featured, present := data["featured"]; present && featured != nil {
		if _, ok := featured.(bool); !ok {
			return fmt.Errorf("invalid 'featured': must be boolean")
		}
	}
	if order, present := data["display_order"]; present && order != nil {
		o, ok := order.(float64)
		if !ok || o != float64(int(o)) || o < 0 {
			return fmt.Errorf("invalid 'display_order': must be non-negative integer")
		}
	}

	return nil
}

// ParseTimestamp accepts the ISO 8601 variants the agents and the
// original tooling produce: RFC 3339 with or without fractional seconds,
// and zone-less timestamps.
func ParseTimestamp(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999",
		"2006-01-02T15:04:05",
	}
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
