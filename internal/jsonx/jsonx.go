// Package jsonx parses model output that is supposed to be JSON but
// frequently is not quite: wrapped in markdown fences, prefixed with
// prose, or carrying unescaped characters inside long string fields.
package jsonx

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// StripFences removes a markdown code fence around a JSON payload.
// Models often reply with ```json ... ``` even when told not to.
func StripFences(s string) string {
	if strings.Contains(s, "```json") {
		rest := strings.SplitN(s, "```json", 2)[1]
		if i := strings.Index(rest, "```"); i >= 0 {
			rest = rest[:i]
		}
		return strings.TrimSpace(rest)
	}
	if strings.Contains(s, "```") {
		parts := strings.Split(s, "```")
		if len(parts) >= 2 {
			return strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(s)
}

// ExtractObject returns the outermost {...} of s, or s unchanged when no
// braces are present. Good enough for responses that prefix the JSON with
// a sentence of prose.
func ExtractObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// Unmarshal decodes model output into v, tolerating fences and
// surrounding prose.
func Unmarshal(raw string, v interface{}) error {
	s := StripFences(raw)
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(ExtractObject(s)), v); err != nil {
		return fmt.Errorf("unmarshal model output: %w", err)
	}
	return nil
}

const escapedQuoteSentinel = "\x00ESCAPED_QUOTE\x00"

// RepairStringField patches unescaped quotes, newlines and tabs inside
// one long string field of a JSON document. The field boundary is found
// heuristically: the value runs from `"<field>": "` to either
// `",<space>"<nextKey>"` for one of nextKeys, or a closing `"}` at end of
// line. When the boundary cannot be located the text is returned
// unchanged; this is a best-effort repair, not a parser.
func RepairStringField(text, field string, nextKeys []string) string {
	startRe := regexp.MustCompile(`"` + regexp.QuoteMeta(field) + `":\s*"`)
	loc := startRe.FindStringIndex(text)
	if loc == nil {
		return text
	}
	start := loc[1]

	end := -1
	var ending string
	for _, key := range nextKeys {
		re := regexp.MustCompile(`"\s*,\s*"` + regexp.QuoteMeta(key) + `"`)
		if m := re.FindStringIndex(text[start:]); m != nil {
			end = start + m[0]
			ending = text[start+m[0] : start+m[1]]
			break
		}
	}
	if end < 0 {
		re := regexp.MustCompile(`(?m)"\s*}$`)
		if m := re.FindStringIndex(text[start:]); m != nil {
			end = start + m[0]
			ending = text[start+m[0] : start+m[1]]
		}
	}
	if end < 0 {
		return text
	}

	content := text[start:end]

	// Protect quotes that are already escaped, escape the rest, restore.
	fixed := strings.ReplaceAll(content, `\"`, escapedQuoteSentinel)
	fixed = strings.ReplaceAll(fixed, `"`, `\"`)
	fixed = strings.ReplaceAll(fixed, escapedQuoteSentinel, `\"`)

	fixed = strings.ReplaceAll(fixed, "\n", `\n`)
	fixed = strings.ReplaceAll(fixed, "\r", `\r`)
	fixed = strings.ReplaceAll(fixed, "\t", `\t`)

	return text[:start] + fixed + ending + text[end+len(ending):]
}
