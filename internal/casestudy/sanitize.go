package casestudy

import (
	"strings"
	"unicode"
)

// SanitizeText makes a string safe for Postgres insertion: NUL bytes are
// dropped (Postgres rejects them in text columns), whitespace control
// characters other than newline and tab become plain spaces, and the
// result is trimmed.
func SanitizeText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsSpace(r) && r != '\n' && r != '\t' && r != ' ' {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// SanitizeValue recursively sanitizes every string inside a decoded JSON
// value, preserving structure and non-string types.
func SanitizeValue(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			out[key] = SanitizeValue(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = SanitizeValue(item)
		}
		return out
	case string:
		return SanitizeText(v)
	default:
		return data
	}
}
