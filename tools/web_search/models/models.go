package models

// Result is one web search hit, normalized across providers. Content is
// the longer extract some providers return; Snippet is the short one.
type Result struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content,omitempty"`
	Snippet       string  `json:"snippet,omitempty"`
	Score         float64 `json:"score,omitempty"`
	PublishedDate string  `json:"published_date,omitempty"`
}

// Text returns the best available body text for a result.
func (r Result) Text() string {
	if r.Content != "" {
		return r.Content
	}
	return r.Snippet
}
