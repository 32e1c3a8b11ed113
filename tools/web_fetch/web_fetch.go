// Package web_fetch pulls a page over plain HTTP and extracts the
// readable article text. Used to backfill search results whose snippet
// came back empty.
package web_fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const (
	DefaultTimeout  = 15 * time.Second
	MaxCharsDefault = 20000
)

// Result is the readable extraction of one page.
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Byline  string `json:"byline,omitempty"`
	Text    string `json:"text"`
	Status  int    `json:"status"`
	FetchMS int    `json:"fetch_ms"`
}

type Fetcher struct {
	Timeout  time.Duration
	MaxChars int
	client   *http.Client
}

func NewFetcher(timeout time.Duration, maxChars int) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxChars <= 0 {
		maxChars = MaxCharsDefault
	}
	return &Fetcher{Timeout: timeout, MaxChars: maxChars, client: &http.Client{Timeout: timeout}}
}

// Extract fetches rawURL and returns its readable text. Fetch or parse
// failures are reported in Result.Status rather than as errors so a
// single dead reference does not abort an agent run.
func (f *Fetcher) Extract(ctx context.Context, rawURL string) (Result, error) {
	if strings.TrimSpace(rawURL) == "" {
		return Result{}, errors.New("invalid url")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Result{}, fmt.Errorf("invalid url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()
	t0 := time.Now()

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("User-Agent", "CaseStudyAgent/1.0 (+research pipeline)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{URL: rawURL, Status: 599, FetchMS: int(time.Since(t0) / time.Millisecond)}, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{URL: rawURL, Status: resp.StatusCode, FetchMS: int(time.Since(t0) / time.Millisecond)}, nil
	}

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return Result{URL: rawURL, Status: resp.StatusCode, FetchMS: int(time.Since(t0) / time.Millisecond)}, nil
	}
	text := strings.TrimSpace(article.TextContent)
	if len(text) > f.MaxChars {
		text = text[:f.MaxChars]
	}

	return Result{
		URL:     rawURL,
		Title:   strings.TrimSpace(article.Title),
		Byline:  strings.TrimSpace(article.Byline),
		Text:    text,
		Status:  resp.StatusCode,
		FetchMS: int(time.Since(t0) / time.Millisecond),
	}, nil
}
