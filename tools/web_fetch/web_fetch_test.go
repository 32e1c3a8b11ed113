package web_fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Staged Accident Rings Expand</title></head>
<body>
<article>
<h1>Staged Accident Rings Expand</h1>
<p>Investigators report that organized staged-accident rings have moved
into three new states this quarter, targeting commercial auto policies
with rehearsed collision scenarios and cooperating clinics.</p>
<p>Claims adjusters flagged a sharp rise in near-identical injury
narratives filed within days of each other across unrelated policies.</p>
</article>
</body>
</html>`

func TestExtractReadableText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 0)
	res, err := f.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Status != http.StatusOK {
		t.Fatalf("status = %d", res.Status)
	}
	if !strings.Contains(res.Text, "staged-accident rings") {
		t.Errorf("text missing article body: %q", res.Text)
	}
	if res.URL != srv.URL {
		t.Errorf("url = %q", res.URL)
	}
}

func TestExtractTruncatesToMaxChars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 40)
	res, err := f.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Text) > 40 {
		t.Errorf("text length = %d, want <= 40", len(res.Text))
	}
}

func TestExtractReportsHTTPErrorsInStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 0)
	res, err := f.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Status != http.StatusGone {
		t.Errorf("status = %d, want %d", res.Status, http.StatusGone)
	}
	if res.Text != "" {
		t.Errorf("unexpected text %q", res.Text)
	}
}

func TestExtractRejectsEmptyURL(t *testing.T) {
	f := NewFetcher(0, 0)
	if _, err := f.Extract(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty url")
	}
}
