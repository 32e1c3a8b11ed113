package twelvedata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetQuoteParsesStringNumbers(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "AAPL" {
			t.Errorf("symbol = %q", got)
		}
		if got := r.URL.Query().Get("apikey"); got != "key" {
			t.Errorf("apikey = %q", got)
		}
		w.Write([]byte(`{"symbol":"AAPL","name":"Apple Inc","exchange":"NASDAQ","currency":"USD",
			"open":"201.10","high":"212.00","low":"199.50","close":"210.25","previous_close":"200.00"}`))
	}))
	defer srv.Close()

	c := NewClient("key", 0)
	c.BaseURL = srv.URL
	q, err := c.GetQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if q.Close != 210.25 || q.PreviousClose != 200.00 {
		t.Errorf("parsed quote = %+v", q)
	}
	if q.Name != "Apple Inc" {
		t.Errorf("name = %q", q.Name)
	}
}

func TestGetQuoteAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":404,"message":"symbol not found","status":"error"}`))
	}))
	defer srv.Close()

	c := NewClient("key", 0)
	c.BaseURL = srv.URL
	if _, err := c.GetQuote(context.Background(), "NOPE"); err == nil {
		t.Fatalf("expected error for API error payload")
	}
}

func TestGetQuoteRateLimitSpacing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"AAPL","close":"1","previous_close":"1"}`))
	}))
	defer srv.Close()

	var slept time.Duration
	c := NewClient("key", 8*time.Second)
	c.BaseURL = srv.URL
	c.sleep = func(d time.Duration) { slept += d }

	for i := 0; i < 2; i++ {
		if _, err := c.GetQuote(context.Background(), "AAPL"); err != nil {
			t.Fatalf("GetQuote: %v", err)
		}
	}
	if slept <= 0 {
		t.Fatalf("second call should wait out the request interval")
	}
}
