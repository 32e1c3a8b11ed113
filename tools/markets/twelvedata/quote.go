// Package twelvedata is a minimal Twelve Data quote client.
package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://api.twelvedata.com"

// Quote is one real-time quote. Twelve Data returns numbers as strings.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Exchange      string  `json:"exchange"`
	Currency      string  `json:"currency"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	PreviousClose float64 `json:"previous_close"`
}

type Client struct {
	ApiKey  string
	BaseURL string
	// RequestInterval spaces out calls; the free tier allows 8 per minute.
	RequestInterval time.Duration

	httpClient *http.Client
	sleep      func(time.Duration)
	lastCall   time.Time
}

func NewClient(apiKey string, requestInterval time.Duration) *Client {
	return &Client{
		ApiKey:          apiKey,
		BaseURL:         defaultBaseURL,
		RequestInterval: requestInterval,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		sleep:           time.Sleep,
	}
}

// GetQuote fetches the real-time quote for one symbol, waiting out the
// rate-limit interval since the previous call first.
func (c *Client) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	if c.RequestInterval > 0 && !c.lastCall.IsZero() {
		if wait := c.RequestInterval - time.Since(c.lastCall); wait > 0 {
			c.sleep(wait)
		}
	}
	c.lastCall = time.Now()

	endpoint := fmt.Sprintf("%s/quote?symbol=%s&apikey=%s",
		c.BaseURL, url.QueryEscape(symbol), url.QueryEscape(c.ApiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("twelve data status %d", resp.StatusCode)
	}

	var raw struct {
		Code          int    `json:"code"`
		Message       string `json:"message"`
		Symbol        string `json:"symbol"`
		Name          string `json:"name"`
		Exchange      string `json:"exchange"`
		Currency      string `json:"currency"`
		Open          string `json:"open"`
		High          string `json:"high"`
		Low           string `json:"low"`
		Close         string `json:"close"`
		PreviousClose string `json:"previous_close"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Quote{}, err
	}
	if raw.Code != 0 && raw.Code != http.StatusOK {
		msg := raw.Message
		if msg == "" {
			msg = "API error"
		}
		return Quote{}, fmt.Errorf("twelve data: %s", msg)
	}

	return Quote{
		Symbol:        raw.Symbol,
		Name:          raw.Name,
		Exchange:      raw.Exchange,
		Currency:      raw.Currency,
		Open:          parseFloat(raw.Open),
		High:          parseFloat(raw.High),
		Low:           parseFloat(raw.Low),
		Close:         parseFloat(raw.Close),
		PreviousClose: parseFloat(raw.PreviousClose),
	}, nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
