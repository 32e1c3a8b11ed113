package web_search

import (
	"context"
	"errors"

	"github.com/agentworks/casestudio/internal/metrics"
	"github.com/agentworks/casestudio/tools/web_search/brave"
	"github.com/agentworks/casestudio/tools/web_search/models"
	"github.com/agentworks/casestudio/tools/web_search/serper"
	"github.com/agentworks/casestudio/tools/web_search/tavily"
)

// WebSearcher issues one search query. k caps the number of results,
// sites restricts hits to the given domains, recency limits results to
// the last N days (0 = no limit).
type WebSearcher interface {
	Discover(ctx context.Context, q string, k int, sites []string, recency int) ([]models.Result, error)
}

type Provider string

const (
	TavilyProvider Provider = "tavily"
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

var ErrUnsupportedProvider = errors.New("unsupported provider")

func NewWebSearcher(provider Provider, apiKey string) (WebSearcher, error) {
	switch provider {
	case TavilyProvider:
		return counted{tavily.Search{ApiKey: apiKey}, provider}, nil
	case SerperProvider:
		return counted{serper.Search{ApiKey: apiKey}, provider}, nil
	case BraveProvider:
		return counted{brave.Search{ApiKey: apiKey}, provider}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

// counted bumps the per-provider search counter on every query.
type counted struct {
	inner    WebSearcher
	provider Provider
}

func (c counted) Discover(ctx context.Context, q string, k int, sites []string, recency int) ([]models.Result, error) {
	metrics.WebSearches.WithLabelValues(string(c.provider)).Inc()
	return c.inner.Discover(ctx, q, k, sites, recency)
}
