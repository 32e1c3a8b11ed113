// Package stockmonitor implements the stock-monitor agent: a six-step
// workflow that fetches quotes, searches news and SEC filings, then
// classifies events and generates a prioritized alert report.
package stockmonitor

// Slug identifies the agent in case-study documents and the database.
const Slug = "stock-monitor"

// Step types for the six-step workflow.
const (
	stepTypeInitialization = "initialization"
	stepTypeSearchNews     = "search_news"
	stepTypeSearchFilings  = "search_filings"
	stepTypeClassification = "classification"
	stepTypeAnalysis       = "analysis"
	stepTypeSynthesis      = "synthesis"
)

// EventTypes are the monitored event categories.
var EventTypes = []string{"earnings", "news", "filings", "analyst_ratings", "price_movements"}

// TimePeriods are the accepted scan windows.
var TimePeriods = map[string]bool{"24h": true, "7d": true, "30d": true}

// severityOrder ranks alerts; lower sorts first.
var severityOrder = map[string]int{"critical": 0, "high": 1, "medium": 2, "low": 3}

// Input are the monitoring parameters from the CLI.
type Input struct {
	Watchlist      []string `json:"watchlist"`
	TimePeriod     string   `json:"time_period"`
	EventTypes     []string `json:"event_types"`
	AlertThreshold string   `json:"alert_threshold"`
}

// Snapshot is the per-ticker price data from step 1.
type Snapshot struct {
	CurrentPrice  float64 `json:"current_price"`
	Change        float64 `json:"change"`
	PercentChange float64 `json:"percent_change"`
	High          float64 `json:"high,omitempty"`
	Low           float64 `json:"low,omitempty"`
	Open          float64 `json:"open,omitempty"`
	PreviousClose float64 `json:"previous_close,omitempty"`
	CompanyName   string  `json:"company_name"`
	Exchange      string  `json:"exchange,omitempty"`
	Currency      string  `json:"currency,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// ClassifiedEvent is one event the classification and assessment steps
// operate on.
type ClassifiedEvent struct {
	Ticker          string `json:"ticker"`
	CompanyName     string `json:"company_name"`
	EventType       string `json:"event_type"`
	Severity        string `json:"severity"`
	Headline        string `json:"headline"`
	Reasoning       string `json:"reasoning"`
	ImpactAnalysis  string `json:"impact_analysis,omitempty"`
	ActionSuggested string `json:"action_suggested,omitempty"`
}

// Alert is one published alert in the final report.
type Alert struct {
	Ticker          string `json:"ticker"`
	CompanyName     string `json:"company_name"`
	EventType       string `json:"event_type"`
	Severity        string `json:"severity"`
	Headline        string `json:"headline"`
	Description     string `json:"description"`
	Source          string `json:"source"`
	Timestamp       string `json:"timestamp"`
	ImpactAnalysis  string `json:"impact_analysis"`
	ActionSuggested string `json:"action_suggested"`
}

// WatchlistOverview summarizes the scan.
type WatchlistOverview struct {
	TotalStocksMonitored int            `json:"total_stocks_monitored"`
	AlertsTriggered      int            `json:"alerts_triggered"`
	EventBreakdown       map[string]int `json:"event_breakdown"`
	HighestSeverityAlert string         `json:"highest_severity_alert"`
}

// Output is the full monitoring report written into the case study.
type Output struct {
	ExecutiveSummary  string            `json:"executive_summary"`
	Alerts            []Alert           `json:"alerts"`
	WatchlistOverview WatchlistOverview `json:"watchlist_overview"`
	MarketContext     string            `json:"market_context"`
	Recommendations   []string          `json:"recommendations"`
}
