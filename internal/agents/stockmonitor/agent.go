package stockmonitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/agentworks/casestudio/internal/casestudy"
	"github.com/agentworks/casestudio/internal/jsonx"
	"github.com/agentworks/casestudio/internal/llm"
	"github.com/agentworks/casestudio/internal/trace"
	"github.com/agentworks/casestudio/tools/markets/twelvedata"
	"github.com/agentworks/casestudio/tools/web_search"
)

const alertSource = "Twelve Data + Tavily News"

// QuoteFetcher provides real-time quotes; satisfied by the Twelve Data
// client.
type QuoteFetcher interface {
	GetQuote(ctx context.Context, symbol string) (twelvedata.Quote, error)
}

type Agent struct {
	LLM      llm.Provider
	Quotes   QuoteFetcher
	Searcher web_search.WebSearcher
	Logger   *log.Logger

	// edgarClient fetches the SEC filing feed. Filing parsing is a
	// placeholder; the request is still made so rate-limit behavior and
	// connectivity stay observable in the trace.
	edgarClient *http.Client
}

func New(provider llm.Provider, quotes QuoteFetcher, searcher web_search.WebSearcher, logger *log.Logger) *Agent {
	if logger == nil {
		logger = log.New(log.Writer(), "[MONITOR] ", log.LstdFlags)
	}
	return &Agent{
		LLM:         provider,
		Quotes:      quotes,
		Searcher:    searcher,
		Logger:      logger,
		edgarClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Run executes the six-step workflow and assembles the case-study
// document.
func (a *Agent) Run(ctx context.Context, in Input) (casestudy.Document, error) {
	if len(in.Watchlist) == 0 {
		return casestudy.Document{}, fmt.Errorf("watchlist cannot be empty")
	}
	if in.TimePeriod == "" {
		in.TimePeriod = "24h"
	}
	if !TimePeriods[in.TimePeriod] {
		return casestudy.Document{}, fmt.Errorf("invalid time period %q (want 24h, 7d or 30d)", in.TimePeriod)
	}
	if len(in.EventTypes) == 0 {
		in.EventTypes = append([]string{}, EventTypes...)
	}
	if in.AlertThreshold == "" {
		in.AlertThreshold = "medium"
	}
	if _, ok := severityOrder[in.AlertThreshold]; !ok {
		return casestudy.Document{}, fmt.Errorf("invalid alert threshold %q", in.AlertThreshold)
	}

	rec := trace.NewRecorder()

	stockData := a.initializeScan(ctx, rec, in)
	newsData := a.searchNews(ctx, rec, in, stockData)
	a.searchFilings(ctx, rec, in)
	classified := a.classifyEvents(ctx, rec, in, stockData, newsData)
	assessed := a.assessImpact(ctx, rec, classified, stockData)
	output := a.generateAlerts(ctx, rec, in, assessed)

	tickers := in.Watchlist
	if len(tickers) > 4 {
		tickers = tickers[:4]
	}
	watchlist := strings.Join(tickers, ", ")
	if extra := len(in.Watchlist) - 4; extra > 0 {
		watchlist += fmt.Sprintf(" +%d more", extra)
	}
	title := "Stock Monitor - " + watchlist

	events := in.EventTypes
	if len(events) > 3 {
		events = events[:3]
	}
	subtitle := fmt.Sprintf("%s scan, %s, %s alerts", in.TimePeriod, strings.Join(events, ", "), in.AlertThreshold)

	params, err := casestudy.AsMap(in)
	if err != nil {
		return casestudy.Document{}, err
	}
	result, err := casestudy.AsMap(output)
	if err != nil {
		return casestudy.Document{}, err
	}
	return casestudy.New(Slug, title, subtitle, params, result, rec.Sanitized()), nil
}

// initializeScan fetches a quote per ticker. A failed fetch records the
// error on the snapshot and the scan continues.
func (a *Agent) initializeScan(ctx context.Context, rec *trace.Recorder, in Input) map[string]Snapshot {
	started := time.Now()

	stockData := map[string]Snapshot{}
	successes := 0
	for _, ticker := range in.Watchlist {
		quote, err := a.Quotes.GetQuote(ctx, ticker)
		if err != nil {
			a.Logger.Printf("warning: failed to fetch data for %s: %v", ticker, err)
			stockData[ticker] = Snapshot{CompanyName: ticker, Error: err.Error()}
			continue
		}
		change := 0.0
		percentChange := 0.0
		if quote.PreviousClose != 0 {
			change = quote.Close - quote.PreviousClose
			percentChange = change / quote.PreviousClose * 100
		}
		name := quote.Name
		if name == "" {
			name = ticker
		}
		exchange := quote.Exchange
		if exchange == "" {
			exchange = "Unknown"
		}
		currency := quote.Currency
		if currency == "" {
			currency = "USD"
		}
		stockData[ticker] = Snapshot{
			CurrentPrice:  quote.Close,
			Change:        change,
			PercentChange: percentChange,
			High:          quote.High,
			Low:           quote.Low,
			Open:          quote.Open,
			PreviousClose: quote.PreviousClose,
			CompanyName:   name,
			Exchange:      exchange,
			Currency:      currency,
		}
		successes++
	}

	summary := map[string]interface{}{}
	for ticker, data := range stockData {
		summary[ticker] = map[string]interface{}{
			"price":          data.CurrentPrice,
			"change_percent": data.PercentChange,
			"company":        data.CompanyName,
		}
	}
	rec.Record("Initialize Scan", stepTypeInitialization,
		fmt.Sprintf("Fetching quotes for %d tickers", len(in.Watchlist)),
		fmt.Sprintf("Fetched %d/%d quotes", successes, len(in.Watchlist)),
		map[string]interface{}{
			"stocks_scanned":     len(in.Watchlist),
			"successful_fetches": successes,
			"stock_summary":      summary,
		}, started)
	return stockData
}

// newsWindow maps the scan period to search breadth.
func newsWindow(period string) (maxResults, daysBack int) {
	switch period {
	case "24h":
		return 3, 1
	case "7d":
		return 5, 7
	default: // 30d
		return 7, 30
	}
}

func (a *Agent) searchNews(ctx context.Context, rec *trace.Recorder, in Input, stockData map[string]Snapshot) map[string][]map[string]interface{} {
	started := time.Now()

	maxResults, daysBack := newsWindow(in.TimePeriod)
	newsData := map[string][]map[string]interface{}{}
	perTicker := map[string]interface{}{}
	total := 0
	for _, ticker := range in.Watchlist {
		company := ticker
		if s, ok := stockData[ticker]; ok && s.CompanyName != "" {
			company = s.CompanyName
		}
		query := fmt.Sprintf("%s %s stock news", ticker, company)

		results, err := a.Searcher.Discover(ctx, query, maxResults, nil, daysBack)
		if err != nil {
			a.Logger.Printf("warning: failed to fetch news for %s: %v", ticker, err)
			newsData[ticker] = nil
			perTicker[ticker] = 0
			continue
		}
		articles := make([]map[string]interface{}, len(results))
		for i, r := range results {
			articles[i] = map[string]interface{}{
				"title":          r.Title,
				"url":            r.URL,
				"content":        r.Content,
				"published_date": r.PublishedDate,
			}
		}
		newsData[ticker] = articles
		perTicker[ticker] = len(articles)
		total += len(articles)
	}

	rec.Record("Search News", stepTypeSearchNews,
		fmt.Sprintf("Searching news for %d tickers over %s", len(in.Watchlist), in.TimePeriod),
		fmt.Sprintf("Found %d articles", total),
		map[string]interface{}{
			"tickers_searched":     len(in.Watchlist),
			"total_articles_found": total,
			"articles_per_ticker":  perTicker,
		}, started)
	return newsData
}

// searchFilings queries the SEC EDGAR company feed per ticker. Feed
// parsing is not implemented; the step exists to keep the trace shape
// stable and the connectivity observable.
func (a *Agent) searchFilings(ctx context.Context, rec *trace.Recorder, in Input) {
	started := time.Now()

	for _, ticker := range in.Watchlist {
		if a.edgarClient == nil {
			break
		}
		url := "https://www.sec.gov/cgi-bin/browse-edgar?action=getcompany&CIK=" + ticker +
			"&type=&dateb=&owner=exclude&count=10&output=atom"
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			continue
		}
		// SEC requires an identifying User-Agent.
		req.Header.Set("User-Agent", "Stock Monitor Agent contact@example.com")
		resp, err := a.edgarClient.Do(req)
		if err != nil {
			a.Logger.Printf("warning: failed to fetch filings for %s: %v", ticker, err)
			continue
		}
		resp.Body.Close()
	}

	rec.Record("Search Filings", stepTypeSearchFilings,
		fmt.Sprintf("Checking EDGAR filings for %d tickers", len(in.Watchlist)),
		"Found 0 filings",
		map[string]interface{}{
			"tickers_searched":    len(in.Watchlist),
			"total_filings_found": 0,
			"note":                "SEC EDGAR filing search - feed parsing not implemented",
		}, started)
}

func (a *Agent) classifyEvents(ctx context.Context, rec *trace.Recorder, in Input, stockData map[string]Snapshot, newsData map[string][]map[string]interface{}) []ClassifiedEvent {
	started := time.Now()

	eventsByTicker := map[string]interface{}{}
	for _, ticker := range in.Watchlist {
		s := stockData[ticker]
		articles := newsData[ticker]
		if len(articles) > 5 {
			articles = articles[:5]
		}
		headlines := make([]map[string]interface{}, len(articles))
		for i, item := range articles {
			headlines[i] = map[string]interface{}{
				"title":          item["title"],
				"url":            item["url"],
				"published_date": item["published_date"],
			}
		}
		eventsByTicker[ticker] = map[string]interface{}{
			"ticker":       ticker,
			"company_name": s.CompanyName,
			"price_data": map[string]interface{}{
				"current_price":  s.CurrentPrice,
				"change_percent": s.PercentChange,
				"high":           s.High,
				"low":            s.Low,
			},
			"news_headlines": headlines,
		}
	}
	eventsJSON, _ := json.MarshalIndent(eventsByTicker, "", "  ")

	prompt := fmt.Sprintf(`You are a financial analyst classifying stock market events.

Analyze the following stock data and news for %d stocks:

%s

For each ticker, classify any significant events by:
1. Event Type: earnings, news, filings, analyst_ratings, or price_movements
2. Severity: low, medium, high, or critical

Consider:
- Price movements >5%% as significant
- Recent news mentioning earnings, acquisitions, regulatory issues
- Alert threshold: %s

Return a JSON array of events. Each event should have:
- ticker: stock symbol
- company_name: company name
- event_type: one of the event types above
- severity: one of low/medium/high/critical
- headline: brief event description
- reasoning: why this event is significant

Only include events that meet or exceed the "%s" severity threshold.

Return ONLY valid JSON array, no markdown formatting.`,
		len(in.Watchlist), eventsJSON, in.AlertThreshold, in.AlertThreshold)

	var classified []ClassifiedEvent
	response, err := a.LLM.Generate(ctx, "", prompt, map[string]interface{}{"temperature": 0.3})
	if err != nil {
		a.Logger.Printf("warning: event classification failed: %v", err)
	} else if err := json.Unmarshal([]byte(jsonx.StripFences(response)), &classified); err != nil {
		a.Logger.Printf("warning: event classification unparseable: %v", err)
		classified = nil
	}

	bySeverity := map[string]interface{}{}
	byType := map[string]interface{}{}
	for _, event := range classified {
		sev := event.Severity
		if sev == "" {
			sev = "unknown"
		}
		typ := event.EventType
		if typ == "" {
			typ = "unknown"
		}
		if n, ok := bySeverity[sev].(int); ok {
			bySeverity[sev] = n + 1
		} else {
			bySeverity[sev] = 1
		}
		if n, ok := byType[typ].(int); ok {
			byType[typ] = n + 1
		} else {
			byType[typ] = 1
		}
	}
	rec.Record("Classify Events", stepTypeClassification,
		fmt.Sprintf("Classifying events for %d tickers", len(in.Watchlist)),
		fmt.Sprintf("Classified %d events", len(classified)),
		map[string]interface{}{
			"total_events_classified": len(classified),
			"events_by_severity":      bySeverity,
			"events_by_type":          byType,
			"llm_model":               a.LLM.ModelInfo().APIName,
		}, started)
	return classified
}

func (a *Agent) assessImpact(ctx context.Context, rec *trace.Recorder, classified []ClassifiedEvent, stockData map[string]Snapshot) []ClassifiedEvent {
	started := time.Now()

	if len(classified) == 0 {
		rec.Record("Assess Impact", stepTypeAnalysis,
			"No classified events", "Skipped impact assessment",
			map[string]interface{}{"note": "No events to assess"}, started)
		return nil
	}

	eventsJSON, _ := json.MarshalIndent(classified, "", "  ")
	priceContext := map[string]interface{}{}
	for ticker, data := range stockData {
		priceContext[ticker] = map[string]interface{}{
			"current_price":  data.CurrentPrice,
			"change_percent": data.PercentChange,
		}
	}
	contextJSON, _ := json.MarshalIndent(priceContext, "", "  ")

	prompt := fmt.Sprintf(`You are a financial analyst assessing the impact of market events.

For each of these classified events, analyze the potential impact:

%s

Stock price context:
%s

For each event, add:
- impact_analysis: detailed analysis of potential stock price impact (2-3 sentences)
- action_suggested: recommended action for investors (e.g., "Hold position and monitor", "Consider profit taking", etc.)

Return the same JSON array with these two fields added to each event.
Return ONLY valid JSON array, no markdown formatting.`, eventsJSON, contextJSON)

	assessed := classified
	response, err := a.LLM.Generate(ctx, "", prompt, map[string]interface{}{"temperature": 0.3})
	if err != nil {
		a.Logger.Printf("warning: impact assessment failed: %v", err)
	} else {
		var parsed []ClassifiedEvent
		if err := json.Unmarshal([]byte(jsonx.StripFences(response)), &parsed); err != nil || len(parsed) == 0 {
			a.Logger.Printf("warning: impact assessment unparseable, keeping classification")
		} else {
			assessed = parsed
		}
	}

	complete := true
	for _, event := range assessed {
		if event.ImpactAnalysis == "" {
			complete = false
			break
		}
	}
	rec.Record("Assess Impact", stepTypeAnalysis,
		fmt.Sprintf("Assessing %d events", len(classified)),
		fmt.Sprintf("Assessed %d events", len(assessed)),
		map[string]interface{}{
			"events_assessed":     len(assessed),
			"assessment_complete": complete,
			"llm_model":           a.LLM.ModelInfo().APIName,
		}, started)
	return assessed
}

func (a *Agent) generateAlerts(ctx context.Context, rec *trace.Recorder, in Input, assessed []ClassifiedEvent) Output {
	started := time.Now()

	eventsJSON, _ := json.MarshalIndent(assessed, "", "  ")
	prompt := fmt.Sprintf(`You are generating a stock monitoring report.

Monitored Watchlist: %s
Time Period: %s
Alert Threshold: %s

Assessed Events:
%s

Generate:
1. executive_summary: 2-3 sentence overview of key findings
2. market_context: brief description of overall market conditions affecting these stocks
3. recommendations: 3-5 high-level portfolio management recommendations

Return JSON with these three fields.
Return ONLY valid JSON object, no markdown formatting.`,
		strings.Join(in.Watchlist, ", "), in.TimePeriod, in.AlertThreshold, eventsJSON)

	var synthesis struct {
		ExecutiveSummary string   `json:"executive_summary"`
		MarketContext    string   `json:"market_context"`
		Recommendations  []string `json:"recommendations"`
	}
	response, err := a.LLM.Generate(ctx, "", prompt,
		map[string]interface{}{"temperature": 0.3, "max_tokens": 2000})
	if err == nil {
		err = jsonx.Unmarshal(response, &synthesis)
	}
	if err != nil {
		a.Logger.Printf("warning: alert synthesis failed: %v", err)
		synthesis.ExecutiveSummary = fmt.Sprintf("Monitored %d stocks with %d alerts generated.", len(in.Watchlist), len(assessed))
		synthesis.MarketContext = "Unable to generate market context."
		synthesis.Recommendations = []string{"Review individual alerts for detailed analysis."}
	}

	now := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	alerts := make([]Alert, 0, len(assessed))
	for _, event := range assessed {
		ticker := event.Ticker
		if ticker == "" {
			ticker = "UNKNOWN"
		}
		company := event.CompanyName
		if company == "" {
			company = ticker
		}
		severity := event.Severity
		if severity == "" {
			severity = "medium"
		}
		headline := event.Headline
		if headline == "" {
			headline = "No headline"
		}
		description := event.Reasoning
		if description == "" {
			description = "No description available"
		}
		impact := event.ImpactAnalysis
		if impact == "" {
			impact = "Impact analysis pending"
		}
		action := event.ActionSuggested
		if action == "" {
			action = "Monitor situation"
		}
		alerts = append(alerts, Alert{
			Ticker:          ticker,
			CompanyName:     company,
			EventType:       event.EventType,
			Severity:        severity,
			Headline:        headline,
			Description:     description,
			Source:          alertSource,
			Timestamp:       now,
			ImpactAnalysis:  impact,
			ActionSuggested: action,
		})
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return severityRank(alerts[i].Severity) < severityRank(alerts[j].Severity)
	})

	breakdown := map[string]int{}
	for _, alert := range alerts {
		breakdown[alert.EventType]++
	}
	highest := "none"
	if len(alerts) > 0 {
		highest = alerts[0].Severity
	}

	output := Output{
		ExecutiveSummary: synthesis.ExecutiveSummary,
		Alerts:           alerts,
		WatchlistOverview: WatchlistOverview{
			TotalStocksMonitored: len(in.Watchlist),
			AlertsTriggered:      len(alerts),
			EventBreakdown:       breakdown,
			HighestSeverityAlert: highest,
		},
		MarketContext:   synthesis.MarketContext,
		Recommendations: synthesis.Recommendations,
	}

	alertsBySeverity := map[string]interface{}{}
	for _, severity := range []string{"critical", "high", "medium", "low"} {
		n := 0
		for _, alert := range alerts {
			if alert.Severity == severity {
				n++
			}
		}
		alertsBySeverity[severity] = n
	}
	rec.Record("Generate Alerts", stepTypeSynthesis,
		fmt.Sprintf("Generating alerts from %d assessed events", len(assessed)),
		fmt.Sprintf("Generated %d alerts, %d recommendations", len(alerts), len(output.Recommendations)),
		map[string]interface{}{
			"total_alerts_generated": len(alerts),
			"alerts_by_severity":     alertsBySeverity,
			"recommendations_count":  len(output.Recommendations),
			"llm_model":              a.LLM.ModelInfo().APIName,
		}, started)
	return output
}

func severityRank(severity string) int {
	if rank, ok := severityOrder[severity]; ok {
		return rank
	}
	return 4
}
