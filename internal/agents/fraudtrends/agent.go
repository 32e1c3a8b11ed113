// Package fraudtrends implements the fraud-trends investigator: a
// six-step workflow that plans research queries, searches industry,
// regulatory and academic sources, extracts classified fraud trends and
// synthesizes an executive report.
package fraudtrends

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/agentworks/casestudio/internal/casestudy"
	"github.com/agentworks/casestudio/internal/jsonx"
	"github.com/agentworks/casestudio/internal/llm"
	"github.com/agentworks/casestudio/internal/trace"
	"github.com/agentworks/casestudio/tools/web_fetch"
	"github.com/agentworks/casestudio/tools/web_search"
	"github.com/agentworks/casestudio/utils"
)

type Agent struct {
	LLM      llm.Provider
	Searcher web_search.WebSearcher
	Logger   *log.Logger

	// Fetcher, when set, pulls the full page text for search hits whose
	// provider returned no content.
	Fetcher *web_fetch.Fetcher
}

func New(provider llm.Provider, searcher web_search.WebSearcher, logger *log.Logger) *Agent {
	if logger == nil {
		logger = log.New(log.Writer(), "[FRAUD] ", log.LstdFlags)
	}
	return &Agent{LLM: provider, Searcher: searcher, Logger: logger}
}

// source is a search hit plus its quality tier.
type source struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	PublishedDate string  `json:"published_date,omitempty"`
	Score         float64 `json:"score"`
	Tier          string  `json:"source_tier"`
}

// Run executes the full workflow and assembles the case-study document.
func (a *Agent) Run(ctx context.Context, in Input) (casestudy.Document, error) {
	rec := trace.NewRecorder()

	plan, err := a.planResearch(ctx, rec, in)
	if err != nil {
		return casestudy.Document{}, fmt.Errorf("step 1 (research planning): %w", err)
	}

	industry := a.searchStep(ctx, rec, "Search Industry Sources", stepTypeSearchIndustry, plan.IndustryQueries, nil, "")
	regulatory := a.searchStep(ctx, rec, "Search Regulatory Sources", stepTypeSearchRegulatory, plan.RegulatoryQueries, RegulatoryDomains, TierRegulatory)
	academic := a.searchStep(ctx, rec, "Search Academic Sources", stepTypeSearchAcademic, plan.AcademicQueries, AcademicDomains, TierRegulatory)

	trends, findings, breakdown, err := a.extractFindings(ctx, rec, industry, regulatory, academic)
	if err != nil {
		return casestudy.Document{}, fmt.Errorf("step 5 (extract findings): %w", err)
	}

	output, err := a.synthesizeReport(ctx, rec, in, trends, findings, breakdown)
	if err != nil {
		return casestudy.Document{}, fmt.Errorf("step 6 (synthesize report): %w", err)
	}

	title := in.Topic
	if !strings.HasSuffix(title, " - Fraud Trends Analysis") {
		title += " - Fraud Trends Analysis"
	}
	subtitle := fmt.Sprintf("Research findings for %s (%s)", strings.Join(in.Regions, ", "), in.TimeRange)

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

func (a *Agent) planResearch(ctx context.Context, rec *trace.Recorder, in Input) (ResearchPlan, error) {
	started := time.Now()

	system := `You are an expert insurance fraud researcher and investigator.
Your task is to create a targeted research strategy for investigating fraud trends.

You will generate specific search queries optimized for web search engines to find:
1. Industry sources (insurance trade publications, industry reports, professional organizations)
2. Regulatory sources (NAIC, FBI, state insurance departments, government agencies)
3. Academic sources (research papers, university studies, peer-reviewed journals)

Guidelines:
- Make queries specific and targeted (not too broad)
- Include relevant time periods when applicable
- Focus queries on the specific regions of interest
- Include both technical fraud terms and common language
- Prioritize queries that will yield authoritative, high-quality sources`

	focusAreas := ""
	if len(in.FocusAreas) > 0 {
		focusAreas = "\nFocus Areas: " + strings.Join(in.FocusAreas, ", ")
	}
	prompt := fmt.Sprintf(`Create a research strategy for the following fraud investigation:

Topic: %s
Regions: %s
Time Range: %s%s

Generate 6-8 total search queries distributed as follows:
- 2-3 queries for INDUSTRY sources (insurance publications, trade journals, industry reports)
- 2-3 queries for REGULATORY sources (NAIC, FBI, state departments, government agencies)
- 1-2 queries for ACADEMIC sources (research papers, university studies, peer-reviewed journals)

Return your response in the following JSON format:
{
  "industry_queries": ["query 1", "query 2", "query 3"],
  "regulatory_queries": ["query 1", "query 2", "query 3"],
  "academic_queries": ["query 1", "query 2"]
}

IMPORTANT: Return ONLY the JSON object, no additional text or explanation.`,
		in.Topic, strings.Join(in.Regions, ", "), in.TimeRange, focusAreas)

	response, err := a.LLM.Generate(ctx, system, prompt, map[string]interface{}{"temperature": 0.3})
	if err != nil {
		return ResearchPlan{}, err
	}

	var plan ResearchPlan
	if err := jsonx.Unmarshal(response, &plan); err != nil {
		return ResearchPlan{}, err
	}
	if len(plan.IndustryQueries) == 0 || len(plan.RegulatoryQueries) == 0 || len(plan.AcademicQueries) == 0 {
		return ResearchPlan{}, fmt.Errorf("research plan missing query categories")
	}

	rec.Record("Plan Research Strategy", stepTypePlanning,
		fmt.Sprintf("Topic: %s, Regions: %s, Time Range: %s", in.Topic, strings.Join(in.Regions, ", "), in.TimeRange),
		fmt.Sprintf("Generated %d industry queries, %d regulatory queries, %d academic queries",
			len(plan.IndustryQueries), len(plan.RegulatoryQueries), len(plan.AcademicQueries)),
		map[string]interface{}{
			"research_plan": map[string]interface{}{
				"industry_queries":   plan.IndustryQueries,
				"regulatory_queries": plan.RegulatoryQueries,
				"academic_queries":   plan.AcademicQueries,
			},
			"llm_model":   a.LLM.ModelInfo().APIName,
			"temperature": 0.3,
		}, started)
	return plan, nil
}

// searchStep runs all queries of one category. Per-query failures are
// logged and skipped so one flaky search does not kill the run. When
// sites is set the search is restricted to those domains and every hit
// gets the fixed tier; otherwise the tier comes from the URL.
func (a *Agent) searchStep(ctx context.Context, rec *trace.Recorder, name, stepType string, queries, sites []string, fixedTier string) []source {
	started := time.Now()

	var all []source
	backfilled := 0
	queryResults := map[string]interface{}{}
	for _, query := range queries {
		results, err := a.Searcher.Discover(ctx, query, maxSearchResultsPerQuery, sites, 0)
		if err != nil {
			a.Logger.Printf("warning: search failed for query %q: %v", query, err)
			queryResults[query] = 0
			continue
		}
		for _, r := range results {
			tier := fixedTier
			if tier == "" {
				tier = SourceTier(r.URL)
			}
			content := r.Text()
			if content == "" && a.Fetcher != nil {
				if page, err := a.Fetcher.Extract(ctx, r.URL); err == nil && page.Text != "" {
					content = utils.Truncate(page.Text, 2000)
					backfilled++
				}
			}
			all = append(all, source{
				Title:         r.Title,
				URL:           r.URL,
				Content:       content,
				PublishedDate: r.PublishedDate,
				Score:         r.Score,
				Tier:          tier,
			})
		}
		queryResults[query] = len(results)
	}

	details := map[string]interface{}{
		"queries":               queries,
		"query_results":         queryResults,
		"total_results":         len(all),
		"max_results_per_query": maxSearchResultsPerQuery,
		"results":               sourceDetails(all),
	}
	if a.Fetcher != nil {
		details["full_text_backfills"] = backfilled
	}
	if fixedTier != "" {
		details["source_tier"] = fixedTier
		details["include_domains"] = sites
	}
	rec.Record(name, stepType,
		fmt.Sprintf("Executed %d queries: %s", len(queries), utils.Truncate(strings.Join(queries, ", "), 200)),
		fmt.Sprintf("Found %d sources across %d queries", len(all), len(queries)),
		details, started)
	return all
}

func sourceDetails(sources []source) []interface{} {
	out := make([]interface{}, len(sources))
	for i, s := range sources {
		out[i] = map[string]interface{}{
			"title":          s.Title,
			"url":            s.URL,
			"published_date": s.PublishedDate,
			"score":          s.Score,
			"source_tier":    s.Tier,
		}
	}
	return out
}

func (a *Agent) extractFindings(ctx context.Context, rec *trace.Recorder, industry, regulatory, academic []source) ([]Trend, []extractedFinding, SourceTierBreakdown, error) {
	started := time.Now()

	all := append(append(append([]source{}, industry...), regulatory...), academic...)
	total := len(all)
	if total == 0 {
		return nil, nil, SourceTierBreakdown{}, fmt.Errorf("no search results to extract findings from")
	}

	breakdown := tierBreakdown(all)

	// Cap the prompt at the top 50 sources by relevance score.
	sorted := make([]source, len(all))
	copy(sorted, all)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	if len(sorted) > 50 {
		sorted = sorted[:50]
	}

	var summaries []string
	for i, s := range sorted {
		summaries = append(summaries, fmt.Sprintf("Source %d: %s\nURL: %s\nContent: %s\n",
			i+1, s.Title, s.URL, utils.Truncate(s.Content, 500)))
	}
	sourcesText := strings.Join(summaries, "\n---\n")

	system := `You are an expert insurance fraud analyst specializing in trend identification and classification.

Your task is to analyze research sources and extract structured fraud trend data with domain-specific attributes.

For each fraud trend you identify:
1. Name: Clear, concise name for the trend
2. Category: Must be one of: synthetic_identity, staged_accident, exaggerated_claim, repair_fraud, phantom_vehicle, bodily_injury_fraud, property_fraud, health_fraud, workers_comp_fraud, organized_crime, provider_fraud, premium_fraud, digital_fraud, cyber_fraud
3. Description: 2-3 sentence description
4. Severity: Must be one of: low, medium, high, critical
5. Detection Difficulty: Must be one of: easy, moderate, hard, very_hard
6. Geographic Scope: List of regions/states affected
7. Affected Lines: List of insurance lines (e.g., auto, home, health)
8. Estimated Impact: Financial or operational impact description

For regulatory findings:
- Identify any regulatory changes, warnings, or enforcement actions
- Include issuing agency, date range, and specific requirements

Be comprehensive but accurate. Only extract trends with clear evidence from the sources.`

	prompt := fmt.Sprintf(`Analyze the following %d research sources and extract structured fraud trends and regulatory findings.

%s

Return your analysis in the following JSON format:
{
  "trends": [
    {
      "name": "Trend name",
      "category": "fraud_category",
      "description": "Detailed description",
      "severity": "severity_level",
      "detection_difficulty": "difficulty_level",
      "geographic_scope": ["region1", "region2"],
      "affected_lines": ["auto", "home"],
      "estimated_impact": "Impact description"
    }
  ],
  "regulatory_findings": [
    {
      "title": "Regulatory finding title",
      "issuing_agency": "Agency name",
      "date_range": "Time period",
      "description": "Description of regulatory change or action",
      "severity": "severity_level",
      "affected_regions": ["region1"]
    }
  ]
}

IMPORTANT:
- Return ONLY the JSON object, no additional text
- Use ONLY the exact category values listed above
- Use ONLY these severity values: low, medium, high, critical
- Use ONLY these detection difficulty values: easy, moderate, hard, very_hard
- Extract 3-7 major trends (prioritize quality over quantity)
- Include 0-5 regulatory findings if present in sources`, len(sorted), sourcesText)

	response, err := a.LLM.Generate(ctx, system, prompt, map[string]interface{}{"temperature": 0.4})
	if err != nil {
		return nil, nil, breakdown, err
	}

	var extracted struct {
		Trends             []Trend            `json:"trends"`
		RegulatoryFindings []extractedFinding `json:"regulatory_findings"`
	}
	if err := jsonx.Unmarshal(response, &extracted); err != nil {
		return nil, nil, breakdown, err
	}
	if len(extracted.Trends) == 0 {
		return nil, nil, breakdown, fmt.Errorf("no trends in extraction response")
	}

	breakdownMap, _ := casestudy.AsMap(breakdown)
	rec.Record("Extract Key Findings", stepTypeExtraction,
		fmt.Sprintf("Analyzed %d sources (%d Tier 1, %d Tier 2, %d Tier 3)",
			total, breakdown.Tier1Count, breakdown.Tier2Count, breakdown.Tier3Count),
		fmt.Sprintf("Extracted %d fraud trends, %d regulatory findings",
			len(extracted.Trends), len(extracted.RegulatoryFindings)),
		map[string]interface{}{
			"total_sources_analyzed":    total,
			"sources_sent_to_llm":       len(sorted),
			"source_tier_breakdown":     breakdownMap,
			"trends_count":              len(extracted.Trends),
			"regulatory_findings_count": len(extracted.RegulatoryFindings),
			"llm_model":                 a.LLM.ModelInfo().APIName,
			"temperature":               0.4,
		}, started)

	return extracted.Trends, extracted.RegulatoryFindings, breakdown, nil
}

func tierBreakdown(all []source) SourceTierBreakdown {
	b := SourceTierBreakdown{TotalSources: len(all)}
	for _, s := range all {
		switch s.Tier {
		case TierRegulatory:
			b.Tier1Count++
		case TierIndustry:
			b.Tier2Count++
		default:
			b.Tier3Count++
		}
	}
	if b.TotalSources > 0 {
		b.Tier1Percentage = round2(float64(b.Tier1Count) / float64(b.TotalSources) * 100)
		b.Tier2Percentage = round2(float64(b.Tier2Count) / float64(b.TotalSources) * 100)
		b.Tier3Percentage = round2(float64(b.Tier3Count) / float64(b.TotalSources) * 100)
	}
	return b
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func (a *Agent) synthesizeReport(ctx context.Context, rec *trace.Recorder, in Input, trends []Trend, findings []extractedFinding, breakdown SourceTierBreakdown) (Output, error) {
	started := time.Now()

	confidence := ConfidenceLevel(breakdown.TotalSources, breakdown.Tier1Percentage)

	system := `You are an expert insurance fraud consultant preparing an executive briefing.

Your task is to synthesize research findings into a concise, actionable report for insurance executives and fraud investigators.

Guidelines:
- Executive Summary: Write 2-3 clear paragraphs covering key trends, their business impact, and overall assessment
- Recommendations: Provide 5-7 specific, actionable recommendations prioritized by impact
- Focus on business value and operational applicability
- Use professional but accessible language
- Emphasize what insurers should DO in response to these trends`

	var trendsText strings.Builder
	for i, t := range trends {
		fmt.Fprintf(&trendsText, "%d. %s (Category: %s)\n", i+1, t.Name, t.Category)
		fmt.Fprintf(&trendsText, "   Severity: %s | Detection: %s\n", t.Severity, t.DetectionDifficulty)
		fmt.Fprintf(&trendsText, "   Lines: %s\n", strings.Join(t.AffectedLines, ", "))
		fmt.Fprintf(&trendsText, "   Description: %s\n", t.Description)
		fmt.Fprintf(&trendsText, "   Impact: %s\n\n", t.EstimatedImpact)
	}
	var regulatoryText strings.Builder
	if len(findings) > 0 {
		regulatoryText.WriteString("REGULATORY FINDINGS:\n")
		for i, f := range findings {
			fmt.Fprintf(&regulatoryText, "%d. %s\n   Agency: %s\n   Severity: %s\n   Description: %s\n\n",
				i+1, f.Title, f.IssuingAgency, f.Severity, f.Description)
		}
	}

	prompt := fmt.Sprintf(`Synthesize the following fraud trend research into an executive report:

RESEARCH CONTEXT:
Topic: %s
Regions: %s
Time Range: %s

SOURCE QUALITY:
Total Sources: %d
Tier 1 Sources: %d (%.2f%%)
Tier 2 Sources: %d (%.2f%%)
Tier 3 Sources: %d (%.2f%%)

FRAUD TRENDS IDENTIFIED:
%s

%s

Generate an executive report in the following JSON format:
{
  "executive_summary": "2-3 paragraphs synthesizing key findings, business impact, and overall assessment",
  "recommendations": [
    "Specific actionable recommendation 1",
    "Specific actionable recommendation 2",
    "Specific actionable recommendation 3",
    "Specific actionable recommendation 4",
    "Specific actionable recommendation 5"
  ]
}

IMPORTANT:
- Return ONLY the JSON object, no additional text
- Executive summary should be 2-3 well-structured paragraphs
- Provide 5-7 actionable recommendations
- Make recommendations specific and implementable (not generic advice)
- Prioritize recommendations by potential business impact`,
		in.Topic, strings.Join(in.Regions, ", "), in.TimeRange,
		breakdown.TotalSources,
		breakdown.Tier1Count, breakdown.Tier1Percentage,
		breakdown.Tier2Count, breakdown.Tier2Percentage,
		breakdown.Tier3Count, breakdown.Tier3Percentage,
		trendsText.String(), regulatoryText.String())

	response, err := a.LLM.Generate(ctx, system, prompt, map[string]interface{}{"temperature": 0.5})
	if err != nil {
		return Output{}, err
	}

	var synthesis struct {
		ExecutiveSummary string   `json:"executive_summary"`
		Recommendations  []string `json:"recommendations"`
	}
	if err := jsonx.Unmarshal(response, &synthesis); err != nil {
		return Output{}, err
	}
	if synthesis.ExecutiveSummary == "" {
		return Output{}, fmt.Errorf("missing executive_summary in synthesis response")
	}
	if len(synthesis.Recommendations) == 0 {
		return Output{}, fmt.Errorf("missing recommendations in synthesis response")
	}

	regFindings := make([]RegulatoryFinding, 0, len(findings))
	for _, f := range findings {
		agency := f.IssuingAgency
		if agency == "" {
			agency = "Unknown Agency"
		}
		date := f.DateRange
		if date == "" {
			date = "Unknown"
		}
		severity := f.Severity
		if severity == "" {
			severity = "medium"
		}
		regFindings = append(regFindings, RegulatoryFinding{
			Source:   agency,
			Finding:  f.Title,
			Date:     date,
			Severity: severity,
			URL:      nil,
		})
	}

	output := Output{
		ExecutiveSummary:    synthesis.ExecutiveSummary,
		Trends:              trends,
		RegulatoryFindings:  regFindings,
		SourceTierBreakdown: breakdown,
		ConfidenceLevel:     confidence,
		DataFreshness:       in.TimeRange,
		Disclaimer:          Disclaimer,
		Recommendations:     synthesis.Recommendations,
	}

	rec.Record("Synthesize Report", stepTypeSynthesis,
		fmt.Sprintf("Synthesizing %d trends, %d regulatory findings, confidence: %s", len(trends), len(findings), confidence),
		fmt.Sprintf("Generated executive summary and %d recommendations", len(synthesis.Recommendations)),
		map[string]interface{}{
			"input_trends_count":              len(trends),
			"input_regulatory_findings_count": len(findings),
			"confidence_level":                confidence,
			"confidence_basis": map[string]interface{}{
				"total_sources":     breakdown.TotalSources,
				"tier_1_percentage": breakdown.Tier1Percentage,
			},
			"recommendations_count": len(synthesis.Recommendations),
			"llm_model":             a.LLM.ModelInfo().APIName,
			"temperature":           0.5,
		}, started)

	return output, nil
}
