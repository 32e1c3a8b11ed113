package fraudtrends

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/agentworks/casestudio/internal/casestudy"
	"github.com/agentworks/casestudio/internal/llm"
	"github.com/agentworks/casestudio/tools/web_search/models"
)

type scriptedLLM struct {
	planResponse      string
	extractResponse   string
	synthesisResponse string
	calls             []string
}

func (s *scriptedLLM) Generate(_ context.Context, _, prompt string, _ map[string]interface{}) (string, error) {
	switch {
	case strings.Contains(prompt, "Create a research strategy"):
		s.calls = append(s.calls, "plan")
		return s.planResponse, nil
	case strings.Contains(prompt, "extract structured fraud trends"):
		s.calls = append(s.calls, "extract")
		return s.extractResponse, nil
	case strings.Contains(prompt, "Synthesize the following"):
		s.calls = append(s.calls, "synthesize")
		return s.synthesisResponse, nil
	default:
		return "", fmt.Errorf("unexpected prompt: %s", prompt)
	}
}

func (s *scriptedLLM) GenerateWithUsage(ctx context.Context, system, prompt string, options map[string]interface{}) (string, int64, int64, error) {
	text, err := s.Generate(ctx, system, prompt, options)
	return text, 100, 200, err
}

func (s *scriptedLLM) ModelInfo() llm.ModelInfo {
	return llm.ModelInfo{Name: "claude-3-haiku", APIName: "claude-3-haiku-20240307", Provider: "anthropic"}
}

func (s *scriptedLLM) CalculateCost(in, out int64) float64 { return 0 }

type fakeSearcher struct {
	queries []string
	fail    map[string]bool
}

func (f *fakeSearcher) Discover(_ context.Context, q string, k int, sites []string, _ int) ([]models.Result, error) {
	f.queries = append(f.queries, q)
	if f.fail[q] {
		return nil, fmt.Errorf("search backend unavailable")
	}
	// Restricted searches return hits from the first allowed domain,
	// unrestricted ones from an industry publication.
	url := "https://www.insurancejournal.com/news/item"
	if len(sites) > 0 {
		url = "https://www." + strings.TrimPrefix(sites[0], ".") + "/report"
	}
	var results []models.Result
	for i := 0; i < 3 && i < k; i++ {
		results = append(results, models.Result{
			Title:   fmt.Sprintf("%s result %d", q, i+1),
			URL:     url,
			Content: "Staged accident rings are expanding into new states.",
			Score:   0.9 - float64(i)*0.1,
		})
	}
	return results, nil
}

const planJSON = `{
  "industry_queries": ["auto insurance fraud trends 2025", "staged accident rings industry report"],
  "regulatory_queries": ["NAIC auto fraud bulletin 2025"],
  "academic_queries": ["insurance fraud detection machine learning study"]
}`

const extractJSON = `{
  "trends": [
    {
      "name": "Staged Accident Rings",
      "category": "staged_accident",
      "description": "Organized groups staging multi-vehicle collisions.",
      "severity": "high",
      "detection_difficulty": "hard",
      "geographic_scope": ["US"],
      "affected_lines": ["auto"],
      "estimated_impact": "Hundreds of millions annually"
    }
  ],
  "regulatory_findings": [
    {
      "title": "NAIC bulletin on staged accidents",
      "issuing_agency": "NAIC",
      "date_range": "2025",
      "description": "New reporting requirements for suspected staged collisions.",
      "severity": "medium",
      "affected_regions": ["US"]
    }
  ]
}`

const synthesisJSON = `{
  "executive_summary": "Staged accident fraud is rising across US auto lines.",
  "recommendations": ["r1", "r2", "r3", "r4", "r5"]
}`

func testAgent(searcher *fakeSearcher) (*Agent, *scriptedLLM) {
	provider := &scriptedLLM{
		planResponse:      planJSON,
		extractResponse:   extractJSON,
		synthesisResponse: synthesisJSON,
	}
	return New(provider, searcher, log.New(io.Discard, "", 0)), provider
}

func TestRunProducesValidCaseStudy(t *testing.T) {
	t.Parallel()

	agent, provider := testAgent(&fakeSearcher{})
	doc, err := agent.Run(context.Background(), Input{
		Topic:     "Auto Insurance Fraud",
		Regions:   []string{"US"},
		TimeRange: "2024-2025",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if doc.AgentSlug != Slug {
		t.Errorf("agent_slug = %q", doc.AgentSlug)
	}
	if doc.Title != "Auto Insurance Fraud - Fraud Trends Analysis" {
		t.Errorf("title = %q", doc.Title)
	}
	if doc.Subtitle != "Research findings for US (2024-2025)" {
		t.Errorf("subtitle = %q", doc.Subtitle)
	}
	if len(doc.ExecutionTrace) != 6 {
		t.Fatalf("expected 6 trace steps, got %d", len(doc.ExecutionTrace))
	}
	wantSteps := []string{"Plan Research Strategy", "Search Industry Sources", "Search Regulatory Sources", "Search Academic Sources", "Extract Key Findings", "Synthesize Report"}
	for i, name := range wantSteps {
		if doc.ExecutionTrace[i].StepName != name {
			t.Errorf("step %d = %q, want %q", i+1, doc.ExecutionTrace[i].StepName, name)
		}
	}
	if got := provider.calls; len(got) != 3 || got[0] != "plan" || got[1] != "extract" || got[2] != "synthesize" {
		t.Errorf("llm call order = %v", got)
	}

	m, err := doc.ToMap()
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	if err := casestudy.Validate(m); err != nil {
		t.Fatalf("document fails validation: %v", err)
	}

	out := m["output_result"].(map[string]interface{})
	if out["data_freshness"] != "2024-2025" {
		t.Errorf("data_freshness = %v", out["data_freshness"])
	}
	if out["disclaimer"] != Disclaimer {
		t.Errorf("disclaimer missing")
	}
	findings := out["regulatory_findings"].([]interface{})
	if len(findings) != 1 {
		t.Fatalf("regulatory_findings = %v", findings)
	}
	finding := findings[0].(map[string]interface{})
	if finding["source"] != "NAIC" || finding["finding"] != "NAIC bulletin on staged accidents" {
		t.Errorf("finding mapping wrong: %v", finding)
	}
	if finding["url"] != nil {
		t.Errorf("url should be null, got %v", finding["url"])
	}
}

func TestRunRegulatorySourcesAreTier1(t *testing.T) {
	t.Parallel()

	agent, _ := testAgent(&fakeSearcher{})
	doc, err := agent.Run(context.Background(), Input{
		Topic:     "Auto Insurance Fraud",
		Regions:   []string{"US"},
		TimeRange: "2024-2025",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	reg := doc.ExecutionTrace[2]
	if reg.StepType != "search_regulatory" {
		t.Fatalf("step type = %q", reg.StepType)
	}
	if reg.Details["source_tier"] != TierRegulatory {
		t.Errorf("regulatory step missing tier_1 marker: %v", reg.Details["source_tier"])
	}
	for _, r := range reg.Details["results"].([]interface{}) {
		if r.(map[string]interface{})["source_tier"] != TierRegulatory {
			t.Errorf("regulatory result not tier_1: %v", r)
		}
	}

	// 2 industry queries x3 tier-2 hits, 1 regulatory +1 academic x3 tier-1 hits.
	extract := doc.ExecutionTrace[4]
	breakdown := extract.Details["source_tier_breakdown"].(map[string]interface{})
	if got := breakdown["tier_1_count"]; got != float64(6) {
		t.Errorf("tier_1_count = %v, want 6", got)
	}
	if got := breakdown["tier_2_count"]; got != float64(6) {
		t.Errorf("tier_2_count = %v, want 6", got)
	}
}

func TestRunContinuesPastFailedQuery(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{fail: map[string]bool{"staged accident rings industry report": true}}
	agent, _ := testAgent(searcher)
	doc, err := agent.Run(context.Background(), Input{
		Topic:     "Auto Insurance Fraud",
		Regions:   []string{"US"},
		TimeRange: "2024-2025",
	})
	if err != nil {
		t.Fatalf("Run should survive a single failed query: %v", err)
	}

	industry := doc.ExecutionTrace[1]
	counts := industry.Details["query_results"].(map[string]interface{})
	if counts["staged accident rings industry report"] != 0 {
		t.Errorf("failed query should report 0 results: %v", counts)
	}
	if industry.Details["total_results"] != 3 {
		t.Errorf("total_results = %v, want 3", industry.Details["total_results"])
	}
}

func TestRunFailsWithoutPlan(t *testing.T) {
	t.Parallel()

	agent, provider := testAgent(&fakeSearcher{})
	provider.planResponse = "I could not come up with a strategy."
	_, err := agent.Run(context.Background(), Input{
		Topic:     "Auto Insurance Fraud",
		Regions:   []string{"US"},
		TimeRange: "2024-2025",
	})
	if err == nil || !strings.Contains(err.Error(), "research planning") {
		t.Fatalf("expected planning error, got %v", err)
	}
}

func TestRunFailsWithNoSearchResults(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{fail: map[string]bool{
		"auto insurance fraud trends 2025":                  true,
		"staged accident rings industry report":             true,
		"NAIC auto fraud bulletin 2025":                     true,
		"insurance fraud detection machine learning study":  true,
	}}
	agent, _ := testAgent(searcher)
	_, err := agent.Run(context.Background(), Input{
		Topic:     "Auto Insurance Fraud",
		Regions:   []string{"US"},
		TimeRange: "2024-2025",
	})
	if err == nil || !strings.Contains(err.Error(), "no search results") {
		t.Fatalf("expected extraction failure, got %v", err)
	}
}
