package articleeditor

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
	responses map[string]string
	calls     []string
}

func (s *scriptedLLM) Generate(_ context.Context, _, prompt string, _ map[string]interface{}) (string, error) {
	for marker, response := range s.responses {
		if strings.Contains(prompt, marker) {
			s.calls = append(s.calls, marker)
			return response, nil
		}
	}
	return "", fmt.Errorf("unexpected prompt: %s", prompt)
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
}

func (f *fakeSearcher) Discover(_ context.Context, q string, k int, _ []string, _ int) ([]models.Result, error) {
	f.queries = append(f.queries, q)
	return []models.Result{
		{Title: "Source for " + q, URL: "https://example.com/ref", Content: strings.Repeat("snippet ", 50), Score: 0.8},
	}, nil
}

const originalArticle = `Go compiles fast. Studies show build times matter to developer productivity.

It also ships a race detector. Teams adopt it widely.`

// The enhanced_article value deliberately contains raw newlines and an
// unescaped quote so the repair path is exercised.
const enhancedResponse = "```json\n" + `{
  "tldr": "Go builds fast and safely.",
  "enhanced_article": "## Why Go
Go compiles "fast". **For example, a full rebuild takes seconds.**

## Key Learnings
- Speed matters", "key_learnings": ["Speed matters", "Race detector helps"],
  "structural_changes_made": [
    {"section": "Intro", "change_type": "added_heading", "description": "Added Why Go heading", "rationale": "Rule 6"}
  ],
  "added_references": [
    {"claim": "build times matter", "source_title": "Source", "source_url": "https://example.com/ref", "relevance": "supports claim"}
  ],
  "added_examples": [
    {"context": "Intro", "example_text": "full rebuild takes seconds", "purpose": "illustrate speed"}
  ],
  "flow_improvements_made": [],
  "seo_analysis": "Keywords placed in headings.",
  "tone_preservation_notes": "Kept conversational phrasing.",
  "editor_notes": "Solid draft."
}` + "\n```"

func scripted() *scriptedLLM {
	return &scriptedLLM{responses: map[string]string{
		"Analyze the structure": `{
			"has_clear_introduction": true,
			"has_clear_conclusion": false,
			"has_tldr": false,
			"has_key_learnings": false,
			"paragraph_structure": "short paragraphs",
			"heading_usage": "no headings",
			"structural_issues": ["missing headings"],
			"recommended_sections": ["TLDR", "Key Learnings"]
		}`,
		"Identify factual claims": `{
			"claims": [
				{"claim_text": "build times matter to developer productivity", "context": "intro", "claim_type": "research"}
			]
		}`,
		"Suggest examples": `{
			"examples": [
				{"location": "intro", "concept": "compile speed", "example_text": "a full rebuild takes seconds", "rationale": "concrete"}
			]
		}`,
		"Analyze the flow": `{
			"flow_improvements": [
				{"location": "between paragraphs", "issue_type": "weak_transition", "description": "abrupt jump", "suggestion": "add a bridge sentence"}
			]
		}`,
		"Enhance this article": enhancedResponse,
	}}
}

func TestRunProducesValidCaseStudy(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{}
	agent := New(scripted(), searcher, log.New(io.Discard, "", 0))
	doc, err := agent.Run(context.Background(), Input{
		OriginalText:   originalArticle,
		TargetKeywords: []string{"go", "build speed"},
		Tone:           "professional",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if doc.AgentSlug != Slug {
		t.Errorf("agent_slug = %q", doc.AgentSlug)
	}
	wantTitle := fmt.Sprintf("Article Enhancement - %d characters", len(originalArticle))
	if doc.Title != wantTitle {
		t.Errorf("title = %q, want %q", doc.Title, wantTitle)
	}
	if doc.Subtitle != "professional tone, go, build speed" {
		t.Errorf("subtitle = %q", doc.Subtitle)
	}
	if len(doc.ExecutionTrace) != 7 {
		t.Fatalf("expected 7 trace steps, got %d", len(doc.ExecutionTrace))
	}
	wantSteps := []string{
		"Analyze Structure", "Identify Claims", "Search References", "Find Examples",
		"Analyze Flow", "Generate Suggestions", "Produce Enhanced Version",
	}
	for i, name := range wantSteps {
		if doc.ExecutionTrace[i].StepName != name {
			t.Errorf("step %d = %q, want %q", i+1, doc.ExecutionTrace[i].StepName, name)
		}
	}

	m, err := doc.ToMap()
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	if err := casestudy.Validate(m); err != nil {
		t.Fatalf("document fails validation: %v", err)
	}

	// The reference search appends the top keywords to the claim query.
	if len(searcher.queries) != 1 || !strings.Contains(searcher.queries[0], "go build speed") {
		t.Errorf("reference queries = %v", searcher.queries)
	}
}

func TestRunRepairsBrokenEnhancedArticle(t *testing.T) {
	t.Parallel()

	agent := New(scripted(), nil, log.New(io.Discard, "", 0))
	doc, err := agent.Run(context.Background(), Input{OriginalText: originalArticle})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := doc.OutputResult
	enhanced, _ := out["enhanced_article"].(string)
	if !strings.Contains(enhanced, `compiles "fast"`) {
		t.Errorf("unescaped quote lost: %q", enhanced)
	}
	if !strings.Contains(enhanced, "## Why Go\n") {
		t.Errorf("newlines lost: %q", enhanced)
	}
	if out["tldr"] != "Go builds fast and safely." {
		t.Errorf("tldr = %v", out["tldr"])
	}
}

func TestRunSkipsReferenceSearchWithoutSearcher(t *testing.T) {
	t.Parallel()

	agent := New(scripted(), nil, log.New(io.Discard, "", 0))
	doc, err := agent.Run(context.Background(), Input{OriginalText: originalArticle})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	step := doc.ExecutionTrace[2]
	if step.StepType != "reference_search" {
		t.Fatalf("step type = %q", step.StepType)
	}
	if !strings.Contains(step.OutputSummary, "Skipped") {
		t.Errorf("output summary = %q", step.OutputSummary)
	}
	if step.Details["search_available"] != false {
		t.Errorf("search_available = %v", step.Details["search_available"])
	}
}

func TestRunChecklistReflectsMetrics(t *testing.T) {
	t.Parallel()

	agent := New(scripted(), nil, log.New(io.Discard, "", 0))
	doc, err := agent.Run(context.Background(), Input{
		OriginalText:   originalArticle,
		TargetKeywords: []string{"go"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	checklist := doc.OutputResult["enhancement_checklist"].(map[string]interface{})
	for _, key := range []string{"has_tldr", "examples_bolded", "has_key_learnings", "human_tone_retained", "paragraphs_have_headings"} {
		if checklist[key] != true {
			t.Errorf("checklist[%s] = %v, want true", key, checklist[key])
		}
	}

	metrics := doc.OutputResult["before_after_metrics"].(map[string]interface{})
	if metrics["headings_before"] != float64(0) {
		t.Errorf("headings_before = %v", metrics["headings_before"])
	}
	if metrics["headings_after"].(float64) < 2 {
		t.Errorf("headings_after = %v, want >= 2", metrics["headings_after"])
	}
}

func TestRunFailsWhenStructureUnparseable(t *testing.T) {
	t.Parallel()

	provider := scripted()
	provider.responses["Analyze the structure"] = "no json here"
	agent := New(provider, nil, log.New(io.Discard, "", 0))
	_, err := agent.Run(context.Background(), Input{OriginalText: originalArticle})
	if err == nil || !strings.Contains(err.Error(), "analyze structure") {
		t.Fatalf("expected structure error, got %v", err)
	}
}
