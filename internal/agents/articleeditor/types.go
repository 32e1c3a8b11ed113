// Package articleeditor implements the article-editor agent: a
// seven-step enhancement workflow that analyzes structure, identifies
// claims, searches references, suggests examples, analyzes flow and
// produces an enhanced article applying six editorial rules.
package articleeditor

// Slug identifies the agent in case-study documents and the database.
const Slug = "article-editor"

// Step types for the seven-step workflow.
const (
	stepTypeStructureAnalysis    = "structure_analysis"
	stepTypeClaimIdentification  = "claim_identification"
	stepTypeReferenceSearch      = "reference_search"
	stepTypeExampleIdentify      = "example_identification"
	stepTypeFlowAnalysis         = "flow_analysis"
	stepTypeSuggestionGeneration = "suggestion_generation"
	stepTypeEnhancement          = "enhancement"
)

// Input are the enhancement parameters from the CLI.
type Input struct {
	OriginalText     string   `json:"original_text"`
	TargetKeywords   []string `json:"target_keywords"`
	TargetAudience   string   `json:"target_audience"`
	EnhancementFocus []string `json:"enhancement_focus"`
	WordLimit        *int     `json:"word_limit"`
	Tone             string   `json:"tone"`
}

// StructureAnalysis is the step-1 assessment.
type StructureAnalysis struct {
	HasClearIntroduction bool     `json:"has_clear_introduction"`
	HasClearConclusion   bool     `json:"has_clear_conclusion"`
	HasTLDR              bool     `json:"has_tldr"`
	HasKeyLearnings      bool     `json:"has_key_learnings"`
	ParagraphStructure   string   `json:"paragraph_structure"`
	HeadingUsage         string   `json:"heading_usage"`
	StructuralIssues     []string `json:"structural_issues"`
	RecommendedSections  []string `json:"recommended_sections"`
}

// Claim is a factual statement that needs a citation.
type Claim struct {
	ClaimText string `json:"claim_text"`
	Context   string `json:"context"`
	ClaimType string `json:"claim_type"`
}

// ReferenceCandidate is one search hit supporting a claim.
type ReferenceCandidate struct {
	Claim          string  `json:"claim"`
	SourceTitle    string  `json:"source_title"`
	SourceURL      string  `json:"source_url"`
	ContentSnippet string  `json:"content_snippet"`
	Score          float64 `json:"score"`
}

// ExampleSuggestion is a step-4 recommendation for a new example.
type ExampleSuggestion struct {
	Location    string `json:"location"`
	Concept     string `json:"concept"`
	ExampleText string `json:"example_text"`
	Rationale   string `json:"rationale"`
}

// FlowIssue is a step-5 finding about transitions or coherence.
type FlowIssue struct {
	Location    string `json:"location"`
	IssueType   string `json:"issue_type"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
}

// StructuralChange records one structural edit in the final output.
type StructuralChange struct {
	Section     string `json:"section"`
	ChangeType  string `json:"change_type"`
	Description string `json:"description"`
	Rationale   string `json:"rationale"`
}

// Reference records one citation added to the enhanced article.
type Reference struct {
	Claim       string `json:"claim"`
	SourceTitle string `json:"source_title"`
	SourceURL   string `json:"source_url"`
	Relevance   string `json:"relevance"`
}

// Example records one example added to the enhanced article.
type Example struct {
	Context     string `json:"context"`
	ExampleText string `json:"example_text"`
	Purpose     string `json:"purpose"`
}

// FlowImprovement records one flow edit in the final output.
type FlowImprovement struct {
	Location        string `json:"location"`
	ImprovementType string `json:"improvement_type"`
	Description     string `json:"description"`
}

// Metrics are the quantitative measures computed for article text.
type Metrics struct {
	WordCount            int     `json:"word_count"`
	ParagraphCount       int     `json:"paragraph_count"`
	HeadingsCount        int     `json:"headings_count"`
	ExamplesCount        int     `json:"examples_count"`
	ReadabilityScore     float64 `json:"readability_score"`
	SEOScore             float64 `json:"seo_score"`
	ClaimsWithReferences int     `json:"claims_with_references"`
}

// BeforeAfterMetrics compares the original and enhanced article.
type BeforeAfterMetrics struct {
	WordCountBefore            int     `json:"word_count_before"`
	WordCountAfter             int     `json:"word_count_after"`
	ReadabilityScoreBefore     float64 `json:"readability_score_before"`
	ReadabilityScoreAfter      float64 `json:"readability_score_after"`
	ParagraphCountBefore       int     `json:"paragraph_count_before"`
	ParagraphCountAfter        int     `json:"paragraph_count_after"`
	HeadingsBefore             int     `json:"headings_before"`
	HeadingsAfter              int     `json:"headings_after"`
	ExamplesBefore             int     `json:"examples_before"`
	ExamplesAfter              int     `json:"examples_after"`
	SEOScoreBefore             float64 `json:"seo_score_before"`
	SEOScoreAfter              float64 `json:"seo_score_after"`
	ClaimsWithReferencesBefore int     `json:"claims_with_references_before"`
	ClaimsWithReferencesAfter  int     `json:"claims_with_references_after"`
}

// Suggestions is the step-6 consolidation of every finding.
type Suggestions struct {
	StructuralChanges   []map[string]string `json:"structural_changes"`
	AddReferences       []map[string]string `json:"add_references"`
	AddExamples         []map[string]string `json:"add_examples"`
	FlowImprovements    []map[string]string `json:"flow_improvements"`
	SEOImprovements     []string            `json:"seo_improvements"`
	ComplianceChecklist map[string]bool     `json:"compliance_checklist"`
}

// Output is the full enhancement result written into the case study.
type Output struct {
	TLDR                  string             `json:"tldr"`
	ExecutiveSummary      string             `json:"executive_summary"`
	OriginalArticle       string             `json:"original_article"`
	EnhancedArticle       string             `json:"enhanced_article"`
	KeyLearnings          []string           `json:"key_learnings"`
	StructuralChanges     []StructuralChange `json:"structural_changes"`
	AddedReferences       []Reference        `json:"added_references"`
	AddedExamples         []Example          `json:"added_examples"`
	FlowImprovements      []FlowImprovement  `json:"flow_improvements"`
	BeforeAfterMetrics    BeforeAfterMetrics `json:"before_after_metrics"`
	SEOAnalysis           string             `json:"seo_analysis"`
	TonePreservationNotes string             `json:"tone_preservation_notes"`
	EditorNotes           string             `json:"editor_notes"`
	EnhancementChecklist  map[string]bool    `json:"enhancement_checklist"`
}
