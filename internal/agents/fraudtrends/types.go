package fraudtrends

// Slug identifies the agent in case-study documents and the database.
const Slug = "fraud-trends"

// Step types for the six-step workflow.
const (
	stepTypePlanning         = "planning"
	stepTypeSearchIndustry   = "search_industry"
	stepTypeSearchRegulatory = "search_regulatory"
	stepTypeSearchAcademic   = "search_academic"
	stepTypeExtraction       = "extraction"
	stepTypeSynthesis        = "synthesis"
)

// Input are the research parameters from the CLI.
type Input struct {
	Topic      string   `json:"topic"`
	Regions    []string `json:"regions"`
	TimeRange  string   `json:"time_range"`
	FocusAreas []string `json:"focus_areas,omitempty"`
}

// ResearchPlan is the query strategy produced by the planning step.
type ResearchPlan struct {
	IndustryQueries   []string `json:"industry_queries"`
	RegulatoryQueries []string `json:"regulatory_queries"`
	AcademicQueries   []string `json:"academic_queries"`
}

// Trend is one extracted fraud trend.
type Trend struct {
	Name                string   `json:"name"`
	Category            string   `json:"category"`
	Description         string   `json:"description"`
	Severity            string   `json:"severity"`
	DetectionDifficulty string   `json:"detection_difficulty"`
	GeographicScope     []string `json:"geographic_scope"`
	AffectedLines       []string `json:"affected_lines"`
	EstimatedImpact     string   `json:"estimated_impact"`
}

// extractedFinding is the regulatory-finding shape the extraction step
// asks the model for.
type extractedFinding struct {
	Title           string   `json:"title"`
	IssuingAgency   string   `json:"issuing_agency"`
	DateRange       string   `json:"date_range"`
	Description     string   `json:"description"`
	Severity        string   `json:"severity"`
	AffectedRegions []string `json:"affected_regions"`
}

// RegulatoryFinding is the published output shape.
type RegulatoryFinding struct {
	Source   string  `json:"source"`
	Finding  string  `json:"finding"`
	Date     string  `json:"date"`
	Severity string  `json:"severity"`
	URL      *string `json:"url"`
}

// SourceTierBreakdown summarizes source quality across all searches.
type SourceTierBreakdown struct {
	Tier1Count      int     `json:"tier_1_count"`
	Tier2Count      int     `json:"tier_2_count"`
	Tier3Count      int     `json:"tier_3_count"`
	Tier1Percentage float64 `json:"tier_1_percentage"`
	Tier2Percentage float64 `json:"tier_2_percentage"`
	Tier3Percentage float64 `json:"tier_3_percentage"`
	TotalSources    int     `json:"total_sources"`
}

// Output is the full report written into the case study.
type Output struct {
	ExecutiveSummary    string              `json:"executive_summary"`
	Trends              []Trend             `json:"trends"`
	RegulatoryFindings  []RegulatoryFinding `json:"regulatory_findings"`
	SourceTierBreakdown SourceTierBreakdown `json:"source_tier_breakdown"`
	ConfidenceLevel     string              `json:"confidence_level"`
	DataFreshness       string              `json:"data_freshness"`
	Disclaimer          string              `json:"disclaimer"`
	Recommendations     []string            `json:"recommendations"`
}
