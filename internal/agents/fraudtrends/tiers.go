package fraudtrends

import "strings"

// Source tiers. Tier 1 is regulatory bodies and academic research,
// tier 2 industry publications, tier 3 everything else.
const (
	TierRegulatory = "tier_1"
	TierIndustry   = "tier_2"
	TierGeneral    = "tier_3"
)

// RegulatoryDomains are the regulator sites the regulatory search is
// restricted to; anything from them counts as tier 1.
var RegulatoryDomains = []string{
	"naic.org",
	"fbi.gov",
	"doi.gov",
	"insurance.ca.gov",
	"dfs.ny.gov",
	"tdi.texas.gov",
}

// AcademicDomains are domain patterns for academic tier-1 sources.
var AcademicDomains = []string{
	".edu",
	"scholar.google.com",
	"researchgate.net",
	"jstor.org",
	"springer.com",
	"sciencedirect.com",
	"ieee.org",
}

var industryKeywords = []string{
	"insurance",
	"actuarial",
	"underwriting",
	"claims",
	"iii.org",
	"napslo.org",
	"aba.org",
}

// SourceTier classifies a URL into a quality tier.
func SourceTier(url string) string {
	lower := strings.ToLower(url)
	for _, domain := range RegulatoryDomains {
		if strings.Contains(lower, domain) {
			return TierRegulatory
		}
	}
	for _, domain := range AcademicDomains {
		if strings.Contains(lower, domain) {
			return TierRegulatory
		}
	}
	for _, keyword := range industryKeywords {
		if strings.Contains(lower, keyword) {
			return TierIndustry
		}
	}
	return TierGeneral
}

// Confidence thresholds.
const (
	maxSearchResultsPerQuery = 10
	minSourcesForHigh        = 20
	minTier1PercentForHigh   = 30.0
	minSourcesForMedium      = 10
	minTier1PercentForMedium = 20.0
)

// ConfidenceLevel rates the report by source volume and quality.
func ConfidenceLevel(totalSources int, tier1Percentage float64) string {
	switch {
	case totalSources >= minSourcesForHigh && tier1Percentage >= minTier1PercentForHigh:
		return "high"
	case totalSources >= minSourcesForMedium && tier1Percentage >= minTier1PercentForMedium:
		return "medium"
	default:
		return "low"
	}
}

// Disclaimer is attached to every report.
const Disclaimer = "This report is for informational purposes only and does not constitute " +
	"legal, regulatory, or insurance advice. The information presented is based " +
	"on publicly available sources and may not reflect the most current " +
	"developments. Insurers should consult with their legal and compliance teams " +
	"before implementing any recommendations or making business decisions based " +
	"on this analysis. Fraud patterns and detection methods vary by jurisdiction " +
	"and may be subject to regulatory oversight."
