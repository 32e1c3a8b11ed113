package articleeditor

import (
	"regexp"
	"strings"
)

var (
	paragraphSplitRe = regexp.MustCompile(`\n\s*\n`)
	headingRe        = regexp.MustCompile(`(?m)^#+\s+.+$|^[A-Z][A-Z\s]{10,}$`)
	exampleRe        = regexp.MustCompile(`(?i)\b(for example|for instance|e\.g\.|such as)\b|(\*\*.*?\*\*)`)
	sentenceRe       = regexp.MustCompile(`[.!?]+`)
	syllableRe       = regexp.MustCompile(`(?i)[aeiouy]+`)
	citationRe       = regexp.MustCompile(`\[.*?\]\(.*?\)|\[\d+\]`)
)

// CalculateMetrics measures an article: counts, a simplified Flesch
// reading-ease approximation and a keyword-density SEO score, both
// clamped to 0-100.
func CalculateMetrics(text string, targetKeywords []string) Metrics {
	words := strings.Fields(text)
	wordCount := len(words)

	paragraphCount := 0
	for _, p := range paragraphSplitRe.Split(text, -1) {
		if strings.TrimSpace(p) != "" {
			paragraphCount++
		}
	}

	headingsCount := len(headingRe.FindAllString(text, -1))
	examplesCount := len(exampleRe.FindAllString(text, -1))

	sentences := len(sentenceRe.FindAllString(text, -1))
	if sentences == 0 {
		sentences = 1
	}
	syllables := 0
	for _, w := range words {
		syllables += len(syllableRe.FindAllString(w, -1))
	}
	avgSentenceLength := float64(wordCount) / float64(sentences)
	avgSyllablesPerWord := 0.0
	if wordCount > 0 {
		avgSyllablesPerWord = float64(syllables) / float64(wordCount)
	}
	readability := 206.835 - 1.015*avgSentenceLength - 84.6*avgSyllablesPerWord
	readability = clamp(readability, 0, 100)

	seoScore := 0.0
	if len(targetKeywords) > 0 {
		lower := strings.ToLower(text)
		occurrences := 0
		for _, kw := range targetKeywords {
			occurrences += strings.Count(lower, strings.ToLower(kw))
		}
		density := 0.0
		if wordCount > 0 {
			density = float64(occurrences) / float64(wordCount) * 100
		}
		// Optimal keyword density is 1-3% of total words.
		switch {
		case density >= 1.0 && density <= 3.0:
			seoScore = 90.0
		case density > 0 && density < 1.0:
			seoScore = 50.0 + density*40
		case density > 3.0 && density < 5.0:
			seoScore = 70.0
		case density >= 5.0:
			seoScore = 40.0
		default:
			seoScore = 20.0
		}
	}

	claimsWithReferences := len(citationRe.FindAllString(text, -1))

	return Metrics{
		WordCount:            wordCount,
		ParagraphCount:       paragraphCount,
		HeadingsCount:        headingsCount,
		ExamplesCount:        examplesCount,
		ReadabilityScore:     round1(readability),
		SEOScore:             round1(seoScore),
		ClaimsWithReferences: claimsWithReferences,
	}
}

func clamp(f, lo, hi float64) float64 {
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
