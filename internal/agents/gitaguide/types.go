// Package gitaguide implements the gita-guide agent: a six-step
// conversational workflow that analyzes a spiritual question, retrieves
// relevant Bhagavad Gita verses from the corpus and formulates a
// level-appropriate teaching with follow-up suggestions.
package gitaguide

// Slug identifies the agent in case-study documents and the database.
const Slug = "gita-guide"

// Step types for the six-step workflow.
const (
	stepTypeAnalysis        = "analysis"
	stepTypeSearch          = "search"
	stepTypeContextAnalysis = "context_analysis"
	stepTypePersonalization = "personalization"
	stepTypeSynthesis       = "synthesis"
	stepTypeGuidance        = "guidance"
)

// UserLevels are the accepted knowledge levels.
var UserLevels = map[string]bool{"beginner": true, "intermediate": true, "advanced": true}

// Input are the guidance parameters from the CLI.
type Input struct {
	Question  string `json:"question"`
	UserLevel string `json:"user_level"`
	Context   string `json:"context,omitempty"`
}

// Intent is the step-1 reading of the question.
type Intent struct {
	CoreTopic    string   `json:"core_topic"`
	KeyConcepts  []string `json:"key_concepts"`
	GuidanceType string   `json:"guidance_type"`
	LifeContext  string   `json:"life_context"`
}

// SelectedVerse is a verse the model picked with its relevance note.
type SelectedVerse struct {
	VerseID   string `json:"verse_id"`
	Relevance string `json:"relevance"`
}

// Verse is a corpus verse enriched for the final answer.
type Verse struct {
	Chapter             int    `json:"chapter"`
	VerseNumber         int    `json:"verse_number"`
	VerseID             string `json:"verse_id"`
	SanskritText        string `json:"sanskrit_text"`
	Transliteration     string `json:"transliteration"`
	EnglishTranslation  string `json:"english_translation"`
	Commentary          string `json:"-"`
	RelevanceToQuestion string `json:"relevance_to_question"`
}

// contextAnalysis is the step-3 result for follow-up questions.
type contextAnalysis struct {
	IsFollowup         bool     `json:"is_followup"`
	ContextSummary     string   `json:"context_summary"`
	KeyPointsToAddress []string `json:"key_points_to_address"`
}

// levelGuidance steers the teaching style for one user level.
type levelGuidance struct {
	Style string
	Depth string
	Tone  string
}

var levelGuidanceTable = map[string]levelGuidance{
	"beginner": {
		Style: "Use simple language, explain Sanskrit terms, provide relatable examples",
		Depth: "Focus on practical application and basic concepts",
		Tone:  "Warm, encouraging, accessible",
	},
	"intermediate": {
		Style: "Balance technical terms with explanations, draw connections between concepts",
		Depth: "Explore philosophical nuances and interconnections",
		Tone:  "Engaging, intellectually stimulating",
	},
	"advanced": {
		Style: "Use philosophical terminology, reference commentaries, explore subtle meanings",
		Depth: "Deep philosophical analysis, multiple interpretations, scholarly context",
		Tone:  "Profound, contemplative, scholarly",
	},
}

// teaching is the step-5 result.
type teaching struct {
	ExecutiveSummary string   `json:"executive_summary"`
	Answer           string   `json:"answer"`
	Explanation      string   `json:"explanation"`
	RelatedTopics    []string `json:"related_topics"`
}

// Output is the guidance response written into the case study.
type Output struct {
	ConversationID         string   `json:"conversation_id"`
	Question               string   `json:"question"`
	ExecutiveSummary       string   `json:"executive_summary"`
	Answer                 string   `json:"answer"`
	RelevantVerses         []Verse  `json:"relevant_verses"`
	Explanation            string   `json:"explanation"`
	RelatedTopics          []string `json:"related_topics"`
	SuggestedNextQuestions []string `json:"suggested_next_questions"`
	Timestamp              string   `json:"timestamp"`
}
