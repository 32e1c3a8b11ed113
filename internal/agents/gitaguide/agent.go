package gitaguide

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agentworks/casestudio/internal/casestudy"
	"github.com/agentworks/casestudio/internal/gita"
	"github.com/agentworks/casestudio/internal/jsonx"
	"github.com/agentworks/casestudio/internal/llm"
	"github.com/agentworks/casestudio/internal/trace"
	"github.com/agentworks/casestudio/utils"
)

// candidateLimit caps how many indexed verses go into the selection
// prompt. The corpus holds 700 verses; sending them all blows the
// context window for nothing.
const candidateLimit = 40

// Corpus provides the verse data, normally backed by Postgres.
type Corpus interface {
	AllVerses(ctx context.Context) ([]gita.Verse, error)
	VerseCommentaries(ctx context.Context, verseID string, limit int) ([]gita.Commentary, error)
}

// keywordSearcher is the optional Corpus extension used as a fallback
// when the full-text index yields nothing. *store.Store implements it
// with an ILIKE query.
type keywordSearcher interface {
	VersesByKeywords(ctx context.Context, keywords []string, limit int) ([]gita.Verse, error)
}

type Agent struct {
	LLM    llm.Provider
	Corpus Corpus
	Logger *log.Logger
}

func New(provider llm.Provider, corpus Corpus, logger *log.Logger) *Agent {
	if logger == nil {
		logger = log.New(log.Writer(), "[GITA] ", log.LstdFlags)
	}
	return &Agent{LLM: provider, Corpus: corpus, Logger: logger}
}

// Run executes the six-step workflow and assembles the case-study
// document.
func (a *Agent) Run(ctx context.Context, in Input) (casestudy.Document, error) {
	if len(in.Question) < 5 {
		return casestudy.Document{}, fmt.Errorf("question too short")
	}
	if in.UserLevel == "" {
		in.UserLevel = "beginner"
	}
	if !UserLevels[in.UserLevel] {
		return casestudy.Document{}, fmt.Errorf("invalid user level %q", in.UserLevel)
	}

	rec := trace.NewRecorder()

	intent, err := a.understandIntent(ctx, rec, in)
	if err != nil {
		return casestudy.Document{}, fmt.Errorf("step 1 (understand intent): %w", err)
	}
	verses, err := a.retrieveVerses(ctx, rec, in.Question, intent)
	if err != nil {
		return casestudy.Document{}, fmt.Errorf("step 2 (retrieve verses): %w", err)
	}
	contextData, err := a.checkContext(ctx, rec, in)
	if err != nil {
		return casestudy.Document{}, fmt.Errorf("step 3 (check context): %w", err)
	}
	guidance := a.adaptToLevel(rec, in.UserLevel)
	taught := a.formulateTeaching(ctx, rec, in, verses, contextData, guidance)
	questions, err := a.suggestNextSteps(ctx, rec, in.Question, taught)
	if err != nil {
		return casestudy.Document{}, fmt.Errorf("step 6 (suggest next steps): %w", err)
	}

	output := Output{
		ConversationID:         uuid.NewString(),
		Question:               in.Question,
		ExecutiveSummary:       taught.ExecutiveSummary,
		Answer:                 taught.Answer,
		RelevantVerses:         verses,
		Explanation:            taught.Explanation,
		RelatedTopics:          taught.RelatedTopics,
		SuggestedNextQuestions: questions,
		Timestamp:              time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
	}

	title := fmt.Sprintf("Gita Guide - %s...", head(in.Question, 50))
	subtitle := in.Context
	if subtitle == "" {
		subtitle = "General spiritual guidance"
	}

	params, err := casestudy.AsMap(in)
	if err != nil {
		return casestudy.Document{}, err
	}
	result, err := casestudy.AsMap(output)
	if err != nil {
		return casestudy.Document{}, err
	}
	doc := casestudy.New(Slug, title, subtitle, params, result, rec.Sanitized())
	doc.ID = output.ConversationID
	return doc, nil
}

func (a *Agent) understandIntent(ctx context.Context, rec *trace.Recorder, in Input) (Intent, error) {
	started := time.Now()

	prompt := fmt.Sprintf(`Analyze this spiritual question and extract the core intent and key concepts.

Question: %s

Identify:
1. The main spiritual topic or concern
2. Key Bhagavad Gita concepts that might be relevant (from: %s, etc.)
3. The type of guidance being sought (understanding, practical application, resolution of doubt, etc.)
4. Any specific life situations or challenges mentioned

Respond in JSON format:
{
  "core_topic": "brief description",
  "key_concepts": ["concept1", "concept2"],
  "guidance_type": "type of guidance sought",
  "life_context": "specific situation if mentioned, otherwise null"
}`, in.Question, strings.Join(gita.KeyConcepts[:10], ", "))

	response, err := a.LLM.Generate(ctx, "", prompt,
		map[string]interface{}{"temperature": 0.7, "max_tokens": 500})
	if err != nil {
		return Intent{}, err
	}
	var intent Intent
	if err := jsonx.Unmarshal(response, &intent); err != nil {
		return Intent{}, err
	}

	rec.Record("Understand Intent", stepTypeAnalysis,
		utils.Truncate(in.Question, 200),
		fmt.Sprintf("Topic: %s, %d key concepts", intent.CoreTopic, len(intent.KeyConcepts)),
		map[string]interface{}{
			"question":         in.Question,
			"identified_topic": intent.CoreTopic,
			"key_concepts":     intent.KeyConcepts,
			"guidance_type":    intent.GuidanceType,
		}, started)
	return intent, nil
}

// retrieveVerses narrows the corpus with the full-text index, then lets
// the model pick the 3-5 most relevant verses from the candidates.
// Commentaries are fetched only for the selected verses.
func (a *Agent) retrieveVerses(ctx context.Context, rec *trace.Recorder, question string, intent Intent) ([]Verse, error) {
	started := time.Now()

	all, err := a.Corpus.AllVerses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load verses: %w", err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("verse corpus is empty; run the migrations and corpus loader")
	}

	idx, err := gita.NewIndex(all)
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	searchTerms := question
	if len(intent.KeyConcepts) > 0 {
		searchTerms += " " + strings.Join(intent.KeyConcepts, " ")
	}
	candidates, err := idx.Search(searchTerms, candidateLimit)
	if err != nil || len(candidates) == 0 {
		if err != nil {
			a.Logger.Printf("warning: verse index search failed: %v", err)
		}
		if ks, ok := a.Corpus.(keywordSearcher); ok && len(intent.KeyConcepts) > 0 {
			candidates, err = ks.VersesByKeywords(ctx, intent.KeyConcepts, candidateLimit)
			if err != nil {
				a.Logger.Printf("warning: keyword verse search failed: %v", err)
			}
		}
	}
	if len(candidates) == 0 {
		candidates = all
		if len(candidates) > candidateLimit {
			candidates = candidates[:candidateLimit]
		}
	}

	type summary struct {
		VerseID     string `json:"verse_id"`
		Translation string `json:"translation"`
	}
	summaries := make([]summary, len(candidates))
	for i, v := range candidates {
		summaries[i] = summary{VerseID: v.VerseID, Translation: v.TranslationEn}
	}
	summariesJSON, _ := json.MarshalIndent(summaries, "", "  ")

	prompt := fmt.Sprintf(`Given this spiritual question and the identified key concepts, select the 3-5 most relevant Bhagavad Gita verses.

Question: %s
Core Topic: %s
Key Concepts: %s

Available verses (showing translation):
%s

Select the most relevant verses and explain why each is relevant to the question.

Respond in JSON format:
{
  "selected_verses": [
    {
      "verse_id": "BG2.47",
      "relevance": "explanation of why this verse is relevant"
    }
  ]
}

Select 3-5 verses maximum.`,
		question, intent.CoreTopic, strings.Join(intent.KeyConcepts, ", "), summariesJSON)

	response, err := a.LLM.Generate(ctx, "", prompt,
		map[string]interface{}{"temperature": 0.7, "max_tokens": 1500})
	if err != nil {
		return nil, err
	}
	var selection struct {
		SelectedVerses []SelectedVerse `json:"selected_verses"`
	}
	if err := jsonx.Unmarshal(response, &selection); err != nil {
		return nil, err
	}
	if len(selection.SelectedVerses) == 0 {
		return nil, fmt.Errorf("no verses selected")
	}

	relevance := map[string]string{}
	ids := make([]string, 0, len(selection.SelectedVerses))
	for _, s := range selection.SelectedVerses {
		relevance[s.VerseID] = s.Relevance
		ids = append(ids, s.VerseID)
	}

	var verses []Verse
	for _, v := range all {
		rel, picked := relevance[v.VerseID]
		if !picked {
			continue
		}
		verse := Verse{
			Chapter:             v.Chapter,
			VerseNumber:         v.Verse,
			VerseID:             v.VerseID,
			SanskritText:        v.Sanskrit,
			Transliteration:     v.Transliteration,
			EnglishTranslation:  v.TranslationEn,
			RelevanceToQuestion: rel,
		}
		commentaries, err := a.Corpus.VerseCommentaries(ctx, v.VerseID, 1)
		if err != nil {
			a.Logger.Printf("warning: commentary lookup failed for %s: %v", v.VerseID, err)
		} else if len(commentaries) > 0 {
			verse.Commentary = head(commentaries[0].CommentaryEn, 500)
		}
		verses = append(verses, verse)
	}

	rec.Record("Retrieve Verses", stepTypeSearch,
		fmt.Sprintf("Searching %d verses", len(all)),
		fmt.Sprintf("Selected %d verses", len(verses)),
		map[string]interface{}{
			"total_verses_searched": len(all),
			"candidates_considered": len(candidates),
			"verses_selected":       len(verses),
			"selected_verse_ids":    ids,
		}, started)
	return verses, nil
}

func (a *Agent) checkContext(ctx context.Context, rec *trace.Recorder, in Input) (contextAnalysis, error) {
	started := time.Now()

	var analysis contextAnalysis
	if in.Context != "" {
		prompt := fmt.Sprintf(`Analyze the conversation context and determine how it relates to the current question.

Previous Context: %s
Current Question: %s

Determine:
1. Is this a follow-up question to the previous context?
2. What key points from the context should inform the answer?
3. Are there any contradictions or shifts in the user's inquiry?

Respond in JSON format:
{
  "is_followup": true/false,
  "context_summary": "brief summary of relevant context",
  "key_points_to_address": ["point1", "point2"]
}`, in.Context, in.Question)

		response, err := a.LLM.Generate(ctx, "", prompt,
			map[string]interface{}{"temperature": 0.7, "max_tokens": 500})
		if err != nil {
			return contextAnalysis{}, err
		}
		if err := jsonx.Unmarshal(response, &analysis); err != nil {
			return contextAnalysis{}, err
		}
	}

	rec.Record("Check Context", stepTypeContextAnalysis,
		utils.Truncate(in.Context, 200),
		fmt.Sprintf("Follow-up: %v", analysis.IsFollowup),
		map[string]interface{}{
			"has_previous_context":      in.Context != "",
			"context_summary":           analysis.ContextSummary,
			"conversation_continuation": analysis.IsFollowup,
			"key_points":                analysis.KeyPointsToAddress,
		}, started)
	return analysis, nil
}

// adaptToLevel picks the teaching style for the user's level. Pure
// lookup; no model call.
func (a *Agent) adaptToLevel(rec *trace.Recorder, userLevel string) levelGuidance {
	started := time.Now()

	guidance := levelGuidanceTable[userLevel]

	rec.Record("Adapt to Level", stepTypePersonalization,
		fmt.Sprintf("User level: %s", userLevel),
		guidance.Tone,
		map[string]interface{}{
			"user_level":     userLevel,
			"style_guidance": guidance.Style,
			"depth_guidance": guidance.Depth,
		}, started)
	return guidance
}

func (a *Agent) formulateTeaching(ctx context.Context, rec *trace.Recorder, in Input, verses []Verse, contextData contextAnalysis, guidance levelGuidance) teaching {
	started := time.Now()

	var refs strings.Builder
	for _, v := range verses {
		fmt.Fprintf(&refs, `
Verse %s (Chapter %d, Verse %d)
Sanskrit: %s
Translation: %s
Commentary: %s
Relevance: %s
`, v.VerseID, v.Chapter, v.VerseNumber, v.SanskritText, v.EnglishTranslation, v.Commentary, v.RelevanceToQuestion)
	}

	contextNote := ""
	if in.Context != "" {
		contextNote = fmt.Sprintf("\nPrevious Context: %s\n", contextData.ContextSummary)
	}

	prompt := fmt.Sprintf(`You are a wise spiritual guide well-versed in the Bhagavad Gita. A seeker has asked you a question.

Question: %s
%s
User Level: %s

Style Guidance: %s
Depth Guidance: %s
Tone: %s

Relevant Bhagavad Gita Verses:
%s

Provide a comprehensive spiritual teaching that:
1. Directly addresses the question with wisdom from the Gita
2. References the relevant verses naturally in the explanation
3. Provides practical application for modern life
4. Is appropriate for the user's knowledge level
5. Offers deep insight while remaining accessible

IMPORTANT: Respond ONLY with valid JSON. Use \n for newlines within strings, not actual line breaks.

Format:
{
  "executive_summary": "1-2 sentence overview",
  "answer": "Main teaching (3-5 paragraphs with \n\n between paragraphs)",
  "explanation": "Practical application (2-3 paragraphs with \n\n between paragraphs)",
  "related_topics": ["topic1", "topic2", "topic3"]
}`,
		in.Question, contextNote, in.UserLevel,
		guidance.Style, guidance.Depth, guidance.Tone, refs.String())

	var taught teaching
	response, err := a.LLM.Generate(ctx, "", prompt,
		map[string]interface{}{"temperature": 0.7, "max_tokens": 2000})
	if err == nil {
		err = jsonx.Unmarshal(response, &taught)
	}
	if err != nil {
		// Degrade to a canned teaching around the response rather than
		// losing the whole conversation.
		a.Logger.Printf("warning: teaching response unparseable, using fallback: %v", err)
		taught = teaching{
			ExecutiveSummary: "The Gita teaches performing duty without attachment to results (Nishkama Karma).",
			Answer:           head(response, 1000),
			Explanation:      "This principle of Karma Yoga guides us to focus on our actions while surrendering outcomes.",
			RelatedTopics:    []string{"Karma Yoga", "Nishkama Karma", "Detachment"},
		}
	}

	rec.Record("Formulate Teaching", stepTypeSynthesis,
		fmt.Sprintf("Teaching from %d verses", len(verses)),
		utils.Truncate(taught.ExecutiveSummary, 200),
		map[string]interface{}{
			"verses_referenced": len(verses),
			"answer_length":     len(taught.Answer),
			"user_level":        in.UserLevel,
		}, started)
	return taught
}

func (a *Agent) suggestNextSteps(ctx context.Context, rec *trace.Recorder, question string, taught teaching) ([]string, error) {
	started := time.Now()

	prompt := fmt.Sprintf(`Based on this spiritual teaching, suggest 3-5 follow-up questions that would deepen the seeker's understanding.

Original Question: %s
Teaching Summary: %s
Related Topics: %s

Create questions that:
1. Build naturally from this teaching
2. Explore related concepts from the Gita
3. Help the seeker apply these teachings more deeply
4. Encourage progressive spiritual development

Respond in JSON format:
{
  "suggested_questions": [
    "Question 1?",
    "Question 2?",
    "Question 3?"
  ]
}

Provide 3-5 questions.`,
		question, taught.ExecutiveSummary, strings.Join(taught.RelatedTopics, ", "))

	response, err := a.LLM.Generate(ctx, "", prompt,
		map[string]interface{}{"temperature": 0.7, "max_tokens": 500})
	if err != nil {
		return nil, err
	}
	var parsed struct {
		SuggestedQuestions []string `json:"suggested_questions"`
	}
	if err := jsonx.Unmarshal(response, &parsed); err != nil {
		return nil, err
	}

	rec.Record("Suggest Next Steps", stepTypeGuidance,
		utils.Truncate(taught.ExecutiveSummary, 200),
		fmt.Sprintf("Suggested %d questions", len(parsed.SuggestedQuestions)),
		map[string]interface{}{
			"suggested_questions_count": len(parsed.SuggestedQuestions),
			"related_topics_count":      len(taught.RelatedTopics),
		}, started)
	return parsed.SuggestedQuestions, nil
}

// head returns at most n runes of s.
func head(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
