package gitaguide

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/agentworks/casestudio/internal/casestudy"
	"github.com/agentworks/casestudio/internal/gita"
	"github.com/agentworks/casestudio/internal/llm"
)

type scriptedLLM struct {
	intentResponse    string
	selectionResponse string
	contextResponse   string
	teachingResponse  string
	questionsResponse string
	calls             []string
}

func (s *scriptedLLM) Generate(_ context.Context, _, prompt string, _ map[string]interface{}) (string, error) {
	switch {
	case strings.Contains(prompt, "extract the core intent"):
		s.calls = append(s.calls, "intent")
		return s.intentResponse, nil
	case strings.Contains(prompt, "select the 3-5 most relevant"):
		s.calls = append(s.calls, "select")
		return s.selectionResponse, nil
	case strings.Contains(prompt, "Analyze the conversation context"):
		s.calls = append(s.calls, "context")
		return s.contextResponse, nil
	case strings.Contains(prompt, "wise spiritual guide"):
		s.calls = append(s.calls, "teach")
		return s.teachingResponse, nil
	case strings.Contains(prompt, "suggest 3-5 follow-up questions"):
		s.calls = append(s.calls, "questions")
		return s.questionsResponse, nil
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

type fakeCorpus struct {
	versesErr       error
	commentaryCalls []string
}

func (f *fakeCorpus) AllVerses(context.Context) ([]gita.Verse, error) {
	if f.versesErr != nil {
		return nil, f.versesErr
	}
	return []gita.Verse{
		{VerseID: "BG2.47", Chapter: 2, Verse: 47, Sanskrit: "कर्मण्येवाधिकारस्ते", Transliteration: "karmany evadhikaras te", TranslationEn: "You have a right to perform your prescribed duty, but you are not entitled to the fruits of action."},
		{VerseID: "BG2.48", Chapter: 2, Verse: 48, Sanskrit: "योगस्थः कुरु कर्माणि", Transliteration: "yoga-sthah kuru karmani", TranslationEn: "Perform your duty equipoised, abandoning all attachment to success or failure."},
		{VerseID: "BG6.5", Chapter: 6, Verse: 5, Sanskrit: "उद्धरेदात्मनात्मानं", Transliteration: "uddhared atmanatmanam", TranslationEn: "One must deliver himself with the help of his mind, and not degrade himself."},
		{VerseID: "BG12.13", Chapter: 12, Verse: 13, Sanskrit: "अद्वेष्टा सर्वभूतानां", Transliteration: "advesta sarva-bhutanam", TranslationEn: "One who is not envious but is a kind friend to all living entities is very dear to Me."},
	}, nil
}

func (f *fakeCorpus) VerseCommentaries(_ context.Context, verseID string, _ int) ([]gita.Commentary, error) {
	f.commentaryCalls = append(f.commentaryCalls, verseID)
	return []gita.Commentary{{
		VerseID:      verseID,
		Author:       "Swami Sivananda",
		CommentaryEn: "Do your allotted duty but do not hanker after the fruits of your actions.",
	}}, nil
}

const intentJSON = `{
  "core_topic": "detachment from outcomes at work",
  "key_concepts": ["Karma Yoga", "Nishkama Karma"],
  "guidance_type": "practical application",
  "life_context": "career stress"
}`

const selectionJSON = `{
  "selected_verses": [
    {"verse_id": "BG2.47", "relevance": "Directly teaches action without attachment to results."},
    {"verse_id": "BG2.48", "relevance": "Defines equanimity in action as yoga."}
  ]
}`

const contextJSON = `{
  "is_followup": true,
  "context_summary": "The seeker previously asked about workplace anxiety.",
  "key_points_to_address": ["anxiety about performance reviews"]
}`

const teachingJSON = `{
  "executive_summary": "Act with full effort while releasing your claim on the results.",
  "answer": "The Gita's answer is Nishkama Karma.\n\nWork becomes worship when done without craving.",
  "explanation": "At work, prepare diligently and then let the review unfold.\n\nEquanimity is the practice.",
  "related_topics": ["Karma Yoga", "Equanimity", "Svadharma"]
}`

const questionsJSON = `{
  "suggested_questions": [
    "How do I practice equanimity during setbacks?",
    "What does the Gita say about ambition?",
    "How is Karma Yoga different from renouncing work?"
  ]
}`

func scripted() *scriptedLLM {
	return &scriptedLLM{
		intentResponse:    intentJSON,
		selectionResponse: selectionJSON,
		contextResponse:   contextJSON,
		teachingResponse:  teachingJSON,
		questionsResponse: questionsJSON,
	}
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestRunProducesValidCaseStudy(t *testing.T) {
	t.Parallel()

	provider := scripted()
	corpus := &fakeCorpus{}
	agent := New(provider, corpus, quietLogger())

	doc, err := agent.Run(context.Background(), Input{
		Question:  "How can I stop worrying about the results of my work?",
		UserLevel: "beginner",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantSteps := []string{
		"Understand Intent", "Retrieve Verses", "Check Context",
		"Adapt to Level", "Formulate Teaching", "Suggest Next Steps",
	}
	if len(doc.ExecutionTrace) != len(wantSteps) {
		t.Fatalf("got %d steps, want %d", len(doc.ExecutionTrace), len(wantSteps))
	}
	for i, step := range doc.ExecutionTrace {
		if step.StepName != wantSteps[i] {
			t.Errorf("step %d name = %q, want %q", i, step.StepName, wantSteps[i])
		}
	}

	wantCalls := []string{"intent", "select", "teach", "questions"}
	if got := strings.Join(provider.calls, ","); got != strings.Join(wantCalls, ",") {
		t.Errorf("llm calls = %s, want %s", got, strings.Join(wantCalls, ","))
	}

	if !strings.HasPrefix(doc.Title, "Gita Guide - How can I stop worrying") {
		t.Errorf("unexpected title %q", doc.Title)
	}
	if doc.Subtitle != "General spiritual guidance" {
		t.Errorf("unexpected subtitle %q", doc.Subtitle)
	}

	m, err := doc.ToMap()
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	if err := casestudy.Validate(m); err != nil {
		t.Fatalf("validation: %v", err)
	}

	if doc.OutputResult["conversation_id"] != doc.ID {
		t.Errorf("conversation_id %v does not match document id %s",
			doc.OutputResult["conversation_id"], doc.ID)
	}
	if doc.OutputResult["answer"] != "The Gita's answer is Nishkama Karma.\n\nWork becomes worship when done without craving." {
		t.Errorf("unexpected answer %v", doc.OutputResult["answer"])
	}

	verses, ok := doc.OutputResult["relevant_verses"].([]interface{})
	if !ok || len(verses) != 2 {
		t.Fatalf("relevant_verses = %v", doc.OutputResult["relevant_verses"])
	}
	first, _ := verses[0].(map[string]interface{})
	if first["verse_id"] != "BG2.47" {
		t.Errorf("first verse = %v, want BG2.47", first["verse_id"])
	}
	if first["relevance_to_question"] != "Directly teaches action without attachment to results." {
		t.Errorf("unexpected relevance %v", first["relevance_to_question"])
	}

	if got := strings.Join(corpus.commentaryCalls, ","); got != "BG2.47,BG2.48" {
		t.Errorf("commentary lookups = %s, want only selected verses", got)
	}

	questions, ok := doc.OutputResult["suggested_next_questions"].([]interface{})
	if !ok || len(questions) != 3 {
		t.Fatalf("suggested_next_questions = %v", doc.OutputResult["suggested_next_questions"])
	}
}

func TestRunSkipsContextAnalysisWithoutContext(t *testing.T) {
	t.Parallel()

	provider := scripted()
	agent := New(provider, &fakeCorpus{}, quietLogger())

	doc, err := agent.Run(context.Background(), Input{
		Question: "What is dharma and how do I find mine?",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, call := range provider.calls {
		if call == "context" {
			t.Fatalf("context analysis should not call the model without prior context")
		}
	}

	step := doc.ExecutionTrace[2]
	if step.StepName != "Check Context" {
		t.Fatalf("step 3 = %q", step.StepName)
	}
	if step.Details["has_previous_context"] != false {
		t.Errorf("has_previous_context = %v, want false", step.Details["has_previous_context"])
	}
	if step.Details["conversation_continuation"] != false {
		t.Errorf("conversation_continuation = %v, want false", step.Details["conversation_continuation"])
	}
}

func TestRunUsesContextInSubtitle(t *testing.T) {
	t.Parallel()

	provider := scripted()
	agent := New(provider, &fakeCorpus{}, quietLogger())

	doc, err := agent.Run(context.Background(), Input{
		Question:  "Should I change careers to follow my calling?",
		UserLevel: "intermediate",
		Context:   "Earlier we discussed svadharma and duty.",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if doc.Subtitle != "Earlier we discussed svadharma and duty." {
		t.Errorf("subtitle = %q", doc.Subtitle)
	}

	step := doc.ExecutionTrace[2]
	if step.Details["has_previous_context"] != true {
		t.Errorf("has_previous_context = %v, want true", step.Details["has_previous_context"])
	}
	if step.Details["context_summary"] != "The seeker previously asked about workplace anxiety." {
		t.Errorf("context_summary = %v", step.Details["context_summary"])
	}
}

func TestRunFallsBackWhenTeachingUnparseable(t *testing.T) {
	t.Parallel()

	provider := scripted()
	provider.teachingResponse = "The Gita says: act without attachment. (not JSON)"
	agent := New(provider, &fakeCorpus{}, quietLogger())

	doc, err := agent.Run(context.Background(), Input{
		Question: "How do I find peace in difficult times?",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if doc.OutputResult["executive_summary"] != "The Gita teaches performing duty without attachment to results (Nishkama Karma)." {
		t.Errorf("fallback summary missing: %v", doc.OutputResult["executive_summary"])
	}
	if !strings.Contains(doc.OutputResult["answer"].(string), "act without attachment") {
		t.Errorf("fallback answer should carry the raw response, got %v", doc.OutputResult["answer"])
	}

	topics, _ := doc.OutputResult["related_topics"].([]interface{})
	if len(topics) != 3 || topics[0] != "Karma Yoga" {
		t.Errorf("fallback topics = %v", topics)
	}
}

func TestRunAdaptsGuidanceToLevel(t *testing.T) {
	t.Parallel()

	provider := scripted()
	agent := New(provider, &fakeCorpus{}, quietLogger())

	doc, err := agent.Run(context.Background(), Input{
		Question:  "What is the relation between Brahman and Atman?",
		UserLevel: "advanced",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	step := doc.ExecutionTrace[3]
	if step.StepName != "Adapt to Level" {
		t.Fatalf("step 4 = %q", step.StepName)
	}
	if step.Details["user_level"] != "advanced" {
		t.Errorf("user_level = %v", step.Details["user_level"])
	}
	if !strings.Contains(step.Details["style_guidance"].(string), "philosophical terminology") {
		t.Errorf("style_guidance = %v", step.Details["style_guidance"])
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	t.Parallel()

	agent := New(scripted(), &fakeCorpus{}, quietLogger())

	if _, err := agent.Run(context.Background(), Input{Question: "Why?"}); err == nil {
		t.Fatalf("expected error for too-short question")
	}
	if _, err := agent.Run(context.Background(), Input{
		Question:  "What is the nature of the self?",
		UserLevel: "guru",
	}); err == nil {
		t.Fatalf("expected error for unknown user level")
	}
}

func TestRunFailsWhenCorpusUnavailable(t *testing.T) {
	t.Parallel()

	corpus := &fakeCorpus{versesErr: fmt.Errorf("connection refused")}
	agent := New(scripted(), corpus, quietLogger())

	_, err := agent.Run(context.Background(), Input{
		Question: "How can I practice meditation daily?",
	})
	if err == nil || !strings.Contains(err.Error(), "load verses") {
		t.Fatalf("expected corpus error, got %v", err)
	}
}
