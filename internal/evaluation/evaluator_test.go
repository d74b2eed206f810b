package evaluation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"athena/interview/internal/models"
	"athena/interview/internal/prompts"

	"go.uber.org/zap"
)

const validReply = `{
  "assessments": [
    {"promptId": "p2", "score": 2, "summary": "Thin answer.", "strengths": [], "concerns": ["little detail"]},
    {"promptId": "p1", "score": 4, "summary": "Clear story.", "strengths": ["ownership"], "concerns": []}
  ],
  "strengthsSummary": "Communicates clearly.",
  "concernsSummary": "Technical depth is limited.",
  "followUpQuestions": ["How would you shard the cache?"],
  "hireInclination": "neutral"
}`

var testPrompts = []models.Prompt{
	{ID: "p1", Type: models.PromptBehavioral, Text: "Tell me about a conflict", EvaluationCriteria: models.EvaluationCriteria{Primary: "constructive"}},
	{ID: "p2", Type: models.PromptTechnical, Text: "Design a cache", EvaluationCriteria: models.EvaluationCriteria{Primary: "trade-offs"}},
}

var testSegments = []models.Segment{
	{PromptID: "p1", TranscriptText: "I once disagreed", EndTimeSeconds: 12, WordCount: 3},
	{PromptID: "p2", StartTimeSeconds: 12, EndTimeSeconds: 40, LowSpeech: true},
}

type stubProvider struct {
	reply      string
	err        error
	lastPrompt string
}

func (s *stubProvider) GenerateJSON(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	return s.reply, s.err
}
func (s *stubProvider) TranscribeMedia(context.Context, []byte, string, string) (string, error) {
	return "", nil
}
func (s *stubProvider) GetProviderName() string { return "stub" }

func newEvaluator(t *testing.T, p *stubProvider) *LLMEvaluator {
	t.Helper()
	pm, err := prompts.NewPromptManager()
	if err != nil {
		t.Fatalf("NewPromptManager error: %v", err)
	}
	return NewLLMEvaluator(p, pm, zap.NewNop())
}

func TestEvaluateOrdersAndDiscounts(t *testing.T) {
	p := &stubProvider{reply: validReply}
	e := newEvaluator(t, p)

	fb, err := e.Evaluate(context.Background(), Input{EvaluatorVersion: "ev-2024-default", Prompts: testPrompts, Segments: testSegments})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if fb.Assessments[0].PromptID != "p1" || fb.Assessments[1].PromptID != "p2" {
		t.Fatalf("assessments not in segment order: %+v", fb.Assessments)
	}
	if !fb.Assessments[1].Discounted || fb.Assessments[0].Discounted {
		t.Fatalf("expected only the low-speech segment to be discounted: %+v", fb.Assessments)
	}
	if fb.HireInclination != models.InclinationNeutral || fb.EvaluatorVersion != "ev-2024-default" {
		t.Fatalf("unexpected feedback %+v", fb)
	}
	if !strings.Contains(p.lastPrompt, "Design a cache") || !strings.Contains(p.lastPrompt, "(LOW SPEECH)") {
		t.Fatalf("prompt missing segment context: %s", p.lastPrompt)
	}
}

func TestEvaluateRejectsMalformedOutput(t *testing.T) {
	cases := map[string]string{
		"not json":           "here is my evaluation",
		"unknown field":      strings.Replace(validReply, `"hireInclination"`, `"verdict": "hire", "hireInclination"`, 1),
		"bad inclination":    strings.Replace(validReply, `"neutral"`, `"strong_hire"`, 1),
		"score out of range": strings.Replace(validReply, `"score": 4`, `"score": 9`, 1),
		"missing prompt":     strings.Replace(validReply, `"promptId": "p2"`, `"promptId": "p3"`, 1),
		"duplicate prompt":   strings.Replace(validReply, `"promptId": "p2"`, `"promptId": "p1"`, 1),
		"empty summary":      strings.Replace(validReply, `"Clear story."`, `""`, 1),
		"no follow ups":      strings.Replace(validReply, `["How would you shard the cache?"]`, `[]`, 1),
		"empty strengths":    strings.Replace(validReply, `"Communicates clearly."`, `" "`, 1),
	}
	for name, reply := range cases {
		e := newEvaluator(t, &stubProvider{reply: reply})
		_, err := e.Evaluate(context.Background(), Input{EvaluatorVersion: "ev-2024-default", Prompts: testPrompts, Segments: testSegments})
		if !errors.Is(err, ErrMalformedOutput) {
			t.Fatalf("%s: expected ErrMalformedOutput, got %v", name, err)
		}
	}
}

func TestEvaluateInputErrors(t *testing.T) {
	e := newEvaluator(t, &stubProvider{reply: validReply})

	if _, err := e.Evaluate(context.Background(), Input{EvaluatorVersion: "ev-2024-default", Prompts: testPrompts}); err == nil {
		t.Fatal("expected error without segments")
	}
	bad := []models.Segment{{PromptID: "unknown"}}
	if _, err := e.Evaluate(context.Background(), Input{EvaluatorVersion: "ev-2024-default", Prompts: testPrompts, Segments: bad}); err == nil {
		t.Fatal("expected error for unknown prompt")
	}

	boom := errors.New("provider down")
	e = newEvaluator(t, &stubProvider{err: boom})
	if _, err := e.Evaluate(context.Background(), Input{EvaluatorVersion: "ev-2024-default", Prompts: testPrompts, Segments: testSegments}); !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
}
