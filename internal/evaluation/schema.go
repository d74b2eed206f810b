package evaluation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"athena/interview/internal/models"
)

// ErrMalformedOutput marks evaluator replies that fail schema validation.
// They are never persisted.
var ErrMalformedOutput = errors.New("malformed evaluator output")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedOutput, fmt.Sprintf(format, args...))
}

// Validate decodes raw evaluator JSON and checks it against the feedback
// schema: exactly one assessment per segment, scores in range, non-empty
// summaries and a known hire inclination. Assessments are returned in
// segment order, and low-speech segments are always marked discounted.
func Validate(raw []byte, segments []models.Segment) (*models.Feedback, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var fb models.Feedback
	if err := dec.Decode(&fb); err != nil {
		return nil, malformed("decode: %v", err)
	}

	if !models.ValidHireInclinations[fb.HireInclination] {
		return nil, malformed("unknown hireInclination %q", fb.HireInclination)
	}
	if strings.TrimSpace(fb.StrengthsSummary) == "" {
		return nil, malformed("strengthsSummary is empty")
	}
	if strings.TrimSpace(fb.ConcernsSummary) == "" {
		return nil, malformed("concernsSummary is empty")
	}
	if len(fb.FollowUpQuestions) == 0 {
		return nil, malformed("followUpQuestions is empty")
	}
	for i, q := range fb.FollowUpQuestions {
		if strings.TrimSpace(q) == "" {
			return nil, malformed("followUpQuestions[%d] is empty", i)
		}
	}

	byPrompt := make(map[string]models.PromptAssessment, len(fb.Assessments))
	for _, a := range fb.Assessments {
		if _, dup := byPrompt[a.PromptID]; dup {
			return nil, malformed("duplicate assessment for prompt %s", a.PromptID)
		}
		if a.Score < models.MinAssessmentScore || a.Score > models.MaxAssessmentScore {
			return nil, malformed("score %d for prompt %s out of range", a.Score, a.PromptID)
		}
		if strings.TrimSpace(a.Summary) == "" {
			return nil, malformed("empty summary for prompt %s", a.PromptID)
		}
		byPrompt[a.PromptID] = a
	}
	if len(byPrompt) != len(segments) {
		return nil, malformed("expected %d assessments, got %d", len(segments), len(byPrompt))
	}

	ordered := make([]models.PromptAssessment, 0, len(segments))
	for _, seg := range segments {
		a, ok := byPrompt[seg.PromptID]
		if !ok {
			return nil, malformed("missing assessment for prompt %s", seg.PromptID)
		}
		if seg.LowSpeech {
			a.Discounted = true
		}
		if a.Strengths == nil {
			a.Strengths = []string{}
		}
		if a.Concerns == nil {
			a.Concerns = []string{}
		}
		ordered = append(ordered, a)
	}
	fb.Assessments = ordered
	return &fb, nil
}
