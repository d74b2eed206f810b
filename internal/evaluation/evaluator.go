package evaluation

import (
	"context"
	"errors"
	"fmt"

	"athena/interview/internal/llm"
	"athena/interview/internal/models"
	"athena/interview/internal/prompts"

	"go.uber.org/zap"
)

// Input is everything the evaluator sees for one attempt.
type Input struct {
	EvaluatorVersion string
	Prompts          []models.Prompt
	Segments         []models.Segment
}

// Evaluator grades segmented answers against their criteria.
type Evaluator interface {
	Evaluate(ctx context.Context, in Input) (*models.Feedback, error)
}

// PromptBuilder renders model instructions.
type PromptBuilder interface {
	BuildPrompt(mode, version string, data any) (string, error)
}

// LLMEvaluator grades with a text model and schema-validates its reply.
type LLMEvaluator struct {
	provider llm.Provider
	prompts  PromptBuilder
	logger   *zap.Logger
}

func NewLLMEvaluator(provider llm.Provider, prompts PromptBuilder, logger *zap.Logger) *LLMEvaluator {
	return &LLMEvaluator{provider: provider, prompts: prompts, logger: logger}
}

func (e *LLMEvaluator) Evaluate(ctx context.Context, in Input) (*models.Feedback, error) {
	data, err := buildData(in)
	if err != nil {
		return nil, err
	}
	prompt, err := e.prompts.BuildPrompt("evaluation", in.EvaluatorVersion, data)
	if err != nil {
		return nil, err
	}

	raw, err := e.provider.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}

	feedback, err := Validate([]byte(llm.ExtractJSON(raw)), in.Segments)
	if err != nil {
		e.logger.Warn("Rejected evaluator output",
			zap.String("provider", e.provider.GetProviderName()),
			zap.String("evaluator_version", in.EvaluatorVersion),
			zap.Error(err))
		return nil, err
	}
	feedback.EvaluatorVersion = in.EvaluatorVersion
	return feedback, nil
}

// buildData pairs each segment with its prompt in segment order.
func buildData(in Input) (prompts.EvaluationData, error) {
	byID := make(map[string]models.Prompt, len(in.Prompts))
	for _, p := range in.Prompts {
		byID[p.ID] = p
	}
	if len(in.Segments) == 0 {
		return prompts.EvaluationData{}, errors.New("no segments to evaluate")
	}

	data := prompts.EvaluationData{Segments: make([]prompts.EvaluationSegment, 0, len(in.Segments))}
	for _, seg := range in.Segments {
		p, ok := byID[seg.PromptID]
		if !ok {
			return prompts.EvaluationData{}, fmt.Errorf("segment references unknown prompt %s", seg.PromptID)
		}
		data.Segments = append(data.Segments, prompts.EvaluationSegment{
			PromptID:     p.ID,
			Type:         p.Type,
			Text:         p.Text,
			Criteria:     p.EvaluationCriteria,
			StartSeconds: seg.StartTimeSeconds,
			EndSeconds:   seg.EndTimeSeconds,
			LowSpeech:    seg.LowSpeech,
			Transcript:   seg.TranscriptText,
		})
	}
	return data, nil
}
