package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"athena/interview/internal/llm"
	"athena/interview/internal/models"

	"go.uber.org/zap"
)

var ErrMalformedTranscript = errors.New("malformed transcript")

// Transcriber turns a recording into a timed transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, media []byte, mimeType, evaluatorVersion string) (*models.Transcript, error)
}

// PromptBuilder renders model instructions.
type PromptBuilder interface {
	BuildPrompt(mode, version string, data any) (string, error)
}

// LLMTranscriber asks a multimodal provider for a JSON transcript.
type LLMTranscriber struct {
	provider llm.Provider
	prompts  PromptBuilder
	logger   *zap.Logger
}

func NewLLMTranscriber(provider llm.Provider, prompts PromptBuilder, logger *zap.Logger) *LLMTranscriber {
	return &LLMTranscriber{provider: provider, prompts: prompts, logger: logger}
}

func (t *LLMTranscriber) Transcribe(ctx context.Context, media []byte, mimeType, evaluatorVersion string) (*models.Transcript, error) {
	prompt, err := t.prompts.BuildPrompt("transcription", evaluatorVersion, nil)
	if err != nil {
		return nil, err
	}

	raw, err := t.provider.TranscribeMedia(ctx, media, mimeType, prompt)
	if err != nil {
		return nil, err
	}

	transcript, err := Parse(raw)
	if err != nil {
		t.logger.Warn("Rejected transcription output",
			zap.String("provider", t.provider.GetProviderName()),
			zap.Int("raw_length", len(raw)),
			zap.Error(err))
		return nil, err
	}
	return transcript, nil
}

// Parse decodes and checks a transcript reply. Word timings must be finite,
// non-negative and non-decreasing.
func Parse(raw string) (*models.Transcript, error) {
	var transcript models.Transcript
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &transcript); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTranscript, err)
	}

	var prevStart float64
	for i, w := range transcript.Words {
		if strings.TrimSpace(w.Text) == "" {
			return nil, fmt.Errorf("%w: word %d is empty", ErrMalformedTranscript, i)
		}
		if !finite(w.Start) || !finite(w.End) || w.Start < 0 || w.End < w.Start {
			return nil, fmt.Errorf("%w: word %d has invalid timing [%v, %v]", ErrMalformedTranscript, i, w.Start, w.End)
		}
		if w.Start < prevStart {
			return nil, fmt.Errorf("%w: word %d starts before the previous word", ErrMalformedTranscript, i)
		}
		prevStart = w.Start
	}
	if transcript.DurationSeconds < 0 || !finite(transcript.DurationSeconds) {
		return nil, fmt.Errorf("%w: invalid duration %v", ErrMalformedTranscript, transcript.DurationSeconds)
	}

	if strings.TrimSpace(transcript.Text) == "" && len(transcript.Words) > 0 {
		texts := make([]string, len(transcript.Words))
		for i, w := range transcript.Words {
			texts[i] = w.Text
		}
		transcript.Text = strings.Join(texts, " ")
	}
	return &transcript, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
