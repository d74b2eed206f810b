package prompts

import "athena/interview/internal/models"

// EvaluationData is the input of the "evaluation" templates.
type EvaluationData struct {
	Segments []EvaluationSegment
}

// EvaluationSegment pairs one prompt with the answer given to it.
type EvaluationSegment struct {
	PromptID     string
	Type         models.PromptType
	Text         string
	Criteria     models.EvaluationCriteria
	StartSeconds float64
	EndSeconds   float64
	LowSpeech    bool
	Transcript   string
}
