package models

// Prompt is one interview question within a prompt version.
type Prompt struct {
	ID                 string             `json:"id" yaml:"id" bson:"id"`
	Type               PromptType         `json:"type" yaml:"type" bson:"type"`
	Text               string             `json:"text" yaml:"text" bson:"text"`
	EvaluationCriteria EvaluationCriteria `json:"evaluationCriteria" yaml:"evaluation_criteria" bson:"evaluation_criteria"`
}

type EvaluationCriteria struct {
	Primary       string   `json:"primary" yaml:"primary" bson:"primary"`
	StrongSignals []string `json:"strongSignals" yaml:"strong_signals" bson:"strong_signals"`
	WeakSignals   []string `json:"weakSignals" yaml:"weak_signals" bson:"weak_signals"`
}

// SegmentBoundary attributes a time range of the recording to one prompt.
// Times are milliseconds relative to recording start.
type SegmentBoundary struct {
	PromptID  string `json:"promptId"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
}

// TranscriptWord is one recognized word with its timing in seconds.
type TranscriptWord struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is the full transcript of a single recording.
type Transcript struct {
	Text            string           `json:"text"`
	Words           []TranscriptWord `json:"words"`
	DurationSeconds float64          `json:"durationSeconds"`
}

// Segment is the part of the transcript that answers one prompt.
type Segment struct {
	PromptID         string  `json:"promptId"`
	TranscriptText   string  `json:"transcriptText"`
	StartTimeSeconds float64 `json:"startTimeSeconds"`
	EndTimeSeconds   float64 `json:"endTimeSeconds"`
	WordCount        int     `json:"wordCount"`
	LowSpeech        bool    `json:"lowSpeech"`
}

// PromptAssessment is the evaluator's view of a single answer.
type PromptAssessment struct {
	PromptID   string   `json:"promptId"`
	Score      int      `json:"score"`
	Summary    string   `json:"summary"`
	Strengths  []string `json:"strengths"`
	Concerns   []string `json:"concerns"`
	Discounted bool     `json:"discounted,omitempty"`
}

// Feedback is the finalized structured result of an attempt.
type Feedback struct {
	Assessments       []PromptAssessment `json:"assessments"`
	StrengthsSummary  string             `json:"strengthsSummary"`
	ConcernsSummary   string             `json:"concernsSummary"`
	FollowUpQuestions []string           `json:"followUpQuestions"`
	HireInclination   HireInclination    `json:"hireInclination"`
	EvaluatorVersion  string             `json:"evaluatorVersionId,omitempty"`
	Flagged           bool               `json:"integrityFlagged"`
}

// Score bounds accepted from the evaluator.
const (
	MinAssessmentScore = 1
	MaxAssessmentScore = 5
)
