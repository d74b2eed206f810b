package models

// AttemptStatus is the server-held lifecycle status of an interview attempt.
type AttemptStatus string

const (
	StatusInProgress AttemptStatus = "in_progress"
	StatusProcessing AttemptStatus = "processing"
	StatusComplete   AttemptStatus = "complete"
	StatusAbandoned  AttemptStatus = "abandoned"
	StatusFailed     AttemptStatus = "failed"
)

// IsTerminal reports whether no further transitions happen automatically.
func (s AttemptStatus) IsTerminal() bool {
	return s == StatusComplete || s == StatusAbandoned || s == StatusFailed
}

// IsLive reports whether the status counts against the one-live-attempt rule.
func (s AttemptStatus) IsLive() bool {
	return s == StatusInProgress || s == StatusProcessing
}

// ProcessingStage is the persisted checkpoint of the processing pipeline.
type ProcessingStage string

const (
	StageUploadPending  ProcessingStage = "upload_pending"
	StageUploadVerified ProcessingStage = "upload_verified"
	StageTranscribing   ProcessingStage = "transcribing"
	StageSegmenting     ProcessingStage = "segmenting"
	StageEvaluating     ProcessingStage = "evaluating"
	StageFinalizing     ProcessingStage = "finalizing"
)

// ProcessingStages lists the stages in execution order.
var ProcessingStages = []ProcessingStage{
	StageUploadPending,
	StageUploadVerified,
	StageTranscribing,
	StageSegmenting,
	StageEvaluating,
	StageFinalizing,
}

// NextStage returns the stage after s, or false when s is the last one.
func NextStage(s ProcessingStage) (ProcessingStage, bool) {
	for i, stage := range ProcessingStages {
		if stage == s && i+1 < len(ProcessingStages) {
			return ProcessingStages[i+1], true
		}
	}
	return "", false
}

// ValidStage reports whether s is a known stage name.
func ValidStage(s ProcessingStage) bool {
	for _, stage := range ProcessingStages {
		if stage == s {
			return true
		}
	}
	return false
}

type PromptType string

const (
	PromptBehavioral PromptType = "behavioral"
	PromptTechnical  PromptType = "technical"
)

// HireInclination is the evaluator's tri-state overall verdict.
type HireInclination string

const (
	InclinationLeanHire   HireInclination = "lean_hire"
	InclinationNeutral    HireInclination = "neutral"
	InclinationLeanNoHire HireInclination = "lean_no_hire"
)

var ValidHireInclinations = map[HireInclination]bool{
	InclinationLeanHire:   true,
	InclinationNeutral:    true,
	InclinationLeanNoHire: true,
}

// LockoutReason explains why initialize was refused.
type LockoutReason string

const (
	LockoutCooldown  LockoutReason = "cooldown"
	LockoutAbandoned LockoutReason = "abandoned"
	LockoutAdminHold LockoutReason = "admin_hold"
)

type UnlockRequestStatus string

const (
	UnlockPending  UnlockRequestStatus = "pending"
	UnlockApproved UnlockRequestStatus = "approved"
	UnlockDenied   UnlockRequestStatus = "denied"
)

// ViolationEvent names one kind of integrity violation.
type ViolationEvent string

const (
	ViolationFullscreenExit ViolationEvent = "fullscreen_exit"
	ViolationTabSwitch      ViolationEvent = "tab_switch"
	ViolationWindowBlur     ViolationEvent = "window_blur"
)

// Flagging thresholds applied to an integrity summary.
const (
	FlagTimeOutsideMs = 60000
	FlagMaxViolations = 5
)

// Error codes returned by the interview API.
const (
	ErrCodeLocked           = "LOCKED"
	ErrCodeInProgress       = "IN_PROGRESS"
	ErrCodeUploadURLExpired = "upload_url_expired"
)
