package models

import "time"

// InitializeResponse is returned when a fresh attempt is created.
type InitializeResponse struct {
	AttemptID          string    `json:"attemptId"`
	AttemptNumber      int       `json:"attemptNumber"`
	UploadURL          string    `json:"uploadUrl"`
	UploadURLExpiresAt time.Time `json:"uploadUrlExpiresAt"`
	Prompts            []Prompt  `json:"prompts"`
	PromptVersionID    string    `json:"promptVersionId"`
	EvaluatorVersionID string    `json:"evaluatorVersionId"`
}

// LockedResponse is the 403 body of a refused initialize.
type LockedResponse struct {
	Error                string        `json:"error"`
	Reason               LockoutReason `json:"reason"`
	UnlockRequestAllowed bool          `json:"unlockRequestAllowed"`
	RequestPending       bool          `json:"requestPending"`
	LockedUntil          *time.Time    `json:"lockedUntil,omitempty"`
}

// InProgressResponse is the 409 body when a live attempt already exists.
type InProgressResponse struct {
	Error             string `json:"error"`
	ExistingAttemptID string `json:"existingAttemptId"`
}

// UploadURLResponse carries a freshly issued upload target.
type UploadURLResponse struct {
	AttemptID          string    `json:"attemptId"`
	UploadURL          string    `json:"uploadUrl"`
	UploadURLExpiresAt time.Time `json:"uploadUrlExpiresAt"`
}

// StatusResponse is polled by the client until the status is terminal.
type StatusResponse struct {
	AttemptID       string           `json:"attemptId"`
	Status          AttemptStatus    `json:"status"`
	ProcessingStage *ProcessingStage `json:"processingStage,omitempty"`
	Feedback        *Feedback        `json:"feedback,omitempty"`
	HireInclination *HireInclination `json:"hireInclination,omitempty"`
	ErrorMessage    string           `json:"errorMessage,omitempty"`
	IntegrityFlag   *bool            `json:"integrityFlagged,omitempty"`
}

// LockoutStateResponse reports the caller's current lockout state.
type LockoutStateResponse struct {
	Locked               bool          `json:"locked"`
	Reason               LockoutReason `json:"reason,omitempty"`
	UnlockRequestAllowed bool          `json:"unlockRequestAllowed"`
	RequestPending       bool          `json:"requestPending"`
	LockedUntil          *time.Time    `json:"lockedUntil,omitempty"`
	LiveAttemptID        string        `json:"liveAttemptId,omitempty"`
}

// AttemptSummary is one row of the attempt history list.
type AttemptSummary struct {
	AttemptID       string           `json:"attemptId"`
	AttemptNumber   int              `json:"attemptNumber"`
	Status          AttemptStatus    `json:"status"`
	HireInclination *HireInclination `json:"hireInclination,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	CompletedAt     *time.Time       `json:"completedAt,omitempty"`
}

// uniform error responses
type ErrorResponse struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Details []ValidationErrorDetail `json:"details,omitempty"`
}

// single field validation error
type ValidationErrorDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

// generic envelope used by admin endpoints
type Resp struct {
	OK   bool        `json:"ok"`
	Info interface{} `json:"info"`
}
