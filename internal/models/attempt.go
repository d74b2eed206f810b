package models

import (
	"time"

	"gorm.io/datatypes"
)

// InterviewAttempt is one proctored recording attempt. Rows are never deleted.
//
// The partial unique index idx_live_attempt allows at most one row per user
// whose status is not terminal.
type InterviewAttempt struct {
	ID            string        `gorm:"primaryKey;size:36" json:"attemptId"`
	UserID        string        `gorm:"not null;size:64;index;uniqueIndex:idx_user_attempt_number,priority:1;uniqueIndex:idx_live_attempt,where:status <> 'complete' AND status <> 'failed' AND status <> 'abandoned'" json:"userId"`
	AttemptNumber int           `gorm:"not null;uniqueIndex:idx_user_attempt_number,priority:2" json:"attemptNumber"`
	Status        AttemptStatus `gorm:"not null;size:20;index" json:"status"`

	ProcessingStage *ProcessingStage `gorm:"size:20" json:"processingStage,omitempty"`
	StageAttempts   int              `gorm:"not null;default:0" json:"-"`
	LastStageError  string           `gorm:"type:text" json:"-"`
	FailedStage     *ProcessingStage `gorm:"size:20" json:"-"`

	PromptVersionID    string `gorm:"not null;size:64" json:"promptVersionId"`
	EvaluatorVersionID string `gorm:"not null;size:64" json:"evaluatorVersionId"`

	UploadURL          string     `gorm:"type:text" json:"uploadUrl"`
	UploadURLExpiresAt time.Time  `json:"uploadUrlExpiresAt"`
	ArtifactKey        string     `gorm:"not null;size:255" json:"-"`
	ArtifactMimeType   string     `gorm:"size:100" json:"-"`
	ArtifactBytes      int64      `json:"-"`
	UploadedAt         *time.Time `gorm:"index" json:"uploadedAt,omitempty"`

	IntegrityLog      datatypes.JSON `json:"integrityLog,omitempty"`
	SegmentBoundaries datatypes.JSON `json:"segmentBoundaries,omitempty"`
	Transcript        datatypes.JSON `json:"-"`
	Segments          datatypes.JSON `json:"-"`
	Evaluation        datatypes.JSON `json:"-"`

	Feedback        datatypes.JSON   `json:"feedback,omitempty"`
	HireInclination *HireInclination `gorm:"size:20" json:"hireInclination,omitempty"`
	ErrorMessage    string           `gorm:"type:text" json:"errorMessage,omitempty"`

	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"index" json:"updatedAt"`
	SubmittedAt   *time.Time `json:"submittedAt,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	LockClearedAt *time.Time `json:"-"`
}

func (InterviewAttempt) TableName() string { return "interview_attempts" }

// Stage returns the current processing stage or the empty string.
func (a *InterviewAttempt) Stage() ProcessingStage {
	if a.ProcessingStage == nil {
		return ""
	}
	return *a.ProcessingStage
}

// AdminHold blocks a user from starting attempts until an admin removes it.
type AdminHold struct {
	UserID    string    `gorm:"primaryKey;size:64" json:"userId"`
	Reason    string    `gorm:"type:text" json:"reason"`
	SetBy     string    `gorm:"size:64" json:"setBy"`
	CreatedAt time.Time `json:"createdAt"`
}

func (AdminHold) TableName() string { return "admin_holds" }

// UnlockRequest asks an admin to clear an abandonment lock.
// idx_pending_unlock keeps at most one pending request per user.
type UnlockRequest struct {
	ID         string              `gorm:"primaryKey;size:36" json:"id"`
	UserID     string              `gorm:"not null;size:64;index;uniqueIndex:idx_pending_unlock,where:status = 'pending'" json:"userId"`
	AttemptID  string              `gorm:"not null;size:36" json:"attemptId"`
	Message    string              `gorm:"type:text" json:"message,omitempty"`
	Status     UnlockRequestStatus `gorm:"not null;size:20;index" json:"status"`
	ResolvedBy string              `gorm:"size:64" json:"resolvedBy,omitempty"`
	ResolvedAt *time.Time          `json:"resolvedAt,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
}

func (UnlockRequest) TableName() string { return "unlock_requests" }

// AllModels lists every table the service migrates.
func AllModels() []interface{} {
	return []interface{}{&InterviewAttempt{}, &AdminHold{}, &UnlockRequest{}}
}
