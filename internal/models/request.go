package models

import (
	"fmt"
	"strings"
)

// SubmitRequest is the body of POST /attempts/{attemptId}/submit.
type SubmitRequest struct {
	AttemptID         string            `json:"attemptId"`
	SegmentBoundaries []SegmentBoundary `json:"segmentBoundaries"`
	IntegrityLog      *IntegrityLog     `json:"integrityLog"`
}

// implements the Validator interface
func (r *SubmitRequest) Validate() error {
	r.AttemptID = strings.TrimSpace(r.AttemptID)
	if r.AttemptID == "" {
		return &ErrorResponse{Code: "missing_attempt_id", Message: "attemptId is required"}
	}
	if err := ValidateBoundaries(r.SegmentBoundaries); err != nil {
		return &ErrorResponse{
			Code:    "invalid_segment_boundaries",
			Message: err.Error(),
		}
	}
	if r.IntegrityLog != nil && r.IntegrityLog.HasOpenViolation() {
		return &ErrorResponse{
			Code:    "open_integrity_violation",
			Message: "integrityLog contains a violation that was never closed",
		}
	}
	return nil
}

// ValidateBoundaries checks that boundaries are non-empty, ordered and
// non-overlapping.
func ValidateBoundaries(boundaries []SegmentBoundary) error {
	if len(boundaries) == 0 {
		return fmt.Errorf("at least one segment boundary is required")
	}
	seen := make(map[string]bool, len(boundaries))
	var prevEnd int64
	for i, b := range boundaries {
		if strings.TrimSpace(b.PromptID) == "" {
			return fmt.Errorf("segment %d: promptId is required", i)
		}
		if seen[b.PromptID] {
			return fmt.Errorf("segment %d: prompt %s appears more than once", i, b.PromptID)
		}
		seen[b.PromptID] = true
		if b.StartTime < 0 || b.EndTime < b.StartTime {
			return fmt.Errorf("segment %d: invalid range [%d, %d)", i, b.StartTime, b.EndTime)
		}
		if i > 0 && b.StartTime < prevEnd {
			return fmt.Errorf("segment %d: overlaps previous segment", i)
		}
		prevEnd = b.EndTime
	}
	return nil
}

// UnlockRequestBody is the body of POST /unlock-requests.
type UnlockRequestBody struct {
	Message string `json:"message"`
}

func (r *UnlockRequestBody) Validate() error {
	r.Message = strings.TrimSpace(r.Message)
	if len(r.Message) > 2000 {
		return &ErrorResponse{Code: "message_too_long", Message: "message must be at most 2000 characters"}
	}
	return nil
}

// ResolveUnlockBody is the admin decision on an unlock request.
type ResolveUnlockBody struct {
	Approve *bool `json:"approve"`
}

func (r *ResolveUnlockBody) Validate() error {
	if r.Approve == nil {
		return &ErrorResponse{Code: "missing_approve", Message: "approve is required"}
	}
	return nil
}

// AdminHoldBody sets an administrative hold on a user.
type AdminHoldBody struct {
	Reason string `json:"reason"`
}

func (r *AdminHoldBody) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return &ErrorResponse{Code: "missing_reason", Message: "reason is required"}
	}
	return nil
}
