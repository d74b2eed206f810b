package attempts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"athena/interview/internal/events"
	"athena/interview/internal/metrics"
	"athena/interview/internal/models"
	"athena/interview/internal/repositories"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Submit moves an uploaded attempt into processing and queues it. Submitting
// an attempt that is already processing is accepted again without effect.
func (s *Service) Submit(ctx context.Context, userID string, req *models.SubmitRequest) error {
	attempt, err := s.owned(ctx, userID, req.AttemptID)
	if err != nil {
		return err
	}
	switch attempt.Status {
	case models.StatusProcessing:
		return nil
	case models.StatusInProgress:
	default:
		return ErrInvalidState
	}
	if attempt.UploadedAt == nil {
		return ErrNotUploaded
	}
	if err := s.checkPrompts(ctx, attempt.PromptVersionID, req.SegmentBoundaries); err != nil {
		return err
	}

	boundaries, err := json.Marshal(req.SegmentBoundaries)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{
		"status":             models.StatusProcessing,
		"processing_stage":   models.StageUploadPending,
		"stage_attempts":     0,
		"last_stage_error":   "",
		"segment_boundaries": datatypes.JSON(boundaries),
		"submitted_at":       s.now(),
	}
	if req.IntegrityLog != nil {
		raw, err := json.Marshal(req.IntegrityLog)
		if err != nil {
			return err
		}
		updates["integrity_log"] = datatypes.JSON(raw)
	}

	err = s.Attempts.Transition(ctx, attempt.ID, models.StatusInProgress, updates)
	if errors.Is(err, repositories.ErrStaleTransition) {
		current, findErr := s.Attempts.FindByID(ctx, attempt.ID)
		if findErr == nil && current.Status == models.StatusProcessing {
			return nil
		}
		return ErrInvalidState
	}
	if err != nil {
		return err
	}

	flagged := req.IntegrityLog.IsFlagged()
	s.Logger.Info("Attempt submitted",
		zap.String("attempt_id", attempt.ID),
		zap.Int("segments", len(req.SegmentBoundaries)),
		zap.Bool("integrity_flagged", flagged))
	metrics.AttemptTransition(string(models.StatusProcessing))
	s.Publisher.Publish(ctx, events.AttemptEvent{
		Type:          events.AttemptSubmitted,
		AttemptID:     attempt.ID,
		UserID:        attempt.UserID,
		AttemptNumber: attempt.AttemptNumber,
		Status:        string(models.StatusProcessing),
		Stage:         string(models.StageUploadPending),
	})

	if s.Queue != nil && !s.Queue.Enqueue(attempt.ID) {
		s.Logger.Debug("Attempt not queued, sweep will resume it", zap.String("attempt_id", attempt.ID))
	}
	return nil
}

func (s *Service) checkPrompts(ctx context.Context, versionID string, boundaries []models.SegmentBoundary) error {
	prompts, err := s.Catalog.Resolve(ctx, versionID)
	if err != nil {
		return fmt.Errorf("resolve prompt version %s: %w", versionID, err)
	}
	known := make(map[string]bool, len(prompts))
	for _, p := range prompts {
		known[p.ID] = true
	}
	for _, b := range boundaries {
		if !known[b.PromptID] {
			return fmt.Errorf("%w: %s", ErrUnknownPrompt, b.PromptID)
		}
	}
	return nil
}

// Status reports an attempt's progress. Feedback is only present once the
// attempt is complete.
func (s *Service) Status(ctx context.Context, userID, attemptID string) (*models.StatusResponse, error) {
	attempt, err := s.owned(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}

	resp := &models.StatusResponse{
		AttemptID:       attempt.ID,
		Status:          attempt.Status,
		ProcessingStage: attempt.ProcessingStage,
	}
	switch attempt.Status {
	case models.StatusComplete:
		var feedback models.Feedback
		if err := json.Unmarshal(attempt.Feedback, &feedback); err != nil {
			return nil, fmt.Errorf("decode feedback: %w", err)
		}
		resp.Feedback = &feedback
		resp.HireInclination = attempt.HireInclination
	case models.StatusFailed:
		resp.ErrorMessage = attempt.ErrorMessage
	}

	if len(attempt.IntegrityLog) > 0 {
		var log models.IntegrityLog
		if err := json.Unmarshal(attempt.IntegrityLog, &log); err == nil {
			flagged := log.IsFlagged()
			resp.IntegrityFlag = &flagged
		}
	}
	return resp, nil
}

// Abandon ends an in_progress attempt at the user's request. The abandonment
// locks the user out until an admin approves an unlock request.
func (s *Service) Abandon(ctx context.Context, userID, attemptID string) error {
	attempt, err := s.owned(ctx, userID, attemptID)
	if err != nil {
		return err
	}
	switch attempt.Status {
	case models.StatusAbandoned:
		return nil
	case models.StatusInProgress:
	default:
		return ErrInvalidState
	}
	if err := s.abandon(ctx, attempt, "user_exit"); err != nil {
		if errors.Is(err, repositories.ErrStaleTransition) {
			return ErrInvalidState
		}
		return err
	}
	return nil
}

func (s *Service) abandon(ctx context.Context, attempt *models.InterviewAttempt, reason string) error {
	err := s.Attempts.Transition(ctx, attempt.ID, models.StatusInProgress, map[string]interface{}{
		"status":       models.StatusAbandoned,
		"completed_at": s.now(),
	})
	if err != nil {
		return err
	}
	if attempt.UploadedAt != nil {
		s.deleteArtifact(ctx, attempt)
	}

	s.Logger.Info("Attempt abandoned",
		zap.String("attempt_id", attempt.ID),
		zap.String("user_id", attempt.UserID),
		zap.String("reason", reason))
	metrics.AttemptTransition(string(models.StatusAbandoned))
	s.Publisher.Publish(ctx, events.AttemptEvent{
		Type:          events.AttemptAbandoned,
		AttemptID:     attempt.ID,
		UserID:        attempt.UserID,
		AttemptNumber: attempt.AttemptNumber,
		Status:        string(models.StatusAbandoned),
		Reason:        reason,
	})
	return nil
}

// List returns the user's attempts, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]models.AttemptSummary, error) {
	rows, err := s.Attempts.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.AttemptSummary, 0, len(rows))
	for _, a := range rows {
		out = append(out, models.AttemptSummary{
			AttemptID:       a.ID,
			AttemptNumber:   a.AttemptNumber,
			Status:          a.Status,
			HireInclination: a.HireInclination,
			CreatedAt:       a.CreatedAt,
			CompletedAt:     a.CompletedAt,
		})
	}
	return out, nil
}
