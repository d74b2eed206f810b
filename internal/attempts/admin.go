package attempts

import (
	"context"
	"errors"

	"athena/interview/internal/metrics"
	"athena/interview/internal/models"
	"athena/interview/internal/repositories"

	"go.uber.org/zap"
)

func (s *Service) SetHold(ctx context.Context, userID, reason, setBy string) (*models.AdminHold, error) {
	hold := &models.AdminHold{UserID: userID, Reason: reason, SetBy: setBy}
	if err := s.Lockouts.SetHold(ctx, hold); err != nil {
		return nil, err
	}
	s.Logger.Info("Admin hold set", zap.String("user_id", userID), zap.String("set_by", setBy))
	return hold, nil
}

func (s *Service) ClearHold(ctx context.Context, userID, clearedBy string) error {
	if err := s.Lockouts.ClearHold(ctx, userID); err != nil {
		return err
	}
	s.Logger.Info("Admin hold cleared", zap.String("user_id", userID), zap.String("cleared_by", clearedBy))
	return nil
}

func (s *Service) ListUnlockRequests(ctx context.Context, status models.UnlockRequestStatus, limit int) ([]models.UnlockRequest, error) {
	return s.Lockouts.ListUnlockRequests(ctx, status, limit)
}

// ResolveUnlock approves or denies a pending request. Approval clears the
// abandonment lock of the referenced attempt.
func (s *Service) ResolveUnlock(ctx context.Context, requestID string, approve bool, resolvedBy string) (*models.UnlockRequest, error) {
	req, err := s.Lockouts.ResolveUnlockRequest(ctx, requestID, approve, resolvedBy, s.now())
	if err != nil {
		return nil, err
	}
	s.Logger.Info("Unlock request resolved",
		zap.String("request_id", req.ID),
		zap.String("user_id", req.UserID),
		zap.String("status", string(req.Status)),
		zap.String("resolved_by", resolvedBy))
	return req, nil
}

// RetryFailed puts a failed attempt back into processing at the stage that
// failed, with a fresh retry budget.
func (s *Service) RetryFailed(ctx context.Context, attemptID, requestedBy string) error {
	attempt, err := s.Attempts.FindByID(ctx, attemptID)
	if err != nil {
		return err
	}
	if attempt.Status != models.StatusFailed || attempt.FailedStage == nil {
		return ErrInvalidState
	}

	err = s.Attempts.Transition(ctx, attempt.ID, models.StatusFailed, map[string]interface{}{
		"status":           models.StatusProcessing,
		"processing_stage": *attempt.FailedStage,
		"failed_stage":     nil,
		"stage_attempts":   0,
		"last_stage_error": "",
		"error_message":    "",
		"completed_at":     nil,
	})
	if errors.Is(err, repositories.ErrStaleTransition) {
		return ErrInvalidState
	}
	if err != nil {
		// the user started another attempt since; one live attempt at a time
		if live, findErr := s.Attempts.FindLive(ctx, attempt.UserID); findErr == nil && live != nil {
			return &InProgressError{AttemptID: live.ID}
		}
		return err
	}

	s.Logger.Info("Failed attempt re-driven",
		zap.String("attempt_id", attempt.ID),
		zap.String("stage", string(*attempt.FailedStage)),
		zap.String("requested_by", requestedBy))
	metrics.AttemptTransition(string(models.StatusProcessing))
	if s.Queue != nil {
		s.Queue.Enqueue(attempt.ID)
	}
	return nil
}
