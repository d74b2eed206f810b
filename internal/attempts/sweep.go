package attempts

import (
	"context"
	"errors"

	"athena/interview/internal/metrics"
	"athena/interview/internal/models"
	"athena/interview/internal/repositories"

	"go.uber.org/zap"
)

// SweepReport counts what one sweep did.
type SweepReport struct {
	AbandonedStale       int
	AbandonedUnsubmitted int
	Requeued             int
}

// Sweep abandons attempts the user walked away from and re-queues processing
// attempts no worker has touched recently.
func (s *Service) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	now := s.now()

	if s.cfg.InProgressTimeout > 0 {
		stale, err := s.Attempts.FindStaleInProgress(ctx, now.Add(-s.cfg.InProgressTimeout), s.cfg.SweepBatchSize)
		if err != nil {
			return report, err
		}
		for i := range stale {
			if s.sweepAbandon(ctx, &stale[i], "timeout") {
				report.AbandonedStale++
			}
		}
	}

	if s.cfg.UploadedUnsubmittedTimeout > 0 {
		uploaded, err := s.Attempts.FindUploadedUnsubmitted(ctx, now.Add(-s.cfg.UploadedUnsubmittedTimeout), s.cfg.SweepBatchSize)
		if err != nil {
			return report, err
		}
		for i := range uploaded {
			if s.sweepAbandon(ctx, &uploaded[i], "not_submitted") {
				report.AbandonedUnsubmitted++
			}
		}
	}

	if s.cfg.ProcessingStaleAfter > 0 && s.Queue != nil {
		processing, err := s.Attempts.FindStaleProcessing(ctx, now.Add(-s.cfg.ProcessingStaleAfter), s.cfg.SweepBatchSize)
		if err != nil {
			return report, err
		}
		for _, a := range processing {
			if s.Queue.Enqueue(a.ID) {
				report.Requeued++
			}
		}
	}

	metrics.SweepAction("abandoned_stale", report.AbandonedStale)
	metrics.SweepAction("abandoned_unsubmitted", report.AbandonedUnsubmitted)
	metrics.SweepAction("requeued", report.Requeued)
	return report, nil
}

func (s *Service) sweepAbandon(ctx context.Context, attempt *models.InterviewAttempt, reason string) bool {
	err := s.abandon(ctx, attempt, reason)
	if errors.Is(err, repositories.ErrStaleTransition) {
		return false
	}
	if err != nil {
		s.Logger.Error("Sweep failed to abandon attempt", zap.String("attempt_id", attempt.ID), zap.Error(err))
		return false
	}
	return true
}
