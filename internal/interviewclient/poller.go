package interviewclient

import (
	"context"
	"time"

	"athena/interview/internal/models"

	"go.uber.org/zap"
)

// StatusSource fetches attempt status.
type StatusSource interface {
	Status(ctx context.Context, attemptID string) (*models.StatusResponse, error)
}

// Poller polls attempt status until it is terminal. Transient failures back
// off multiplicatively up to MaxInterval; a success resets the interval.
type Poller struct {
	source      StatusSource
	Interval    time.Duration
	MaxInterval time.Duration
	logger      *zap.Logger
}

func NewPoller(source StatusSource, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		source:      source,
		Interval:    3 * time.Second,
		MaxInterval: 30 * time.Second,
		logger:      logger,
	}
}

// Poll returns the first terminal status. onUpdate, if set, sees every
// successful response. Non-transient errors and ctx cancellation end polling.
func (p *Poller) Poll(ctx context.Context, attemptID string, onUpdate func(*models.StatusResponse)) (*models.StatusResponse, error) {
	delay := p.Interval
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		status, err := p.source.Status(ctx, attemptID)
		switch {
		case err == nil:
			if onUpdate != nil {
				onUpdate(status)
			}
			if status.Status.IsTerminal() {
				return status, nil
			}
			delay = p.Interval
		case IsTransient(err):
			delay *= 2
			if delay > p.MaxInterval {
				delay = p.MaxInterval
			}
			p.logger.Warn("Status poll failed, backing off",
				zap.String("attempt_id", attemptID),
				zap.Duration("delay", delay),
				zap.Error(err))
		default:
			return nil, err
		}
		timer.Reset(delay)
	}
}
