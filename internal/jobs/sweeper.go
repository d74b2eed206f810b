package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"athena/interview/internal/attempts"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper is the work the job runs on every tick.
type Sweeper interface {
	Sweep(ctx context.Context) (attempts.SweepReport, error)
}

// SweepConfig contains configuration for the sweep job
type SweepConfig struct {
	Schedule string        // cron spec or descriptor, e.g. "@every 1m"
	Timeout  time.Duration // bound on a single run
}

// SweepJob abandons stale attempts and resumes stuck processing on a
// schedule.
type SweepJob struct {
	sweeper Sweeper
	config  *SweepConfig
	cron    *cron.Cron
	logger  *zap.Logger

	// skip a tick while the previous run is still going
	running sync.Mutex
}

func NewSweepJob(sweeper Sweeper, config *SweepConfig, logger *zap.Logger) *SweepJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepJob{
		sweeper: sweeper,
		config:  config,
		cron:    cron.New(),
		logger:  logger,
	}
}

// Start schedules the sweep.
func (j *SweepJob) Start() error {
	_, err := j.cron.AddFunc(j.config.Schedule, func() {
		if _, err := j.RunOnce(context.Background()); err != nil {
			j.logger.Error("Sweep run failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweep job: %w", err)
	}

	j.cron.Start()
	j.logger.Info("Sweep job started", zap.String("schedule", j.config.Schedule))
	return nil
}

// Stop stops scheduling and waits for a running sweep to finish.
func (j *SweepJob) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
		j.logger.Info("Sweep job stopped")
	}
}

// RunOnce performs a single sweep. It returns a zero report without running
// when another sweep is still in progress.
func (j *SweepJob) RunOnce(ctx context.Context) (attempts.SweepReport, error) {
	if !j.running.TryLock() {
		j.logger.Warn("Previous sweep still running, skipping")
		return attempts.SweepReport{}, nil
	}
	defer j.running.Unlock()

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	report, err := j.sweeper.Sweep(ctx)
	if err != nil {
		return report, err
	}
	if report != (attempts.SweepReport{}) {
		j.logger.Info("Sweep completed",
			zap.Int("abandoned_stale", report.AbandonedStale),
			zap.Int("abandoned_unsubmitted", report.AbandonedUnsubmitted),
			zap.Int("requeued", report.Requeued),
			zap.Duration("took", time.Since(start)))
	}
	return report, nil
}
