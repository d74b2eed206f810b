package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"athena/interview/internal/catalog"
	"athena/interview/internal/evaluation"
	"athena/interview/internal/events"
	"athena/interview/internal/metrics"
	"athena/interview/internal/models"
	"athena/interview/internal/storage"
	"athena/interview/internal/transcription"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// ErrAttemptBusy means another worker currently holds the attempt.
var ErrAttemptBusy = errors.New("attempt is being processed by another worker")

// AttemptStore is the persistence the pipeline needs.
type AttemptStore interface {
	FindByID(ctx context.Context, id string) (*models.InterviewAttempt, error)
	UpdateStage(ctx context.Context, id string, stage models.ProcessingStage, updates map[string]interface{}) error
}

// Config bounds each stage execution.
type Config struct {
	StageTimeout     time.Duration
	MaxRetries       int
	RetryBackoff     time.Duration
	MaxArtifactBytes int64
}

// Deps are the collaborators a Runner drives.
type Deps struct {
	Attempts    AttemptStore
	Blobs       storage.BlobStore
	Catalog     catalog.Catalog
	Transcriber transcription.Transcriber
	Evaluator   evaluation.Evaluator
	Locker      Locker
	Publisher   events.Publisher
	Logger      *zap.Logger
}

// StepResult describes what one Step did.
type StepResult struct {
	Status models.AttemptStatus
	Stage  models.ProcessingStage
	// Retry is set when the stage failed but has budget left.
	Retry bool
	// Done is set once the attempt is no longer processing.
	Done bool
}

// Runner advances attempts through the processing stages. Every stage reads
// its inputs from the attempt row and writes its outputs back together with
// the next stage, so a restarted worker resumes from the persisted stage.
type Runner struct {
	Deps
	cfg Config
	now func() time.Time
}

func NewRunner(deps Deps, cfg Config) *Runner {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Runner{Deps: deps, cfg: cfg, now: time.Now}
}

// terminalError marks failures that retrying cannot fix.
type terminalError struct{ err error }

func (e terminalError) Error() string { return e.err.Error() }
func (e terminalError) Unwrap() error { return e.err }

func terminal(err error) error { return terminalError{err: err} }

func isTerminal(err error) bool {
	var t terminalError
	return errors.As(err, &t)
}

// Advance runs stages until the attempt leaves processing, the retry budget
// is spent, or ctx ends. It returns nil if another worker owns the attempt.
func (r *Runner) Advance(ctx context.Context, attemptID string) error {
	for {
		res, err := r.Step(ctx, attemptID)
		if errors.Is(err, ErrAttemptBusy) {
			return nil
		}
		if err != nil {
			return err
		}
		if res.Done {
			return nil
		}
		if res.Retry && r.cfg.RetryBackoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.cfg.RetryBackoff):
			}
		}
	}
}

// Step executes the attempt's current stage once while holding its lock.
func (r *Runner) Step(ctx context.Context, attemptID string) (StepResult, error) {
	release, err := r.Locker.Acquire(ctx, attemptID, r.cfg.StageTimeout+30*time.Second)
	if errors.Is(err, ErrLockHeld) {
		return StepResult{}, ErrAttemptBusy
	}
	if err != nil {
		return StepResult{}, fmt.Errorf("acquire attempt lock: %w", err)
	}
	defer release()

	attempt, err := r.Attempts.FindByID(ctx, attemptID)
	if err != nil {
		return StepResult{}, err
	}
	if attempt.Status != models.StatusProcessing {
		return StepResult{Status: attempt.Status, Done: true}, nil
	}
	stage := attempt.Stage()
	logger := r.Logger.With(zap.String("attempt_id", attempt.ID), zap.String("stage", string(stage)))

	start := time.Now()
	stageCtx, cancel := context.WithTimeout(ctx, r.cfg.StageTimeout)
	updates, err := r.runStage(stageCtx, attempt, stage)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			// worker shutdown, not a stage failure
			return StepResult{}, ctx.Err()
		}
		return r.handleFailure(ctx, logger, attempt, stage, err, time.Since(start))
	}

	if err := r.Attempts.UpdateStage(ctx, attempt.ID, stage, updates); err != nil {
		return StepResult{}, fmt.Errorf("persist stage %s: %w", stage, err)
	}
	metrics.ObserveStage(string(stage), metrics.OutcomeAdvanced, time.Since(start))

	if status, _ := updates["status"].(models.AttemptStatus); status == models.StatusComplete {
		inclination, _ := updates["hire_inclination"].(models.HireInclination)
		logger.Info("Attempt completed", zap.String("hire_inclination", string(inclination)))
		metrics.AttemptTransition(string(models.StatusComplete))
		r.Publisher.Publish(ctx, events.AttemptEvent{
			Type:            events.AttemptCompleted,
			AttemptID:       attempt.ID,
			UserID:          attempt.UserID,
			AttemptNumber:   attempt.AttemptNumber,
			Status:          string(models.StatusComplete),
			HireInclination: string(inclination),
		})
		return StepResult{Status: models.StatusComplete, Done: true}, nil
	}

	next, _ := updates["processing_stage"].(models.ProcessingStage)
	logger.Debug("Stage advanced", zap.String("next_stage", string(next)))
	return StepResult{Status: models.StatusProcessing, Stage: next}, nil
}

func (r *Runner) handleFailure(ctx context.Context, logger *zap.Logger, attempt *models.InterviewAttempt, stage models.ProcessingStage, stageErr error, elapsed time.Duration) (StepResult, error) {
	attempts := attempt.StageAttempts + 1
	if errors.Is(stageErr, context.DeadlineExceeded) {
		stageErr = fmt.Errorf("stage timed out after %s: %w", r.cfg.StageTimeout, stageErr)
	}

	if !isTerminal(stageErr) && attempts < r.cfg.MaxRetries {
		logger.Warn("Stage failed, will retry",
			zap.Int("stage_attempts", attempts),
			zap.Int("max_retries", r.cfg.MaxRetries),
			zap.Error(stageErr))
		err := r.Attempts.UpdateStage(ctx, attempt.ID, stage, map[string]interface{}{
			"stage_attempts":   attempts,
			"last_stage_error": stageErr.Error(),
		})
		if err != nil {
			return StepResult{}, fmt.Errorf("record stage failure: %w", err)
		}
		metrics.ObserveStage(string(stage), metrics.OutcomeRetry, elapsed)
		return StepResult{Status: models.StatusProcessing, Stage: stage, Retry: true}, nil
	}

	logger.Error("Attempt failed",
		zap.Int("stage_attempts", attempts),
		zap.Bool("terminal", isTerminal(stageErr)),
		zap.Error(stageErr))
	now := r.now()
	err := r.Attempts.UpdateStage(ctx, attempt.ID, stage, map[string]interface{}{
		"status":           models.StatusFailed,
		"processing_stage": nil,
		"failed_stage":     stage,
		"stage_attempts":   attempts,
		"last_stage_error": stageErr.Error(),
		"error_message":    failureMessage(stage),
		"completed_at":     now,
	})
	if err != nil {
		return StepResult{}, fmt.Errorf("record attempt failure: %w", err)
	}
	metrics.ObserveStage(string(stage), metrics.OutcomeFailed, elapsed)
	metrics.AttemptTransition(string(models.StatusFailed))
	r.Publisher.Publish(ctx, events.AttemptEvent{
		Type:          events.AttemptFailed,
		AttemptID:     attempt.ID,
		UserID:        attempt.UserID,
		AttemptNumber: attempt.AttemptNumber,
		Status:        string(models.StatusFailed),
		Stage:         string(stage),
		Reason:        failureMessage(stage),
	})
	return StepResult{Status: models.StatusFailed, Stage: stage, Done: true}, nil
}

func (r *Runner) runStage(ctx context.Context, a *models.InterviewAttempt, stage models.ProcessingStage) (map[string]interface{}, error) {
	switch stage {
	case models.StageUploadPending:
		return r.verifyUpload(ctx, a)
	case models.StageUploadVerified:
		return advanceTo(models.StageTranscribing), nil
	case models.StageTranscribing:
		return r.transcribe(ctx, a)
	case models.StageSegmenting:
		return r.segment(a)
	case models.StageEvaluating:
		return r.evaluate(ctx, a)
	case models.StageFinalizing:
		return r.finalize(a)
	default:
		return nil, terminal(fmt.Errorf("unknown processing stage %q", stage))
	}
}

func advanceTo(next models.ProcessingStage) map[string]interface{} {
	return map[string]interface{}{
		"processing_stage": next,
		"stage_attempts":   0,
		"last_stage_error": "",
	}
}

func (r *Runner) verifyUpload(ctx context.Context, a *models.InterviewAttempt) (map[string]interface{}, error) {
	size, container, err := storage.Verify(ctx, r.Blobs, a.ArtifactKey)
	switch {
	case errors.Is(err, storage.ErrObjectNotFound),
		errors.Is(err, storage.ErrEmptyArtifact),
		errors.Is(err, storage.ErrUnrecognizedArtifact):
		return nil, terminal(err)
	case err != nil:
		return nil, err
	}
	if r.cfg.MaxArtifactBytes > 0 && size > r.cfg.MaxArtifactBytes {
		return nil, terminal(fmt.Errorf("artifact is %d bytes, limit is %d", size, r.cfg.MaxArtifactBytes))
	}

	updates := advanceTo(models.StageUploadVerified)
	updates["artifact_bytes"] = size
	if a.ArtifactMimeType == "" {
		updates["artifact_mime_type"] = "video/" + string(container)
	}
	return updates, nil
}

func (r *Runner) transcribe(ctx context.Context, a *models.InterviewAttempt) (map[string]interface{}, error) {
	rc, _, err := r.Blobs.Open(ctx, a.ArtifactKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, terminal(err)
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	reader := io.Reader(rc)
	if r.cfg.MaxArtifactBytes > 0 {
		reader = io.LimitReader(rc, r.cfg.MaxArtifactBytes)
	}
	media, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	transcript, err := r.Transcriber.Transcribe(ctx, media, a.ArtifactMimeType, a.EvaluatorVersionID)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(transcript)
	if err != nil {
		return nil, err
	}

	updates := advanceTo(models.StageSegmenting)
	updates["transcript"] = datatypes.JSON(raw)
	return updates, nil
}

func (r *Runner) segment(a *models.InterviewAttempt) (map[string]interface{}, error) {
	var transcript models.Transcript
	if err := json.Unmarshal(a.Transcript, &transcript); err != nil {
		return nil, terminal(fmt.Errorf("stored transcript unreadable: %w", err))
	}
	var boundaries []models.SegmentBoundary
	if err := json.Unmarshal(a.SegmentBoundaries, &boundaries); err != nil {
		return nil, terminal(fmt.Errorf("stored segment boundaries unreadable: %w", err))
	}

	raw, err := json.Marshal(SegmentTranscript(transcript, boundaries))
	if err != nil {
		return nil, err
	}
	updates := advanceTo(models.StageEvaluating)
	updates["segments"] = datatypes.JSON(raw)
	return updates, nil
}

func (r *Runner) evaluate(ctx context.Context, a *models.InterviewAttempt) (map[string]interface{}, error) {
	var segments []models.Segment
	if err := json.Unmarshal(a.Segments, &segments); err != nil {
		return nil, terminal(fmt.Errorf("stored segments unreadable: %w", err))
	}
	prompts, err := r.Catalog.Resolve(ctx, a.PromptVersionID)
	if errors.Is(err, catalog.ErrVersionNotFound) {
		return nil, terminal(err)
	}
	if err != nil {
		return nil, err
	}

	feedback, err := r.Evaluator.Evaluate(ctx, evaluation.Input{
		EvaluatorVersion: a.EvaluatorVersionID,
		Prompts:          prompts,
		Segments:         segments,
	})
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(feedback)
	if err != nil {
		return nil, err
	}

	updates := advanceTo(models.StageFinalizing)
	updates["evaluation"] = datatypes.JSON(raw)
	return updates, nil
}

func (r *Runner) finalize(a *models.InterviewAttempt) (map[string]interface{}, error) {
	var feedback models.Feedback
	if err := json.Unmarshal(a.Evaluation, &feedback); err != nil {
		return nil, terminal(fmt.Errorf("stored evaluation unreadable: %w", err))
	}

	var log models.IntegrityLog
	if len(a.IntegrityLog) > 0 {
		if err := json.Unmarshal(a.IntegrityLog, &log); err != nil {
			return nil, terminal(fmt.Errorf("stored integrity log unreadable: %w", err))
		}
	}
	feedback.Flagged = log.IsFlagged()

	raw, err := json.Marshal(feedback)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"status":           models.StatusComplete,
		"processing_stage": nil,
		"stage_attempts":   0,
		"last_stage_error": "",
		"feedback":         datatypes.JSON(raw),
		"hire_inclination": feedback.HireInclination,
		"completed_at":     r.now(),
	}, nil
}

func failureMessage(stage models.ProcessingStage) string {
	switch stage {
	case models.StageUploadPending, models.StageUploadVerified:
		return "We could not read your recording. Please start a new attempt."
	case models.StageTranscribing, models.StageSegmenting:
		return "We could not transcribe your recording. Our team has been notified; you can start a new attempt."
	case models.StageEvaluating, models.StageFinalizing:
		return "We could not generate feedback for this attempt. Our team has been notified; you can start a new attempt."
	default:
		return "Processing failed. Please start a new attempt."
	}
}
