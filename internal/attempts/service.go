// Package attempts owns the server side of the attempt lifecycle: creating
// attempts under the lockout rules, accepting uploads and submissions, and
// reporting status.
package attempts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"athena/interview/internal/catalog"
	"athena/interview/internal/events"
	"athena/interview/internal/lockout"
	"athena/interview/internal/metrics"
	"athena/interview/internal/models"
	"athena/interview/internal/repositories"
	"athena/interview/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrAttemptNotFound  = repositories.ErrAttemptNotFound
	ErrInvalidState     = errors.New("attempt does not allow this operation in its current state")
	ErrNotUploaded      = errors.New("recording has not been uploaded")
	ErrArtifactTooLarge = errors.New("recording exceeds the size limit")
	ErrUnknownPrompt    = errors.New("segment boundary references a prompt outside the attempt's prompt version")
	ErrUnlockNotAllowed = errors.New("no abandonment lock to request an unlock for")
	ErrUnlockPending    = errors.New("an unlock request is already pending")
)

// LockedError is returned by Initialize when the lockout policy refuses.
type LockedError struct {
	Decision lockout.Decision
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("user is locked out: %s", e.Decision.Reason)
}

// InProgressError is returned when the user already has a live attempt.
type InProgressError struct {
	AttemptID string
}

func (e *InProgressError) Error() string {
	return "attempt already in progress: " + e.AttemptID
}

// Enqueuer hands submitted attempts to the processing pipeline.
type Enqueuer interface {
	Enqueue(attemptID string) bool
}

type Config struct {
	PromptVersionID            string
	EvaluatorVersionID         string
	Cooldown                   time.Duration
	MaxArtifactBytes           int64
	InProgressTimeout          time.Duration
	UploadedUnsubmittedTimeout time.Duration
	ProcessingStaleAfter       time.Duration
	SweepBatchSize             int
}

type Deps struct {
	Attempts  *repositories.AttemptRepository
	Lockouts  *repositories.LockoutRepository
	Catalog   catalog.Catalog
	Blobs     storage.BlobStore
	Signer    *storage.URLSigner
	Queue     Enqueuer
	Publisher events.Publisher
	Logger    *zap.Logger
}

type Service struct {
	Deps
	cfg    Config
	policy lockout.Policy
	now    func() time.Time
}

func NewService(deps Deps, cfg Config) *Service {
	if deps.Publisher == nil {
		deps.Publisher = events.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = 100
	}
	return &Service{
		Deps:   deps,
		cfg:    cfg,
		policy: lockout.NewPolicy(cfg.Cooldown),
		now:    time.Now,
	}
}

// ArtifactKey is the storage key of an attempt's recording.
func ArtifactKey(userID, attemptID string) string {
	return "attempts/" + url.PathEscape(userID) + "/" + attemptID
}

func (s *Service) history(ctx context.Context, userID string) (lockout.History, error) {
	var h lockout.History
	var err error
	if h.AdminHold, err = s.Lockouts.GetHold(ctx, userID); err != nil {
		return h, fmt.Errorf("load admin hold: %w", err)
	}
	if h.Latest, err = s.Attempts.FindLatest(ctx, userID); err != nil {
		return h, fmt.Errorf("load latest attempt: %w", err)
	}
	if h.Live, err = s.Attempts.FindLive(ctx, userID); err != nil {
		return h, fmt.Errorf("load live attempt: %w", err)
	}
	if h.PendingRequest, err = s.Lockouts.HasPendingRequest(ctx, userID); err != nil {
		return h, fmt.Errorf("load unlock requests: %w", err)
	}
	return h, nil
}

// Initialize creates a new attempt for the user, or explains why not with a
// *LockedError or *InProgressError.
func (s *Service) Initialize(ctx context.Context, userID string) (*models.InitializeResponse, error) {
	h, err := s.history(ctx, userID)
	if err != nil {
		return nil, err
	}
	decision := s.policy.Decide(h, s.now())
	switch decision.Outcome {
	case lockout.Locked:
		s.Logger.Info("Initialize refused",
			zap.String("user_id", userID),
			zap.String("reason", string(decision.Reason)))
		return nil, &LockedError{Decision: decision}
	case lockout.InProgress:
		return nil, &InProgressError{AttemptID: decision.ExistingAttemptID}
	}

	prompts, err := s.Catalog.Resolve(ctx, s.cfg.PromptVersionID)
	if err != nil {
		return nil, fmt.Errorf("resolve prompt version %s: %w", s.cfg.PromptVersionID, err)
	}
	number, err := s.Attempts.NextAttemptNumber(ctx, userID)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	key := ArtifactKey(userID, id)
	uploadURL, expires, err := s.Signer.Sign(id, key)
	if err != nil {
		return nil, err
	}

	attempt := &models.InterviewAttempt{
		ID:                 id,
		UserID:             userID,
		AttemptNumber:      number,
		Status:             models.StatusInProgress,
		PromptVersionID:    s.cfg.PromptVersionID,
		EvaluatorVersionID: s.cfg.EvaluatorVersionID,
		UploadURL:          uploadURL,
		UploadURLExpiresAt: expires,
		ArtifactKey:        key,
	}
	if err := s.Attempts.Create(ctx, attempt); err != nil {
		// a concurrent initialize may have won the live-attempt index
		live, findErr := s.Attempts.FindLive(ctx, userID)
		if findErr == nil && live != nil {
			return nil, &InProgressError{AttemptID: live.ID}
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.Logger.Info("Attempt initialized",
		zap.String("attempt_id", id),
		zap.String("user_id", userID),
		zap.Int("attempt_number", number))
	metrics.AttemptTransition(string(models.StatusInProgress))
	s.Publisher.Publish(ctx, events.AttemptEvent{
		Type:          events.AttemptInitialized,
		AttemptID:     id,
		UserID:        userID,
		AttemptNumber: number,
		Status:        string(models.StatusInProgress),
	})

	return &models.InitializeResponse{
		AttemptID:          id,
		AttemptNumber:      number,
		UploadURL:          uploadURL,
		UploadURLExpiresAt: expires,
		Prompts:            prompts,
		PromptVersionID:    s.cfg.PromptVersionID,
		EvaluatorVersionID: s.cfg.EvaluatorVersionID,
	}, nil
}

// Lockout reports the user's current lockout state without creating anything.
func (s *Service) Lockout(ctx context.Context, userID string) (*models.LockoutStateResponse, error) {
	h, err := s.history(ctx, userID)
	if err != nil {
		return nil, err
	}
	d := s.policy.Decide(h, s.now())
	resp := &models.LockoutStateResponse{
		Locked:               d.Outcome == lockout.Locked,
		Reason:               d.Reason,
		UnlockRequestAllowed: d.UnlockRequestAllowed,
		RequestPending:       d.RequestPending,
		LockedUntil:          d.LockedUntil,
	}
	if d.Outcome == lockout.InProgress {
		resp.LiveAttemptID = d.ExistingAttemptID
	}
	return resp, nil
}

// RequestUnlock files the user's single pending unlock request against their
// abandoned attempt.
func (s *Service) RequestUnlock(ctx context.Context, userID, message string) (*models.UnlockRequest, error) {
	h, err := s.history(ctx, userID)
	if err != nil {
		return nil, err
	}
	d := s.policy.Decide(h, s.now())
	if d.Outcome != lockout.Locked || d.Reason != models.LockoutAbandoned {
		return nil, ErrUnlockNotAllowed
	}
	if d.RequestPending {
		return nil, ErrUnlockPending
	}

	req := &models.UnlockRequest{
		ID:        uuid.New().String(),
		UserID:    userID,
		AttemptID: h.Latest.ID,
		Message:   message,
		Status:    models.UnlockPending,
	}
	if err := s.Lockouts.CreateUnlockRequest(ctx, req); err != nil {
		if pending, _ := s.Lockouts.HasPendingRequest(ctx, userID); pending {
			return nil, ErrUnlockPending
		}
		return nil, fmt.Errorf("create unlock request: %w", err)
	}
	s.Logger.Info("Unlock requested", zap.String("user_id", userID), zap.String("attempt_id", req.AttemptID))
	return req, nil
}

// owned loads an attempt and hides other users' attempts as not found.
func (s *Service) owned(ctx context.Context, userID, attemptID string) (*models.InterviewAttempt, error) {
	attempt, err := s.Attempts.FindByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, ErrAttemptNotFound
	}
	return attempt, nil
}
