package interviewclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"athena/interview/internal/models"

	"go.uber.org/zap"
)

// UploadAPI is the part of the API the uploader drives.
type UploadAPI interface {
	Upload(ctx context.Context, uploadURL string, data []byte, mimeType string) error
	ReissueUploadURL(ctx context.Context, attemptID string) (*models.UploadURLResponse, error)
}

// Uploader transfers a finished recording. An expired URL is re-issued
// rather than retried; a transient failure retries the same URL.
type Uploader struct {
	api        UploadAPI
	cache      *SessionCache
	MaxRetries int
	Backoff    time.Duration
	MaxReissue int
	now        func() time.Time
	logger     *zap.Logger
}

func NewUploader(api UploadAPI, cache *SessionCache, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{
		api:        api,
		cache:      cache,
		MaxRetries: 3,
		Backoff:    time.Second,
		MaxReissue: 2,
		now:        time.Now,
		logger:     logger,
	}
}

// Upload sends data for session s, updating s (and the cache) when the URL
// is re-issued.
func (u *Uploader) Upload(ctx context.Context, s *Session, data []byte, mimeType string) error {
	reissued := 0
	failures := 0

	if !s.UploadURLExpiresAt.IsZero() && !u.now().Before(s.UploadURLExpiresAt) {
		if err := u.reissue(ctx, s); err != nil {
			return err
		}
		reissued++
	}

	for {
		err := u.api.Upload(ctx, s.UploadURL, data, mimeType)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrUploadURLExpired):
			if reissued >= u.MaxReissue {
				return err
			}
			if err := u.reissue(ctx, s); err != nil {
				return err
			}
			reissued++
		case IsTransient(err):
			failures++
			if failures > u.MaxRetries {
				return fmt.Errorf("upload failed after %d attempts: %w", failures, err)
			}
			delay := u.Backoff << (failures - 1)
			u.logger.Warn("Upload failed, retrying same url",
				zap.String("attempt_id", s.AttemptID),
				zap.Int("failures", failures),
				zap.Duration("delay", delay),
				zap.Error(err))
			if err := sleep(ctx, delay); err != nil {
				return err
			}
		default:
			return err
		}
	}
}

func (u *Uploader) reissue(ctx context.Context, s *Session) error {
	resp, err := u.api.ReissueUploadURL(ctx, s.AttemptID)
	if err != nil {
		return fmt.Errorf("reissue upload url: %w", err)
	}
	s.UploadURL = resp.UploadURL
	s.UploadURLExpiresAt = resp.UploadURLExpiresAt
	if u.cache != nil {
		u.cache.UpdateUploadURL(s.AttemptID, resp.UploadURL, resp.UploadURLExpiresAt)
	}
	u.logger.Info("Upload url re-issued", zap.String("attempt_id", s.AttemptID))
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
