package attempts

import (
	"context"
	"errors"
	"fmt"
	"io"

	"athena/interview/internal/models"
	"athena/interview/internal/repositories"
	"athena/interview/internal/storage"

	"go.uber.org/zap"
)

// AcceptUpload stores the recording sent to a signed upload URL. It returns
// storage.ErrUploadURLExpired for an expired token so the client can ask for
// a new URL instead of starting over.
func (s *Service) AcceptUpload(ctx context.Context, token string, body io.Reader, contentType string) error {
	claims, err := s.Signer.Verify(token)
	if err != nil {
		return err
	}
	attempt, err := s.Attempts.FindByID(ctx, claims.AttemptID)
	if err != nil {
		return err
	}
	if attempt.ArtifactKey != claims.Key {
		return storage.ErrInvalidUploadToken
	}
	if attempt.Status != models.StatusInProgress {
		return ErrInvalidState
	}

	// an oversized body never replaces a recording accepted earlier
	size, err := s.Blobs.PutMax(ctx, attempt.ArtifactKey, body, s.cfg.MaxArtifactBytes)
	if errors.Is(err, storage.ErrObjectTooLarge) {
		return ErrArtifactTooLarge
	}
	if err != nil {
		return fmt.Errorf("store recording: %w", err)
	}

	updates := map[string]interface{}{
		"uploaded_at":    s.now(),
		"artifact_bytes": size,
	}
	if contentType != "" {
		updates["artifact_mime_type"] = contentType
	}
	err = s.Attempts.Transition(ctx, attempt.ID, models.StatusInProgress, updates)
	if errors.Is(err, repositories.ErrStaleTransition) {
		return ErrInvalidState
	}
	if err != nil {
		return err
	}

	s.Logger.Info("Recording uploaded",
		zap.String("attempt_id", attempt.ID),
		zap.Int64("bytes", size),
		zap.String("content_type", contentType))
	return nil
}

// ReissueUploadURL signs a fresh upload URL for an in_progress attempt.
func (s *Service) ReissueUploadURL(ctx context.Context, userID, attemptID string) (*models.UploadURLResponse, error) {
	attempt, err := s.owned(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.StatusInProgress {
		return nil, ErrInvalidState
	}

	uploadURL, expires, err := s.Signer.Sign(attempt.ID, attempt.ArtifactKey)
	if err != nil {
		return nil, err
	}
	err = s.Attempts.Transition(ctx, attempt.ID, models.StatusInProgress, map[string]interface{}{
		"upload_url":            uploadURL,
		"upload_url_expires_at": expires,
	})
	if errors.Is(err, repositories.ErrStaleTransition) {
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, err
	}

	return &models.UploadURLResponse{
		AttemptID:          attempt.ID,
		UploadURL:          uploadURL,
		UploadURLExpiresAt: expires,
	}, nil
}

func (s *Service) deleteArtifact(ctx context.Context, attempt *models.InterviewAttempt) {
	if err := s.Blobs.Delete(ctx, attempt.ArtifactKey); err != nil {
		s.Logger.Warn("Failed to delete recording",
			zap.String("attempt_id", attempt.ID),
			zap.Error(err))
	}
}
