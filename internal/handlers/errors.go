package handlers

import (
	"errors"
	"net/http"

	"athena/interview/internal/attempts"
	"athena/interview/internal/models"
	"athena/interview/internal/repositories"
	"athena/interview/internal/storage"
	"athena/interview/internal/utils"

	"go.uber.org/zap"
)

// writeError maps service errors onto HTTP responses.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var locked *attempts.LockedError
	var inProgress *attempts.InProgressError
	switch {
	case errors.As(err, &locked):
		utils.JSON(w, http.StatusForbidden, models.LockedResponse{
			Error:                models.ErrCodeLocked,
			Reason:               locked.Decision.Reason,
			UnlockRequestAllowed: locked.Decision.UnlockRequestAllowed,
			RequestPending:       locked.Decision.RequestPending,
			LockedUntil:          locked.Decision.LockedUntil,
		})
	case errors.As(err, &inProgress):
		utils.JSON(w, http.StatusConflict, models.InProgressResponse{
			Error:             models.ErrCodeInProgress,
			ExistingAttemptID: inProgress.AttemptID,
		})
	case errors.Is(err, storage.ErrUploadURLExpired):
		utils.Error(w, http.StatusGone, models.ErrCodeUploadURLExpired, "upload URL has expired, request a new one")
	case errors.Is(err, storage.ErrInvalidUploadToken):
		utils.Error(w, http.StatusBadRequest, "invalid_upload_token", err.Error())
	case errors.Is(err, attempts.ErrAttemptNotFound):
		utils.Error(w, http.StatusNotFound, "attempt_not_found", "attempt not found")
	case errors.Is(err, attempts.ErrInvalidState):
		utils.Error(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, attempts.ErrNotUploaded):
		utils.Error(w, http.StatusConflict, "not_uploaded", err.Error())
	case errors.Is(err, attempts.ErrArtifactTooLarge):
		utils.Error(w, http.StatusRequestEntityTooLarge, "artifact_too_large", err.Error())
	case errors.Is(err, attempts.ErrUnknownPrompt):
		utils.Error(w, http.StatusBadRequest, "unknown_prompt", err.Error())
	case errors.Is(err, attempts.ErrUnlockNotAllowed):
		utils.Error(w, http.StatusConflict, "unlock_not_allowed", err.Error())
	case errors.Is(err, attempts.ErrUnlockPending):
		utils.Error(w, http.StatusConflict, "unlock_pending", err.Error())
	case errors.Is(err, repositories.ErrUnlockRequestNotFound):
		utils.Error(w, http.StatusNotFound, "unlock_request_not_found", err.Error())
	case errors.Is(err, repositories.ErrUnlockRequestResolved):
		utils.Error(w, http.StatusConflict, "unlock_request_resolved", err.Error())
	case errors.Is(err, repositories.ErrHoldNotFound):
		utils.Error(w, http.StatusNotFound, "hold_not_found", err.Error())
	default:
		logger.Error("Request failed", zap.Error(err))
		utils.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
