package handlers

import (
	"net/http"
	"strconv"

	"athena/interview/internal/attempts"
	"athena/interview/internal/middleware"
	"athena/interview/internal/models"
	"athena/interview/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AttemptHandler struct {
	service *attempts.Service
	logger  *zap.Logger
}

func NewAttemptHandler(service *attempts.Service, logger *zap.Logger) *AttemptHandler {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &AttemptHandler{service: service, logger: logger}
}

func (h *AttemptHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "unauthorized", "missing user identity")
	}
	return userID, ok
}

// InitializeHandler handles POST /attempts
func (h *AttemptHandler) InitializeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Initialize(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// UploadHandler handles PUT /uploads/{token}. The signed token is the only
// credential; no bearer token is required.
func (h *AttemptHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	err := h.service.AcceptUpload(r.Context(), token, r.Body, r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReissueUploadURLHandler handles POST /attempts/{attemptId}/upload-url
func (h *AttemptHandler) ReissueUploadURLHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	resp, err := h.service.ReissueUploadURL(r.Context(), userID, chi.URLParam(r, "attemptId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// SubmitHandler handles POST /attempts/{attemptId}/submit
func (h *AttemptHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	req := middleware.GetValidatedRequest[*models.SubmitRequest](r)
	if req.AttemptID != chi.URLParam(r, "attemptId") {
		utils.Error(w, http.StatusBadRequest, "attempt_id_mismatch", "attemptId in body does not match the URL")
		return
	}
	if err := h.service.Submit(r.Context(), userID, req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusAccepted, map[string]string{
		"attemptId": req.AttemptID,
		"status":    string(models.StatusProcessing),
	})
}

// StatusHandler handles GET /attempts/{attemptId}/status
func (h *AttemptHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Status(r.Context(), userID, chi.URLParam(r, "attemptId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// AbandonHandler handles POST /attempts/{attemptId}/abandon
func (h *AttemptHandler) AbandonHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.service.Abandon(r.Context(), userID, chi.URLParam(r, "attemptId")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListHandler handles GET /attempts?limit=N
func (h *AttemptHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	list, err := h.service.List(r.Context(), userID, queryLimit(r, 20, 100))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, list)
}

// LockoutHandler handles GET /lockout
func (h *AttemptHandler) LockoutHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Lockout(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// RequestUnlockHandler handles POST /unlock-requests
func (h *AttemptHandler) RequestUnlockHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	body := middleware.GetValidatedRequest[*models.UnlockRequestBody](r)
	req, err := h.service.RequestUnlock(r.Context(), userID, body.Message)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusCreated, req)
}

func queryLimit(r *http.Request, def, max int) int {
	limit := def
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}
