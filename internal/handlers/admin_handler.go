package handlers

import (
	"net/http"

	"athena/interview/internal/attempts"
	"athena/interview/internal/middleware"
	"athena/interview/internal/models"
	"athena/interview/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminHandler serves the lockout administration surface.
type AdminHandler struct {
	service *attempts.Service
	logger  *zap.Logger
}

func NewAdminHandler(service *attempts.Service, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &AdminHandler{service: service, logger: logger}
}

func adminID(r *http.Request) string {
	id, _ := middleware.UserIDFromContext(r.Context())
	return id
}

// SetHoldHandler handles PUT /admin/holds/{userId}
func (h *AdminHandler) SetHoldHandler(w http.ResponseWriter, r *http.Request) {
	body := middleware.GetValidatedRequest[*models.AdminHoldBody](r)
	hold, err := h.service.SetHold(r.Context(), chi.URLParam(r, "userId"), body.Reason, adminID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, hold)
}

// ClearHoldHandler handles DELETE /admin/holds/{userId}
func (h *AdminHandler) ClearHoldHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearHold(r.Context(), chi.URLParam(r, "userId"), adminID(r)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListUnlockRequestsHandler handles GET /admin/unlock-requests?status=pending
func (h *AdminHandler) ListUnlockRequestsHandler(w http.ResponseWriter, r *http.Request) {
	status := models.UnlockRequestStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.UnlockPending, models.UnlockApproved, models.UnlockDenied:
	default:
		utils.Error(w, http.StatusBadRequest, "invalid_status", "status must be pending, approved or denied")
		return
	}
	list, err := h.service.ListUnlockRequests(r.Context(), status, queryLimit(r, 50, 500))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, models.Resp{OK: true, Info: list})
}

// ResolveUnlockHandler handles POST /admin/unlock-requests/{id}/resolve
func (h *AdminHandler) ResolveUnlockHandler(w http.ResponseWriter, r *http.Request) {
	body := middleware.GetValidatedRequest[*models.ResolveUnlockBody](r)
	req, err := h.service.ResolveUnlock(r.Context(), chi.URLParam(r, "id"), *body.Approve, adminID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, req)
}

// RetryAttemptHandler handles POST /admin/attempts/{attemptId}/retry
func (h *AdminHandler) RetryAttemptHandler(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "attemptId")
	if err := h.service.RetryFailed(r.Context(), attemptID, adminID(r)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusAccepted, models.Resp{OK: true, Info: "attempt re-queued"})
}
