package routers

import (
	"net/http"

	"athena/interview/internal/handlers"
	"athena/interview/internal/middleware"
	"athena/interview/internal/models"

	"github.com/go-chi/chi/v5"
)

// InterviewRoutes mounts the attempt API. auth must reject unauthenticated
// requests; the upload route is authorized by its signed token instead.
func InterviewRoutes(router chi.Router, attemptHandler *handlers.AttemptHandler, adminHandler *handlers.AdminHandler, auth func(http.Handler) http.Handler) {
	router.Route("/api/v1/interview", func(r chi.Router) {
		r.Put("/uploads/{token}", attemptHandler.UploadHandler)

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Post("/attempts", attemptHandler.InitializeHandler)
			r.Get("/attempts", attemptHandler.ListHandler)
			r.Get("/attempts/{attemptId}/status", attemptHandler.StatusHandler)
			r.With(middleware.ValidateRequest[*models.SubmitRequest]()).Post("/attempts/{attemptId}/submit", attemptHandler.SubmitHandler)
			r.Post("/attempts/{attemptId}/upload-url", attemptHandler.ReissueUploadURLHandler)
			r.Post("/attempts/{attemptId}/abandon", attemptHandler.AbandonHandler)
			r.Get("/lockout", attemptHandler.LockoutHandler)
			r.With(middleware.ValidateRequest[*models.UnlockRequestBody]()).Post("/unlock-requests", attemptHandler.RequestUnlockHandler)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.With(middleware.ValidateRequest[*models.AdminHoldBody]()).Put("/holds/{userId}", adminHandler.SetHoldHandler)
				r.Delete("/holds/{userId}", adminHandler.ClearHoldHandler)
				r.Get("/unlock-requests", adminHandler.ListUnlockRequestsHandler)
				r.With(middleware.ValidateRequest[*models.ResolveUnlockBody]()).Post("/unlock-requests/{id}/resolve", adminHandler.ResolveUnlockHandler)
				r.Post("/attempts/{attemptId}/retry", adminHandler.RetryAttemptHandler)
			})
		})
	})
}
