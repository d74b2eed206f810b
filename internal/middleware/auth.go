package middleware

import (
	"context"
	"net/http"

	"athena/interview/internal/models"
	"athena/interview/internal/utils"

	"go.uber.org/zap"
)

const (
	userIDKey  contextKey = "user_id"
	isAdminKey contextKey = "is_admin"
)

// Authenticate verifies the bearer token and stores the caller's identity in
// the request context. Requests without a valid token get 401.
func Authenticate(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := utils.VerifyToken(r, secret)
			if err != nil {
				logger.Debug("Rejected request token", zap.Error(err))
				utils.JSON(w, http.StatusUnauthorized, models.ErrorResponse{
					Code:    "unauthorized",
					Message: err.Error(),
				})
				return
			}
			userID, err := utils.GetUserIDFromClaims(claims)
			if err != nil {
				utils.JSON(w, http.StatusUnauthorized, models.ErrorResponse{
					Code:    "unauthorized",
					Message: err.Error(),
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID, utils.IsAdminClaims(claims))))
		})
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAdmin, _ := r.Context().Value(isAdminKey).(bool); !isAdmin {
			utils.JSON(w, http.StatusForbidden, models.ErrorResponse{
				Code:    "forbidden",
				Message: "admin role required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserIDFromContext returns the authenticated caller's id.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// WithUserID returns ctx carrying an authenticated user id.
func WithUserID(ctx context.Context, userID string, admin bool) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, isAdminKey, admin)
}
