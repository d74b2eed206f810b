package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"

	"athena/interview/internal/models"
	"athena/interview/internal/utils"
)

type contextKey string

const validatedRequestKey contextKey = "validated_request"

// maxJSONBody bounds request bodies decoded by ValidateRequest. Recordings go
// through the upload route, never through here.
const maxJSONBody = 1 << 20

// Validator is implemented by request bodies. Validate may normalise fields
// in place and returns a *models.ErrorResponse for a client-facing failure.
type Validator interface {
	Validate() error
}

// newBody allocates the value a pointer type T points to.
func newBody[T Validator]() T {
	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Ptr {
		return reflect.New(t.Elem()).Interface().(T)
	}
	return reflect.New(t).Interface().(T)
}

// ValidateRequest decodes the JSON body into a fresh T, runs its Validate
// method and stores it in the request context for the handler.
func ValidateRequest[T Validator]() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body := newBody[T]()

			err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(body)
			var tooLarge *http.MaxBytesError
			switch {
			case errors.As(err, &tooLarge):
				utils.Error(w, http.StatusRequestEntityTooLarge, "body_too_large", "Request body is too large")
				return
			case err != nil:
				utils.Error(w, http.StatusBadRequest, "invalid_json", "Invalid JSON in request body")
				return
			}

			if err := body.Validate(); err != nil {
				writeValidationError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), validatedRequestKey, body)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeValidationError(w http.ResponseWriter, err error) {
	var errResp *models.ErrorResponse
	if errors.As(err, &errResp) {
		utils.JSON(w, http.StatusBadRequest, *errResp)
		return
	}
	utils.Error(w, http.StatusBadRequest, "validation_error", err.Error())
}

// GetValidatedRequest returns the body stored by ValidateRequest. It panics
// if the route was not wrapped with ValidateRequest[T].
func GetValidatedRequest[T any](r *http.Request) T {
	return r.Context().Value(validatedRequestKey).(T)
}
