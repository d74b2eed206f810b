package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingAuthHeader = errors.New("missing or malformed Authorization header")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidClaims     = errors.New("invalid token claims")
)

// VerifyToken fetches the Authorization header, validates the JWT,
// and returns the claims if everything is valid.
func VerifyToken(r *http.Request, secret string) (jwt.MapClaims, error) {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return nil, ErrMissingAuthHeader
	}
	tokenStr := strings.TrimPrefix(authz, "Bearer ")

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GetUserIDFromClaims extracts the "sub" (user ID) from claims as a string.
func GetUserIDFromClaims(claims jwt.MapClaims) (string, error) {
	switch v := claims["sub"].(type) {
	case string:
		if v == "" {
			return "", ErrInvalidClaims
		}
		return v, nil
	case float64:
		// JWT numbers get decoded as float64
		return fmt.Sprintf("%d", int64(v)), nil
	case nil:
		return "", fmt.Errorf("%w: missing sub", ErrInvalidClaims)
	default:
		return "", fmt.Errorf("%w: sub has type %T", ErrInvalidClaims, v)
	}
}

// IsAdminClaims reports whether the token carries role=admin or isAdmin=true.
func IsAdminClaims(claims jwt.MapClaims) bool {
	if role, ok := claims["role"].(string); ok && role == "admin" {
		return true
	}
	isAdmin, _ := claims["isAdmin"].(bool)
	return isAdmin
}
