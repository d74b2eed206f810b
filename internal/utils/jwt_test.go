package utils

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestVerifyToken(t *testing.T) {
	signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).SignedString([]byte("s"))

	req := httptest.NewRequest("GET", "/", nil)
	if _, err := VerifyToken(req, "s"); !errors.Is(err, ErrMissingAuthHeader) {
		t.Fatalf("expected ErrMissingAuthHeader, got %v", err)
	}

	req.Header.Set("Authorization", "Bearer "+signed)
	claims, err := VerifyToken(req, "s")
	if err != nil {
		t.Fatalf("VerifyToken returned error: %v", err)
	}
	if claims["sub"] != "u1" {
		t.Fatalf("unexpected claims %v", claims)
	}

	if _, err := VerifyToken(req, "other"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestGetUserIDFromClaims(t *testing.T) {
	if id, err := GetUserIDFromClaims(jwt.MapClaims{"sub": "abc"}); err != nil || id != "abc" {
		t.Fatalf("string sub: got %q, %v", id, err)
	}
	if id, err := GetUserIDFromClaims(jwt.MapClaims{"sub": float64(42)}); err != nil || id != "42" {
		t.Fatalf("numeric sub: got %q, %v", id, err)
	}
	if _, err := GetUserIDFromClaims(jwt.MapClaims{}); !errors.Is(err, ErrInvalidClaims) {
		t.Fatalf("missing sub: expected ErrInvalidClaims, got %v", err)
	}
	if _, err := GetUserIDFromClaims(jwt.MapClaims{"sub": true}); !errors.Is(err, ErrInvalidClaims) {
		t.Fatalf("bool sub: expected ErrInvalidClaims, got %v", err)
	}
}

func TestIsAdminClaims(t *testing.T) {
	if !IsAdminClaims(jwt.MapClaims{"role": "admin"}) || !IsAdminClaims(jwt.MapClaims{"isAdmin": true}) {
		t.Fatal("expected admin claims to be recognised")
	}
	if IsAdminClaims(jwt.MapClaims{"role": "user"}) {
		t.Fatal("expected non-admin")
	}
}
