package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"athena/interview/internal/models"

	"go.uber.org/zap"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	payload := map[string]string{"hello": "world"}

	JSON(rec, http.StatusCreated, payload)

	if rec.Code != http.StatusCreated {
		t.Fatalf("JSON: expected status %d, got %d", http.StatusCreated, rec.Code)
	}
	if contentType := rec.Header().Get("Content-Type"); contentType != "application/json" {
		t.Fatalf("JSON: expected content-type application/json, got %s", contentType)
	}

	var got map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("JSON decode failed: %v", err)
	}
	if got["hello"] != "world" {
		t.Fatalf("JSON body mismatch: %+v", got)
	}
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusConflict, "invalid_state", "nope")

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var got models.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Code != "invalid_state" || got.Message != "nope" {
		t.Fatalf("unexpected body %+v", got)
	}
}

func TestGetLoggerInitialisesOnce(t *testing.T) {
	SetLogger(nil)
	first := GetLogger()
	if first == nil || GetLogger() != first {
		t.Fatal("expected GetLogger to return a single shared logger")
	}
}

func TestSetLogger(t *testing.T) {
	nop := zap.NewNop()
	SetLogger(nop)
	t.Cleanup(func() { SetLogger(nil) })

	if GetLogger() != nop {
		t.Fatal("expected GetLogger to return the installed logger")
	}
	SetLogger(nil)
	if GetLogger() == nil {
		t.Fatal("expected a default logger when none is installed")
	}
}
