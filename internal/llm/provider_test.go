package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type testProvider struct{}

func (testProvider) GenerateJSON(context.Context, string) (string, error) { return "{}", nil }
func (testProvider) TranscribeMedia(context.Context, []byte, string, string) (string, error) {
	return "{}", nil
}
func (testProvider) GetProviderName() string { return "test" }

func TestProviderErrorError(t *testing.T) {
	err := &ProviderError{Provider: "gemini", Message: "failed"}
	if err.Error() != "gemini error: failed" {
		t.Fatalf("unexpected error message: %s", err.Error())
	}

	detail := errors.New("detail")
	wrapped := &ProviderError{Provider: "gemini", Message: "failed", Err: detail}
	if got := wrapped.Error(); got != "gemini error: failed (detail)" {
		t.Fatalf("unexpected wrapped error message: %s", got)
	}
	if !errors.Is(wrapped, detail) {
		t.Fatal("expected ProviderError to unwrap to its cause")
	}
}

func TestErrorCode(t *testing.T) {
	err := fmt.Errorf("stage failed: %w", &ProviderError{Provider: "gemini", Code: ErrCodeTimeout})
	if got := ErrorCode(err); got != ErrCodeTimeout {
		t.Fatalf("expected timeout code, got %q", got)
	}
	if got := ErrorCode(errors.New("plain")); got != "" {
		t.Fatalf("expected empty code, got %q", got)
	}
}

func TestRegisterAndNewProvider(t *testing.T) {
	RegisterProvider("test_provider", func() (Provider, error) {
		return testProvider{}, nil
	})
	defer func() {
		registryMu.Lock()
		delete(providers, "test_provider")
		registryMu.Unlock()
	}()

	provider, err := NewProvider("test_provider")
	if err != nil {
		t.Fatalf("NewProvider returned error: %v", err)
	}
	if name := provider.GetProviderName(); name != "test" {
		t.Fatalf("expected provider name test, got %s", name)
	}

	if _, err := NewProvider("missing"); err == nil {
		t.Fatal("expected error for unsupported provider")
	}

	found := false
	for _, name := range Providers() {
		if name == "test_provider" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected test_provider in %v", Providers())
	}
}

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		`{"a":1}`:                 `{"a":1}`,
		"  {\"a\":1}\n":           `{"a":1}`,
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}\n```\n":   `{"a":1}`,
	}
	for input, want := range cases {
		if got := ExtractJSON(input); got != want {
			t.Fatalf("ExtractJSON(%q) = %q, want %q", input, got, want)
		}
	}
}
