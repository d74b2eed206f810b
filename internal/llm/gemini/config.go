package gemini

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

const (
	defaultModel = "gemini-2.5-flash" // accepts audio/video input

	// Gemini rejects requests over 20MB, so recordings near that size go
	// through the Files API instead of inline.
	defaultInlineMediaBytes = 18 << 20
)

// Config holds Gemini settings read from the environment.
type Config struct {
	APIKey string
	Model  string
	// Temperature is kept low so re-running a stage on the same recording
	// produces comparable transcripts and feedback.
	Temperature float32
	// InlineMediaBytes is the largest recording sent inline. Zero means
	// the default.
	InlineMediaBytes int
}

func (c *Config) inlineMediaBytes() int {
	if c.InlineMediaBytes > 0 {
		return c.InlineMediaBytes
	}
	return defaultInlineMediaBytes
}

func NewConfig() (*Config, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable is required")
	}

	cfg := &Config{APIKey: apiKey, Model: defaultModel, Temperature: 0.2}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		cfg.Model = model
	}
	if raw := os.Getenv("GEMINI_TEMPERATURE"); raw != "" {
		t, err := strconv.ParseFloat(raw, 32)
		if err != nil || t < 0 || t > 2 {
			return nil, fmt.Errorf("GEMINI_TEMPERATURE must be a number between 0 and 2, got %q", raw)
		}
		cfg.Temperature = float32(t)
	}
	return cfg, nil
}
