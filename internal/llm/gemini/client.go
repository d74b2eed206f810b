package gemini

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"athena/interview/internal/llm"
	"athena/interview/internal/utils"
)

// contentGenerator is the subset of *genai.Models the client uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// fileStore is the subset of *genai.Files used for recordings too large to
// send inline.
type fileStore interface {
	Upload(ctx context.Context, r io.Reader, config *genai.UploadFileConfig) (*genai.File, error)
	Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error)
	Delete(ctx context.Context, name string, config *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error)
}

// Client represents a Gemini LLM client
type Client struct {
	models contentGenerator
	files  fileStore
	config *Config

	filePollInterval time.Duration
}

func NewClient(config *Config) (*Client, error) {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &llm.ProviderError{
			Provider: providerName,
			Code:     llm.ErrCodeAPIKey,
			Message:  "Failed to create Gemini client",
			Err:      err,
		}
	}

	return &Client{
		models:           client.Models,
		files:            client.Files,
		config:           config,
		filePollInterval: 2 * time.Second,
	}, nil
}

// GenerateJSON asks the model for a JSON-only reply to prompt.
func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, genai.Text(prompt))
}

// TranscribeMedia sends the recording alongside the instructions. Small
// recordings go inline; larger ones are uploaded to the Files API first and
// deleted once the model has answered.
func (c *Client) TranscribeMedia(ctx context.Context, media []byte, mimeType string, prompt string) (string, error) {
	if len(media) == 0 {
		return "", &llm.ProviderError{
			Provider: providerName,
			Code:     llm.ErrCodeInvalidInput,
			Message:  "No media supplied",
		}
	}
	mimeType = baseMimeType(mimeType)

	mediaPart := &genai.Part{InlineData: &genai.Blob{MIMEType: mimeType, Data: media}}
	if len(media) > c.config.inlineMediaBytes() {
		file, err := c.uploadMedia(ctx, media, mimeType)
		if err != nil {
			return "", err
		}
		defer c.deleteMedia(file.Name)
		mediaPart = genai.NewPartFromURI(file.URI, mimeType)
	}

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{mediaPart, {Text: prompt}},
	}}
	return c.generate(ctx, contents)
}

// uploadMedia stores media with the Files API and waits until the file can
// be referenced from a prompt.
func (c *Client) uploadMedia(ctx context.Context, media []byte, mimeType string) (*genai.File, error) {
	if c.files == nil {
		return nil, &llm.ProviderError{
			Provider: providerName,
			Code:     llm.ErrCodeInvalidInput,
			Message:  "Recording too large to send inline",
		}
	}
	file, err := c.files.Upload(ctx, bytes.NewReader(media), &genai.UploadFileConfig{MIMEType: mimeType})
	if err != nil {
		return nil, classifyError(ctx, err)
	}

	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			c.deleteMedia(file.Name)
			return nil, classifyError(ctx, ctx.Err())
		case <-time.After(c.filePollInterval):
		}
		name := file.Name
		if file, err = c.files.Get(ctx, name, nil); err != nil {
			c.deleteMedia(name)
			return nil, classifyError(ctx, err)
		}
	}
	if file.State == genai.FileStateFailed {
		c.deleteMedia(file.Name)
		return nil, &llm.ProviderError{
			Provider: providerName,
			Code:     llm.ErrCodeServiceDown,
			Message:  "Uploaded recording could not be processed",
		}
	}
	return file, nil
}

func (c *Client) deleteMedia(name string) {
	// uploads expire on their own after 48h
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := c.files.Delete(ctx, name, nil); err != nil {
		utils.GetLogger().Warn("Failed to delete uploaded recording",
			zap.String("file", name),
			zap.Error(err))
	}
}

func (c *Client) generate(ctx context.Context, contents []*genai.Content) (string, error) {
	temperature := c.config.Temperature
	result, err := c.models.GenerateContent(
		ctx,
		c.config.Model,
		contents,
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      &temperature,
		},
	)
	if err != nil {
		return "", classifyError(ctx, err)
	}

	if result == nil {
		return "", &llm.ProviderError{
			Provider: providerName,
			Code:     llm.ErrCodeInvalidInput,
			Message:  "No response generated",
		}
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", &llm.ProviderError{
			Provider: providerName,
			Code:     llm.ErrCodeInvalidInput,
			Message:  "Empty response generated",
		}
	}
	return text, nil
}

func (c *Client) GetProviderName() string {
	return providerName
}

func classifyError(ctx context.Context, err error) error {
	code, message := llm.ErrCodeServiceDown, "Failed to generate content"
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		code, message = llm.ErrCodeTimeout, "Request timed out"
	case isRateLimitError(err):
		code, message = llm.ErrCodeRateLimit, "Rate limit exceeded"
	}
	return &llm.ProviderError{Provider: providerName, Code: code, Message: message, Err: err}
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "quota")
}

// baseMimeType drops codec parameters, e.g. "video/webm;codecs=vp9,opus".
func baseMimeType(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		return "video/webm"
	}
	return mimeType
}
