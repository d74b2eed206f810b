package interviewclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"athena/interview/internal/models"
)

// ErrUploadURLExpired means the upload URL must be re-issued; retrying the
// same URL cannot succeed.
var ErrUploadURLExpired = errors.New("upload url expired")

// LockedError is returned by Initialize when the user may not start an
// attempt.
type LockedError struct {
	State models.LockedResponse
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("attempts locked: %s", e.State.Reason)
}

// InProgressError is returned by Initialize when a live attempt exists.
type InProgressError struct {
	ExistingAttemptID string
}

func (e *InProgressError) Error() string {
	return "attempt already in progress: " + e.ExistingAttemptID
}

// APIError is a non-success response the caller should not retry blindly.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("interview api %d %s: %s", e.Status, e.Code, e.Message)
}

// TransientError wraps network failures and 5xx responses.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth retrying unchanged.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// Client talks to the interview API on behalf of one authenticated user.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient returns a client for baseURL, e.g.
// "https://api.example.com/api/v1/interview".
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	return req, nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &TransientError{Err: err}
	}
	return resp, nil
}

// decodeError turns a failed response into an error. 5xx is transient.
func decodeError(resp *http.Response) error {
	var body models.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err != nil || body.Code == "" {
		body.Message = strings.TrimSpace(string(raw))
	}
	apiErr := &APIError{Status: resp.StatusCode, Code: body.Code, Message: body.Message}
	if resp.StatusCode >= 500 {
		return &TransientError{Err: apiErr}
	}
	return apiErr
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// Initialize starts a new attempt. It returns *LockedError or
// *InProgressError for the policy outcomes.
func (c *Client) Initialize(ctx context.Context) (*models.InitializeResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/attempts", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var out models.InitializeResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("decode initialize: %w", err)
		}
		return &out, nil
	case http.StatusForbidden:
		var locked models.LockedResponse
		if err := json.NewDecoder(resp.Body).Decode(&locked); err != nil || locked.Error != models.ErrCodeLocked {
			return nil, &APIError{Status: resp.StatusCode, Code: "forbidden"}
		}
		return nil, &LockedError{State: locked}
	case http.StatusConflict:
		var inProgress models.InProgressResponse
		if err := json.NewDecoder(resp.Body).Decode(&inProgress); err != nil || inProgress.Error != models.ErrCodeInProgress {
			return nil, &APIError{Status: resp.StatusCode, Code: "conflict"}
		}
		return nil, &InProgressError{ExistingAttemptID: inProgress.ExistingAttemptID}
	default:
		return nil, decodeError(resp)
	}
}

// Upload PUTs the recording to a signed upload URL. No bearer token is sent;
// the URL is the credential.
func (c *Client) Upload(ctx context.Context, uploadURL string, data []byte, mimeType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mimeType)
	req.ContentLength = int64(len(data))

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusGone:
		return ErrUploadURLExpired
	default:
		return decodeError(resp)
	}
}

func (c *Client) ReissueUploadURL(ctx context.Context, attemptID string) (*models.UploadURLResponse, error) {
	var out models.UploadURLResponse
	if err := c.do(ctx, http.MethodPost, "/attempts/"+attemptID+"/upload-url", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submit flips the attempt to processing. Call it only after Upload succeeded.
func (c *Client) Submit(ctx context.Context, req *models.SubmitRequest) error {
	return c.do(ctx, http.MethodPost, "/attempts/"+req.AttemptID+"/submit", req, http.StatusAccepted, nil)
}

func (c *Client) Status(ctx context.Context, attemptID string) (*models.StatusResponse, error) {
	var out models.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/attempts/"+attemptID+"/status", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Abandon(ctx context.Context, attemptID string) error {
	return c.do(ctx, http.MethodPost, "/attempts/"+attemptID+"/abandon", nil, http.StatusNoContent, nil)
}

func (c *Client) Lockout(ctx context.Context) (*models.LockoutStateResponse, error) {
	var out models.LockoutStateResponse
	if err := c.do(ctx, http.MethodGet, "/lockout", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RequestUnlock(ctx context.Context, message string) (*models.UnlockRequest, error) {
	var out models.UnlockRequest
	body := models.UnlockRequestBody{Message: message}
	if err := c.do(ctx, http.MethodPost, "/unlock-requests", body, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
