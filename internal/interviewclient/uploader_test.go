package interviewclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"athena/interview/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUploadAPI fails the first n uploads with err.
type fakeUploadAPI struct {
	failures   int
	err        error
	uploads    []string
	reissues   int
	reissueErr error
}

func (f *fakeUploadAPI) Upload(_ context.Context, uploadURL string, _ []byte, _ string) error {
	f.uploads = append(f.uploads, uploadURL)
	if f.failures > 0 {
		f.failures--
		return f.err
	}
	return nil
}

func (f *fakeUploadAPI) ReissueUploadURL(_ context.Context, attemptID string) (*models.UploadURLResponse, error) {
	if f.reissueErr != nil {
		return nil, f.reissueErr
	}
	f.reissues++
	return &models.UploadURLResponse{
		AttemptID:          attemptID,
		UploadURL:          "http://api.test/uploads/fresh",
		UploadURLExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func newTestUploader(api UploadAPI, cache *SessionCache) *Uploader {
	u := NewUploader(api, cache, nil)
	u.Backoff = time.Millisecond
	return u
}

func TestUploaderReissuesExpiredURL(t *testing.T) {
	api := &fakeUploadAPI{failures: 1, err: ErrUploadURLExpired}
	cache := NewSessionCache(time.Hour)
	s := newTestSession()
	cache.Put(s)

	require.NoError(t, newTestUploader(api, cache).Upload(context.Background(), s, []byte("x"), "video/webm"))
	assert.Equal(t, []string{"http://api.test/uploads/t1", "http://api.test/uploads/fresh"}, api.uploads)
	assert.Equal(t, 1, api.reissues)
	assert.Equal(t, "http://api.test/uploads/fresh", s.UploadURL)

	cached, _ := cache.Get("a1")
	assert.Equal(t, "http://api.test/uploads/fresh", cached.UploadURL)
}

func TestUploaderReissuesBeforeKnownExpiry(t *testing.T) {
	api := &fakeUploadAPI{}
	s := newTestSession()
	s.UploadURLExpiresAt = time.Now().Add(-time.Second)

	require.NoError(t, newTestUploader(api, nil).Upload(context.Background(), s, []byte("x"), "video/webm"))
	assert.Equal(t, []string{"http://api.test/uploads/fresh"}, api.uploads)
}

func TestUploaderRetriesTransientOnSameURL(t *testing.T) {
	api := &fakeUploadAPI{failures: 2, err: &TransientError{Err: errors.New("reset")}}
	s := newTestSession()

	require.NoError(t, newTestUploader(api, nil).Upload(context.Background(), s, []byte("x"), "video/webm"))
	assert.Equal(t, 0, api.reissues)
	assert.Len(t, api.uploads, 3)
	for _, u := range api.uploads {
		assert.Equal(t, "http://api.test/uploads/t1", u)
	}
}

func TestUploaderGivesUp(t *testing.T) {
	transient := &fakeUploadAPI{failures: 10, err: &TransientError{Err: errors.New("reset")}}
	err := newTestUploader(transient, nil).Upload(context.Background(), newTestSession(), []byte("x"), "video/webm")
	assert.True(t, IsTransient(err))
	assert.Len(t, transient.uploads, 4)

	expired := &fakeUploadAPI{failures: 10, err: ErrUploadURLExpired}
	err = newTestUploader(expired, nil).Upload(context.Background(), newTestSession(), []byte("x"), "video/webm")
	assert.ErrorIs(t, err, ErrUploadURLExpired)
	assert.Equal(t, 2, expired.reissues)

	rejected := &fakeUploadAPI{failures: 1, err: &APIError{Status: 413, Code: "artifact_too_large"}}
	err = newTestUploader(rejected, nil).Upload(context.Background(), newTestSession(), []byte("x"), "video/webm")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Len(t, rejected.uploads, 1)
}

func TestUploaderReissueFailure(t *testing.T) {
	api := &fakeUploadAPI{failures: 1, err: ErrUploadURLExpired, reissueErr: &APIError{Status: 409, Code: "invalid_state"}}
	err := newTestUploader(api, nil).Upload(context.Background(), newTestSession(), []byte("x"), "video/webm")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid_state", apiErr.Code)
}
