package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	mu     sync.Mutex
	closed int
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

type fakeDevice struct {
	stream *fakeStream
	err    error
}

func (d *fakeDevice) Open(context.Context) (Stream, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.stream, nil
}

// fakeEncoder emits one numbered chunk per drain.
type fakeEncoder struct {
	mu      sync.Mutex
	next    int
	stopped bool
}

func (e *fakeEncoder) Start(Stream, string) error { return nil }

func (e *fakeEncoder) Drain() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return nil, errors.New("drain after stop")
	}
	chunk := []byte(fmt.Sprintf("[%d]", e.next))
	e.next++
	return chunk, nil
}

func (e *fakeEncoder) Stop() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	return []byte("[tail]"), nil
}

func newSession(dev *fakeDevice, enc *fakeEncoder) *Session {
	return NewSession(dev, enc, "video/webm", 5*time.Millisecond, nil)
}

func TestAcquireClassifiesFailures(t *testing.T) {
	cases := []struct {
		err  error
		want AcquireReason
	}{
		{fmt.Errorf("NotAllowedError: %w", ErrPermissionDenied), ReasonPermissionDenied},
		{fmt.Errorf("NotFoundError: %w", ErrNoDevice), ReasonNoDevice},
		{errors.New("device busy"), ReasonOther},
	}
	for _, tc := range cases {
		s := newSession(&fakeDevice{err: tc.err}, &fakeEncoder{})
		err := s.Acquire(context.Background())

		var acqErr *AcquireError
		require.ErrorAs(t, err, &acqErr)
		assert.Equal(t, tc.want, acqErr.Reason)
		assert.ErrorIs(t, err, tc.err)
	}
}

func TestStartRequiresAcquire(t *testing.T) {
	s := newSession(&fakeDevice{stream: &fakeStream{}}, &fakeEncoder{})
	assert.ErrorIs(t, s.Start(context.Background()), ErrNotAcquired)
}

func TestRecordingConcatenatesSlicesInOrder(t *testing.T) {
	stream := &fakeStream{}
	enc := &fakeEncoder{}
	s := newSession(&fakeDevice{stream: stream}, enc)

	require.NoError(t, s.Acquire(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrStarted)

	require.Eventually(t, func() bool {
		enc.mu.Lock()
		defer enc.mu.Unlock()
		return enc.next >= 3
	}, time.Second, time.Millisecond)

	artifact, err := s.Stop()
	require.NoError(t, err)

	enc.mu.Lock()
	drained := enc.next
	enc.mu.Unlock()

	want := ""
	for i := 0; i < drained; i++ {
		want += fmt.Sprintf("[%d]", i)
	}
	want += "[tail]"
	assert.Equal(t, want, string(artifact.Bytes()))
	assert.Equal(t, drained+1, artifact.Slices())
	assert.Equal(t, "video/webm", artifact.MimeType())
	assert.Equal(t, int64(len(want)), artifact.Size())

	// the artifact cannot be changed through the returned copy
	b := artifact.Bytes()
	b[0] = 'X'
	assert.Equal(t, want, string(artifact.Bytes()))

	_, err = s.Stop()
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, s.Start(context.Background()), ErrStopped)
}

func TestReleaseIsIdempotent(t *testing.T) {
	// never acquired
	s := newSession(&fakeDevice{err: ErrNoDevice}, &fakeEncoder{})
	s.Release()
	s.Release()

	stream := &fakeStream{}
	enc := &fakeEncoder{}
	s = newSession(&fakeDevice{stream: stream}, enc)
	require.NoError(t, s.Acquire(context.Background()))
	require.NoError(t, s.Start(context.Background()))

	s.Release()
	s.Release()

	assert.Equal(t, 1, stream.closed)
	assert.True(t, enc.stopped)
	_, err := s.Stop()
	assert.ErrorIs(t, err, ErrStopped)
}
