package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Device errors. Device implementations wrap these so Acquire can classify
// the failure.
var (
	ErrPermissionDenied = errors.New("media permission denied")
	ErrNoDevice         = errors.New("no camera or microphone found")
)

var (
	ErrNotAcquired = errors.New("capture session has no media stream")
	ErrNotStarted  = errors.New("capture session is not recording")
	ErrStopped     = errors.New("capture session is stopped")
	ErrStarted     = errors.New("capture session is already recording")
)

// AcquireReason classifies why media acquisition failed.
type AcquireReason string

const (
	ReasonPermissionDenied AcquireReason = "permission_denied"
	ReasonNoDevice         AcquireReason = "no_device"
	ReasonOther            AcquireReason = "other"
)

type AcquireError struct {
	Reason AcquireReason
	Err    error
}

func (e *AcquireError) Error() string {
	return fmt.Sprintf("acquire media (%s): %v", e.Reason, e.Err)
}

func (e *AcquireError) Unwrap() error { return e.Err }

func classify(err error) AcquireReason {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return ReasonPermissionDenied
	case errors.Is(err, ErrNoDevice):
		return ReasonNoDevice
	default:
		return ReasonOther
	}
}

// Stream is a live camera and microphone handle.
type Stream interface {
	Close() error
}

// Device opens media streams.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Encoder turns a stream into container bytes. Drain returns whatever was
// produced since the last call; Stop flushes the tail.
type Encoder interface {
	Start(stream Stream, mimeType string) error
	Drain() ([]byte, error)
	Stop() ([]byte, error)
}

// Artifact is the finished recording. It is immutable.
type Artifact struct {
	data     []byte
	mimeType string
	slices   int
}

func (a *Artifact) Size() int64      { return int64(len(a.data)) }
func (a *Artifact) MimeType() string { return a.mimeType }
func (a *Artifact) Slices() int      { return a.slices }

// Bytes returns a copy of the recording.
func (a *Artifact) Bytes() []byte {
	return bytes.Clone(a.data)
}

func (a *Artifact) Reader() io.Reader {
	return bytes.NewReader(a.data)
}

type state int

const (
	stateIdle state = iota
	stateRecording
	stateStopping
	stateStopped
)

// Session owns the media stream and the encoder for one recording. Encoder
// output is drained every time slice so a crash loses at most one slice.
type Session struct {
	device    Device
	encoder   Encoder
	mimeType  string
	timeSlice time.Duration
	logger    *zap.Logger

	mu     sync.Mutex
	stream Stream
	state  state
	slices [][]byte
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewSession(device Device, encoder Encoder, mimeType string, timeSlice time.Duration, logger *zap.Logger) *Session {
	if timeSlice <= 0 {
		timeSlice = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		device:    device,
		encoder:   encoder,
		mimeType:  mimeType,
		timeSlice: timeSlice,
		logger:    logger,
	}
}

// Acquire opens the camera and microphone. Failures are *AcquireError.
func (s *Session) Acquire(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream != nil {
		return nil
	}
	stream, err := s.device.Open(ctx)
	if err != nil {
		return &AcquireError{Reason: classify(err), Err: err}
	}
	s.stream = stream
	return nil
}

// Start begins recording and the periodic drain.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.stream == nil:
		return ErrNotAcquired
	case s.state == stateRecording:
		return ErrStarted
	case s.state != stateIdle:
		return ErrStopped
	}
	if err := s.encoder.Start(s.stream, s.mimeType); err != nil {
		return fmt.Errorf("start encoder: %w", err)
	}
	s.state = stateRecording
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.drainLoop(ctx, s.done)
	return nil
}

func (s *Session) drainLoop(ctx context.Context, done <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.timeSlice)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.drain()
		}
	}
}

func (s *Session) drain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateRecording {
		return
	}
	chunk, err := s.encoder.Drain()
	if err != nil {
		s.logger.Warn("Encoder drain failed", zap.Error(err))
		return
	}
	if len(chunk) > 0 {
		s.slices = append(s.slices, chunk)
	}
}

// Stop ends recording and returns the concatenated artifact. The session
// accepts no further data afterwards.
func (s *Session) Stop() (*Artifact, error) {
	s.mu.Lock()
	if s.state != stateRecording {
		st := s.state
		s.mu.Unlock()
		if st == stateStopped || st == stateStopping {
			return nil, ErrStopped
		}
		return nil, ErrNotStarted
	}
	close(s.done)
	s.state = stateStopping
	s.mu.Unlock()
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	tail, err := s.encoder.Stop()
	s.state = stateStopped
	if err != nil {
		return nil, fmt.Errorf("stop encoder: %w", err)
	}
	if len(tail) > 0 {
		s.slices = append(s.slices, tail)
	}

	artifact := &Artifact{
		data:     bytes.Join(s.slices, nil),
		mimeType: s.mimeType,
		slices:   len(s.slices),
	}
	s.slices = nil
	return artifact, nil
}

// Release tears down the media stream. It is safe to call more than once and
// without a prior successful Acquire.
func (s *Session) Release() {
	s.mu.Lock()
	recording := s.state == stateRecording
	if recording {
		close(s.done)
	}
	s.mu.Unlock()
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if recording {
		if _, err := s.encoder.Stop(); err != nil {
			s.logger.Warn("Encoder stop during release failed", zap.Error(err))
		}
		s.state = stateStopped
		s.slices = nil
	}
	if s.stream != nil {
		if err := s.stream.Close(); err != nil {
			s.logger.Warn("Closing media stream failed", zap.Error(err))
		}
		s.stream = nil
	}
}

// NewArtifact wraps finished recording bytes, e.g. a file recorded earlier.
func NewArtifact(data []byte, mimeType string) *Artifact {
	return &Artifact{data: bytes.Clone(data), mimeType: mimeType, slices: 1}
}
