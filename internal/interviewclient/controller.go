package interviewclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"athena/interview/internal/capability"
	"athena/interview/internal/capture"
	"athena/interview/internal/models"

	"go.uber.org/zap"
)

// API is the server surface the controller drives.
type API interface {
	UploadAPI
	StatusSource
	Initialize(ctx context.Context) (*models.InitializeResponse, error)
	Submit(ctx context.Context, req *models.SubmitRequest) error
	Abandon(ctx context.Context, attemptID string) error
}

// Recorder is satisfied by *capture.Session.
type Recorder interface {
	Acquire(ctx context.Context) error
	Start(ctx context.Context) error
	Stop() (*capture.Artifact, error)
	Release()
}

// Proctor is satisfied by *integrity.Monitor.
type Proctor interface {
	StartMonitoring()
	StopMonitoring()
	SetCurrentPromptID(id string)
	Log() models.IntegrityLog
}

type Deps struct {
	API      API
	Recorder Recorder
	Proctor  Proctor
	Cache    *SessionCache
	Uploader *Uploader
	Poller   *Poller
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Controller drives one attempt from the capability check to results.
type Controller struct {
	deps Deps

	mu                sync.Mutex
	phase             Phase
	capabilities      capability.Result
	lock              *models.LockedResponse
	existingAttemptID string
	session           *Session
	tracker           *BoundaryTracker
	recordingStart    time.Time
	pending           *pendingSubmission
	lastErr           error
}

// pendingSubmission is a stopped recording that has not been submitted yet.
// It survives upload and submit failures so the attempt can be resumed.
type pendingSubmission struct {
	artifact   *capture.Artifact
	boundaries []models.SegmentBoundary
	log        models.IntegrityLog
	uploaded   bool
}

func NewController(deps Deps) *Controller {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Cache == nil {
		deps.Cache = NewSessionCache(4 * time.Hour)
	}
	if deps.Uploader == nil {
		deps.Uploader = NewUploader(deps.API, deps.Cache, deps.Logger)
	}
	if deps.Poller == nil {
		deps.Poller = NewPoller(deps.API, deps.Logger)
	}
	return &Controller{deps: deps, phase: PhaseChecking}
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// caller holds mu
func (c *Controller) moveTo(to Phase) error {
	if !CanTransition(c.phase, to) {
		return &TransitionError{From: c.phase, To: to}
	}
	c.deps.Logger.Debug("Phase transition", zap.String("from", string(c.phase)), zap.String("to", string(to)))
	c.phase = to
	return nil
}

// caller holds mu
func (c *Controller) fail(err error) error {
	c.lastErr = err
	c.phase = PhaseError
	c.deps.Logger.Error("Attempt flow failed", zap.Error(err))
	return err
}

// Check runs the capability checks and picks the next phase.
func (c *Controller) Check(env capability.Environment) (capability.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseChecking {
		return c.capabilities, &TransitionError{From: c.phase, To: PhaseChecking}
	}
	c.capabilities = capability.Probe(env)
	switch {
	case !c.capabilities.Supported:
		return c.capabilities, c.moveTo(PhaseUnsupported)
	case capability.IsMobileDevice(env):
		return c.capabilities, c.moveTo(PhaseMobileWarning)
	default:
		return c.capabilities, c.moveTo(PhasePermissions)
	}
}

func (c *Controller) DismissMobileWarning() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseMobileWarning {
		return &TransitionError{From: c.phase, To: PhasePermissions}
	}
	return c.moveTo(PhasePermissions)
}

// RequestPermissions acquires camera and microphone. A denial keeps the
// controller in its phase and returns the *capture.AcquireError. From error
// it re-acquires hardware released by a failed start.
func (c *Controller) RequestPermissions(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.phase == PhasePermissions:
	case c.phase == PhaseError && c.pending == nil:
		if err := c.moveTo(PhasePermissions); err != nil {
			return err
		}
		c.lastErr = nil
	default:
		return &TransitionError{From: c.phase, To: PhaseReady}
	}
	if err := c.deps.Recorder.Acquire(ctx); err != nil {
		return err
	}
	return c.moveTo(PhaseReady)
}

// StartAttempt initializes an attempt and, if one is created, starts
// recording. LOCKED moves to locked; IN_PROGRESS returns to ready with the
// existing attempt id kept for resume.
func (c *Controller) StartAttempt(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.moveTo(PhaseInitializing); err != nil {
		return err
	}

	resp, err := c.deps.API.Initialize(ctx)
	var locked *LockedError
	var inProgress *InProgressError
	switch {
	case errors.As(err, &locked):
		state := locked.State
		c.lock = &state
		return c.moveTo(PhaseLocked)
	case errors.As(err, &inProgress):
		c.existingAttemptID = inProgress.ExistingAttemptID
		return c.moveTo(PhaseReady)
	case err != nil:
		return c.fail(fmt.Errorf("initialize: %w", err))
	}

	c.session = SessionFromInitialize(resp)
	c.deps.Cache.Put(c.session)
	c.tracker = NewBoundaryTracker(c.session.Prompts)

	if err := c.deps.Recorder.Start(ctx); err != nil {
		c.discardCreated(ctx)
		return c.fail(fmt.Errorf("start recording: %w", err))
	}
	c.recordingStart = c.deps.Clock()
	first, err := c.tracker.Begin(0)
	if err != nil {
		c.discardCreated(ctx)
		return c.fail(fmt.Errorf("attempt has no prompts: %w", err))
	}
	c.deps.Proctor.SetCurrentPromptID(first.ID)
	c.deps.Proctor.StartMonitoring()
	return c.moveTo(PhaseRecording)
}

// discardCreated gives up an attempt the server created but recording never
// started for. Without the abandon the server keeps answering IN_PROGRESS
// until the attempt expires. Caller holds mu.
func (c *Controller) discardCreated(ctx context.Context) {
	c.deps.Recorder.Release()
	attemptID := c.session.AttemptID
	c.deps.Cache.Delete(attemptID)
	if err := c.deps.API.Abandon(ctx, attemptID); err != nil {
		c.deps.Logger.Warn("Failed to abandon attempt after failed start",
			zap.String("attempt_id", attemptID),
			zap.Error(err))
	}
	c.session = nil
	c.tracker = nil
}

// caller holds mu
func (c *Controller) elapsed() int64 {
	return c.deps.Clock().Sub(c.recordingStart).Milliseconds()
}

// CurrentPrompt returns the prompt being answered.
func (c *Controller) CurrentPrompt() (models.Prompt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseRecording || c.tracker == nil {
		return models.Prompt{}, false
	}
	return c.tracker.Current()
}

// Next closes the current prompt's segment and moves to the next prompt.
func (c *Controller) Next() (models.Prompt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseRecording {
		return models.Prompt{}, ErrNotRecording
	}
	next, err := c.tracker.Advance(c.elapsed())
	if err != nil {
		return models.Prompt{}, err
	}
	c.deps.Proctor.SetCurrentPromptID(next.ID)
	return next, nil
}

// Finish ends recording, uploads the artifact and submits the attempt.
// Hardware is released before the upload starts. The lock is not held
// during network I/O so Phase keeps answering. On an upload or submit
// failure the recording is kept; see RetryUpload and RetrySubmit.
func (c *Controller) Finish(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseRecording {
		c.mu.Unlock()
		return ErrNotRecording
	}
	boundaries, err := c.tracker.Finish(c.elapsed())
	if err != nil {
		c.mu.Unlock()
		return err
	}

	artifact, stopErr := c.deps.Recorder.Stop()
	c.deps.Proctor.StopMonitoring()
	c.deps.Recorder.Release()
	if stopErr != nil {
		defer c.mu.Unlock()
		return c.fail(fmt.Errorf("stop recording: %w", stopErr))
	}
	c.pending = &pendingSubmission{
		artifact:   artifact,
		boundaries: boundaries,
		log:        c.deps.Proctor.Log(),
	}
	if err := c.moveTo(PhaseUploading); err != nil {
		c.mu.Unlock()
		return err
	}
	session, pending := c.session, c.pending
	c.mu.Unlock()
	return c.upload(ctx, session, pending)
}

// RetryUpload resumes a finished attempt whose upload failed.
func (c *Controller) RetryUpload(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseError || c.pending == nil || c.pending.uploaded {
		phase := c.phase
		c.mu.Unlock()
		return &TransitionError{From: phase, To: PhaseUploading}
	}
	if err := c.moveTo(PhaseUploading); err != nil {
		c.mu.Unlock()
		return err
	}
	c.lastErr = nil
	session, pending := c.session, c.pending
	c.mu.Unlock()
	return c.upload(ctx, session, pending)
}

// RetrySubmit resumes a finished attempt whose upload succeeded but whose
// submit failed. The same boundaries and integrity log are sent again.
func (c *Controller) RetrySubmit(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseError || c.pending == nil || !c.pending.uploaded {
		phase := c.phase
		c.mu.Unlock()
		return &TransitionError{From: phase, To: PhaseSubmitting}
	}
	if err := c.moveTo(PhaseSubmitting); err != nil {
		c.mu.Unlock()
		return err
	}
	c.lastErr = nil
	session, pending := c.session, c.pending
	c.mu.Unlock()
	return c.submit(ctx, session, pending)
}

// upload runs in PhaseUploading without holding mu.
func (c *Controller) upload(ctx context.Context, s *Session, p *pendingSubmission) error {
	err := c.deps.Uploader.Upload(ctx, s, p.artifact.Bytes(), p.artifact.MimeType())

	c.mu.Lock()
	if err != nil {
		defer c.mu.Unlock()
		return c.fail(fmt.Errorf("upload: %w", err))
	}
	p.uploaded = true
	if err := c.moveTo(PhaseSubmitting); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()
	return c.submit(ctx, s, p)
}

// submit runs in PhaseSubmitting without holding mu.
func (c *Controller) submit(ctx context.Context, s *Session, p *pendingSubmission) error {
	log := p.log
	err := c.deps.API.Submit(ctx, &models.SubmitRequest{
		AttemptID:         s.AttemptID,
		SegmentBoundaries: p.boundaries,
		IntegrityLog:      &log,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		return c.fail(fmt.Errorf("submit: %w", err))
	}
	c.pending = nil
	c.deps.Cache.Delete(s.AttemptID)
	return c.moveTo(PhaseResults)
}

// Results polls until the attempt reaches a terminal status.
func (c *Controller) Results(ctx context.Context, onUpdate func(*models.StatusResponse)) (*models.StatusResponse, error) {
	c.mu.Lock()
	if c.phase != PhaseResults {
		phase := c.phase
		c.mu.Unlock()
		return nil, &TransitionError{From: phase, To: PhaseResults}
	}
	attemptID := c.session.AttemptID
	c.mu.Unlock()
	return c.deps.Poller.Poll(ctx, attemptID, onUpdate)
}

// Abandon ends a recording attempt without submitting and returns to ready.
// The server will report the abandonment lock on the next initialize.
func (c *Controller) Abandon(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseRecording {
		return ErrNotRecording
	}
	c.deps.Proctor.StopMonitoring()
	c.deps.Recorder.Release()
	c.deps.Cache.Delete(c.session.AttemptID)
	if err := c.deps.API.Abandon(ctx, c.session.AttemptID); err != nil {
		return c.fail(fmt.Errorf("abandon: %w", err))
	}
	c.session = nil
	c.tracker = nil
	return c.moveTo(PhaseReady)
}

// Retry returns from error to ready. A recording kept for RetryUpload or
// RetrySubmit is dropped.
func (c *Controller) Retry() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.moveTo(PhaseReady); err != nil {
		return err
	}
	if c.pending != nil {
		c.deps.Logger.Warn("Dropping unsubmitted recording", zap.String("attempt_id", c.session.AttemptID))
		c.pending = nil
	}
	c.lastErr = nil
	return nil
}

// HasPendingRecording reports whether a stopped recording is waiting for
// RetryUpload or RetrySubmit.
func (c *Controller) HasPendingRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

func (c *Controller) LockState() *models.LockedResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lock
}

// ExistingAttemptID is set after initialize reported IN_PROGRESS.
func (c *Controller) ExistingAttemptID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.existingAttemptID
}

func (c *Controller) Session() (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, false
	}
	return c.deps.Cache.Get(c.session.AttemptID)
}

func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}
