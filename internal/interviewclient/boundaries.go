package interviewclient

import (
	"errors"

	"athena/interview/internal/models"
)

var (
	ErrNotRecording   = errors.New("recording has not started")
	ErrNoMorePrompts  = errors.New("already on the last prompt")
	ErrRecordingEnded = errors.New("recording already finished")
)

// BoundaryTracker walks the prompts in their fixed order and records the
// segment each prompt occupies. Times are milliseconds since recording start.
type BoundaryTracker struct {
	prompts    []models.Prompt
	current    int
	startedAt  int64
	started    bool
	finished   bool
	boundaries []models.SegmentBoundary
}

func NewBoundaryTracker(prompts []models.Prompt) *BoundaryTracker {
	return &BoundaryTracker{prompts: prompts}
}

// Begin activates the first prompt at time at.
func (t *BoundaryTracker) Begin(at int64) (models.Prompt, error) {
	if len(t.prompts) == 0 {
		return models.Prompt{}, ErrNoMorePrompts
	}
	if t.started {
		return t.prompts[t.current], nil
	}
	t.started = true
	t.current = 0
	t.startedAt = at
	return t.prompts[0], nil
}

// Current returns the active prompt.
func (t *BoundaryTracker) Current() (models.Prompt, bool) {
	if !t.started || t.finished {
		return models.Prompt{}, false
	}
	return t.prompts[t.current], true
}

// HasNext reports whether Advance would move to another prompt.
func (t *BoundaryTracker) HasNext() bool {
	return t.started && !t.finished && t.current+1 < len(t.prompts)
}

// Advance closes the active prompt's segment at time at and activates the
// next prompt.
func (t *BoundaryTracker) Advance(at int64) (models.Prompt, error) {
	if err := t.check(); err != nil {
		return models.Prompt{}, err
	}
	if t.current+1 >= len(t.prompts) {
		return models.Prompt{}, ErrNoMorePrompts
	}
	t.close(at)
	t.current++
	return t.prompts[t.current], nil
}

// Finish closes the active prompt's segment and returns every boundary. The
// active prompt counts as a segment, so Finish only fails before Begin.
func (t *BoundaryTracker) Finish(at int64) ([]models.SegmentBoundary, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	t.close(at)
	t.finished = true
	return t.Boundaries(), nil
}

func (t *BoundaryTracker) Boundaries() []models.SegmentBoundary {
	out := make([]models.SegmentBoundary, len(t.boundaries))
	copy(out, t.boundaries)
	return out
}

func (t *BoundaryTracker) check() error {
	switch {
	case !t.started:
		return ErrNotRecording
	case t.finished:
		return ErrRecordingEnded
	}
	return nil
}

func (t *BoundaryTracker) close(at int64) {
	start := t.startedAt
	if n := len(t.boundaries); n > 0 {
		start = t.boundaries[n-1].EndTime
	}
	// a clock that steps backwards must not produce an inverted range
	if at < start {
		at = start
	}
	t.boundaries = append(t.boundaries, models.SegmentBoundary{
		PromptID:  t.prompts[t.current].ID,
		StartTime: start,
		EndTime:   at,
	})
}
