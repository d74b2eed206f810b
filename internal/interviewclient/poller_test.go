package interviewclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"athena/interview/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	status models.AttemptStatus
	err    error
}

// scriptedStatus replays steps, then keeps returning the last one.
type scriptedStatus struct {
	mu    sync.Mutex
	steps []step
	calls []time.Time
}

func (s *scriptedStatus) Status(_ context.Context, attemptID string) (*models.StatusResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, time.Now())
	st := s.steps[0]
	if len(s.steps) > 1 {
		s.steps = s.steps[1:]
	}
	if st.err != nil {
		return nil, st.err
	}
	return &models.StatusResponse{AttemptID: attemptID, Status: st.status}, nil
}

func fastPoller(src StatusSource) *Poller {
	p := NewPoller(src, nil)
	p.Interval = time.Millisecond
	p.MaxInterval = 4 * time.Millisecond
	return p
}

func TestPollStopsAtTerminalStatus(t *testing.T) {
	src := &scriptedStatus{steps: []step{
		{status: models.StatusProcessing},
		{err: &TransientError{Err: errors.New("connection reset")}},
		{status: models.StatusProcessing},
		{status: models.StatusComplete},
		{status: models.StatusComplete},
	}}

	var seen []models.AttemptStatus
	got, err := fastPoller(src).Poll(context.Background(), "a1", func(s *models.StatusResponse) {
		seen = append(seen, s.Status)
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusComplete, got.Status)
	assert.Equal(t, []models.AttemptStatus{models.StatusProcessing, models.StatusProcessing, models.StatusComplete}, seen)
	assert.Len(t, src.calls, 4)
}

func TestPollReturnsOnFailedAndAbandoned(t *testing.T) {
	for _, status := range []models.AttemptStatus{models.StatusFailed, models.StatusAbandoned} {
		src := &scriptedStatus{steps: []step{{status: status}}}
		got, err := fastPoller(src).Poll(context.Background(), "a1", nil)
		require.NoError(t, err)
		assert.Equal(t, status, got.Status)
	}
}

func TestPollStopsOnPermanentError(t *testing.T) {
	notFound := &APIError{Status: 404, Code: "not_found"}
	src := &scriptedStatus{steps: []step{{err: notFound}}}
	_, err := fastPoller(src).Poll(context.Background(), "a1", nil)
	assert.ErrorIs(t, err, notFound)
}

func TestPollBacksOffAndHonoursCancellation(t *testing.T) {
	src := &scriptedStatus{steps: []step{{err: &TransientError{Err: errors.New("offline")}}}}
	p := fastPoller(src)
	p.Interval = 5 * time.Millisecond
	p.MaxInterval = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err := p.Poll(ctx, "a1", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	src.mu.Lock()
	defer src.mu.Unlock()
	// 10ms, 20ms, then capped at 20ms: far fewer calls than a fixed 5ms loop
	assert.Less(t, len(src.calls), 15)
	assert.GreaterOrEqual(t, len(src.calls), 3)
}
