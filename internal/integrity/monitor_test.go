package integrity

import (
	"context"
	"testing"
	"time"

	"athena/interview/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newMonitor() (*Monitor, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewMonitor(models.IntegrityEnvironment{FullscreenSupported: true}, clock.now), clock
}

func TestHandlersInertUntilStarted(t *testing.T) {
	m, _ := newMonitor()
	m.Handle(Signal{Kind: SignalVisibility, Good: false})
	assert.Empty(t, m.Log().Violations)

	m.StartMonitoring()
	m.StopMonitoring()
	m.Handle(Signal{Kind: SignalVisibility, Good: false})
	assert.Empty(t, m.Log().Violations)
}

func TestOpenCloseRecordsDuration(t *testing.T) {
	m, clock := newMonitor()
	m.StartMonitoring()
	m.SetCurrentPromptID("A")

	m.Handle(Signal{Kind: SignalFullscreen, Good: false})
	clock.advance(4 * time.Second)
	m.Handle(Signal{Kind: SignalFullscreen, Good: true})

	log := m.Log()
	require.Len(t, log.Violations, 1)
	v := log.Violations[0]
	assert.Equal(t, models.ViolationFullscreenExit, v.Event)
	assert.Equal(t, "A", v.PromptIDActive)
	require.NotNil(t, v.DurationOutsideMs)
	assert.Equal(t, int64(4000), *v.DurationOutsideMs)
	assert.Equal(t, 1, log.Summary.FullscreenExitCount)
	assert.Equal(t, int64(4000), log.Summary.TotalTimeOutsideMs)
}

func TestOnlyOneViolationOpen(t *testing.T) {
	m, clock := newMonitor()
	m.StartMonitoring()

	m.Handle(Signal{Kind: SignalVisibility, Good: false})
	m.Handle(Signal{Kind: SignalFocus, Good: false})
	// focus returning does not close the tab switch
	m.Handle(Signal{Kind: SignalFocus, Good: true})
	clock.advance(time.Second)
	m.Handle(Signal{Kind: SignalVisibility, Good: true})

	log := m.Log()
	require.Len(t, log.Violations, 1)
	assert.Equal(t, models.ViolationTabSwitch, log.Violations[0].Event)
	assert.Equal(t, int64(1000), *log.Violations[0].DurationOutsideMs)
	assert.Equal(t, 1, log.Summary.TotalViolations)
	assert.Equal(t, 0, log.Summary.WindowBlurCount)
}

func TestPendingClassOpensWhenCurrentCloses(t *testing.T) {
	m, clock := newMonitor()
	m.StartMonitoring()

	m.Handle(Signal{Kind: SignalFocus, Good: false})
	clock.advance(time.Second)
	m.Handle(Signal{Kind: SignalFullscreen, Good: false})
	clock.advance(time.Second)
	// blur ends while still out of fullscreen
	m.Handle(Signal{Kind: SignalFocus, Good: true})

	log := m.Log()
	require.Len(t, log.Violations, 2)
	assert.Equal(t, models.ViolationWindowBlur, log.Violations[0].Event)
	assert.Equal(t, int64(2000), *log.Violations[0].DurationOutsideMs)
	assert.Equal(t, models.ViolationFullscreenExit, log.Violations[1].Event)
	assert.True(t, log.HasOpenViolation())

	clock.advance(3 * time.Second)
	m.Handle(Signal{Kind: SignalFullscreen, Good: true})

	log = m.Log()
	require.Len(t, log.Violations, 2)
	assert.Equal(t, int64(3000), *log.Violations[1].DurationOutsideMs)
	assert.Equal(t, int64(5000), log.Summary.TotalTimeOutsideMs)
	assert.Equal(t, 1, log.Summary.FullscreenExitCount)
	assert.False(t, log.HasOpenViolation())
}

func TestStopMonitoringForgetsPendingClasses(t *testing.T) {
	m, _ := newMonitor()
	m.StartMonitoring()
	m.Handle(Signal{Kind: SignalVisibility, Good: false})
	m.Handle(Signal{Kind: SignalFocus, Good: false})
	m.StopMonitoring()

	m.StartMonitoring()
	m.Handle(Signal{Kind: SignalVisibility, Good: true})
	log := m.Log()
	assert.Len(t, log.Violations, 1)
	assert.False(t, log.HasOpenViolation())
}

func TestUnmatchedCloseIsNoop(t *testing.T) {
	m, _ := newMonitor()
	m.StartMonitoring()
	m.Handle(Signal{Kind: SignalFocus, Good: true})
	assert.Empty(t, m.Log().Violations)
}

func TestStopMonitoringClosesOpenViolation(t *testing.T) {
	m, clock := newMonitor()
	m.StartMonitoring()
	m.Handle(Signal{Kind: SignalFocus, Good: false})
	clock.advance(2500 * time.Millisecond)
	m.StopMonitoring()

	log := m.Log()
	require.Len(t, log.Violations, 1)
	require.NotNil(t, log.Violations[0].DurationOutsideMs)
	assert.Equal(t, int64(2500), *log.Violations[0].DurationOutsideMs)
	assert.False(t, log.HasOpenViolation())
}

func TestIsFlaggedTracksSummary(t *testing.T) {
	m, _ := newMonitor()
	m.StartMonitoring()

	for i := 0; i < 5; i++ {
		m.Handle(Signal{Kind: SignalFocus, Good: false})
		m.Handle(Signal{Kind: SignalFocus, Good: true})
	}
	assert.False(t, m.IsFlagged())

	m.Handle(Signal{Kind: SignalFocus, Good: false})
	assert.True(t, m.IsFlagged())

	m2, clock2 := newMonitor()
	m2.StartMonitoring()
	m2.Handle(Signal{Kind: SignalVisibility, Good: false})
	clock2.advance(61 * time.Second)
	m2.Handle(Signal{Kind: SignalVisibility, Good: true})
	assert.True(t, m2.IsFlagged())
}

func TestIsFlaggedIsPureFunctionOfSummary(t *testing.T) {
	assert.True(t, models.IntegritySummary{TotalViolations: 6, TotalTimeOutsideMs: 0}.IsFlagged())
	assert.False(t, models.IntegritySummary{TotalViolations: 2, TotalTimeOutsideMs: 30000}.IsFlagged())
	assert.True(t, models.IntegritySummary{TotalViolations: 0, TotalTimeOutsideMs: 61000}.IsFlagged())
}

func TestLogReturnsCopy(t *testing.T) {
	m, _ := newMonitor()
	m.StartMonitoring()
	m.Handle(Signal{Kind: SignalFocus, Good: false})
	m.Handle(Signal{Kind: SignalFocus, Good: true})

	log := m.Log()
	*log.Violations[0].DurationOutsideMs = 99999
	assert.Equal(t, int64(0), *m.Log().Violations[0].DurationOutsideMs)
}

func TestRunConsumesChannel(t *testing.T) {
	m, _ := newMonitor()
	m.StartMonitoring()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	m.Signals() <- Signal{Kind: SignalVisibility, Good: false}
	require.Eventually(t, func() bool { return len(m.Log().Violations) == 1 }, time.Second, time.Millisecond)

	cancel()
	<-done
}
