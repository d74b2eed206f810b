package integrity

import (
	"context"
	"sync"
	"time"

	"athena/interview/internal/models"
)

// SignalKind is the class of host event a Signal came from.
type SignalKind int

const (
	SignalFullscreen SignalKind = iota
	SignalVisibility
	SignalFocus
)

// Signal reports a state change. Good is true when the host is back in the
// proctored state (fullscreen, visible, focused).
type Signal struct {
	Kind SignalKind
	Good bool
}

// violations maps each signal class to the violation it opens and closes.
var violations = map[SignalKind]models.ViolationEvent{
	SignalFullscreen: models.ViolationFullscreenExit,
	SignalVisibility: models.ViolationTabSwitch,
	SignalFocus:      models.ViolationWindowBlur,
}

// signalOrder decides which pending class opens next when several are bad.
var signalOrder = []SignalKind{SignalFullscreen, SignalVisibility, SignalFocus}

type openViolation struct {
	index    int
	event    models.ViolationEvent
	openedAt time.Time
}

// Monitor turns host signals into an integrity log. Signals are ignored
// unless monitoring is active, and at most one violation is open at a time.
// The last state of every signal class is tracked, so a class that went bad
// while another violation was open opens its own violation once that one
// closes.
type Monitor struct {
	now     func() time.Time
	signals chan Signal

	mu         sync.Mutex
	monitoring bool
	promptID   string
	bad        map[SignalKind]bool
	open       *openViolation
	log        models.IntegrityLog
}

func NewMonitor(env models.IntegrityEnvironment, now func() time.Time) *Monitor {
	if now == nil {
		now = time.Now
	}
	return &Monitor{
		now:     now,
		signals: make(chan Signal, 16),
		bad:     make(map[SignalKind]bool),
		log: models.IntegrityLog{
			Violations:  []models.IntegrityViolation{},
			Environment: env,
		},
	}
}

// Signals is the inbound channel consumed by Run.
func (m *Monitor) Signals() chan<- Signal {
	return m.signals
}

// Run feeds signals from the channel into Handle until ctx ends.
func (m *Monitor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-m.signals:
			m.Handle(sig)
		}
	}
}

func (m *Monitor) StartMonitoring() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.monitoring = true
	m.bad = make(map[SignalKind]bool)
}

// StopMonitoring closes any open violation and makes handlers inert.
func (m *Monitor) StopMonitoring() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open != nil {
		m.closeOpen()
	}
	m.monitoring = false
	m.bad = make(map[SignalKind]bool)
}

func (m *Monitor) SetCurrentPromptID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promptID = id
}

// Handle applies one signal.
func (m *Monitor) Handle(sig Signal) {
	event, ok := violations[sig.Kind]
	if !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.monitoring {
		return
	}

	m.bad[sig.Kind] = !sig.Good
	if sig.Good {
		// close without a matching open is a no-op
		if m.open != nil && m.open.event == event {
			m.closeOpen()
			m.openPending()
		}
		return
	}
	if m.open == nil {
		m.openViolation(event)
	}
}

// caller holds mu
func (m *Monitor) openPending() {
	for _, kind := range signalOrder {
		if m.bad[kind] {
			m.openViolation(violations[kind])
			return
		}
	}
}

// caller holds mu
func (m *Monitor) openViolation(event models.ViolationEvent) {
	now := m.now()
	m.log.Violations = append(m.log.Violations, models.IntegrityViolation{
		Event:          event,
		Timestamp:      now.UnixMilli(),
		PromptIDActive: m.promptID,
	})
	m.open = &openViolation{index: len(m.log.Violations) - 1, event: event, openedAt: now}

	m.log.Summary.TotalViolations++
	switch event {
	case models.ViolationFullscreenExit:
		m.log.Summary.FullscreenExitCount++
	case models.ViolationTabSwitch:
		m.log.Summary.TabSwitchCount++
	case models.ViolationWindowBlur:
		m.log.Summary.WindowBlurCount++
	}
}

// caller holds mu
func (m *Monitor) closeOpen() {
	d := m.now().Sub(m.open.openedAt).Milliseconds()
	if d < 0 {
		d = 0
	}
	m.log.Violations[m.open.index].DurationOutsideMs = &d
	m.log.Summary.TotalTimeOutsideMs += d
	m.open = nil
}

// Log returns a copy of the current log.
func (m *Monitor) Log() models.IntegrityLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.log
	out.Violations = make([]models.IntegrityViolation, len(m.log.Violations))
	for i, v := range m.log.Violations {
		if v.DurationOutsideMs != nil {
			d := *v.DurationOutsideMs
			v.DurationOutsideMs = &d
		}
		out.Violations[i] = v
	}
	return out
}

// IsFlagged is recomputed from the current summary on every call.
func (m *Monitor) IsFlagged() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.log.Summary.IsFlagged()
}
