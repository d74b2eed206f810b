package models

// IntegrityViolation is a single departure from the proctoring conditions.
// DurationOutsideMs stays nil while the violation is open.
type IntegrityViolation struct {
	Event             ViolationEvent `json:"event"`
	Timestamp         int64          `json:"timestamp"`
	PromptIDActive    string         `json:"promptIdActive,omitempty"`
	DurationOutsideMs *int64         `json:"durationOutsideMs"`
}

// Open reports whether the violation has not been closed yet.
func (v IntegrityViolation) Open() bool {
	return v.DurationOutsideMs == nil
}

type IntegritySummary struct {
	TotalViolations     int   `json:"totalViolations"`
	TotalTimeOutsideMs  int64 `json:"totalTimeOutsideMs"`
	FullscreenExitCount int   `json:"fullscreenExitCount"`
	TabSwitchCount      int   `json:"tabSwitchCount"`
	WindowBlurCount     int   `json:"windowBlurCount"`
}

// IsFlagged derives the flagged verdict. It is never stored.
func (s IntegritySummary) IsFlagged() bool {
	return s.TotalTimeOutsideMs > FlagTimeOutsideMs || s.TotalViolations > FlagMaxViolations
}

type IntegrityEnvironment struct {
	StartedInFullscreen bool   `json:"startedInFullscreen"`
	FullscreenSupported bool   `json:"fullscreenSupported"`
	VisibilitySupported bool   `json:"visibilitySupported"`
	FocusSupported      bool   `json:"focusSupported"`
	BrowserInfo         string `json:"browserInfo,omitempty"`
}

type IntegrityLog struct {
	Violations  []IntegrityViolation `json:"violations"`
	Summary     IntegritySummary     `json:"summary"`
	Environment IntegrityEnvironment `json:"environment"`
}

// IsFlagged is a shorthand for l.Summary.IsFlagged.
func (l *IntegrityLog) IsFlagged() bool {
	if l == nil {
		return false
	}
	return l.Summary.IsFlagged()
}

// HasOpenViolation reports whether any violation is still open.
func (l *IntegrityLog) HasOpenViolation() bool {
	if l == nil {
		return false
	}
	for _, v := range l.Violations {
		if v.Open() {
			return true
		}
	}
	return false
}
