// Package lockout decides whether a user may start a new interview attempt.
package lockout

import (
	"time"

	"athena/interview/internal/models"
)

// Outcome is the coarse result of a lockout decision.
type Outcome int

const (
	Allowed Outcome = iota
	Locked
	InProgress
)

func (o Outcome) String() string {
	switch o {
	case Allowed:
		return "allowed"
	case Locked:
		return "locked"
	case InProgress:
		return "in_progress"
	default:
		return "unknown"
	}
}

// History is everything the policy looks at for one user.
type History struct {
	AdminHold      *models.AdminHold
	Latest         *models.InterviewAttempt // most recent attempt by attempt number
	Live           *models.InterviewAttempt // in_progress or processing, if any
	PendingRequest bool
}

// Decision is the result of Decide.
type Decision struct {
	Outcome              Outcome
	Reason               models.LockoutReason
	LockedUntil          *time.Time
	UnlockRequestAllowed bool
	RequestPending       bool
	ExistingAttemptID    string
}

// Policy holds the tunables of the lockout rules.
type Policy struct {
	Cooldown time.Duration
}

func NewPolicy(cooldown time.Duration) Policy {
	return Policy{Cooldown: cooldown}
}

// Decide applies the rules in precedence order: admin hold, abandonment,
// cooldown, live attempt, allowed.
func (p Policy) Decide(h History, now time.Time) Decision {
	if h.AdminHold != nil {
		return Decision{
			Outcome:        Locked,
			Reason:         models.LockoutAdminHold,
			RequestPending: h.PendingRequest,
		}
	}

	if latest := h.Latest; latest != nil {
		switch latest.Status {
		case models.StatusAbandoned:
			if latest.LockClearedAt == nil {
				return Decision{
					Outcome:              Locked,
					Reason:               models.LockoutAbandoned,
					UnlockRequestAllowed: !h.PendingRequest,
					RequestPending:       h.PendingRequest,
				}
			}
		case models.StatusComplete:
			if until, ok := p.cooldownUntil(latest); ok && now.Before(until) {
				return Decision{
					Outcome:     Locked,
					Reason:      models.LockoutCooldown,
					LockedUntil: &until,
				}
			}
		}
	}

	if h.Live != nil {
		return Decision{
			Outcome:           InProgress,
			ExistingAttemptID: h.Live.ID,
		}
	}

	return Decision{Outcome: Allowed}
}

func (p Policy) cooldownUntil(a *models.InterviewAttempt) (time.Time, bool) {
	if p.Cooldown <= 0 || a.CompletedAt == nil {
		return time.Time{}, false
	}
	return a.CompletedAt.Add(p.Cooldown), true
}
