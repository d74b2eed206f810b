package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel carries attempt lifecycle events for other services.
const Channel = "interview_attempts"

// Event types.
const (
	AttemptInitialized = "attempt_initialized"
	AttemptSubmitted   = "attempt_submitted"
	AttemptCompleted   = "attempt_completed"
	AttemptFailed      = "attempt_failed"
	AttemptAbandoned   = "attempt_abandoned"
)

// AttemptEvent is the payload published on Channel.
type AttemptEvent struct {
	Type            string    `json:"type"`
	AttemptID       string    `json:"attemptId"`
	UserID          string    `json:"userId"`
	AttemptNumber   int       `json:"attemptNumber,omitempty"`
	Status          string    `json:"status"`
	Stage           string    `json:"stage,omitempty"`
	HireInclination string    `json:"hireInclination,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// Publisher announces attempt lifecycle changes. Publishing is best effort:
// a failure is logged and never fails the state change that caused it.
type Publisher interface {
	Publish(ctx context.Context, event AttemptEvent)
}

type RedisPublisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisPublisher(rdb *redis.Client, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, event AttemptEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal attempt event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	if err := p.rdb.Publish(ctx, Channel, payload).Err(); err != nil {
		p.logger.Warn("Failed to publish attempt event",
			zap.String("type", event.Type),
			zap.String("attempt_id", event.AttemptID),
			zap.Error(err))
	}
}

// Nop drops events. Used when Redis is not configured.
type Nop struct{}

func (Nop) Publish(context.Context, AttemptEvent) {}

// Recorder keeps published events in memory for tests.
type Recorder struct {
	events chan AttemptEvent
}

func NewRecorder(size int) *Recorder {
	return &Recorder{events: make(chan AttemptEvent, size)}
}

func (r *Recorder) Publish(_ context.Context, event AttemptEvent) {
	select {
	case r.events <- event:
	default:
	}
}

// Events drains the events recorded so far.
func (r *Recorder) Events() []AttemptEvent {
	var out []AttemptEvent
	for {
		select {
		case e := <-r.events:
			out = append(out, e)
		default:
			return out
		}
	}
}
