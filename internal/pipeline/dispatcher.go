package pipeline

import (
	"context"
	"sync"

	"athena/interview/internal/metrics"

	"go.uber.org/zap"
)

// Advancer drives one attempt as far as it can go.
type Advancer interface {
	Advance(ctx context.Context, attemptID string) error
}

// Dispatcher runs attempts on a bounded pool of workers. An attempt that is
// already queued or running is not queued again.
type Dispatcher struct {
	advancer Advancer
	workers  int
	queue    chan string
	logger   *zap.Logger

	mu      sync.Mutex
	pending map[string]bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDispatcher(advancer Advancer, workers, queueSize int, logger *zap.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < workers {
		queueSize = workers
	}
	return &Dispatcher{
		advancer: advancer,
		workers:  workers,
		queue:    make(chan string, queueSize),
		logger:   logger,
		pending:  make(map[string]bool),
	}
}

// Start launches the workers. They stop when ctx ends or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(ctx, i)
	}
	d.logger.Info("Pipeline dispatcher started", zap.Int("workers", d.workers))
}

// Stop cancels in-flight stages and waits for the workers to exit. Attempts
// interrupted here keep their persisted stage and are resumed later.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.logger.Info("Pipeline dispatcher stopped")
}

// Enqueue schedules an attempt. It never blocks; false means the attempt was
// already pending or the queue is full, and the sweep will pick it up later.
func (d *Dispatcher) Enqueue(attemptID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending[attemptID] {
		return false
	}
	select {
	case d.queue <- attemptID:
		d.pending[attemptID] = true
		metrics.SetQueueDepth(len(d.queue))
		return true
	default:
		d.logger.Warn("Pipeline queue full, deferring attempt", zap.String("attempt_id", attemptID))
		return false
	}
}

func (d *Dispatcher) work(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case attemptID := <-d.queue:
			metrics.SetQueueDepth(len(d.queue))
			if err := d.advancer.Advance(ctx, attemptID); err != nil && ctx.Err() == nil {
				d.logger.Error("Pipeline worker error",
					zap.Int("worker", id),
					zap.String("attempt_id", attemptID),
					zap.Error(err))
			}
			d.mu.Lock()
			delete(d.pending, attemptID)
			d.mu.Unlock()
		}
	}
}
