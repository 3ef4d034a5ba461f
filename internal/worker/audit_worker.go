package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/hr-service/internal/events"
	"github.com/spec-kit/hr-service/internal/service"
)

// AuditWorker records domain events off the request path through a buffered queue.
type AuditWorker struct {
	audit  *service.AuditService
	logger *zap.Logger
	queue  chan events.Event

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// StartAuditWorker subscribes the worker to every event type and starts draining the queue.
func StartAuditWorker(dispatcher events.Dispatcher, audit *service.AuditService, logger *zap.Logger, buffer int) *AuditWorker {
	if buffer <= 0 {
		buffer = 256
	}
	w := &AuditWorker{
		audit:  audit,
		logger: logger,
		queue:  make(chan events.Event, buffer),
		done:   make(chan struct{}),
	}
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, w.enqueue)
	}
	go w.run()
	return w
}

func (w *AuditWorker) enqueue(ctx context.Context, event events.Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return w.audit.Record(ctx, event)
	}
	select {
	case w.queue <- event:
		return nil
	default:
		w.logger.Warn("audit queue full, recording inline", zap.String("event_type", string(event.Type)))
		return w.audit.Record(ctx, event)
	}
}

func (w *AuditWorker) run() {
	defer close(w.done)
	for event := range w.queue {
		if err := w.audit.Record(context.Background(), event); err != nil {
			w.logger.Warn("audit record failed", zap.String("event_id", event.ID), zap.Error(err))
		}
	}
}

// Stop drains queued events. Events published afterwards are recorded inline.
func (w *AuditWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
