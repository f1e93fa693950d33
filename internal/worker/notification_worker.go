package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/events"
)

// EventHandler is the delivery side of the worker, usually NotificationService.Handle.
type EventHandler func(context.Context, events.Event) error

// NotificationWorker moves notification delivery off the request path. Events are queued
// by dispatcher handlers and delivered by a fixed pool of goroutines.
type NotificationWorker struct {
	handle  EventHandler
	logger  *zap.Logger
	queue   chan events.Event
	workers int
	wg      sync.WaitGroup
}

// NewNotificationWorker builds a worker with the given pool size and queue depth.
func NewNotificationWorker(handle EventHandler, logger *zap.Logger, workers, depth int) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = 2
	}
	if depth <= 0 {
		depth = 256
	}
	return &NotificationWorker{
		handle:  handle,
		logger:  logger,
		queue:   make(chan events.Event, depth),
		workers: workers,
	}
}

// StartNotificationWorker subscribes the worker to every event type and starts its pool.
// The pool drains and stops once ctx is cancelled; Wait blocks until it has.
func StartNotificationWorker(ctx context.Context, dispatcher events.Dispatcher, w *NotificationWorker) {
	if dispatcher == nil || w == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, w.Enqueue)
	}
	w.Start(ctx)
}

// Start launches the delivery goroutines.
func (w *NotificationWorker) Start(ctx context.Context) {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx)
	}
}

// Enqueue queues event for delivery. A full queue drops the event with a warning so
// publishers never block.
func (w *NotificationWorker) Enqueue(_ context.Context, event events.Event) error {
	select {
	case w.queue <- event:
	default:
		w.logger.Warn("notification queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("grievance_id", event.GrievanceID))
	}
	return nil
}

// Wait blocks until every delivery goroutine has exited.
func (w *NotificationWorker) Wait() {
	w.wg.Wait()
}

func (w *NotificationWorker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case event := <-w.queue:
			w.deliver(ctx, event)
		}
	}
}

// drain delivers whatever is still queued using a fresh context.
func (w *NotificationWorker) drain() {
	for {
		select {
		case event := <-w.queue:
			w.deliver(context.Background(), event)
		default:
			return
		}
	}
}

func (w *NotificationWorker) deliver(ctx context.Context, event events.Event) {
	if err := w.handle(ctx, event); err != nil {
		w.logger.Warn("notification delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("grievance_id", event.GrievanceID),
			zap.Error(err))
	}
}
