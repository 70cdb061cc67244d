// Package events delivers post-commit circulation events to side-effect subscribers
// (audit, receipts, realtime) on a background worker. Publishing never blocks the
// operation that produced the event and a failing subscriber never affects it.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	portssvc "github.com/SscSPs/library_circulation_app/internal/core/ports/services"
)

// Subscriber handles one kind of side effect.
type Subscriber interface {
	Name() string
	Handle(ctx context.Context, event domain.CirculationEvent) error
}

type envelope struct {
	ctx   context.Context
	event domain.CirculationEvent
}

// Dispatcher is a bounded queue drained by a single worker.
type Dispatcher struct {
	subscribers []Subscriber
	logger      *slog.Logger

	queue  chan envelope
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

var _ portssvc.EventPublisher = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher holding up to queueSize pending events.
func NewDispatcher(queueSize int, logger *slog.Logger, subscribers ...Subscriber) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Dispatcher{
		subscribers: subscribers,
		logger:      logger.With(slog.String("component", "event_dispatcher")),
		queue:       make(chan envelope, queueSize),
		done:        make(chan struct{}),
	}
}

// Start launches the worker. Subscribers are fixed at construction.
func (d *Dispatcher) Start() {
	go func() {
		defer close(d.done)
		for env := range d.queue {
			d.deliver(env)
		}
	}()
}

// Publish queues event. When the queue is full or closed the event is dropped and
// logged.
func (d *Dispatcher) Publish(ctx context.Context, event domain.CirculationEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("Dispatcher closed, dropping event", slog.String("event_type", string(event.Type)))
		return
	}
	select {
	case d.queue <- envelope{ctx: ctx, event: event}:
	default:
		d.logger.Warn("Event queue full, dropping event",
			slog.String("event_type", string(event.Type)),
			slog.String("student_id", event.StudentID))
	}
}

func (d *Dispatcher) deliver(env envelope) {
	for _, sub := range d.subscribers {
		if err := d.safeHandle(env.ctx, sub, env.event); err != nil {
			d.logger.Error("Event subscriber failed",
				slog.String("subscriber", sub.Name()),
				slog.String("event_type", string(env.event.Type)),
				slog.String("error", err.Error()))
		}
	}
}

func (d *Dispatcher) safeHandle(ctx context.Context, sub Subscriber, event domain.CirculationEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return sub.Handle(ctx, event)
}

// Close stops accepting events and waits until the queue drains or ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
