package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/imagefeed/backend/internal/logging"
)

// DispatcherConfig controls the concurrency characteristics of the dispatcher.
type DispatcherConfig struct {
	QueueSize       int
	Workers         int
	ListenerTimeout time.Duration
}

// Dispatcher fans events out to listeners on a small worker pool.
type Dispatcher struct {
	listeners []Listener
	logger    *slog.Logger
	timeout   time.Duration

	jobs   chan Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the worker pool. Listeners are called in order for each event.
func NewDispatcher(cfg DispatcherConfig, logger *slog.Logger, listeners ...Listener) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ListenerTimeout <= 0 {
		cfg.ListenerTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dispatcher{
		listeners: listeners,
		logger:    logger,
		timeout:   cfg.ListenerTimeout,
		jobs:      make(chan Event, cfg.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}

	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.worker()
	}

	return d
}

// Emit queues event for delivery. When the queue is full or the dispatcher is
// shut down the event is dropped with a warning.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = logging.RequestIDFromContext(ctx)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		logging.FromContext(ctx).Warn("event dropped after shutdown", "event", string(event.Type), "userId", event.UserID)
		return
	}

	select {
	case d.jobs <- event:
	default:
		logging.FromContext(ctx).Warn("event queue full, dropping event", "event", string(event.Type), "userId", event.UserID)
	}
}

// Shutdown stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.jobs)
		d.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	case <-done:
		d.cancel()
		return nil
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for event := range d.jobs {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event Event) {
	for idx, listener := range d.listeners {
		if err := d.invoke(listener, event); err != nil {
			d.logger.Error("event listener failed", "event", string(event.Type), "listener", idx, "userId", event.UserID, "error", err)
		}
	}
}

func (d *Dispatcher) invoke(listener Listener, event Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("listener panic: %v", rec)
		}
	}()

	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	return listener(ctx, event)
}

var _ Emitter = (*Dispatcher)(nil)
var _ Emitter = Discard{}
