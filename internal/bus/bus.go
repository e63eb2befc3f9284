package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Kind distinguishes authentication transitions.
type Kind int

const (
	// Authenticated is published when a credential becomes available.
	Authenticated Kind = iota + 1
	// Unauthenticated is published when the credential is dropped.
	Unauthenticated
)

func (k Kind) String() string {
	switch k {
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Reason records what caused a transition.
type Reason string

const (
	ReasonRestore Reason = "restore"
	ReasonLogin   Reason = "login"
	ReasonLogout  Reason = "logout"
	ReasonExpired Reason = "expired"
)

// Event is one authentication transition.
type Event struct {
	Kind   Kind
	Reason Reason
}

// Listener handles a delivered event. A returned error is logged; delivery
// to the remaining listeners continues.
type Listener func(ctx context.Context, e Event) error

// Bus is a FIFO event bus with a single dispatcher.
type Bus struct {
	queue  *queue
	logger *slog.Logger

	mu        sync.RWMutex
	listeners []Listener
}

// New creates an empty bus. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{queue: newQueue(), logger: logger}
}

// Subscribe adds a listener. Listeners are called in subscription order.
func (b *Bus) Subscribe(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Publish enqueues e for delivery. Returns false once the bus is closed.
func (b *Bus) Publish(e Event) bool {
	ok := b.queue.push(e)
	if !ok {
		b.logger.Debug("bus closed, dropping event", "kind", e.Kind.String(), "reason", string(e.Reason))
	}
	return ok
}

// Pending returns the number of queued, undelivered events.
func (b *Bus) Pending() int {
	return b.queue.len()
}

// Run delivers events until ctx is cancelled or the bus is closed.
//
// Only one Run may be active at a time.
func (b *Bus) Run(ctx context.Context) error {
	b.logger.Debug("bus dispatcher starting")
	for {
		if e, ok := b.queue.pop(); ok {
			b.deliver(ctx, e)
			continue
		}

		select {
		case <-ctx.Done():
			b.logger.Debug("bus dispatcher stopping: context cancelled")
			return ctx.Err()
		case <-b.queue.wait():
			// The signal channel is closed by Close; drain what is left first.
			if b.queue.len() == 0 && b.closed() {
				b.logger.Debug("bus dispatcher stopping: closed")
				return nil
			}
		}
	}
}

// DispatchPending synchronously delivers every queued event, including
// events published by listeners during delivery. Returns how many were
// delivered.
func (b *Bus) DispatchPending(ctx context.Context) int {
	n := 0
	for {
		e, ok := b.queue.pop()
		if !ok {
			return n
		}
		b.deliver(ctx, e)
		n++
	}
}

// Close stops accepting events and wakes Run.
func (b *Bus) Close() {
	b.queue.close()
}

func (b *Bus) closed() bool {
	b.queue.mu.Lock()
	defer b.queue.mu.Unlock()
	return b.queue.closed
}

func (b *Bus) deliver(ctx context.Context, e Event) {
	b.mu.RLock()
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, l := range listeners {
		if err := l(ctx, e); err != nil {
			b.logger.Error("bus listener failed",
				"kind", e.Kind.String(),
				"reason", string(e.Reason),
				"error", err,
			)
		}
	}
}
