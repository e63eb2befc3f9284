package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/bistro/internal/bus"
)

// DefaultInterval is the polling period when none is configured.
const DefaultInterval = 10 * time.Second

// Ticker is the subset of time.Ticker the poller needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// NewTickerFunc creates a Ticker firing every d.
type NewTickerFunc func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time {
	return t.t.C
}

func (t timeTicker) Stop() {
	t.t.Stop()
}

// RealTicker wraps time.NewTicker.
func RealTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Poller refreshes a Store on a fixed interval.
//
// At most one polling goroutine is live. Start replaces a running one; Stop
// cancels it and waits for it to exit.
type Poller struct {
	store     *Store
	interval  time.Duration
	newTicker NewTickerFunc
	logger    *slog.Logger

	// lifecycle serializes Start and Stop; mu guards the fields below.
	lifecycle sync.Mutex
	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithTicker replaces the ticker factory (tests).
func WithTicker(f NewTickerFunc) PollerOption {
	return func(p *Poller) {
		p.newTicker = f
	}
}

// WithPollerLogger sets the poller's logger.
func WithPollerLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) {
		p.logger = l
	}
}

// NewPoller creates a stopped poller. A non-positive interval uses
// DefaultInterval.
func NewPoller(store *Store, interval time.Duration, opts ...PollerOption) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &Poller{
		store:     store,
		interval:  interval,
		newTicker: RealTicker,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Interval returns the polling period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// HandleEvent starts polling on Authenticated and stops on Unauthenticated.
// It is a bus.Listener.
func (p *Poller) HandleEvent(ctx context.Context, e bus.Event) error {
	switch e.Kind {
	case bus.Authenticated:
		p.Start(ctx)
	case bus.Unauthenticated:
		p.Stop()
	}
	return nil
}

// Start polls once immediately, then on every tick, until Stop or until ctx
// is cancelled.
func (p *Poller) Start(ctx context.Context) {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	p.stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	ticker := p.newTicker(p.interval)

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		defer ticker.Stop()

		p.logger.Debug("notification poller started", "interval", p.interval)
		p.poll(ctx)
		for {
			select {
			case <-ctx.Done():
				p.logger.Debug("notification poller stopped")
				return
			case <-ticker.C():
				p.poll(ctx)
			}
		}
	}()
}

// Stop cancels the running poller, if any, and waits for it to exit.
func (p *Poller) Stop() {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	p.stop()
}

func (p *Poller) stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether a polling goroutine is live.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) poll(ctx context.Context) {
	if err := p.store.Fetch(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("notification fetch failed", "error", err)
	}
	if err := p.store.FetchCount(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("notification count failed", "error", err)
	}
}
