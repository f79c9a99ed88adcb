// Package poller runs a fetch on a fixed interval until stopped.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yukikurage/stellar-tasks/internal/constants"
)

// ErrAlreadyRunning is returned by Start on a running poller.
var ErrAlreadyRunning = errors.New("poller already running")

// FetchFunc performs one poll. Its context carries the per-fetch timeout.
type FetchFunc func(ctx context.Context) error

// ErrorHandler receives fetch failures. The loop keeps going afterwards.
type ErrorHandler func(err error)

// Poller calls a FetchFunc immediately and then once per interval.
type Poller struct {
	fetch     FetchFunc
	onError   ErrorHandler
	interval  time.Duration
	timeout   time.Duration
	triggerCh chan struct{}

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the time between fetches.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithFetchTimeout bounds each fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithErrorHandler installs a callback for failed fetches.
func WithErrorHandler(h ErrorHandler) Option {
	return func(p *Poller) {
		p.onError = h
	}
}

// New creates a stopped Poller.
func New(fetch FetchFunc, opts ...Option) *Poller {
	p := &Poller{
		fetch:     fetch,
		onError:   func(error) {},
		interval:  constants.NotificationPollInterval,
		timeout:   constants.DefaultRequestTimeout,
		triggerCh: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the polling loop. The loop ends when Stop is called or ctx
// is cancelled, whichever comes first.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrAlreadyRunning
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.done = make(chan struct{})

	go p.loop(ctx, p.stopCh, p.done)
	return nil
}

// Stop halts the loop and waits for it to exit. It is safe to call more
// than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		done := p.done
		p.mu.Unlock()
		if done != nil {
			<-done
		}
		return
	}
	p.running = false
	close(p.stopCh)
	done := p.done
	p.mu.Unlock()

	<-done
}

// Done is closed once the loop has exited.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Refresh asks for an immediate fetch without waiting for the next tick.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A refresh is already pending
	}
}

func (p *Poller) loop(ctx context.Context, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Do an initial fetch immediately
	p.runOnce(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			p.mu.Lock()
			p.running = false
			p.mu.Unlock()
			return
		case <-ticker.C:
			p.runOnce(ctx)
		case <-p.triggerCh:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.fetch(fetchCtx); err != nil && ctx.Err() == nil {
		p.onError(err)
	}
}
