package application

import (
	"context"
	"sync"
	"time"

	"parley/domain"
	"parley/logging"
	"parley/ports"
)

// defaultPollInterval matches the backend's progress update granularity
const defaultPollInterval = time.Second

// ProgressPoller periodically fetches the progress record for an active
// session while a send is in flight. At most one polling loop runs at a
// time: Start cancels any previous loop before launching a new one, and
// the poller never stops itself on terminal status; stopping is the
// caller's responsibility, tied to completion of the originating send.
type ProgressPoller struct {
	api      ports.ProgressReader
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	current *domain.Progress
}

// NewProgressPoller creates a poller with the default 1s interval
func NewProgressPoller(api ports.ProgressReader) *ProgressPoller {
	return &ProgressPoller{api: api, interval: defaultPollInterval}
}

// Start begins polling progress for the given session, superseding any
// previous polling loop.
func (p *ProgressPoller) Start(sessionID string) {
	p.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	logging.Logger.Debug("Starting progress polling", "session_id", sessionID)
	go p.loop(ctx, sessionID, done)
}

// Stop cancels the active polling loop, waits for it to exit, and resets
// visible progress to absent.
func (p *ProgressPoller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.current = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Current returns the last visible progress, or nil when absent. The
// returned value is never mutated after publication.
func (p *ProgressPoller) Current() *domain.Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *ProgressPoller) loop(ctx context.Context, sessionID string, done chan struct{}) {
	defer close(done)

	// First fetch immediately, then on the interval
	p.poll(ctx, sessionID, done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx, sessionID, done)
		}
	}
}

func (p *ProgressPoller) poll(ctx context.Context, sessionID string, done chan struct{}) {
	prog, err := p.api.Progress(ctx, sessionID)
	if err != nil {
		// No update this tick; the next one may succeed
		logging.Logger.Debug("Progress fetch failed", "session_id", sessionID, "error", err)
		return
	}

	// not_found means no progress record exists. It must never blank out a
	// previously observed in-progress state, so it is filtered here.
	if prog.Status == domain.ProgressNotFound {
		return
	}

	p.mu.Lock()
	if p.done == done {
		p.current = prog
	}
	p.mu.Unlock()
}
