package application

import (
	"context"
	"sync"
	"time"

	"parley/logging"
	"parley/ports"
)

// ConnectionStatus is the backend reachability state shown to the user
type ConnectionStatus string

const (
	// StatusChecking is the state before the first probe resolves
	StatusChecking     ConnectionStatus = "checking"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

const (
	defaultCheckInterval = 30 * time.Second
	defaultProbeTimeout  = 5 * time.Second
)

// ConnectionMonitor probes backend reachability on a fixed cadence,
// independent of message traffic. Without a cached auth token it reports
// disconnected without attempting a network call. The resulting status gates
// whether the send UI accepts input; it never blocks progress polling or
// session refresh.
type ConnectionMonitor struct {
	pinger       ports.Pinger
	creds        ports.TokenChecker
	interval     time.Duration
	probeTimeout time.Duration

	mu     sync.Mutex
	status ConnectionStatus
	cancel context.CancelFunc
	done   chan struct{}
}

// NewConnectionMonitor creates a monitor with the default 30s cadence
func NewConnectionMonitor(pinger ports.Pinger, creds ports.TokenChecker) *ConnectionMonitor {
	return &ConnectionMonitor{
		pinger:       pinger,
		creds:        creds,
		interval:     defaultCheckInterval,
		probeTimeout: defaultProbeTimeout,
		status:       StatusChecking,
	}
}

// Start launches the probe loop: one immediate check, then one per interval.
// A second Start supersedes the first loop.
func (m *ConnectionMonitor) Start() {
	m.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	m.mu.Lock()
	m.cancel = cancel
	m.done = done
	m.status = StatusChecking
	m.mu.Unlock()

	go m.loop(ctx, done)
}

// Stop cancels the probe loop and waits for it to exit
func (m *ConnectionMonitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.done = nil
	m.status = StatusChecking
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Status returns the current reachability state
func (m *ConnectionMonitor) Status() ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *ConnectionMonitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	m.check(ctx, done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx, done)
		}
	}
}

func (m *ConnectionMonitor) check(ctx context.Context, done chan struct{}) {
	var status ConnectionStatus

	if !m.creds.HasToken() {
		// Not authenticated: no network call, just report disconnected
		status = StatusDisconnected
	} else {
		probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
		err := m.pinger.Ping(probeCtx)
		cancel()

		if err != nil {
			logging.Logger.Debug("Backend probe failed", "error", err)
			status = StatusDisconnected
		} else {
			status = StatusConnected
		}
	}

	m.mu.Lock()
	if m.done == done {
		m.status = status
	}
	m.mu.Unlock()
}
