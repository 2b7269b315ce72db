package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/api"
)

func newTestMonitor(backend *fakeBackend, tokens *fakeTokens) *ConnectionMonitor {
	return &ConnectionMonitor{
		pinger:       backend,
		creds:        tokens,
		interval:     5 * time.Millisecond,
		probeTimeout: 50 * time.Millisecond,
		status:       StatusChecking,
	}
}

func TestMonitorStartsChecking(t *testing.T) {
	monitor := newTestMonitor(&fakeBackend{}, &fakeTokens{token: true})

	assert.Equal(t, StatusChecking, monitor.Status())
}

func TestMonitorConnected(t *testing.T) {
	backend := &fakeBackend{}
	monitor := newTestMonitor(backend, &fakeTokens{token: true})

	monitor.Start()
	defer monitor.Stop()

	require.Eventually(t, func() bool {
		return monitor.Status() == StatusConnected
	}, time.Second, time.Millisecond)
}

func TestMonitorDisconnectedOnProbeFailure(t *testing.T) {
	backend := &fakeBackend{pingErr: &api.Error{Status: 502, Message: "down"}}
	monitor := newTestMonitor(backend, &fakeTokens{token: true})

	monitor.Start()
	defer monitor.Stop()

	require.Eventually(t, func() bool {
		return monitor.Status() == StatusDisconnected
	}, time.Second, time.Millisecond)
}

func TestMonitorWithoutTokenSkipsProbe(t *testing.T) {
	backend := &fakeBackend{}
	monitor := newTestMonitor(backend, &fakeTokens{token: false})

	monitor.Start()
	defer monitor.Stop()

	require.Eventually(t, func() bool {
		return monitor.Status() == StatusDisconnected
	}, time.Second, time.Millisecond)

	// Unauthenticated probes never touch the network
	assert.Zero(t, backend.pingCallCount())
}

func TestMonitorRecoversAfterLogin(t *testing.T) {
	backend := &fakeBackend{}
	tokens := &fakeTokens{token: false}
	monitor := newTestMonitor(backend, tokens)

	monitor.Start()
	defer monitor.Stop()

	require.Eventually(t, func() bool {
		return monitor.Status() == StatusDisconnected
	}, time.Second, time.Millisecond)

	tokens.set(true)

	require.Eventually(t, func() bool {
		return monitor.Status() == StatusConnected
	}, time.Second, time.Millisecond)
}

func TestMonitorStopResetsToChecking(t *testing.T) {
	backend := &fakeBackend{}
	monitor := newTestMonitor(backend, &fakeTokens{token: true})

	monitor.Start()
	require.Eventually(t, func() bool {
		return monitor.Status() == StatusConnected
	}, time.Second, time.Millisecond)

	monitor.Stop()

	assert.Equal(t, StatusChecking, monitor.Status())

	calls := backend.pingCallCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, backend.pingCallCount())
}
