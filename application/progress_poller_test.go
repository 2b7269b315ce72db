package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/domain"
)

func newTestPoller(backend *fakeBackend) *ProgressPoller {
	return &ProgressPoller{api: backend, interval: 5 * time.Millisecond}
}

func TestPollerPublishesProgress(t *testing.T) {
	backend := &fakeBackend{
		progress: &domain.Progress{
			Status:      domain.ProgressInProgress,
			CurrentStep: "Running analysis",
			Iteration:   3,
		},
	}
	poller := newTestPoller(backend)

	poller.Start("s1")
	defer poller.Stop()

	require.Eventually(t, func() bool {
		return poller.Current() != nil
	}, time.Second, time.Millisecond)

	current := poller.Current()
	assert.Equal(t, domain.ProgressInProgress, current.Status)
	assert.Equal(t, "Running analysis", current.CurrentStep)
}

func TestPollerFiltersNotFound(t *testing.T) {
	// No progress scripted: every fetch returns not_found
	backend := &fakeBackend{}
	poller := newTestPoller(backend)

	poller.Start("s1")
	defer poller.Stop()

	require.Eventually(t, func() bool {
		return backend.progressCalls() >= 3
	}, time.Second, time.Millisecond)

	assert.Nil(t, poller.Current())
}

func TestPollerKeepsLastProgressAcrossNotFound(t *testing.T) {
	backend := &fakeBackend{
		progress: &domain.Progress{Status: domain.ProgressInProgress, CurrentStep: "step one"},
	}
	poller := newTestPoller(backend)

	poller.Start("s1")
	defer poller.Stop()

	require.Eventually(t, func() bool {
		return poller.Current() != nil
	}, time.Second, time.Millisecond)

	// The record disappearing must not blank out the visible state
	before := backend.progressCalls()
	backend.setProgress(nil)

	require.Eventually(t, func() bool {
		return backend.progressCalls() > before+1
	}, time.Second, time.Millisecond)

	current := poller.Current()
	require.NotNil(t, current)
	assert.Equal(t, "step one", current.CurrentStep)
}

func TestPollerStopClearsProgress(t *testing.T) {
	backend := &fakeBackend{
		progress: &domain.Progress{Status: domain.ProgressInProgress},
	}
	poller := newTestPoller(backend)

	poller.Start("s1")
	require.Eventually(t, func() bool {
		return poller.Current() != nil
	}, time.Second, time.Millisecond)

	poller.Stop()

	assert.Nil(t, poller.Current())

	// No further fetches after Stop returns
	calls := backend.progressCalls()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, backend.progressCalls())
}

func TestPollerRestartSupersedesPreviousLoop(t *testing.T) {
	backend := &fakeBackend{
		progress: &domain.Progress{Status: domain.ProgressInProgress},
	}
	poller := newTestPoller(backend)

	poller.Start("s1")
	require.Eventually(t, func() bool {
		return poller.Current() != nil
	}, time.Second, time.Millisecond)

	// The new loop sees not_found only, so visible progress stays absent
	backend.setProgress(nil)
	poller.Start("s2")
	defer poller.Stop()

	before := backend.progressCalls()
	require.Eventually(t, func() bool {
		return backend.progressCalls() > before+1
	}, time.Second, time.Millisecond)

	assert.Nil(t, poller.Current())
}

func TestPollerStopWithoutStart(t *testing.T) {
	poller := newTestPoller(&fakeBackend{})

	poller.Stop()
	poller.Stop()

	assert.Nil(t, poller.Current())
}
