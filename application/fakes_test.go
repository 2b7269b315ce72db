package application

import (
	"context"
	"sync"

	"parley/api"
	"parley/domain"
)

// fakeBackend is a scriptable ports.Backend for orchestrator tests
type fakeBackend struct {
	mu sync.Mutex

	chatResp  *api.ChatResponse
	chatErr   error
	chatCalls int
	chatReqs  []api.ChatRequest
	chatGate  chan struct{} // when set, SendChat blocks until closed

	sessions  []domain.Session
	listErr   error
	listCalls int

	history      map[string][]domain.Message
	historyErr   error
	historyCalls int

	deleted   []string
	deleteErr error

	progress  *domain.Progress
	progErr   error
	progCalls int

	pingErr   error
	pingCalls int
}

func (f *fakeBackend) SendChat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
	f.mu.Lock()
	f.chatCalls++
	f.chatReqs = append(f.chatReqs, req)
	gate := f.chatGate
	resp, err := f.chatResp, f.chatErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (f *fakeBackend) ListSessions(ctx context.Context) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Session, len(f.sessions))
	copy(out, f.sessions)
	return out, nil
}

func (f *fakeBackend) History(ctx context.Context, id string) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history[id], nil
}

func (f *fakeBackend) DeleteSession(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	kept := f.sessions[:0]
	for _, s := range f.sessions {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	f.sessions = kept
	return nil
}

func (f *fakeBackend) Progress(ctx context.Context, id string) (*domain.Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progCalls++
	if f.progErr != nil {
		return nil, f.progErr
	}
	if f.progress == nil {
		return &domain.Progress{Status: domain.ProgressNotFound}, nil
	}
	p := *f.progress
	return &p, nil
}

func (f *fakeBackend) Visualizations(ctx context.Context, id string) (*api.WorkspaceFiles, error) {
	return &api.WorkspaceFiles{}, nil
}

func (f *fakeBackend) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingCalls++
	return f.pingErr
}

func (f *fakeBackend) chatCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chatCalls
}

func (f *fakeBackend) listCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeBackend) historyCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.historyCalls
}

func (f *fakeBackend) lastChatReq() api.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chatReqs[len(f.chatReqs)-1]
}

func (f *fakeBackend) pingCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingCalls
}

func (f *fakeBackend) setProgress(p *domain.Progress) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = p
}

func (f *fakeBackend) progressCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progCalls
}

// fakeTokens is a TokenChecker with a switchable state
type fakeTokens struct {
	mu    sync.Mutex
	token bool
}

func (f *fakeTokens) HasToken() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeTokens) set(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = v
}

// fakeCache is an in-memory SessionCache
type fakeCache struct {
	mu       sync.Mutex
	sessions []domain.Session
	cleared  bool
}

func (f *fakeCache) List(ctx context.Context) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Session, len(f.sessions))
	copy(out, f.sessions)
	return out, nil
}

func (f *fakeCache) ReplaceAll(ctx context.Context, sessions []domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append([]domain.Session(nil), sessions...)
	return nil
}

func (f *fakeCache) Remove(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.sessions[:0]
	for _, s := range f.sessions {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	f.sessions = kept
	return nil
}

func (f *fakeCache) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = nil
	f.cleared = true
	return nil
}
