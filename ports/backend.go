package ports

import (
	"context"

	"parley/api"
	"parley/domain"
)

// ChatSender issues chat turns
type ChatSender interface {
	SendChat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
}

// SessionReader lists sessions and fetches message history
type SessionReader interface {
	ListSessions(ctx context.Context) ([]domain.Session, error)
	History(ctx context.Context, id string) ([]domain.Message, error)
}

// SessionWriter deletes sessions server-side
type SessionWriter interface {
	DeleteSession(ctx context.Context, id string) error
}

// ProgressReader fetches the progress record for a session
type ProgressReader interface {
	Progress(ctx context.Context, id string) (*domain.Progress, error)
}

// WorkspaceReader lists generated workspace artifacts
type WorkspaceReader interface {
	Visualizations(ctx context.Context, id string) (*api.WorkspaceFiles, error)
}

// Pinger probes backend reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// Backend is the composite interface the chat service works against
type Backend interface {
	ChatSender
	SessionReader
	SessionWriter
	ProgressReader
	WorkspaceReader
	Pinger
}

// SessionCache is the local persistent cache of the backend session list
type SessionCache interface {
	List(ctx context.Context) ([]domain.Session, error)
	ReplaceAll(ctx context.Context, sessions []domain.Session) error
	Remove(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// TokenChecker gates network calls on the presence of a cached bearer token
type TokenChecker interface {
	HasToken() bool
}
