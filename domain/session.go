package domain

import "time"

// Session represents a conversation persisted by the backend. The backend
// creates it on the first message of a new conversation and assigns the
// identifier; the client only learns it from the chat response.
type Session struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	MessageCount  int       `json:"message_count"`
	WorkspacePath string    `json:"workspace_path,omitempty"`
	ActiveRepo    string    `json:"active_repo,omitempty"`
}

// User is the backend user profile returned on login/register and cached
// alongside the bearer token.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}
