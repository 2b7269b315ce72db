package domain

import "time"

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageLifecycle tracks the local lifecycle of an assistant placeholder.
// A message starts Resolved unless it was appended optimistically while a
// send is in flight; at most one Pending message exists at a time, and it is
// always the trailing message.
type MessageLifecycle int

const (
	LifecycleResolved MessageLifecycle = iota
	LifecyclePending
)

// Message is a single entry in a conversation. Ordering is positional:
// insertion order is the sole ordering key.
type Message struct {
	ID        string           `json:"id,omitempty"` // local identifier, not persisted
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp,omitempty"`
	ToolCalls []ToolCall       `json:"tool_calls,omitempty"`
	Lifecycle MessageLifecycle `json:"-"` // local only, never persisted
}

// Pending reports whether this message is a streaming placeholder
func (m Message) Pending() bool {
	return m.Lifecycle == LifecyclePending
}

// ToolCallStatus is the execution state of a single tool invocation
type ToolCallStatus string

const (
	ToolPending   ToolCallStatus = "pending"
	ToolRunning   ToolCallStatus = "running"
	ToolCompleted ToolCallStatus = "completed"
	ToolError     ToolCallStatus = "error"
)

// ToolCall records one tool invocation made by the assistant
type ToolCall struct {
	Name   string         `json:"name"`
	Input  map[string]any `json:"input,omitempty"`
	Output string         `json:"output,omitempty"`
	Status ToolCallStatus `json:"status,omitempty"`
}
