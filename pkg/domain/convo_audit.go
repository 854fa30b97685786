package domain

import (
	"encoding/json"
	"time"
)

// Role mirrors the provider message roles an LLMProvider exchanges.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is an assistant-emitted request to invoke a tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ConversationEntry is one append-only line of a task's conversation log:
// a message exchanged with the LLM, or a tool result folded back in.
type ConversationEntry struct {
	ID         int64      `json:"id"`
	TaskID     string     `json:"taskId"`
	Index      int64      `json:"index"` // monotonic within TaskID, starting at 0
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"` // set when Role == RoleTool
	IsError    bool       `json:"isError,omitempty"`
	// SourceEventID is set when this entry was synthesized from a domain
	// event (e.g. a TaskInstructionAdded folded in as a user message)
	// rather than produced by the LLM turn itself, so a runtime restart
	// can tell which events have already been injected without
	// re-reading LLM-authored content.
	SourceEventID int64     `json:"sourceEventId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AuditEventType is the closed set of audit-log entry kinds.
type AuditEventType string

const (
	AuditToolCallRequested AuditEventType = "ToolCallRequested"
	AuditToolCallCompleted AuditEventType = "ToolCallCompleted"
)

// AuditEntry records a tool invocation's lifecycle independently of the
// conversation log, so a crash mid-call can be reconciled against it during
// transcript repair.
type AuditEntry struct {
	ID         int64           `json:"id"`
	TaskID     string          `json:"taskId"`
	Type       AuditEventType  `json:"type"`
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName,omitempty"`
	Arguments  json.RawMessage `json:"arguments,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	IsError    bool            `json:"isError,omitempty"`
	DurationMs int64           `json:"durationMs,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// InteractionStatus tracks a UIP request's lifecycle.
type InteractionStatus string

const (
	InteractionPending  InteractionStatus = "pending"
	InteractionResolved InteractionStatus = "resolved"
	InteractionTimedOut InteractionStatus = "timed_out"
)

// InteractionKind distinguishes the shape of a UIP request. The runtime's
// risky-tool gate only ever issues InteractionConfirm; the others round out
// the protocol for future interaction types without a current producer.
type InteractionKind string

const (
	InteractionConfirm   InteractionKind = "confirm"
	InteractionSelect    InteractionKind = "select"
	InteractionInput     InteractionKind = "input"
	InteractionComposite InteractionKind = "composite"
)

// InteractionOption is one choice offered by a Confirm or Select
// interaction, e.g. {id: "approve", label: "Approve"}.
type InteractionOption struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Style     string `json:"style,omitempty"`
	IsDefault bool   `json:"isDefault,omitempty"`
}

// PendingInteraction is the projected read model for an outstanding UIP
// request.
type PendingInteraction struct {
	ID         string              `json:"id"`
	TaskID     string              `json:"taskId"`
	Kind       InteractionKind     `json:"kind"`
	Purpose    string              `json:"purpose"`
	Prompt     string              `json:"prompt"`
	Options    []InteractionOption `json:"options,omitempty"`
	ToolCallID string              `json:"toolCallId,omitempty"`
	ToolName   string              `json:"toolName,omitempty"`
	Status     InteractionStatus   `json:"status"`
	Response   string              `json:"response,omitempty"`
	Approved   *bool               `json:"approved,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
	ResolvedAt *time.Time          `json:"resolvedAt,omitempty"`
	Deadline   *time.Time          `json:"deadline,omitempty"`
}
