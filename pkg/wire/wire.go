// Package wire holds the request/response shapes exchanged with seedd's
// thin HTTP/WS surface, kept separate from pkg/domain so the wire format
// can evolve (versioning, omitted fields, renamed keys) without touching
// the event-sourced read models it's built from. Grounded on the
// teacher's pkg/models convention of a dedicated wire-types package
// distinct from its internal domain types.
package wire

import (
	"time"

	"github.com/seed-run/seed/internal/interaction"
	"github.com/seed-run/seed/pkg/domain"
)

// Task is the wire shape of a task, trimmed from domain.Task to the
// fields a client needs to render a task list or detail view.
type Task struct {
	ID                   string         `json:"id"`
	RootTaskID           string         `json:"rootTaskId"`
	ParentTaskID         string         `json:"parentTaskId,omitempty"`
	ActorID              string         `json:"actorId"`
	AgentID              string         `json:"agentId"`
	Title                string         `json:"title"`
	Intent               string         `json:"intent,omitempty"`
	Priority             string         `json:"priority"`
	Status               string         `json:"status"`
	PendingInteractionID string         `json:"pendingInteractionId,omitempty"`
	Summary              string         `json:"summary,omitempty"`
	FailureReason        string         `json:"failureReason,omitempty"`
	Todos                []domain.Todo  `json:"todos,omitempty"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}

// FromTask converts a projected domain.Task into its wire shape.
func FromTask(t domain.Task) Task {
	return Task{
		ID: t.ID, RootTaskID: t.RootTaskID, ParentTaskID: t.ParentTaskID,
		ActorID: t.ActorID, AgentID: t.AgentID, Title: t.Title, Intent: t.Intent,
		Priority: string(t.Priority), Status: string(t.Status),
		PendingInteractionID: t.PendingInteractionID, Summary: t.Summary,
		FailureReason: t.FailureReason, Todos: t.Todos,
		CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	}
}

// ListTasksResponse answers GET /api/tasks.
type ListTasksResponse struct {
	Tasks []Task `json:"tasks"`
}

// CreateTaskRequest is the payload for POST /api/tasks.
type CreateTaskRequest struct {
	Title         string `json:"title"`
	Intent        string `json:"intent,omitempty"`
	Priority      string `json:"priority,omitempty"`
	AgentID       string `json:"agentId"`
	ParentTaskID  string `json:"parentTaskId,omitempty"`
	AuthorActorID string `json:"authorActorId"`
}

// CreateTaskResponse answers POST /api/tasks.
type CreateTaskResponse struct {
	TaskID string `json:"taskId"`
}

// ActorRequest carries the acting actor for commands that mutate a task but
// have no other body fields (cancel/pause/resume).
type ActorRequest struct {
	AuthorActorID string `json:"authorActorId"`
}

// AddInstructionRequest is the payload for POST /api/tasks/:id/instructions.
type AddInstructionRequest struct {
	Instruction   string `json:"instruction"`
	AuthorActorID string `json:"authorActorId"`
}

// Interaction is the wire shape of a pending approval/question.
type Interaction struct {
	ID         string                     `json:"id"`
	TaskID     string                     `json:"taskId"`
	Kind       string                     `json:"kind"`
	Purpose    string                     `json:"purpose"`
	Prompt     string                     `json:"prompt"`
	Options    []domain.InteractionOption `json:"options,omitempty"`
	ToolCallID string                     `json:"toolCallId,omitempty"`
	ToolName   string                     `json:"toolName,omitempty"`
	Status     string                     `json:"status"`
	Response   string                     `json:"response,omitempty"`
	Approved   *bool                      `json:"approved,omitempty"`
	CreatedAt  time.Time                  `json:"createdAt"`
	ResolvedAt *time.Time                 `json:"resolvedAt,omitempty"`
	Deadline   *time.Time                 `json:"deadline,omitempty"`
}

// FromInteraction converts a projected domain.PendingInteraction into its
// wire shape.
func FromInteraction(i domain.PendingInteraction) Interaction {
	return Interaction{
		ID: i.ID, TaskID: i.TaskID, Kind: string(i.Kind), Purpose: i.Purpose,
		Prompt: i.Prompt, Options: i.Options, ToolCallID: i.ToolCallID,
		ToolName: i.ToolName, Status: string(i.Status), Response: i.Response,
		Approved: i.Approved, CreatedAt: i.CreatedAt, ResolvedAt: i.ResolvedAt,
		Deadline: i.Deadline,
	}
}

// GetPendingInteractionResponse answers GET /api/tasks/:id/interaction.
// Found is false when the task has no outstanding interaction.
type GetPendingInteractionResponse struct {
	Found       bool        `json:"found"`
	Interaction Interaction `json:"interaction,omitempty"`
}

// RespondToInteractionRequest is the payload for
// POST /api/tasks/:id/interaction/:interactionId/respond.
type RespondToInteractionRequest struct {
	SelectedOptionID string `json:"selectedOptionId,omitempty"`
	InputValue       string `json:"inputValue,omitempty"`
}

// ToResponseSpec converts the wire request into the interaction package's
// command payload.
func (r RespondToInteractionRequest) ToResponseSpec() interaction.ResponseSpec {
	return interaction.ResponseSpec{SelectedOptionID: r.SelectedOptionID, InputValue: r.InputValue}
}

// Event is the wire shape of one event-log entry.
type Event struct {
	ID        int64          `json:"id"`
	Seq       int64          `json:"seq"`
	TaskID    string         `json:"taskId"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// FromEvent converts a domain.StoredEvent into its wire shape.
func FromEvent(e domain.StoredEvent) Event {
	return Event{ID: e.ID, Seq: e.Seq, TaskID: e.TaskID, Type: string(e.Type), Payload: e.Payload, CreatedAt: e.CreatedAt}
}

// GetEventsResponse answers GET /api/events?after=&taskId=.
type GetEventsResponse struct {
	Events []Event `json:"events"`
}

// AuditEntry is the wire shape of one audit-log entry.
type AuditEntry struct {
	ID         int64     `json:"id"`
	TaskID     string    `json:"taskId"`
	Type       string    `json:"type"`
	ToolCallID string    `json:"toolCallId"`
	ToolName   string    `json:"toolName,omitempty"`
	IsError    bool      `json:"isError,omitempty"`
	DurationMs int64     `json:"durationMs,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FromAuditEntry converts a domain.AuditEntry into its wire shape. Raw tool
// arguments/results are intentionally dropped: they may contain file
// contents or command output too large (or too sensitive) for a list view.
func FromAuditEntry(e domain.AuditEntry) AuditEntry {
	return AuditEntry{
		ID: e.ID, TaskID: e.TaskID, Type: string(e.Type), ToolCallID: e.ToolCallID,
		ToolName: e.ToolName, IsError: e.IsError, DurationMs: e.DurationMs, CreatedAt: e.CreatedAt,
	}
}

// GetAuditResponse answers GET /api/audit?taskId=&limit=.
type GetAuditResponse struct {
	Entries []AuditEntry `json:"entries"`
}

// RuntimeStatus answers GET /api/runtime: a snapshot of what's currently
// dispatched, for a status command or dashboard.
type RuntimeStatus struct {
	ActiveTaskIDs []string `json:"activeTaskIds"`
	QueuedTaskIDs []string `json:"queuedTaskIds"`
}

// ErrorResponse is the body of any non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}
