package domain

import "time"

// Status is a Task's position in the state machine: open -> in_progress ->
// awaiting_user -> done|failed|canceled, with an additional paused/resumed
// cycle available from in_progress. in_progress, awaiting_user and paused
// can cycle any number of times before a terminal state is reached.
type Status string

const (
	StatusOpen         Status = "open"
	StatusInProgress   Status = "in_progress"
	StatusAwaitingUser Status = "awaiting_user"
	StatusPaused       Status = "paused"
	StatusDone         Status = "done"
	StatusFailed       Status = "failed"
	StatusCanceled     Status = "canceled"
)

// Terminal reports whether s is one of the state machine's end states.
func (s Status) Terminal() bool {
	switch s {
	case StatusDone, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// Priority is a task's scheduling hint; the runtime manager does not yet
// use it to reorder dispatch but it is carried through the projection.
type Priority string

const (
	PriorityForeground Priority = "foreground"
	PriorityNormal     Priority = "normal"
	PriorityBackground Priority = "background"
)

// Todo is one entry of a task's self-maintained checklist, updated via
// TaskTodoUpdated events.
type Todo struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Done   bool   `json:"done"`
}

// Task is the projected read model for a unit of agent work. It is never
// written directly; it is folded from the event log by the tasks
// projection.
type Task struct {
	ID                   string    `json:"id"`
	RootTaskID           string    `json:"rootTaskId"`
	ParentTaskID         string    `json:"parentTaskId,omitempty"`
	ActorID              string    `json:"actorId"`
	AgentID              string    `json:"agentId"`
	Title                string    `json:"title"`
	Intent               string    `json:"intent,omitempty"`
	Priority             Priority  `json:"priority"`
	Status               Status    `json:"status"`
	PendingInteractionID string    `json:"pendingInteractionId,omitempty"`
	Summary              string    `json:"summary,omitempty"`
	FailureReason        string    `json:"failureReason,omitempty"`
	Todos                []Todo    `json:"todos,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// Actor identifies who (or what) initiated a task: a human user or another
// agent acting as a sub-task's parent.
type Actor struct {
	ID   string `json:"id"`
	Kind string `json:"kind"` // "user" | "agent"
	Name string `json:"name,omitempty"`
}
