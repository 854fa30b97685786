package domain

import "time"

// EventType is the closed set of domain event variants the event log can
// carry. Keeping this a hand-written enum (rather than reflecting over a
// registered type map) keeps every variant listed in one place; a reducer's
// switch handles the variants it cares about and ignores the rest.
type EventType string

const (
	EventTaskCreated              EventType = "TaskCreated"
	EventTaskStarted              EventType = "TaskStarted"
	EventTaskPaused               EventType = "TaskPaused"
	EventTaskResumed              EventType = "TaskResumed"
	EventTaskCompleted            EventType = "TaskCompleted"
	EventTaskFailed               EventType = "TaskFailed"
	EventTaskCanceled             EventType = "TaskCanceled"
	EventTaskInstructionAdded     EventType = "TaskInstructionAdded"
	EventTaskTodoUpdated          EventType = "TaskTodoUpdated"
	EventAgentPlanPosted          EventType = "AgentPlanPosted"
	EventUserInteractionRequested EventType = "UserInteractionRequested"
	EventUserInteractionResponded EventType = "UserInteractionResponded"
	EventUserFeedbackPosted       EventType = "UserFeedbackPosted"
)

// DomainEvent is the payload half of a log entry, as produced by a command
// handler before the log assigns it an id/seq/timestamp.
type DomainEvent struct {
	TaskID  string         `json:"taskId"`
	Type    EventType      `json:"type"`
	Payload map[string]any `json:"payload"`
}

// StoredEvent is a DomainEvent after the log has accepted it: globally
// ordered by ID, and ordered per-stream (TaskID) by Seq starting at 1.
type StoredEvent struct {
	ID        int64          `json:"id"`
	Seq       int64          `json:"seq"`
	TaskID    string         `json:"taskId"`
	Type      EventType      `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Stream returns the key StoredEvent.Seq is monotonic within: one stream
// per task.
func (e StoredEvent) Stream() string { return e.TaskID }
