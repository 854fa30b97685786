// Package tasks implements the task command surface and the projected
// read model derived from the event log, adapted from the teacher's
// jobs.Store lifecycle bookkeeping into an event-sourced projection
// instead of a row store mutated directly.
package tasks

import (
	"github.com/seed-run/seed/internal/projection"
	"github.com/seed-run/seed/pkg/domain"
)

// State is the tasks projection's folded read model: every task ever
// created, keyed by ID, plus the most recently created task's ID.
type State struct {
	Tasks          map[string]domain.Task `json:"tasks"`
	CurrentTaskID  string                 `json:"currentTaskId,omitempty"`
}

func zeroState() State {
	return State{Tasks: make(map[string]domain.Task)}
}

// ProjectionName is the row key this projection is stored under in
// state/projections.jsonl.
const ProjectionName = "tasks"

// Reduce folds one event into the tasks state. It never panics and never
// returns an error: an event referencing an unknown task ID for a
// non-creation event is ignored, matching the spec's requirement that a
// poisoned or out-of-order event never halt the tasks view.
func Reduce(state State, evt domain.StoredEvent) State {
	if state.Tasks == nil {
		state.Tasks = make(map[string]domain.Task)
	}

	switch evt.Type {
	case domain.EventTaskCreated:
		t := domain.Task{
			ID:         evt.TaskID,
			RootTaskID: evt.TaskID,
			Status:     domain.StatusOpen,
			Priority:   domain.PriorityNormal,
			CreatedAt:  evt.CreatedAt,
			UpdatedAt:  evt.CreatedAt,
		}
		if v, ok := evt.Payload["title"].(string); ok {
			t.Title = v
		}
		if v, ok := evt.Payload["intent"].(string); ok {
			t.Intent = v
		}
		if v, ok := evt.Payload["priority"].(string); ok && v != "" {
			t.Priority = domain.Priority(v)
		}
		if v, ok := evt.Payload["agentId"].(string); ok {
			t.AgentID = v
		}
		if v, ok := evt.Payload["authorActorId"].(string); ok {
			t.ActorID = v
		}
		if v, ok := evt.Payload["parentTaskId"].(string); ok && v != "" {
			t.ParentTaskID = v
			if parent, exists := state.Tasks[v]; exists {
				t.RootTaskID = parent.RootTaskID
			}
		}
		state.Tasks[t.ID] = t
		state.CurrentTaskID = t.ID

	case domain.EventTaskStarted:
		withTask(state, evt, func(t domain.Task) domain.Task {
			t.Status = domain.StatusInProgress
			return t
		})

	case domain.EventUserInteractionRequested:
		withTask(state, evt, func(t domain.Task) domain.Task {
			t.Status = domain.StatusAwaitingUser
			if v, ok := evt.Payload["interactionId"].(string); ok {
				t.PendingInteractionID = v
			}
			return t
		})

	case domain.EventUserInteractionResponded:
		withTask(state, evt, func(t domain.Task) domain.Task {
			if t.Status == domain.StatusAwaitingUser {
				t.Status = domain.StatusInProgress
			}
			t.PendingInteractionID = ""
			return t
		})

	case domain.EventTaskPaused:
		withTask(state, evt, func(t domain.Task) domain.Task {
			t.Status = domain.StatusPaused
			return t
		})

	case domain.EventTaskResumed:
		withTask(state, evt, func(t domain.Task) domain.Task {
			t.Status = domain.StatusInProgress
			return t
		})

	case domain.EventTaskCompleted:
		withTask(state, evt, func(t domain.Task) domain.Task {
			t.Status = domain.StatusDone
			if v, ok := evt.Payload["summary"].(string); ok {
				t.Summary = v
			}
			return t
		})

	case domain.EventTaskFailed:
		withTask(state, evt, func(t domain.Task) domain.Task {
			t.Status = domain.StatusFailed
			if v, ok := evt.Payload["reason"].(string); ok {
				t.FailureReason = v
			}
			return t
		})

	case domain.EventTaskCanceled:
		withTask(state, evt, func(t domain.Task) domain.Task {
			t.Status = domain.StatusCanceled
			return t
		})

	case domain.EventTaskTodoUpdated:
		withTask(state, evt, func(t domain.Task) domain.Task {
			if raw, ok := evt.Payload["todos"].([]any); ok {
				todos := make([]domain.Todo, 0, len(raw))
				for _, item := range raw {
					m, ok := item.(map[string]any)
					if !ok {
						continue
					}
					todo := domain.Todo{}
					if id, ok := m["id"].(string); ok {
						todo.ID = id
					}
					if text, ok := m["text"].(string); ok {
						todo.Text = text
					}
					if done, ok := m["done"].(bool); ok {
						todo.Done = done
					}
					todos = append(todos, todo)
				}
				t.Todos = todos
			}
			return t
		})
	}

	return state
}

func withTask(state State, evt domain.StoredEvent, fn func(domain.Task) domain.Task) {
	t, ok := state.Tasks[evt.TaskID]
	if !ok {
		return
	}
	t = fn(t)
	t.UpdatedAt = evt.CreatedAt
	state.Tasks[evt.TaskID] = t
}

// Projection is the concrete Go-generic Projection instantiated for
// tasks state.
type Projection = projection.Projection[State]
