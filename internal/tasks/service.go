package tasks

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/seed-run/seed/internal/eventlog"
	"github.com/seed-run/seed/pkg/domain"
)

// CreateTaskInput is the command payload for Service.CreateTask.
type CreateTaskInput struct {
	Title         string
	Intent        string
	Priority      domain.Priority
	AgentID       string
	ParentTaskID  string
	AuthorActorID string
}

// Service is a pure command-to-event translator over the event log, plus
// read access to the tasks projection. It never mutates task state
// directly — every write appends exactly one event batch and lets the
// Projection Engine derive the read model.
type Service struct {
	log  *eventlog.Log
	proj *Projection
}

// NewService wires a Service to the given log and an already-open tasks
// projection (see projection.Open with Reduce as the fold).
func NewService(log *eventlog.Log, proj *Projection) *Service {
	return &Service{log: log, proj: proj}
}

// CreateTask appends TaskCreated and returns the new task's ID.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (string, error) {
	if in.Title == "" {
		return "", domain.Wrap(domain.ErrValidation, "title is required", nil)
	}
	if in.Priority == "" {
		in.Priority = domain.PriorityNormal
	}
	taskID := uuid.NewString()

	payload := map[string]any{
		"taskId":        taskID,
		"title":         in.Title,
		"priority":      string(in.Priority),
		"agentId":       in.AgentID,
		"authorActorId": in.AuthorActorID,
	}
	if in.Intent != "" {
		payload["intent"] = in.Intent
	}
	if in.ParentTaskID != "" {
		payload["parentTaskId"] = in.ParentTaskID
	}

	if _, err := s.log.Append(ctx, domain.DomainEvent{TaskID: taskID, Type: domain.EventTaskCreated, Payload: payload}); err != nil {
		return "", err
	}
	return taskID, nil
}

// MarkStarted appends TaskStarted. Called by the runtime's Run when it
// starts driving a newly created task.
func (s *Service) MarkStarted(ctx context.Context, taskID, authorActorID string) error {
	_, err := s.log.Append(ctx, domain.DomainEvent{
		TaskID: taskID, Type: domain.EventTaskStarted,
		Payload: map[string]any{"authorActorId": authorActorID},
	})
	return err
}

// AddInstruction appends TaskInstructionAdded; the runtime folds it into
// the conversation as a user message on its next loop iteration.
func (s *Service) AddInstruction(ctx context.Context, taskID, instruction, authorActorID string) error {
	t, ok := s.GetTask(taskID)
	if !ok {
		return domain.Wrap(domain.ErrNotFound, fmt.Sprintf("task %q", taskID), nil)
	}
	if t.Status.Terminal() {
		return domain.Wrap(domain.ErrConflict, "task is already terminal", nil)
	}
	_, err := s.log.Append(ctx, domain.DomainEvent{
		TaskID: taskID, Type: domain.EventTaskInstructionAdded,
		Payload: map[string]any{"instruction": instruction, "authorActorId": authorActorID},
	})
	return err
}

// PauseTask appends TaskPaused for an in_progress task.
func (s *Service) PauseTask(ctx context.Context, taskID, authorActorID string) error {
	t, ok := s.GetTask(taskID)
	if !ok {
		return domain.Wrap(domain.ErrNotFound, fmt.Sprintf("task %q", taskID), nil)
	}
	if t.Status != domain.StatusInProgress {
		return domain.Wrap(domain.ErrConflict, "task is not in_progress", nil)
	}
	_, err := s.log.Append(ctx, domain.DomainEvent{
		TaskID: taskID, Type: domain.EventTaskPaused,
		Payload: map[string]any{"authorActorId": authorActorID},
	})
	return err
}

// ResumeTask appends TaskResumed for a paused task.
func (s *Service) ResumeTask(ctx context.Context, taskID, authorActorID string) error {
	t, ok := s.GetTask(taskID)
	if !ok {
		return domain.Wrap(domain.ErrNotFound, fmt.Sprintf("task %q", taskID), nil)
	}
	if t.Status != domain.StatusPaused {
		return domain.Wrap(domain.ErrConflict, "task is not paused", nil)
	}
	_, err := s.log.Append(ctx, domain.DomainEvent{
		TaskID: taskID, Type: domain.EventTaskResumed,
		Payload: map[string]any{"authorActorId": authorActorID},
	})
	return err
}

// CancelTask appends TaskCanceled for any non-terminal task.
func (s *Service) CancelTask(ctx context.Context, taskID, authorActorID string) error {
	t, ok := s.GetTask(taskID)
	if !ok {
		return domain.Wrap(domain.ErrNotFound, fmt.Sprintf("task %q", taskID), nil)
	}
	if t.Status.Terminal() {
		return domain.Wrap(domain.ErrConflict, "task is already terminal", nil)
	}
	_, err := s.log.Append(ctx, domain.DomainEvent{
		TaskID: taskID, Type: domain.EventTaskCanceled,
		Payload: map[string]any{"authorActorId": authorActorID},
	})
	return err
}

// SetTodos appends TaskTodoUpdated with the task's full checklist.
func (s *Service) SetTodos(ctx context.Context, taskID string, todos []domain.Todo, authorActorID string) error {
	if _, ok := s.GetTask(taskID); !ok {
		return domain.Wrap(domain.ErrNotFound, fmt.Sprintf("task %q", taskID), nil)
	}
	raw := make([]any, 0, len(todos))
	for _, t := range todos {
		raw = append(raw, map[string]any{"id": t.ID, "text": t.Text, "done": t.Done})
	}
	_, err := s.log.Append(ctx, domain.DomainEvent{
		TaskID: taskID, Type: domain.EventTaskTodoUpdated,
		Payload: map[string]any{"todos": raw, "authorActorId": authorActorID},
	})
	return err
}

// ListTasks returns every task in the current projection snapshot.
func (s *Service) ListTasks() []domain.Task {
	state := s.proj.State()
	out := make([]domain.Task, 0, len(state.Tasks))
	for _, t := range state.Tasks {
		out = append(out, t)
	}
	return out
}

// GetTask returns a single task by ID from the current projection
// snapshot.
func (s *Service) GetTask(taskID string) (domain.Task, bool) {
	state := s.proj.State()
	t, ok := state.Tasks[taskID]
	return t, ok
}

// RootTaskID returns taskID's root ancestor, or taskID itself if it has
// none, used by the workspace resolver to compute shared:/ roots.
func (s *Service) RootTaskID(taskID string) string {
	t, ok := s.GetTask(taskID)
	if !ok {
		return taskID
	}
	return t.RootTaskID
}

// HasDescendant reports whether any task in the projection has rootTaskID
// as its root and is not rootTaskID itself, used to gate shared:/ access.
func (s *Service) HasDescendant(rootTaskID string) bool {
	state := s.proj.State()
	for id, t := range state.Tasks {
		if id != rootTaskID && t.RootTaskID == rootTaskID {
			return true
		}
	}
	return false
}
