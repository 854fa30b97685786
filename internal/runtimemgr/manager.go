// Package runtimemgr owns the lifecycle of per-task agent runtimes,
// grounded on the teacher's managers.RuntimeManager shape (a
// mutex-guarded component with Start/Stop and a provider table) but
// reworked from "one runtime shared process-wide" into "one runtime
// goroutine spawned and torn down per task" to match the concurrency
// model's one-driver-task-per-taskId rule.
package runtimemgr

import (
	"context"
	"sync"
	"syscall"
	"time"

	"github.com/seed-run/seed/internal/agentprofile"
	"github.com/seed-run/seed/internal/audit"
	"github.com/seed-run/seed/internal/convo"
	"github.com/seed-run/seed/internal/eventlog"
	"github.com/seed-run/seed/internal/interaction"
	"github.com/seed-run/seed/internal/observability"
	"github.com/seed-run/seed/internal/processtracker"
	"github.com/seed-run/seed/internal/runtime"
	"github.com/seed-run/seed/internal/tasks"
	"github.com/seed-run/seed/internal/tools"
	"github.com/seed-run/seed/internal/uibus"
	"github.com/seed-run/seed/internal/workspace"
	"github.com/seed-run/seed/pkg/domain"
)

// Config wires a Manager to the services it dispatches between.
type Config struct {
	EventLog     *eventlog.Log
	ConvoLog     *convo.Log
	AuditLog     *audit.Log
	Tasks        *tasks.Service
	Interactions *interaction.Service
	Agents       *agentprofile.Registry
	ToolRegistry *tools.Registry
	ExecConfig   tools.ExecConfig
	Resolver     *workspace.Resolver
	Bus          *uibus.Bus
	Logger       *observability.Logger
	Metrics      *observability.Metrics
	Tracker      *processtracker.Tracker

	// Providers maps an agentprofile.Profile's Provider field (e.g.
	// "anthropic") to the LLMProvider that serves it.
	Providers map[string]runtime.LLMProvider

	// MaxConcurrent bounds how many task runtimes run at once; 0 means
	// unbounded. Tasks beyond the cap queue in FIFO order.
	MaxConcurrent int

	// ApprovalDeadline is forwarded to the shared ApprovalGate; 0 waits
	// indefinitely for a human response.
	ApprovalDeadline time.Duration
}

// Manager spawns a runtime.Runtime per active task, tears it down on a
// terminal or paused status, and enforces a concurrency cap by queuing
// the rest.
type Manager struct {
	cfg Config

	executor *tools.Executor
	gate     *runtime.ApprovalGate

	mu       sync.Mutex
	baseCtx  context.Context
	active   map[string]context.CancelFunc
	queue    []string
	unsub    func()
	stopped  bool
}

// New builds a Manager. It does not start consuming events until Start is
// called.
func New(cfg Config) *Manager {
	gate := &runtime.ApprovalGate{Interactions: cfg.Interactions, Deadline: cfg.ApprovalDeadline}
	executor := tools.NewExecutor(cfg.ToolRegistry, cfg.ExecConfig, gate.Check, tools.Lifecycle{
		Requested: func(taskID string, call tools.Call) {
			if cfg.AuditLog == nil {
				return
			}
			_, _ = cfg.AuditLog.Append(context.Background(), domain.AuditEntry{
				TaskID: taskID, Type: domain.AuditToolCallRequested,
				ToolCallID: call.ID, ToolName: call.Name, Arguments: call.Arguments,
			})
		},
		Completed: func(taskID string, call tools.Call, result tools.Result, duration time.Duration) {
			if cfg.AuditLog == nil {
				return
			}
			_, _ = cfg.AuditLog.Append(context.Background(), domain.AuditEntry{
				TaskID: taskID, Type: domain.AuditToolCallCompleted,
				ToolCallID: call.ID, ToolName: call.Name,
				Result: []byte(result.Content), IsError: result.IsError,
				DurationMs: duration.Milliseconds(),
			})
		},
	})

	return &Manager{
		cfg:      cfg,
		executor: executor,
		gate:     gate,
		active:   make(map[string]context.CancelFunc),
	}
}

// Start subscribes to the event log and resumes any task left
// open/in_progress/awaiting_user by a prior process, then begins
// dispatching new TaskCreated/TaskResumed events live. ctx's lifetime
// bounds every runtime this Manager spawns.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	m.baseCtx = ctx
	m.mu.Unlock()

	m.unsub = m.cfg.EventLog.Subscribe(m.onEvent)

	for _, t := range m.cfg.Tasks.ListTasks() {
		if t.Status.Terminal() || t.Status == domain.StatusPaused {
			continue
		}
		m.considerSpawn(t.ID)
	}
	return nil
}

// Status returns the task ids currently dispatched and the ids waiting on
// the concurrency cap, for a status command or dashboard.
func (m *Manager) Status() (active []string, queued []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	active = make([]string, 0, len(m.active))
	for id := range m.active {
		active = append(active, id)
	}
	queued = append(queued, m.queue...)
	return active, queued
}

// Stop unsubscribes from the event log, cancels every running task's
// context, and kills any background processes they started.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	if m.unsub != nil {
		m.unsub()
	}
	ids := make([]string, 0, len(m.active))
	for id, cancel := range m.active {
		ids = append(ids, id)
		cancel()
	}
	m.mu.Unlock()

	for _, id := range ids {
		if m.cfg.Tracker != nil {
			m.cfg.Tracker.KillForTask(id, syscall.SIGTERM)
		}
	}
}

// onEvent is the event log's Subscribe callback: it must not block, so it
// only ever takes a short-held lock and spawns goroutines for real work.
func (m *Manager) onEvent(e domain.StoredEvent) {
	switch e.Type {
	case domain.EventTaskCreated, domain.EventTaskResumed:
		m.considerSpawn(e.TaskID)
	case domain.EventTaskPaused, domain.EventTaskCompleted, domain.EventTaskFailed, domain.EventTaskCanceled:
		m.teardown(e.TaskID)
	case domain.EventUserInteractionResponded:
		// No action needed: ApprovalGate.Check's WaitForResponse polls
		// the interaction service directly, so the paused runtime
		// observes the response on its own without the manager waking it.
	}
}

// considerSpawn starts a runtime for taskID unless one is already
// running, the task names no registered agent, or the concurrency cap is
// reached (in which case it queues).
func (m *Manager) considerSpawn(taskID string) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	if _, running := m.active[taskID]; running {
		m.mu.Unlock()
		return
	}

	task, ok := m.cfg.Tasks.GetTask(taskID)
	if !ok {
		m.mu.Unlock()
		return
	}
	profile, ok := m.cfg.Agents.Get(task.AgentID)
	if !ok {
		m.mu.Unlock()
		m.log().Error("no registered agent for task", "task_id", taskID, "agent_id", task.AgentID)
		return
	}

	if m.cfg.MaxConcurrent > 0 && len(m.active) >= m.cfg.MaxConcurrent {
		m.queue = append(m.queue, taskID)
		m.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(m.baseCtx)
	m.active[taskID] = cancel
	m.mu.Unlock()

	if m.cfg.Metrics != nil {
		m.cfg.Metrics.ActiveRuntimes.Inc()
	}
	go m.run(ctx, taskID, profile)
}

func (m *Manager) run(ctx context.Context, taskID string, profile agentprofile.Profile) {
	defer m.teardown(taskID)

	provider, ok := m.cfg.Providers[profile.Provider]
	if !ok {
		m.log().Error("no provider registered", "task_id", taskID, "provider", profile.Provider)
		return
	}

	rt := runtime.New(runtime.Config{
		TaskID:         taskID,
		AgentID:        profile.ID,
		Model:          profile.Model,
		SystemPreamble: profile.SystemPromptPreamble,
		MaxIterations:  profile.MaxIterations,
		WorkspaceRoot:  m.cfg.Resolver.WorkspaceRoot,
		Provider:       provider,
		EventLog:       m.cfg.EventLog,
		ConvoLog:       m.cfg.ConvoLog,
		AuditLog:       m.cfg.AuditLog,
		Tasks:          m.cfg.Tasks,
		ToolRegistry:   m.cfg.ToolRegistry,
		Executor:       m.executor,
		Resolver:       m.cfg.Resolver,
		Bus:            m.cfg.Bus,
		Logger:         m.cfg.Logger,
		Metrics:        m.cfg.Metrics,
	})

	if err := rt.Run(ctx); err != nil && ctx.Err() == nil {
		m.log().Error("runtime exited with error", "task_id", taskID, "error", err)
	}
}

// teardown removes taskID from the active set, cancels its context (a
// no-op if it already exited on its own), and advances the queue. It is
// safe to call more than once for the same taskID.
func (m *Manager) teardown(taskID string) {
	m.mu.Lock()
	cancel, ok := m.active[taskID]
	if ok {
		delete(m.active, taskID)
	}
	var next string
	if ok && len(m.queue) > 0 {
		next = m.queue[0]
		m.queue = m.queue[1:]
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	cancel()
	if m.cfg.Tracker != nil {
		m.cfg.Tracker.KillForTask(taskID, syscall.SIGTERM)
	}
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.ActiveRuntimes.Dec()
	}
	if next != "" {
		m.considerSpawn(next)
	}
}

func (m *Manager) log() *observability.Logger {
	if m.cfg.Logger != nil {
		return m.cfg.Logger
	}
	return observability.NewLogger(observability.LogConfig{})
}
