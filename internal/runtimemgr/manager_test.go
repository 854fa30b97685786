package runtimemgr

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/seed-run/seed/internal/agentprofile"
	"github.com/seed-run/seed/internal/audit"
	"github.com/seed-run/seed/internal/convo"
	"github.com/seed-run/seed/internal/eventlog"
	"github.com/seed-run/seed/internal/interaction"
	"github.com/seed-run/seed/internal/projection"
	"github.com/seed-run/seed/internal/runtime"
	"github.com/seed-run/seed/internal/tasks"
	"github.com/seed-run/seed/internal/tools"
	"github.com/seed-run/seed/internal/workspace"
	"github.com/seed-run/seed/pkg/domain"
)

type fakeProvider struct{ content string }

func (f *fakeProvider) Complete(ctx context.Context, req runtime.CompletionRequest, onDelta func(runtime.StreamDelta)) (runtime.CompletionResponse, error) {
	return runtime.CompletionResponse{Content: f.content}, nil
}

func newTestManager(t *testing.T) (*Manager, *tasks.Service, string) {
	t.Helper()
	dir := t.TempDir()

	log, err := eventlog.Open(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("open event log: %v", err)
	}
	convoLog, err := convo.Open(filepath.Join(dir, "conversations.jsonl"))
	if err != nil {
		t.Fatalf("open convo log: %v", err)
	}
	auditLog, err := audit.Open(filepath.Join(dir, "audit.jsonl"))
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	projStore, err := projection.OpenStore(filepath.Join(dir, "projections.jsonl"))
	if err != nil {
		t.Fatalf("open projection store: %v", err)
	}
	proj, err := projection.Open(log, projStore, tasks.ProjectionName, tasks.State{Tasks: map[string]domain.Task{}}, tasks.Reduce)
	if err != nil {
		t.Fatalf("open tasks projection: %v", err)
	}
	taskSvc := tasks.NewService(log, proj)
	interactionSvc := interaction.NewService(log)

	registry := tools.NewRegistry()
	resolver := workspace.New(filepath.Join(dir, "workspace"), taskSvc.HasDescendant)

	agents := agentprofile.NewRegistry()
	agents.Register(agentprofile.Profile{ID: "assistant", Provider: "fake", Model: "test-model", MaxIterations: 5})

	mgr := New(Config{
		EventLog:     log,
		ConvoLog:     convoLog,
		AuditLog:     auditLog,
		Tasks:        taskSvc,
		Interactions: interactionSvc,
		Agents:       agents,
		ToolRegistry: registry,
		ExecConfig:   tools.DefaultExecConfig(),
		Resolver:     resolver,
		Providers:    map[string]runtime.LLMProvider{"fake": &fakeProvider{content: "done"}},
	})

	taskID, err := taskSvc.CreateTask(context.Background(), tasks.CreateTaskInput{
		Title: "say hi", AgentID: "assistant", AuthorActorID: "user-1",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return mgr, taskSvc, taskID
}

func TestManagerSpawnsAndCompletesTask(t *testing.T) {
	mgr, taskSvc, taskID := newTestManager(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if task, ok := taskSvc.GetTask(taskID); ok && task.Status == domain.StatusDone {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task never completed")
}

func TestManagerSkipsUnknownAgent(t *testing.T) {
	mgr, taskSvc, _ := newTestManager(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	id, err := taskSvc.CreateTask(context.Background(), tasks.CreateTaskInput{
		Title: "orphan", AgentID: "no-such-agent", AuthorActorID: "user-1",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	task, ok := taskSvc.GetTask(id)
	if !ok {
		t.Fatalf("task not found")
	}
	if task.Status != domain.StatusOpen {
		t.Fatalf("status = %v, want open (never dispatched)", task.Status)
	}
}

func TestManagerRespectsConcurrencyCap(t *testing.T) {
	dir := t.TempDir()
	log, _ := eventlog.Open(filepath.Join(dir, "events.jsonl"))
	convoLog, _ := convo.Open(filepath.Join(dir, "conversations.jsonl"))
	auditLog, _ := audit.Open(filepath.Join(dir, "audit.jsonl"))
	projStore, _ := projection.OpenStore(filepath.Join(dir, "projections.jsonl"))
	proj, err := projection.Open(log, projStore, tasks.ProjectionName, tasks.State{Tasks: map[string]domain.Task{}}, tasks.Reduce)
	if err != nil {
		t.Fatalf("open projection: %v", err)
	}
	taskSvc := tasks.NewService(log, proj)
	interactionSvc := interaction.NewService(log)
	registry := tools.NewRegistry()
	resolver := workspace.New(filepath.Join(dir, "workspace"), taskSvc.HasDescendant)
	agents := agentprofile.NewRegistry()
	agents.Register(agentprofile.Profile{ID: "assistant", Provider: "fake", Model: "test-model"})

	blocker := &blockingProvider{release: make(chan struct{})}
	mgr := New(Config{
		EventLog: log, ConvoLog: convoLog, AuditLog: auditLog, Tasks: taskSvc,
		Interactions: interactionSvc, Agents: agents, ToolRegistry: registry,
		ExecConfig: tools.DefaultExecConfig(), Resolver: resolver,
		Providers:     map[string]runtime.LLMProvider{"fake": blocker},
		MaxConcurrent: 1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	idA, _ := taskSvc.CreateTask(context.Background(), tasks.CreateTaskInput{Title: "a", AgentID: "assistant"})
	idB, _ := taskSvc.CreateTask(context.Background(), tasks.CreateTaskInput{Title: "b", AgentID: "assistant"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ta, _ := taskSvc.GetTask(idA)
		tb, _ := taskSvc.GetTask(idB)
		if ta.Status == domain.StatusInProgress && tb.Status == domain.StatusOpen {
			close(blocker.release)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected exactly one task running under the concurrency cap")
}

func TestManagerStatusReportsActiveAndQueued(t *testing.T) {
	dir := t.TempDir()
	log, _ := eventlog.Open(filepath.Join(dir, "events.jsonl"))
	convoLog, _ := convo.Open(filepath.Join(dir, "conversations.jsonl"))
	auditLog, _ := audit.Open(filepath.Join(dir, "audit.jsonl"))
	projStore, _ := projection.OpenStore(filepath.Join(dir, "projections.jsonl"))
	proj, err := projection.Open(log, projStore, tasks.ProjectionName, tasks.State{Tasks: map[string]domain.Task{}}, tasks.Reduce)
	if err != nil {
		t.Fatalf("open projection: %v", err)
	}
	taskSvc := tasks.NewService(log, proj)
	interactionSvc := interaction.NewService(log)
	registry := tools.NewRegistry()
	resolver := workspace.New(filepath.Join(dir, "workspace"), taskSvc.HasDescendant)
	agents := agentprofile.NewRegistry()
	agents.Register(agentprofile.Profile{ID: "assistant", Provider: "fake", Model: "test-model"})

	blocker := &blockingProvider{release: make(chan struct{})}
	mgr := New(Config{
		EventLog: log, ConvoLog: convoLog, AuditLog: auditLog, Tasks: taskSvc,
		Interactions: interactionSvc, Agents: agents, ToolRegistry: registry,
		ExecConfig: tools.DefaultExecConfig(), Resolver: resolver,
		Providers:     map[string]runtime.LLMProvider{"fake": blocker},
		MaxConcurrent: 1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		close(blocker.release)
		mgr.Stop()
	}()

	idA, _ := taskSvc.CreateTask(context.Background(), tasks.CreateTaskInput{Title: "a", AgentID: "assistant"})
	idB, _ := taskSvc.CreateTask(context.Background(), tasks.CreateTaskInput{Title: "b", AgentID: "assistant"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		active, queued := mgr.Status()
		if len(active) == 1 && len(queued) == 1 {
			if active[0] != idA && active[0] != idB {
				t.Fatalf("active task id %q not one of the created tasks", active[0])
			}
			if queued[0] != idA && queued[0] != idB {
				t.Fatalf("queued task id %q not one of the created tasks", queued[0])
			}
			if active[0] == queued[0] {
				t.Fatalf("same task reported as both active and queued")
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected one active and one queued task under the concurrency cap")
}

type blockingProvider struct{ release chan struct{} }

func (b *blockingProvider) Complete(ctx context.Context, req runtime.CompletionRequest, onDelta func(runtime.StreamDelta)) (runtime.CompletionResponse, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
		return runtime.CompletionResponse{}, ctx.Err()
	}
	return runtime.CompletionResponse{Content: "done"}, nil
}
