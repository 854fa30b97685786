package runtime

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/seed-run/seed/internal/audit"
	"github.com/seed-run/seed/internal/convo"
	"github.com/seed-run/seed/internal/eventlog"
	"github.com/seed-run/seed/internal/interaction"
	"github.com/seed-run/seed/internal/projection"
	"github.com/seed-run/seed/internal/tasks"
	"github.com/seed-run/seed/internal/tools"
	"github.com/seed-run/seed/internal/workspace"
	"github.com/seed-run/seed/pkg/domain"
)

// fakeProvider replays a scripted sequence of responses, one per Complete
// call, so tests can drive the loop deterministically without a real LLM.
type fakeProvider struct {
	responses []CompletionResponse
	calls     int
}

func (f *fakeProvider) Complete(ctx context.Context, req CompletionRequest, onDelta func(StreamDelta)) (CompletionResponse, error) {
	if f.calls >= len(f.responses) {
		return CompletionResponse{}, nil
	}
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

type echoTool struct{}

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "echoes its input" }
func (echoTool) Risk() tools.Risk    { return tools.RiskSafe }
func (echoTool) Schema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{"text": map[string]any{"type": "string"}}}
}
func (echoTool) Execute(ctx context.Context, taskID string, args json.RawMessage) tools.Result {
	return tools.Result{Content: string(args)}
}

func newTestHarness(t *testing.T) (*Runtime, *tasks.Service, *fakeProvider) {
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

	registry := tools.NewRegistry()
	if err := registry.Register(echoTool{}); err != nil {
		t.Fatalf("register tool: %v", err)
	}
	executor := tools.NewExecutor(registry, tools.DefaultExecConfig(), nil, tools.Lifecycle{})

	resolver := workspace.New(filepath.Join(dir, "workspace"), taskSvc.HasDescendant)

	provider := &fakeProvider{}

	taskID, err := taskSvc.CreateTask(context.Background(), tasks.CreateTaskInput{
		Title: "say hi", AgentID: "assistant", AuthorActorID: "user-1",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	rt := New(Config{
		TaskID:        taskID,
		AgentID:       "assistant",
		WorkspaceRoot: filepath.Join(dir, "workspace"),
		Provider:      provider,
		EventLog:      log,
		ConvoLog:      convoLog,
		AuditLog:      auditLog,
		Tasks:         taskSvc,
		ToolRegistry:  registry,
		Executor:      executor,
		Resolver:      resolver,
	})
	return rt, taskSvc, provider
}

func TestRunCompletesWithoutToolCalls(t *testing.T) {
	rt, taskSvc, provider := newTestHarness(t)
	provider.responses = []CompletionResponse{{Content: "done talking"}}

	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	task, ok := taskSvc.GetTask(rt.cfg.TaskID)
	if !ok {
		t.Fatalf("task not found")
	}
	if task.Status != domain.StatusDone {
		t.Fatalf("status = %v, want done", task.Status)
	}
	if task.Summary != "done talking" {
		t.Fatalf("summary = %q", task.Summary)
	}
}

func TestRunExecutesSafeToolThenCompletes(t *testing.T) {
	rt, taskSvc, provider := newTestHarness(t)
	provider.responses = []CompletionResponse{
		{ToolCalls: []domain.ToolCall{{ID: "call-1", Name: "echo", Arguments: json.RawMessage(`{"text":"hi"}`)}}},
		{Content: "all done"},
	}

	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	task, _ := taskSvc.GetTask(rt.cfg.TaskID)
	if task.Status != domain.StatusDone {
		t.Fatalf("status = %v, want done", task.Status)
	}

	history, err := rt.cfg.ConvoLog.History(context.Background(), rt.cfg.TaskID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var sawToolResult bool
	for _, e := range history {
		if e.Role == domain.RoleTool && e.ToolCallID == "call-1" {
			sawToolResult = true
		}
	}
	if !sawToolResult {
		t.Fatalf("expected a persisted tool result for call-1")
	}
}

func TestRunUnknownToolSynthesizesError(t *testing.T) {
	rt, taskSvc, provider := newTestHarness(t)
	provider.responses = []CompletionResponse{
		{ToolCalls: []domain.ToolCall{{ID: "call-1", Name: "does-not-exist", Arguments: json.RawMessage(`{}`)}}},
		{Content: "recovered"},
	}

	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	task, _ := taskSvc.GetTask(rt.cfg.TaskID)
	if task.Status != domain.StatusDone {
		t.Fatalf("status = %v, want done", task.Status)
	}
}

func TestRunRiskyToolWaitsForApproval(t *testing.T) {
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
	riskyTool := riskyEchoTool{}
	if err := registry.Register(riskyTool); err != nil {
		t.Fatalf("register: %v", err)
	}
	gate := &ApprovalGate{Interactions: interactionSvc}
	executor := tools.NewExecutor(registry, tools.DefaultExecConfig(), gate.Check, tools.Lifecycle{})
	resolver := workspace.New(filepath.Join(dir, "workspace"), taskSvc.HasDescendant)

	taskID, err := taskSvc.CreateTask(context.Background(), tasks.CreateTaskInput{Title: "delete things", AgentID: "assistant"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	provider := &fakeProvider{responses: []CompletionResponse{
		{ToolCalls: []domain.ToolCall{{ID: "call-1", Name: "rm", Arguments: json.RawMessage(`{}`)}}},
		{Content: "cleaned up"},
	}}

	rt := New(Config{
		TaskID: taskID, AgentID: "assistant", WorkspaceRoot: filepath.Join(dir, "workspace"),
		Provider: provider, EventLog: log, ConvoLog: convoLog, AuditLog: auditLog,
		Tasks: taskSvc, ToolRegistry: registry, Executor: executor, Resolver: resolver,
	})

	done := make(chan error, 1)
	go func() { done <- rt.Run(context.Background()) }()

	var pendingID string
	for i := 0; i < 200; i++ {
		if pi, ok, _ := interactionSvc.GetPendingInteraction(context.Background(), taskID); ok {
			pendingID = pi.ID
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if pendingID == "" {
		t.Fatalf("expected a pending interaction for the risky call")
	}

	if err := interactionSvc.RespondToInteraction(context.Background(), taskID, pendingID, interaction.ResponseSpec{SelectedOptionID: "approve"}); err != nil {
		t.Fatalf("respond: %v", err)
	}

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	task, _ := taskSvc.GetTask(taskID)
	if task.Status != domain.StatusDone {
		t.Fatalf("status = %v, want done", task.Status)
	}
}

type riskyEchoTool struct{}

func (riskyEchoTool) Name() string                     { return "rm" }
func (riskyEchoTool) Description() string              { return "deletes things" }
func (riskyEchoTool) Risk() tools.Risk                 { return tools.RiskRisky }
func (riskyEchoTool) Schema() map[string]any           { return map[string]any{"type": "object"} }
func (riskyEchoTool) Execute(ctx context.Context, taskID string, args json.RawMessage) tools.Result {
	return tools.Result{Content: "removed"}
}
