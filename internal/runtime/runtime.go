// Package runtime implements the Agent Runtime: the per-task state
// machine that drives an LLM-in-the-loop from open to a terminal status,
// grounded on the teacher's AgenticLoop/Runtime LLM-in-the-loop structure
// but reworked into an explicit, step-based driver with no async
// generator, per the REDESIGN FLAGS note that a goroutine-per-task can
// simply block at its three suspension points (awaiting an LLM response,
// awaiting a tool result, awaiting a UIP response) instead of yielding
// through a channel of chunks.
package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/seed-run/seed/internal/audit"
	"github.com/seed-run/seed/internal/convo"
	"github.com/seed-run/seed/internal/eventlog"
	"github.com/seed-run/seed/internal/observability"
	"github.com/seed-run/seed/internal/tasks"
	"github.com/seed-run/seed/internal/tools"
	"github.com/seed-run/seed/internal/uibus"
	"github.com/seed-run/seed/internal/workspace"
	"github.com/seed-run/seed/pkg/domain"
)

// DefaultMaxIterations bounds a single task's loop absent an
// agentprofile.Profile override.
const DefaultMaxIterations = 50

// Config wires one Runtime to its dependencies. Everything here except
// TaskID/AgentID/SystemPreamble/MaxIterations is shared across every
// task's Runtime instance.
type Config struct {
	TaskID           string
	AgentID          string
	Model            string
	SystemPreamble   string
	MaxIterations    int
	WorkspaceRoot    string

	Provider     LLMProvider
	EventLog     *eventlog.Log
	ConvoLog     *convo.Log
	AuditLog     *audit.Log
	Tasks        *tasks.Service
	ToolRegistry *tools.Registry
	Executor     *tools.Executor
	Resolver     *workspace.Resolver
	Bus          *uibus.Bus
	Logger       *observability.Logger
	Metrics      *observability.Metrics
}

// Runtime drives a single task's conversation with an LLM to completion.
// One Runtime is constructed per active task and its Run method occupies
// one goroutine for the task's lifetime, per the concurrency model's "one
// driver task per active taskId" rule.
type Runtime struct {
	cfg Config

	// lastInjectedEventID tracks the highest event ID already folded into
	// the conversation as a synthetic user/tool message, so a restart
	// never re-injects an instruction twice. It is seeded from the
	// conversation log's own history (via SourceEventID), not kept only
	// in memory, so it survives a process restart.
	lastInjectedEventID int64
}

// New builds a Runtime. cfg.MaxIterations <= 0 uses DefaultMaxIterations.
func New(cfg Config) *Runtime {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	return &Runtime{cfg: cfg}
}

// Run drives the task to a terminal status (done/failed) or returns when
// ctx is canceled (task paused or canceled via the command surface,
// already recorded as an event by whichever caller canceled it). Run
// never needs to be told whether it's a fresh start or a resume: it
// always re-derives its position from the event log and conversation log.
func (r *Runtime) Run(ctx context.Context) error {
	log := r.cfg.Logger
	if log == nil {
		log = observability.NewLogger(observability.LogConfig{})
	}
	log = log.WithContext(observability.WithTaskID(ctx, r.cfg.TaskID))
	log.Info("runtime starting", "agent_id", r.cfg.AgentID)

	task, ok := r.cfg.Tasks.GetTask(r.cfg.TaskID)
	if !ok {
		return domain.Wrap(domain.ErrNotFound, fmt.Sprintf("task %q", r.cfg.TaskID), nil)
	}

	if task.Status == domain.StatusOpen {
		if err := r.seed(ctx, task); err != nil {
			return r.fail(ctx, log, err)
		}
		if err := r.cfg.Tasks.MarkStarted(ctx, r.cfg.TaskID, r.cfg.AgentID); err != nil {
			return r.fail(ctx, log, err)
		}
	}

	pending, err := r.recover(ctx)
	if err != nil {
		return r.fail(ctx, log, err)
	}
	if len(pending) > 0 {
		log.Info("resumed with tool calls pending re-execution", "count", len(pending))
	}

	iteration := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if iteration >= r.cfg.MaxIterations {
			return r.fail(ctx, log, errors.New("max iterations reached"))
		}

		calledLLM := len(pending) == 0
		done, next, stepErr := r.step(ctx, pending)
		if stepErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return r.fail(ctx, log, stepErr)
		}
		if calledLLM {
			iteration++
		}
		if r.cfg.Metrics != nil {
			r.cfg.Metrics.RunIterations.WithLabelValues(string(iterationStatus(done))).Inc()
		}
		if done {
			log.Info("runtime completed")
			return nil
		}
		pending = next
	}
}

func iterationStatus(done bool) domain.Status {
	if done {
		return domain.StatusDone
	}
	return domain.StatusInProgress
}

// seed writes the task's first system and user messages.
func (r *Runtime) seed(ctx context.Context, task domain.Task) error {
	rootTaskID := r.cfg.Tasks.RootTaskID(r.cfg.TaskID)
	workDir, err := r.cfg.Resolver.Root(domain.ScopePrivate, r.cfg.TaskID, rootTaskID)
	if err != nil {
		return err
	}

	system := buildSystemMessage(r.cfg.SystemPreamble, workDir, readAgentsFile(r.cfg.WorkspaceRoot))
	if _, err := r.cfg.ConvoLog.Append(ctx, domain.ConversationEntry{
		TaskID: r.cfg.TaskID, Role: domain.RoleSystem, Content: system,
	}); err != nil {
		return err
	}

	user := buildInitialUserMessage(task)
	_, err = r.cfg.ConvoLog.Append(ctx, domain.ConversationEntry{
		TaskID: r.cfg.TaskID, Role: domain.RoleUser, Content: user,
	})
	return err
}

// recover repairs a transcript left inconsistent by a prior crash and
// returns any tool calls that must be re-executed before the next LLM
// call, per the spec's context-recovery invariant.
func (r *Runtime) recover(ctx context.Context) ([]domain.ToolCall, error) {
	history, err := r.cfg.ConvoLog.History(ctx, r.cfg.TaskID)
	if err != nil {
		return nil, err
	}
	for _, e := range history {
		if e.SourceEventID > r.lastInjectedEventID {
			r.lastInjectedEventID = e.SourceEventID
		}
	}
	return repairTranscript(ctx, r.cfg.ConvoLog, r.cfg.AuditLog, r.cfg.TaskID, history)
}

// step runs one unit of work: if pending tool calls remain from a prior
// LLM turn (or from crash recovery), it executes the next one and
// returns; otherwise it injects any outstanding instructions, calls the
// LLM, and persists the reply. Returning fewer than len(pending) calls
// still consumed tells Run to keep calling step with the remainder before
// issuing another LLM call.
func (r *Runtime) step(ctx context.Context, pending []domain.ToolCall) (done bool, next []domain.ToolCall, err error) {
	if len(pending) > 0 {
		if err := r.runToolCall(ctx, pending[0]); err != nil {
			return false, nil, err
		}
		return false, pending[1:], nil
	}

	if err := r.injectInstructions(ctx); err != nil {
		return false, nil, err
	}

	history, err := r.cfg.ConvoLog.History(ctx, r.cfg.TaskID)
	if err != nil {
		return false, nil, err
	}

	resp, err := r.cfg.Provider.Complete(ctx, CompletionRequest{
		System:   "", // already the first entry in history
		Messages: history,
		Tools:    r.cfg.ToolRegistry.AsLLMTools(),
		Model:    r.cfg.Model,
	}, r.streamDelta)
	if err != nil {
		return false, nil, err
	}

	if _, err := r.cfg.ConvoLog.Append(ctx, domain.ConversationEntry{
		TaskID:    r.cfg.TaskID,
		Role:      domain.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	}); err != nil {
		return false, nil, err
	}

	if len(resp.ToolCalls) == 0 {
		return true, nil, r.complete(ctx, resp.Content)
	}

	return false, resp.ToolCalls, nil
}

// runToolCall executes a single tool call (unknown/safe/risky, per the
// executor's own risk handling) and persists its result.
func (r *Runtime) runToolCall(ctx context.Context, call domain.ToolCall) error {
	result := r.cfg.Executor.ExecuteSingle(ctx, r.cfg.TaskID, tools.Call{
		ID: call.ID, Name: call.Name, Arguments: call.Arguments,
	})

	if r.cfg.Bus != nil {
		r.cfg.Bus.Publish(uibus.Message{TaskID: r.cfg.TaskID, Kind: uibus.KindAgentOutput, Data: result})
	}

	_, err := r.cfg.ConvoLog.Append(ctx, domain.ConversationEntry{
		TaskID:     r.cfg.TaskID,
		Role:       domain.RoleTool,
		Content:    result.Content,
		ToolCallID: call.ID,
		IsError:    result.IsError,
	})
	return err
}

// injectInstructions folds any TaskInstructionAdded events that arrived
// since the last iteration into the conversation as user messages, never
// mid-LLM-call.
func (r *Runtime) injectInstructions(ctx context.Context) error {
	events, err := r.cfg.EventLog.ReadStream(ctx, r.cfg.TaskID)
	if err != nil {
		return err
	}
	for _, e := range events {
		if e.Type != domain.EventTaskInstructionAdded || e.ID <= r.lastInjectedEventID {
			continue
		}
		instruction, _ := e.Payload["instruction"].(string)
		if _, err := r.cfg.ConvoLog.Append(ctx, domain.ConversationEntry{
			TaskID:        r.cfg.TaskID,
			Role:          domain.RoleUser,
			Content:       instruction,
			SourceEventID: e.ID,
		}); err != nil {
			return err
		}
		r.lastInjectedEventID = e.ID
	}
	return nil
}

func (r *Runtime) streamDelta(d StreamDelta) {
	if r.cfg.Bus == nil {
		return
	}
	r.cfg.Bus.Publish(uibus.Message{TaskID: r.cfg.TaskID, Kind: uibus.KindAgentOutput, Data: d})
}

func (r *Runtime) complete(ctx context.Context, summary string) error {
	_, err := r.cfg.EventLog.Append(ctx, domain.DomainEvent{
		TaskID: r.cfg.TaskID, Type: domain.EventTaskCompleted,
		Payload: map[string]any{"summary": summary},
	})
	return err
}

func (r *Runtime) fail(ctx context.Context, log *observability.Logger, cause error) error {
	reason := cause.Error()
	if log != nil {
		log.Error("runtime failed", "reason", reason)
	}
	if _, err := r.cfg.EventLog.Append(ctx, domain.DomainEvent{
		TaskID: r.cfg.TaskID, Type: domain.EventTaskFailed,
		Payload: map[string]any{"reason": reason},
	}); err != nil {
		return fmt.Errorf("runtime: record failure %q: %w", reason, err)
	}
	return cause
}
