package tools

import (
	"context"
	"sync"
	"time"
)

// ExecConfig configures Executor, grounded on the teacher's
// ToolExecConfig (concurrency limit, per-call timeout, retry/backoff).
type ExecConfig struct {
	MaxConcurrency int
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
}

// DefaultExecConfig mirrors DefaultToolExecConfig's defaults.
func DefaultExecConfig() ExecConfig {
	return ExecConfig{
		MaxConcurrency: 8,
		Timeout:        30 * time.Second,
		MaxRetries:     0,
		RetryBackoff:   200 * time.Millisecond,
	}
}

// ApprovalCheck decides whether a risky call may proceed, returning
// (approved, err). It's invoked before running any RiskRisky tool, on
// every execution path; a safe tool skips this entirely.
type ApprovalCheck func(ctx context.Context, taskID string, call Call) (approved bool, err error)

// Lifecycle is invoked around each call for audit/event emission.
type Lifecycle struct {
	Requested func(taskID string, call Call)
	Completed func(taskID string, call Call, result Result, duration time.Duration)
}

// Executor runs Calls against a Registry with bounded concurrency.
type Executor struct {
	registry  *Registry
	cfg       ExecConfig
	approve   ApprovalCheck
	lifecycle Lifecycle
}

// NewExecutor builds an Executor. approve may be nil, in which case risky
// tools are always denied (fail closed).
func NewExecutor(registry *Registry, cfg ExecConfig, approve ApprovalCheck, lifecycle Lifecycle) *Executor {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Executor{registry: registry, cfg: cfg, approve: approve, lifecycle: lifecycle}
}

// ExecuteConcurrently runs every call, bounded by cfg.MaxConcurrency, and
// returns results in the same order as calls.
func (e *Executor) ExecuteConcurrently(ctx context.Context, taskID string, calls []Call) []Result {
	results := make([]Result, len(calls))
	sem := make(chan struct{}, e.cfg.MaxConcurrency)
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(i int, call Call) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = e.executeOne(ctx, taskID, call)
		}(i, call)
	}
	wg.Wait()
	return results
}

// ExecuteSequentially runs calls one at a time, in order. Used when a
// later call in the same turn can depend on an earlier one's side effect
// (e.g. editFile then runCommand against the edited file).
func (e *Executor) ExecuteSequentially(ctx context.Context, taskID string, calls []Call) []Result {
	results := make([]Result, len(calls))
	for i, call := range calls {
		results[i] = e.executeOne(ctx, taskID, call)
	}
	return results
}

// ExecuteSingle runs one call.
func (e *Executor) ExecuteSingle(ctx context.Context, taskID string, call Call) Result {
	return e.executeOne(ctx, taskID, call)
}

func (e *Executor) executeOne(ctx context.Context, taskID string, call Call) Result {
	if e.lifecycle.Requested != nil {
		e.lifecycle.Requested(taskID, call)
	}
	start := time.Now()

	result := e.executeWithRetry(ctx, taskID, call)

	if e.lifecycle.Completed != nil {
		e.lifecycle.Completed(taskID, call, result, time.Since(start))
	}
	return result
}

func (e *Executor) executeWithRetry(ctx context.Context, taskID string, call Call) Result {
	var last Result
	attempts := e.cfg.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Result{ToolCallID: call.ID, IsError: true, Content: ctx.Err().Error()}
			case <-time.After(e.cfg.RetryBackoff * time.Duration(attempt)):
			}
		}
		last = e.executeWithTimeout(ctx, taskID, call)
		if !last.IsError {
			return last
		}
	}
	return last
}

func (e *Executor) executeWithTimeout(ctx context.Context, taskID string, call Call) (result Result) {
	t, ok := e.registry.Get(call.Name)
	if !ok {
		return Result{ToolCallID: call.ID, IsError: true, Content: "unknown tool: " + call.Name}
	}

	// Argument validation runs before the risky-tool approval gate: a call that
	// fails validation is rejected outright, without ever pausing for a
	// user decision it couldn't act on anyway.
	if err := e.registry.Validate(call.Name, call.Arguments); err != nil {
		return Result{ToolCallID: call.ID, IsError: true, Content: err.Error()}
	}

	if t.Risk() == RiskRisky {
		approved, err := e.checkApproval(ctx, taskID, call)
		if err != nil {
			return Result{ToolCallID: call.ID, IsError: true, Content: "approval check failed: " + err.Error()}
		}
		if !approved {
			return Result{ToolCallID: call.ID, IsError: true, Content: "rejected by user"}
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	done := make(chan Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Result{ToolCallID: call.ID, IsError: true, Content: "tool panicked"}
			}
		}()
		done <- t.Execute(runCtx, taskID, call.Arguments)
	}()

	select {
	case r := <-done:
		r.ToolCallID = call.ID
		return r
	case <-runCtx.Done():
		return Result{ToolCallID: call.ID, IsError: true, Content: "tool timed out"}
	}
}

func (e *Executor) checkApproval(ctx context.Context, taskID string, call Call) (bool, error) {
	if e.approve == nil {
		return false, nil
	}
	return e.approve(ctx, taskID, call)
}
