package builtin

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/seed-run/seed/internal/tools"
)

const defaultCommandTimeout = 60 * time.Second

// RunCommand implements runCommand: shell out to /bin/sh -c, either
// synchronously (waiting for completion, output truncated) or detached
// in the background (returning a process id to poll).
type RunCommand struct {
	deps Deps
	exec *ExecManager
}

func NewRunCommand(d Deps, exec *ExecManager) *RunCommand { return &RunCommand{deps: d, exec: exec} }

func (t *RunCommand) Name() string        { return "runCommand" }
func (t *RunCommand) Description() string {
	return "Run a shell command in the workspace, synchronously or detached in the background."
}
func (t *RunCommand) Risk() tools.Risk { return tools.RiskRisky }

func (t *RunCommand) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command":         map[string]any{"type": "string"},
			"cwd":             map[string]any{"type": "string", "description": "defaults to private:/"},
			"background":      map[string]any{"type": "boolean"},
			"timeout_seconds": map[string]any{"type": "integer", "minimum": 0},
		},
		"required": []string{"command"},
	}
}

func (t *RunCommand) Execute(ctx context.Context, taskID string, args json.RawMessage) tools.Result {
	var in struct {
		Command        string `json:"command"`
		Cwd            string `json:"cwd"`
		Background     bool   `json:"background"`
		TimeoutSeconds int    `json:"timeout_seconds"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return errResult("invalid parameters: %v", err)
	}
	if strings.TrimSpace(in.Command) == "" {
		return errResult("command is required")
	}
	if strings.TrimSpace(in.Cwd) == "" {
		in.Cwd = "private:/"
	}

	dir, err := t.deps.resolve(in.Cwd, taskID)
	if err != nil {
		return errResult("%v", err)
	}

	if in.Background {
		info, err := t.exec.StartBackground(ctx, taskID, in.Command, dir)
		if err != nil {
			return errResult("start command: %v", err)
		}
		return okResult(map[string]any{
			"process_id": info.ID,
			"status":     info.Status,
		})
	}

	timeout := defaultCommandTimeout
	if in.TimeoutSeconds > 0 {
		timeout = time.Duration(in.TimeoutSeconds) * time.Second
	}

	result, err := t.exec.RunSync(ctx, in.Command, dir, timeout)
	if err != nil {
		return errResult("run command: %v", err)
	}

	return okResult(result)
}
