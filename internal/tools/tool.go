// Package tools is the tool registry and executor: JSON-schema-described
// tools, risk-leveled for the UIP gate, executed concurrently with
// per-call timeout and retry, always returning a ToolResult rather than
// panicking or propagating an error to the caller.
package tools

import (
	"context"
	"encoding/json"
)

// Risk classifies whether invoking a tool requires user approval before
// it runs.
type Risk string

const (
	RiskSafe  Risk = "safe"
	RiskRisky Risk = "risky"
)

// Call is one LLM-issued tool invocation.
type Call struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Result is what a Tool always returns, success or failure — the
// executor never lets a tool's error or panic propagate to the runtime
// loop as a Go error, matching the teacher's ToolRegistry.Execute
// no-panic contract.
type Result struct {
	ToolCallID string
	Content    string
	IsError    bool
}

// Tool is one callable capability. Execute must never panic; any failure
// (bad arguments, OS error, timeout) is reported via Result.IsError.
type Tool interface {
	Name() string
	Description() string
	// Schema returns the tool's parameters as a JSON Schema document,
	// used both as the wire contract handed to the LLM and to validate
	// incoming arguments before Execute runs.
	Schema() map[string]any
	Risk() Risk
	Execute(ctx context.Context, taskID string, args json.RawMessage) Result
}
