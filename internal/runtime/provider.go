package runtime

import (
	"context"

	"github.com/seed-run/seed/internal/tools"
	"github.com/seed-run/seed/pkg/domain"
)

// CompletionRequest is what the runtime hands an LLMProvider on each
// iteration: the system prompt, the full message history, and the tool
// catalog available this turn.
type CompletionRequest struct {
	System   string
	Messages []domain.ConversationEntry
	Tools    []tools.LLMToolSpec
	Model    string
}

// StreamDelta is one incremental chunk of a streaming completion,
// forwarded to the UI Bus as it arrives. The durable conversation log
// only ever receives the final assembled CompletionResponse; streaming
// never alters what gets persisted.
type StreamDelta struct {
	Content   string
	Reasoning string
	Done      bool
}

// CompletionResponse is an LLMProvider's full reply to one
// CompletionRequest, assembled from any streamed deltas by the time
// Complete returns.
type CompletionResponse struct {
	Content   string
	Reasoning string
	ToolCalls []domain.ToolCall
}

// LLMProvider is the boundary between the runtime's state machine and a
// concrete model backend. Only this interface lives in this package; a
// concrete client (the Anthropic Messages API) is implemented in
// internal/providers/anthropic, kept out of the runtime's import graph so
// the loop can be tested against a fake provider.
type LLMProvider interface {
	// Complete runs one model turn to completion. If onDelta is non-nil
	// and the provider supports streaming, it is invoked with
	// incremental chunks as they arrive; onDelta must not block. The
	// returned CompletionResponse is always the fully assembled reply,
	// regardless of whether streaming occurred.
	Complete(ctx context.Context, req CompletionRequest, onDelta func(StreamDelta)) (CompletionResponse, error)
}
