package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seed-run/seed/internal/runtime"
	"github.com/seed-run/seed/pkg/domain"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	p, err := New(Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.model != defaultModel {
		t.Errorf("model = %q, want default", p.model)
	}
	if p.maxTokens != defaultMaxTokens {
		t.Errorf("maxTokens = %d, want default", p.maxTokens)
	}
}

func sseHandler(t *testing.T, events []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("expected http.Flusher")
		}
		for _, e := range events {
			fmt.Fprintln(w, e)
		}
		flusher.Flush()
	}
}

func TestCompleteAssemblesTextFromStream(t *testing.T) {
	server := httptest.NewServer(sseHandler(t, []string{
		`event: message_start`,
		`data: {"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","usage":{"input_tokens":1}}}`,
		``,
		`event: content_block_start`,
		`data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
		``,
		`event: content_block_delta`,
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`,
		``,
		`event: content_block_delta`,
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" world"}}`,
		``,
		`event: content_block_stop`,
		`data: {"type":"content_block_stop","index":0}`,
		``,
		`event: message_stop`,
		`data: {"type":"message_stop"}`,
		``,
	}))
	defer server.Close()

	p, err := New(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var deltas []string
	resp, err := p.Complete(context.Background(), runtime.CompletionRequest{
		Messages: []domain.ConversationEntry{{Role: domain.RoleUser, Content: "hi"}},
	}, func(d runtime.StreamDelta) {
		if d.Content != "" {
			deltas = append(deltas, d.Content)
		}
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "Hello world" {
		t.Errorf("content = %q, want %q", resp.Content, "Hello world")
	}
	if len(deltas) != 2 {
		t.Errorf("deltas = %v, want 2 streamed chunks", deltas)
	}
}

func TestCompleteAssemblesToolCall(t *testing.T) {
	server := httptest.NewServer(sseHandler(t, []string{
		`event: message_start`,
		`data: {"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","usage":{"input_tokens":1}}}`,
		``,
		`event: content_block_start`,
		`data: {"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"call-1","name":"echo","input":{}}}`,
		``,
		`event: content_block_delta`,
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"text\":\"hi\"}"}}`,
		``,
		`event: content_block_stop`,
		`data: {"type":"content_block_stop","index":0}`,
		``,
		`event: message_stop`,
		`data: {"type":"message_stop"}`,
		``,
	}))
	defer server.Close()

	p, err := New(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := p.Complete(context.Background(), runtime.CompletionRequest{
		Messages: []domain.ConversationEntry{{Role: domain.RoleUser, Content: "echo hi"}},
	}, nil)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("ToolCalls = %v, want 1", resp.ToolCalls)
	}
	if resp.ToolCalls[0].Name != "echo" || resp.ToolCalls[0].ID != "call-1" {
		t.Errorf("tool call = %+v", resp.ToolCalls[0])
	}
	if string(resp.ToolCalls[0].Arguments) != `{"text":"hi"}` {
		t.Errorf("arguments = %s", resp.ToolCalls[0].Arguments)
	}
}

func TestCompleteSurfacesNonRetryableError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad input"}}`)
	}))
	defer server.Close()

	p, err := New(Config{APIKey: "test-key", BaseURL: server.URL, MaxRetries: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Complete(context.Background(), runtime.CompletionRequest{
		Messages: []domain.ConversationEntry{{Role: domain.RoleUser, Content: "hi"}},
	}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	pe, ok := getProviderError(err)
	if !ok {
		t.Fatalf("expected a *ProviderError, got %T: %v", err, err)
	}
	if pe.Reason != FailoverInvalidRequest {
		t.Errorf("reason = %v, want %v", pe.Reason, FailoverInvalidRequest)
	}
}
