package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/seed-run/seed/internal/runtime"
	"github.com/seed-run/seed/internal/tools"
	"github.com/seed-run/seed/pkg/domain"
)

const defaultModel = "claude-sonnet-4-20250514"
const defaultMaxTokens = 4096

// Config configures a Provider.
type Config struct {
	APIKey string
	// BaseURL overrides the default Anthropic endpoint, for proxies/tests.
	BaseURL string
	// MaxRetries bounds retry attempts for retryable errors. Default 3.
	MaxRetries int
	// RetryDelay is the base delay used by the exponential backoff
	// between retries. Default 1s.
	RetryDelay time.Duration
	// DefaultModel is used when a CompletionRequest doesn't name one.
	DefaultModel string
	MaxTokens    int
}

// Provider implements runtime.LLMProvider against the Anthropic Messages
// API, grounded on the teacher's AnthropicProvider but collapsed from a
// channel-of-chunks return into the runtime's synchronous
// Complete(ctx, req, onDelta) shape: onDelta receives streamed text as it
// arrives, while Complete itself blocks until the full message assembles.
type Provider struct {
	client     sdk.Client
	maxRetries int
	retryDelay time.Duration
	model      string
	maxTokens  int
}

// New builds a Provider. It returns an error only if cfg.APIKey is empty.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Provider{
		client:     sdk.NewClient(opts...),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		model:      cfg.DefaultModel,
		maxTokens:  cfg.MaxTokens,
	}, nil
}

// Complete implements runtime.LLMProvider. It opens a streaming request,
// retrying transient failures with exponential backoff before the stream
// is established, then assembles the streamed events into one
// CompletionResponse, forwarding text/thinking deltas to onDelta as they
// arrive.
func (p *Provider) Complete(ctx context.Context, req runtime.CompletionRequest, onDelta func(runtime.StreamDelta)) (runtime.CompletionResponse, error) {
	model := p.getModel(req.Model)

	var stream *ssestream.Stream[sdk.MessageStreamEventUnion]
	var err error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		stream, err = p.createStream(ctx, req, model)
		if err == nil {
			break
		}
		wrapped := p.wrapError(err, model)
		if !wrapped.Reason.IsRetryable() {
			return runtime.CompletionResponse{}, wrapped
		}
		if attempt == p.maxRetries {
			break
		}
		backoff := time.Duration(float64(p.retryDelay) * math.Pow(2, float64(attempt)))
		select {
		case <-ctx.Done():
			return runtime.CompletionResponse{}, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if err != nil {
		return runtime.CompletionResponse{}, fmt.Errorf("anthropic: max retries exceeded: %w", p.wrapError(err, model))
	}

	return p.processStream(stream, onDelta, model)
}

func (p *Provider) createStream(ctx context.Context, req runtime.CompletionRequest, model string) (*ssestream.Stream[sdk.MessageStreamEventUnion], error) {
	messages, err := convertMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("anthropic: failed to convert messages: %w", err)
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		Messages:  messages,
		MaxTokens: int64(p.maxTokens),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Type: "text", Text: req.System}}
	}
	if len(req.Tools) > 0 {
		toolParams, err := convertTools(req.Tools)
		if err != nil {
			return nil, fmt.Errorf("anthropic: failed to convert tools: %w", err)
		}
		params.Tools = toolParams
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return stream, nil
}

// maxEmptyStreamEvents bounds how many consecutive events produce no
// observable output before the stream is treated as malformed.
const maxEmptyStreamEvents = 300

func (p *Provider) processStream(stream *ssestream.Stream[sdk.MessageStreamEventUnion], onDelta func(runtime.StreamDelta), model string) (runtime.CompletionResponse, error) {
	var resp runtime.CompletionResponse
	var textOut strings.Builder
	var reasoningOut strings.Builder

	var currentCall *domain.ToolCall
	var currentInput strings.Builder
	emptyEvents := 0

	emit := func(d runtime.StreamDelta) {
		if onDelta != nil {
			onDelta(d)
		}
	}

	for stream.Next() {
		event := stream.Current()
		processed := false

		switch event.Type {
		case "content_block_start":
			block := event.AsContentBlockStart().ContentBlock
			if block.Type == "tool_use" {
				use := block.AsToolUse()
				currentCall = &domain.ToolCall{ID: use.ID, Name: use.Name}
				currentInput.Reset()
				processed = true
			}

		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			switch delta.Type {
			case "text_delta":
				if delta.Text != "" {
					textOut.WriteString(delta.Text)
					emit(runtime.StreamDelta{Content: delta.Text})
					processed = true
				}
			case "thinking_delta":
				if delta.Thinking != "" {
					reasoningOut.WriteString(delta.Thinking)
					emit(runtime.StreamDelta{Reasoning: delta.Thinking})
					processed = true
				}
			case "input_json_delta":
				if delta.PartialJSON != "" {
					currentInput.WriteString(delta.PartialJSON)
					processed = true
				}
			}

		case "content_block_stop":
			if currentCall != nil {
				currentCall.Arguments = json.RawMessage(currentInput.String())
				resp.ToolCalls = append(resp.ToolCalls, *currentCall)
				currentCall = nil
				processed = true
			}

		case "message_stop":
			emit(runtime.StreamDelta{Done: true})
			resp.Content = textOut.String()
			resp.Reasoning = reasoningOut.String()
			return resp, nil

		case "error":
			return runtime.CompletionResponse{}, p.wrapError(errors.New("anthropic stream error"), model)
		}

		if processed {
			emptyEvents = 0
		} else {
			emptyEvents++
			if emptyEvents >= maxEmptyStreamEvents {
				return runtime.CompletionResponse{}, p.wrapError(
					fmt.Errorf("stream appears malformed: %d consecutive empty events", emptyEvents), model)
			}
		}
	}

	if err := stream.Err(); err != nil {
		return runtime.CompletionResponse{}, p.wrapError(err, model)
	}

	resp.Content = textOut.String()
	resp.Reasoning = reasoningOut.String()
	return resp, nil
}

// convertMessages maps the conversation log's entries onto Anthropic's
// message params. System entries are dropped (Anthropic takes the system
// prompt as a top-level field); tool-role entries become tool_result
// blocks on a user turn, matching Anthropic's expectation that tool
// results travel on the user side of the exchange.
func convertMessages(entries []domain.ConversationEntry) ([]sdk.MessageParam, error) {
	var out []sdk.MessageParam
	for _, e := range entries {
		switch e.Role {
		case domain.RoleSystem:
			continue

		case domain.RoleTool:
			out = append(out, sdk.NewUserMessage(
				sdk.NewToolResultBlock(e.ToolCallID, e.Content, e.IsError),
			))

		case domain.RoleAssistant:
			var content []sdk.ContentBlockParamUnion
			if e.Content != "" {
				content = append(content, sdk.NewTextBlock(e.Content))
			}
			for _, tc := range e.ToolCalls {
				var input map[string]any
				if len(tc.Arguments) > 0 {
					if err := json.Unmarshal(tc.Arguments, &input); err != nil {
						return nil, fmt.Errorf("invalid tool call input for %s: %w", tc.Name, err)
					}
				}
				content = append(content, sdk.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			out = append(out, sdk.NewAssistantMessage(content...))

		default: // RoleUser
			out = append(out, sdk.NewUserMessage(sdk.NewTextBlock(e.Content)))
		}
	}
	return out, nil
}

func convertTools(specs []tools.LLMToolSpec) ([]sdk.ToolUnionParam, error) {
	var out []sdk.ToolUnionParam
	for _, spec := range specs {
		raw, err := json.Marshal(spec.Parameters)
		if err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", spec.Name, err)
		}
		var schema sdk.ToolInputSchemaParam
		if err := json.Unmarshal(raw, &schema); err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", spec.Name, err)
		}
		param := sdk.ToolUnionParamOfTool(schema, spec.Name)
		if param.OfTool == nil {
			return nil, fmt.Errorf("invalid tool schema for %s: missing tool definition", spec.Name)
		}
		param.OfTool.Description = sdk.String(spec.Description)
		out = append(out, param)
	}
	return out, nil
}

func (p *Provider) getModel(model string) string {
	if model == "" {
		return p.model
	}
	return model
}

type anthropicErrorPayload struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func (p *Provider) wrapError(err error, model string) *ProviderError {
	if pe, ok := getProviderError(err); ok {
		return pe
	}

	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		pe := newProviderError(model, err).withStatus(apiErr.StatusCode)

		message, code, requestID := "", "", apiErr.RequestID
		if raw := apiErr.RawJSON(); raw != "" {
			var payload anthropicErrorPayload
			if json.Unmarshal([]byte(raw), &payload) == nil {
				message = payload.Error.Message
				code = payload.Error.Type
				if payload.RequestID != "" {
					requestID = payload.RequestID
				}
			}
		}
		if message != "" {
			pe = pe.withMessage(message)
		} else if pe.Message == "" {
			pe.Message = "anthropic request failed"
		}
		if code != "" {
			pe = pe.withCode(code)
		}
		if requestID != "" {
			pe = pe.withRequestID(requestID)
		}
		return pe
	}

	return newProviderError(model, err)
}
