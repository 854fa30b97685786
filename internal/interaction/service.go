// Package interaction implements the user-interaction protocol: durable
// request/response events that pause an agent runtime until a human (or
// another actor) makes a decision, grounded on the shape of the
// teacher's ApprovalChecker request/decision lifecycle but backed by the
// event log instead of an in-memory/DB ApprovalStore.
package interaction

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/seed-run/seed/internal/eventlog"
	"github.com/seed-run/seed/pkg/domain"
)

// RequestSpec describes a new UIP request.
type RequestSpec struct {
	Kind       domain.InteractionKind
	Purpose    string
	Prompt     string
	Options    []domain.InteractionOption
	ToolCallID string
	ToolName   string
	Deadline   *time.Time
}

// ResponseSpec is what a responder supplies to resolve a pending
// interaction.
type ResponseSpec struct {
	SelectedOptionID string
	InputValue       string
}

// Service implements the UIP surface over the event log.
type Service struct {
	log *eventlog.Log
}

func NewService(log *eventlog.Log) *Service {
	return &Service{log: log}
}

// RequestInteraction appends UserInteractionRequested and returns its id.
func (s *Service) RequestInteraction(ctx context.Context, taskID string, spec RequestSpec) (string, error) {
	interactionID := uuid.NewString()
	payload := map[string]any{
		"interactionId": interactionID,
		"kind":          string(spec.Kind),
		"purpose":       spec.Purpose,
		"prompt":        spec.Prompt,
	}
	if spec.ToolCallID != "" {
		payload["toolCallId"] = spec.ToolCallID
	}
	if spec.ToolName != "" {
		payload["toolName"] = spec.ToolName
	}
	if len(spec.Options) > 0 {
		opts := make([]any, 0, len(spec.Options))
		for _, o := range spec.Options {
			opts = append(opts, map[string]any{"id": o.ID, "label": o.Label, "style": o.Style, "isDefault": o.IsDefault})
		}
		payload["options"] = opts
	}
	if spec.Deadline != nil {
		payload["deadline"] = spec.Deadline.UTC().Format(time.RFC3339)
	}

	if _, err := s.log.Append(ctx, domain.DomainEvent{
		TaskID: taskID, Type: domain.EventUserInteractionRequested, Payload: payload,
	}); err != nil {
		return "", err
	}
	return interactionID, nil
}

// RespondToInteraction appends UserInteractionResponded for interactionID.
func (s *Service) RespondToInteraction(ctx context.Context, taskID, interactionID string, resp ResponseSpec) error {
	payload := map[string]any{"interactionId": interactionID}
	if resp.SelectedOptionID != "" {
		payload["selectedOptionId"] = resp.SelectedOptionID
	}
	if resp.InputValue != "" {
		payload["inputValue"] = resp.InputValue
	}
	_, err := s.log.Append(ctx, domain.DomainEvent{
		TaskID: taskID, Type: domain.EventUserInteractionResponded, Payload: payload,
	})
	return err
}

// GetPendingInteraction derives the latest request for taskID that has no
// matching response yet, or returns ok=false if none is outstanding.
func (s *Service) GetPendingInteraction(ctx context.Context, taskID string) (domain.PendingInteraction, bool, error) {
	events, err := s.log.ReadStream(ctx, taskID)
	if err != nil {
		return domain.PendingInteraction{}, false, err
	}

	responded := make(map[string]bool)
	var latest *domain.PendingInteraction
	for _, e := range events {
		switch e.Type {
		case domain.EventUserInteractionResponded:
			if id, ok := e.Payload["interactionId"].(string); ok {
				responded[id] = true
				if latest != nil && latest.ID == id {
					latest = nil
				}
			}
		case domain.EventUserInteractionRequested:
			pi := fromRequestedPayload(taskID, e)
			latest = &pi
		}
	}
	if latest == nil || responded[latest.ID] {
		return domain.PendingInteraction{}, false, nil
	}
	return *latest, true, nil
}

// WaitForResponse blocks until interactionID is resolved or, if deadline
// is non-zero, until the deadline elapses (returning domain.ErrTimeout).
// Polling mirrors the spec's pollIntervalMs contract; the event log has
// no long-poll primitive of its own.
func (s *Service) WaitForResponse(ctx context.Context, taskID, interactionID string, pollInterval time.Duration, deadline time.Time) (ResponseSpec, error) {
	if pollInterval <= 0 {
		pollInterval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		events, err := s.log.ReadStream(ctx, taskID)
		if err != nil {
			return ResponseSpec{}, err
		}
		for _, e := range events {
			if e.Type != domain.EventUserInteractionResponded {
				continue
			}
			id, ok := e.Payload["interactionId"].(string)
			if !ok || id != interactionID {
				continue
			}
			resp := ResponseSpec{}
			if v, ok := e.Payload["selectedOptionId"].(string); ok {
				resp.SelectedOptionID = v
			}
			if v, ok := e.Payload["inputValue"].(string); ok {
				resp.InputValue = v
			}
			return resp, nil
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			return ResponseSpec{}, domain.ErrTimeout
		}

		select {
		case <-ctx.Done():
			return ResponseSpec{}, domain.Wrap(domain.ErrAborted, "wait for response", ctx.Err())
		case <-ticker.C:
		}
	}
}

func fromRequestedPayload(taskID string, e domain.StoredEvent) domain.PendingInteraction {
	pi := domain.PendingInteraction{
		TaskID:    taskID,
		Status:    domain.InteractionPending,
		CreatedAt: e.CreatedAt,
	}
	if v, ok := e.Payload["interactionId"].(string); ok {
		pi.ID = v
	}
	if v, ok := e.Payload["kind"].(string); ok {
		pi.Kind = domain.InteractionKind(v)
	}
	if v, ok := e.Payload["purpose"].(string); ok {
		pi.Purpose = v
	}
	if v, ok := e.Payload["prompt"].(string); ok {
		pi.Prompt = v
	}
	if v, ok := e.Payload["toolCallId"].(string); ok {
		pi.ToolCallID = v
	}
	if v, ok := e.Payload["toolName"].(string); ok {
		pi.ToolName = v
	}
	if raw, ok := e.Payload["options"].([]any); ok {
		for _, item := range raw {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			opt := domain.InteractionOption{}
			if id, ok := m["id"].(string); ok {
				opt.ID = id
			}
			if label, ok := m["label"].(string); ok {
				opt.Label = label
			}
			if style, ok := m["style"].(string); ok {
				opt.Style = style
			}
			if isDefault, ok := m["isDefault"].(bool); ok {
				opt.IsDefault = isDefault
			}
			pi.Options = append(pi.Options, opt)
		}
	}
	return pi
}
