package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/seed-run/seed/internal/interaction"
	"github.com/seed-run/seed/internal/tools"
	"github.com/seed-run/seed/pkg/domain"
)

const (
	approvalOptionApprove = "approve"
	approvalOptionReject  = "reject"
)

// ApprovalGate turns the executor's risky-tool gate into a durable
// UserInteractionRequested/Responded round trip, grounded on the shape of
// the teacher's ApprovalChecker but backed by the Interaction Service
// instead of an in-memory approval queue. One ApprovalGate is shared by
// every task's runtime, since approval state lives entirely in the event
// log rather than in this struct.
type ApprovalGate struct {
	Interactions *interaction.Service
	// PollInterval controls how often WaitForResponse re-reads the event
	// stream; 0 uses the Interaction Service's default.
	PollInterval time.Duration
	// Deadline bounds how long a risky call waits for a human response
	// before failing the call; 0 means wait indefinitely, matching the
	// spec's assumption that a human may take arbitrarily long.
	Deadline time.Duration
}

// Check implements tools.ApprovalCheck.
func (g *ApprovalGate) Check(ctx context.Context, taskID string, call tools.Call) (bool, error) {
	interactionID, err := g.pendingOrNewRequest(ctx, taskID, call)
	if err != nil {
		return false, err
	}

	var deadline time.Time
	if g.Deadline > 0 {
		deadline = time.Now().Add(g.Deadline)
	}
	resp, err := g.Interactions.WaitForResponse(ctx, taskID, interactionID, g.PollInterval, deadline)
	if err != nil {
		return false, err
	}
	return resp.SelectedOptionID == approvalOptionApprove, nil
}

// pendingOrNewRequest reattaches to an already-outstanding request for
// this exact tool call (the case after a crash mid-wait) instead of
// issuing a duplicate UserInteractionRequested event.
func (g *ApprovalGate) pendingOrNewRequest(ctx context.Context, taskID string, call tools.Call) (string, error) {
	if pending, ok, err := g.Interactions.GetPendingInteraction(ctx, taskID); err == nil && ok && pending.ToolCallID == call.ID {
		return pending.ID, nil
	}

	return g.Interactions.RequestInteraction(ctx, taskID, interaction.RequestSpec{
		Kind:       domain.InteractionConfirm,
		Purpose:    "confirm_risky_action",
		Prompt:     buildConfirmPrompt(call),
		ToolCallID: call.ID,
		ToolName:   call.Name,
		Options: []domain.InteractionOption{
			{ID: approvalOptionApprove, Label: "Approve", Style: "primary", IsDefault: true},
			{ID: approvalOptionReject, Label: "Reject", Style: "danger"},
		},
	})
}

func buildConfirmPrompt(call tools.Call) string {
	return fmt.Sprintf("Allow %s to run with arguments %s?", call.Name, string(call.Arguments))
}
