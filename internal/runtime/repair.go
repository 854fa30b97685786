package runtime

import (
	"context"

	"github.com/seed-run/seed/internal/audit"
	"github.com/seed-run/seed/internal/convo"
	"github.com/seed-run/seed/pkg/domain"
)

// repairTranscript finds assistant messages whose tool calls have no
// following tool-result message — the signature of a crash between
// executing a tool and persisting its result — and resolves each: if the
// audit log shows the call completed, it synthesizes the missing tool
// message from that record; otherwise the call is considered
// never-executed and is returned in toReissue for the runtime to run
// again. This keeps the "every tool call is paired with a result"
// invariant the LLM provider contract requires, across restarts.
func repairTranscript(ctx context.Context, convoLog *convo.Log, auditLog *audit.Log, taskID string, history []domain.ConversationEntry) (toReissue []domain.ToolCall, err error) {
	completed, err := auditLog.CompletedToolCallIDs(ctx, taskID)
	if err != nil {
		return nil, err
	}

	answered := make(map[string]bool)
	for _, e := range history {
		if e.Role == domain.RoleTool && e.ToolCallID != "" {
			answered[e.ToolCallID] = true
		}
	}

	for _, e := range history {
		if e.Role != domain.RoleAssistant || len(e.ToolCalls) == 0 {
			continue
		}
		for _, tc := range e.ToolCalls {
			if answered[tc.ID] {
				continue
			}
			audited, ok := completed[tc.ID]
			if !ok {
				toReissue = append(toReissue, tc)
				continue
			}
			_, err := convoLog.Append(ctx, domain.ConversationEntry{
				TaskID:     taskID,
				Role:       domain.RoleTool,
				ToolCallID: tc.ID,
				Content:    string(audited.Result),
				IsError:    audited.IsError,
			})
			if err != nil {
				return nil, err
			}
			answered[tc.ID] = true
		}
	}
	return toReissue, nil
}
