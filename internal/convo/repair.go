package convo

import "github.com/seed-run/seed/pkg/domain"

// Repair reconciles a task's conversation history so every tool-result
// entry answers a tool call of the assistant turn before it. A crash between
// an assistant turn and its tool results (or between a tool result and the
// next assistant turn) can otherwise leave an LLMProvider request with
// dangling tool_use/tool_result pairs, which most providers reject.
//
// A tool result whose call is not pending (never issued, already answered,
// or issued before a later assistant turn) is dropped; a result with no
// ToolCallID is matched to the oldest pending call. Assistant tool calls
// left without a result are kept as they are: no result entry is added.
func Repair(history []domain.ConversationEntry) []domain.ConversationEntry {
	if len(history) == 0 {
		return history
	}

	pending := make(map[string]struct{})
	order := make([]string, 0)
	repaired := make([]domain.ConversationEntry, 0, len(history))

	clearPending := func() {
		for k := range pending {
			delete(pending, k)
		}
		order = order[:0]
	}

	for _, e := range history {
		switch e.Role {
		case domain.RoleAssistant:
			clearPending()
			for _, call := range e.ToolCalls {
				if call.ID == "" {
					continue
				}
				pending[call.ID] = struct{}{}
				order = append(order, call.ID)
			}
			repaired = append(repaired, e)

		case domain.RoleTool:
			id := e.ToolCallID
			if id == "" && len(order) > 0 {
				id = order[0]
			}
			if id == "" {
				continue
			}
			if _, ok := pending[id]; !ok {
				continue
			}
			delete(pending, id)
			order = removeID(order, id)
			e.ToolCallID = id
			repaired = append(repaired, e)

		default:
			repaired = append(repaired, e)
		}
	}

	return repaired
}

func removeID(ids []string, target string) []string {
	for i, id := range ids {
		if id == target {
			copy(ids[i:], ids[i+1:])
			return ids[:len(ids)-1]
		}
	}
	return ids
}
