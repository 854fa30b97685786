package runtime

import (
	"fmt"
	stdruntime "runtime"
	"strings"
	"time"

	"github.com/seed-run/seed/internal/workspace"
	"github.com/seed-run/seed/pkg/domain"
)

// buildSystemMessage composes the first system message a task's
// conversation ever receives: the agent's configured preamble plus
// ambient project context (working directory, platform, date, and the
// workspace's AGENTS.md memory file when one exists).
func buildSystemMessage(preamble, workingDir string, agentsFile string) string {
	var b strings.Builder
	if preamble != "" {
		b.WriteString(preamble)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Working directory: %s\n", workingDir)
	fmt.Fprintf(&b, "Platform: %s\n", stdruntime.GOOS)
	fmt.Fprintf(&b, "Date: %s\n", time.Now().UTC().Format("2006-01-02"))

	if strings.TrimSpace(agentsFile) != "" {
		b.WriteString("\n")
		b.WriteString(agentsFile)
	}

	return b.String()
}

// buildInitialUserMessage composes the first user message from the
// task's title/intent.
func buildInitialUserMessage(task domain.Task) string {
	var b strings.Builder
	b.WriteString(task.Title)
	if task.Intent != "" {
		b.WriteString("\n\n")
		b.WriteString(task.Intent)
	}
	return b.String()
}

// readAgentsFile loads the workspace's AGENTS.md, returning "" if absent.
func readAgentsFile(workspaceRoot string) string {
	content, err := workspace.ReadAgentsFile(workspaceRoot)
	if err != nil {
		return ""
	}
	return content
}
