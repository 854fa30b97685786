package builtin

import (
	"encoding/json"
	"fmt"

	"github.com/seed-run/seed/internal/tools"
	"github.com/seed-run/seed/internal/workspace"
)

// RootTaskIDFunc maps a task ID to its root task ID, used when resolving
// shared:/ scope. Supplied by the caller so builtin tools don't depend on
// the tasks package directly (avoiding an import cycle: tasks -> tools
// would be natural, tools -> tasks would not).
type RootTaskIDFunc func(taskID string) string

// Deps are the shared dependencies every builtin tool needs.
type Deps struct {
	Resolver   *workspace.Resolver
	RootTaskID RootTaskIDFunc
}

func (d Deps) resolve(scopedPath, taskID string) (string, error) {
	root := taskID
	if d.RootTaskID != nil {
		if r := d.RootTaskID(taskID); r != "" {
			root = r
		}
	}
	return d.Resolver.ResolveToolPath(scopedPath, taskID, root)
}

// toLogical converts an absolute filesystem path back into "scope:/rel"
// form for the given task, for tools that report paths discovered by
// walking the filesystem (grep) rather than supplied by the caller.
func (d Deps) toLogical(storePath, taskID string) (string, error) {
	root := taskID
	if d.RootTaskID != nil {
		if r := d.RootTaskID(taskID); r != "" {
			root = r
		}
	}
	return d.Resolver.MapStorePathToLogicalPath(storePath, taskID, root)
}

func errResult(format string, args ...any) tools.Result {
	msg := fmt.Sprintf(format, args...)
	payload, _ := json.Marshal(map[string]string{"error": msg})
	return tools.Result{Content: string(payload), IsError: true}
}

func okResult(v any) tools.Result {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errResult("encode result: %v", err)
	}
	return tools.Result{Content: string(payload)}
}

// Register adds every mandatory builtin tool to reg.
func Register(reg *tools.Registry, d Deps, execMgr *ExecManager) error {
	ts := []tools.Tool{
		NewReadFile(d),
		NewEditFile(d),
		NewListFiles(d),
		NewGlobTool(d),
		NewGrepTool(d),
		NewRunCommand(d, execMgr),
	}
	for _, t := range ts {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}
