package builtin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/seed-run/seed/internal/tools"
)

// ListFiles implements listFiles: a shallow or recursive directory
// listing scoped through the workspace resolver.
type ListFiles struct {
	deps Deps
}

func NewListFiles(d Deps) *ListFiles { return &ListFiles{deps: d} }

func (t *ListFiles) Name() string        { return "listFiles" }
func (t *ListFiles) Description() string { return "List files and directories under a workspace path." }
func (t *ListFiles) Risk() tools.Risk    { return tools.RiskSafe }

func (t *ListFiles) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":      map[string]any{"type": "string", "description": "defaults to private:/"},
			"recursive": map[string]any{"type": "boolean"},
		},
	}
}

type listEntry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

func (t *ListFiles) Execute(ctx context.Context, taskID string, args json.RawMessage) tools.Result {
	var in struct {
		Path      string `json:"path"`
		Recursive bool   `json:"recursive"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return errResult("invalid parameters: %v", err)
	}
	if strings.TrimSpace(in.Path) == "" {
		in.Path = "private:/"
	}

	resolved, err := t.deps.resolve(in.Path, taskID)
	if err != nil {
		return errResult("%v", err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return errResult("stat: %v", err)
	}
	if !info.IsDir() {
		return errResult("%s is not a directory", in.Path)
	}

	var entries []listEntry
	if in.Recursive {
		err = filepath.WalkDir(resolved, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if p == resolved {
				return nil
			}
			rel, relErr := filepath.Rel(resolved, p)
			if relErr != nil {
				return relErr
			}
			fi, fiErr := d.Info()
			if fiErr != nil {
				return fiErr
			}
			entries = append(entries, listEntry{Path: rel, IsDir: d.IsDir(), Size: fi.Size()})
			return nil
		})
		if err != nil {
			return errResult("walk: %v", err)
		}
	} else {
		dirEntries, readErr := os.ReadDir(resolved)
		if readErr != nil {
			return errResult("read dir: %v", readErr)
		}
		for _, d := range dirEntries {
			fi, fiErr := d.Info()
			if fiErr != nil {
				return errResult("stat %s: %v", d.Name(), fiErr)
			}
			entries = append(entries, listEntry{Path: d.Name(), IsDir: d.IsDir(), Size: fi.Size()})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	return okResult(map[string]any{
		"path":    in.Path,
		"entries": entries,
	})
}
