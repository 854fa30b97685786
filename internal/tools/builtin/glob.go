package builtin

import (
	"context"
	"encoding/json"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/seed-run/seed/internal/tools"
)

// GlobTool implements globTool: a recursive glob-pattern search rooted
// at a scoped workspace path.
type GlobTool struct {
	deps Deps
}

func NewGlobTool(d Deps) *GlobTool { return &GlobTool{deps: d} }

func (t *GlobTool) Name() string        { return "globTool" }
func (t *GlobTool) Description() string { return "Find files under a workspace path matching a glob pattern, e.g. **/*.go." }
func (t *GlobTool) Risk() tools.Risk    { return tools.RiskSafe }

func (t *GlobTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{"type": "string"},
			"path":    map[string]any{"type": "string", "description": "defaults to private:/"},
		},
		"required": []string{"pattern"},
	}
}

func (t *GlobTool) Execute(ctx context.Context, taskID string, args json.RawMessage) tools.Result {
	var in struct {
		Pattern string `json:"pattern"`
		Path    string `json:"path"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return errResult("invalid parameters: %v", err)
	}
	if strings.TrimSpace(in.Pattern) == "" {
		return errResult("pattern is required")
	}
	if strings.TrimSpace(in.Path) == "" {
		in.Path = "private:/"
	}

	resolved, err := t.deps.resolve(in.Path, taskID)
	if err != nil {
		return errResult("%v", err)
	}

	var matches []string
	err = filepath.WalkDir(resolved, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(resolved, p)
		if relErr != nil {
			return relErr
		}
		ok, matchErr := globMatch(in.Pattern, rel)
		if matchErr != nil {
			return matchErr
		}
		if ok {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return errResult("glob: %v", err)
	}

	sort.Strings(matches)

	return okResult(map[string]any{
		"pattern": in.Pattern,
		"matches": matches,
	})
}

// globMatch supports a "**" segment meaning any number of directories,
// in addition to filepath.Match's single-segment wildcards.
func globMatch(pattern, rel string) (bool, error) {
	rel = filepath.ToSlash(rel)
	pattern = filepath.ToSlash(pattern)

	if strings.Contains(pattern, "**") {
		idx := strings.Index(pattern, "**")
		prefix := strings.TrimSuffix(pattern[:idx], "/")
		suffix := strings.TrimPrefix(pattern[idx+2:], "/")
		if prefix != "" && !strings.HasPrefix(rel, prefix) {
			return false, nil
		}
		remainder := rel
		if prefix != "" {
			remainder = strings.TrimPrefix(strings.TrimPrefix(remainder, prefix), "/")
		}
		if suffix == "" {
			return true, nil
		}
		return filepath.Match(suffix, filepath.Base(remainder))
	}

	return filepath.Match(pattern, rel)
}
