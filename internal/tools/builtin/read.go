package builtin

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/seed-run/seed/internal/tools"
)

const defaultMaxReadBytes = 200_000

// ReadFile implements readFile: a safe, offset/limit bounded file read
// scoped through the workspace resolver.
type ReadFile struct {
	deps Deps
}

func NewReadFile(d Deps) *ReadFile { return &ReadFile{deps: d} }

func (t *ReadFile) Name() string        { return "readFile" }
func (t *ReadFile) Description() string { return "Read a file from the workspace with optional offset and byte limit." }
func (t *ReadFile) Risk() tools.Risk    { return tools.RiskSafe }

func (t *ReadFile) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":      map[string]any{"type": "string", "description": "scope:/relative/path, e.g. private:/src/main.go"},
			"offset":    map[string]any{"type": "integer", "minimum": 0},
			"max_bytes": map[string]any{"type": "integer", "minimum": 0},
		},
		"required": []string{"path"},
	}
}

func (t *ReadFile) Execute(ctx context.Context, taskID string, args json.RawMessage) tools.Result {
	var in struct {
		Path     string `json:"path"`
		Offset   int64  `json:"offset"`
		MaxBytes int    `json:"max_bytes"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return errResult("invalid parameters: %v", err)
	}
	if strings.TrimSpace(in.Path) == "" {
		return errResult("path is required")
	}
	if in.Offset < 0 {
		return errResult("offset must be >= 0")
	}

	resolved, err := t.deps.resolve(in.Path, taskID)
	if err != nil {
		return errResult("%v", err)
	}

	f, err := os.Open(resolved)
	if err != nil {
		return errResult("open file: %v", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errResult("stat file: %v", err)
	}
	if info.IsDir() {
		return errResult("%s is a directory", in.Path)
	}

	if in.Offset > 0 {
		if _, err := f.Seek(in.Offset, io.SeekStart); err != nil {
			return errResult("seek file: %v", err)
		}
	}

	limit := defaultMaxReadBytes
	if in.MaxBytes > 0 && in.MaxBytes < limit {
		limit = in.MaxBytes
	}

	remaining := info.Size() - in.Offset
	if remaining < 0 {
		remaining = 0
	}
	if remaining > int64(limit) {
		remaining = int64(limit)
	}

	buf, err := io.ReadAll(io.LimitReader(f, remaining))
	if err != nil {
		return errResult("read file: %v", err)
	}

	truncated := in.Offset+int64(len(buf)) < info.Size()

	return okResult(map[string]any{
		"path":      in.Path,
		"content":   string(buf),
		"offset":    in.Offset,
		"bytes":     len(buf),
		"truncated": truncated,
	})
}
