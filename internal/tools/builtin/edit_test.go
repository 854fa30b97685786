package builtin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/seed-run/seed/internal/workspace"
)

func newTestDeps(t *testing.T) (Deps, string) {
	t.Helper()
	root := t.TempDir()
	return Deps{Resolver: workspace.New(root, nil)}, root
}

func TestEditFileEmptyOldTextCreatesNewFile(t *testing.T) {
	deps, root := newTestDeps(t)
	tool := NewEditFile(deps)

	args, _ := json.Marshal(map[string]any{
		"path": "private:/new.txt",
		"edits": []map[string]any{
			{"old_text": "", "new_text": "hello\n"},
		},
	})
	res := tool.Execute(context.Background(), "task-1", args)
	if res.IsError {
		t.Fatalf("Execute returned an error: %s", res.Content)
	}

	got, err := os.ReadFile(filepath.Join(root, "private", "task-1", "new.txt"))
	if err != nil {
		t.Fatalf("read created file: %v", err)
	}
	if string(got) != "hello\n" {
		t.Fatalf("content = %q, want %q", got, "hello\n")
	}
}

func TestEditFileEmptyOldTextConflictsOnExistingFile(t *testing.T) {
	deps, root := newTestDeps(t)
	tool := NewEditFile(deps)

	dir := filepath.Join(root, "private", "task-1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("already here"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	args, _ := json.Marshal(map[string]any{
		"path": "private:/existing.txt",
		"edits": []map[string]any{
			{"old_text": "", "new_text": "overwritten"},
		},
	})
	res := tool.Execute(context.Background(), "task-1", args)
	if !res.IsError {
		t.Fatalf("expected a conflict error, got success: %s", res.Content)
	}
}

func TestEditFileFlexibleWhitespaceMatchesDelimiterSpacing(t *testing.T) {
	deps, root := newTestDeps(t)
	tool := NewEditFile(deps)

	dir := filepath.Join(root, "private", "task-1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "main.go")
	if err := os.WriteFile(path, []byte("func foo( ) {\n\treturn\n}\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	args, _ := json.Marshal(map[string]any{
		"path": "private:/main.go",
		"edits": []map[string]any{
			{"old_text": "foo()", "new_text": "foo(x)"},
		},
	})
	res := tool.Execute(context.Background(), "task-1", args)
	if res.IsError {
		t.Fatalf("Execute returned an error: %s", res.Content)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if want := "func foo(x) {\n\treturn\n}\n"; string(got) != want {
		t.Fatalf("content = %q, want %q", got, want)
	}
}

func TestFindFlexibleWhitespaceDelimiterExpansion(t *testing.T) {
	idx, length, ok := findFlexibleWhitespace("call foo( ) here", "foo()")
	if !ok {
		t.Fatal("expected a match for foo() against foo( )")
	}
	if got := "call foo( ) here"[idx : idx+length]; got != "foo( )" {
		t.Fatalf("matched %q, want %q", got, "foo( )")
	}
}
