package workspace

import (
	"testing"

	"github.com/seed-run/seed/pkg/domain"
)

func TestResolvePrivateScope(t *testing.T) {
	root := t.TempDir()
	r := New(root, nil)

	path, err := r.ResolveToolPath("private:/notes.txt", "task-1", "task-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if want := root + "/private/task-1/notes.txt"; path != want {
		t.Fatalf("got %q want %q", path, want)
	}
}

func TestResolveEscapeRejected(t *testing.T) {
	root := t.TempDir()
	r := New(root, nil)

	_, err := r.ResolveToolPath("private:/../../etc/passwd", "task-1", "task-1")
	if domain.KindOf(err) != domain.KindPathEscape {
		t.Fatalf("expected path escape error, got %v", err)
	}
}

func TestSharedScopeGatedOnDescendant(t *testing.T) {
	root := t.TempDir()
	r := New(root, func(rootTaskID string) bool { return rootTaskID == "has-child" })

	if _, err := r.ResolveToolPath("shared:/x", "task-1", "no-child"); err == nil {
		t.Fatal("expected error when root task has no descendant")
	}
	if _, err := r.ResolveToolPath("shared:/x", "task-1", "has-child"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestParseRejectsUnknownScope(t *testing.T) {
	if _, err := Parse("weird:/x"); domain.KindOf(err) != domain.KindInvalidPath {
		t.Fatalf("expected invalid path error, got %v", err)
	}
}

func TestParseDefaultsToPrivateScope(t *testing.T) {
	sp, err := Parse("notes.txt")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sp.Scope != domain.ScopePrivate || sp.Rel != "notes.txt" {
		t.Fatalf("got %+v, want private:/notes.txt", sp)
	}
}

func TestMapStorePathToLogicalPathRoundTrip(t *testing.T) {
	root := t.TempDir()
	r := New(root, func(string) bool { return true })

	for _, raw := range []string{"private:/notes.txt", "shared:/notes.txt", "public:/notes.txt"} {
		resolved, err := r.ResolveToolPath(raw, "task-1", "task-1")
		if err != nil {
			t.Fatalf("resolve %q: %v", raw, err)
		}
		logical, err := r.MapStorePathToLogicalPath(resolved, "task-1", "task-1")
		if err != nil {
			t.Fatalf("map %q back: %v", resolved, err)
		}
		if logical != raw {
			t.Fatalf("round trip %q -> %q -> %q, want %q", raw, resolved, logical, raw)
		}
	}
}

func TestMapStorePathToLogicalPathRejectsOutsideScope(t *testing.T) {
	root := t.TempDir()
	r := New(root, nil)

	if _, err := r.MapStorePathToLogicalPath("/etc/passwd", "task-1", "task-1"); domain.KindOf(err) != domain.KindInvalidPath {
		t.Fatalf("expected invalid path error, got %v", err)
	}
}
