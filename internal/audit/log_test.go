package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/seed-run/seed/pkg/domain"
)

func TestAppendAssignsSequentialIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	first, err := log.Append(context.Background(), domain.AuditEntry{TaskID: "t1", Type: domain.AuditToolCallRequested})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	second, err := log.Append(context.Background(), domain.AuditEntry{TaskID: "t1", Type: domain.AuditToolCallCompleted})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if first.ID != 1 || second.ID != 2 {
		t.Errorf("ids = %d, %d, want 1, 2", first.ID, second.ID)
	}
}

func TestByTaskFiltersAndCompletedToolCallIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	ctx := context.Background()
	mustAppend := func(entry domain.AuditEntry) {
		t.Helper()
		if _, err := log.Append(ctx, entry); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	mustAppend(domain.AuditEntry{TaskID: "t1", Type: domain.AuditToolCallRequested, ToolCallID: "call-1"})
	mustAppend(domain.AuditEntry{TaskID: "t1", Type: domain.AuditToolCallCompleted, ToolCallID: "call-1"})
	mustAppend(domain.AuditEntry{TaskID: "t2", Type: domain.AuditToolCallRequested, ToolCallID: "call-2"})

	entries, err := log.ByTask(ctx, "t1")
	if err != nil {
		t.Fatalf("ByTask: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	completed, err := log.CompletedToolCallIDs(ctx, "t1")
	if err != nil {
		t.Fatalf("CompletedToolCallIDs: %v", err)
	}
	if _, ok := completed["call-1"]; !ok {
		t.Error("expected call-1 to be marked completed")
	}
	if _, ok := completed["call-2"]; ok {
		t.Error("call-2 belongs to a different task")
	}
}

func TestOpenRecoversIDCounter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := log.Append(context.Background(), domain.AuditEntry{TaskID: "t1", Type: domain.AuditToolCallRequested}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	next, err := reopened.Append(context.Background(), domain.AuditEntry{TaskID: "t1", Type: domain.AuditToolCallCompleted})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if next.ID != 2 {
		t.Errorf("id after reopen = %d, want 2", next.ID)
	}
}
