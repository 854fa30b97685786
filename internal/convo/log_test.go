package convo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/seed-run/seed/pkg/domain"
)

func TestAppendAssignsGlobalIDAndPerTaskIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	ctx := context.Background()
	a, err := log.Append(ctx, domain.ConversationEntry{TaskID: "t1", Role: domain.RoleUser, Content: "hi"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	b, err := log.Append(ctx, domain.ConversationEntry{TaskID: "t2", Role: domain.RoleUser, Content: "hello"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	c, err := log.Append(ctx, domain.ConversationEntry{TaskID: "t1", Role: domain.RoleAssistant, Content: "hi back"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	if a.ID != 1 || b.ID != 2 || c.ID != 3 {
		t.Fatalf("ids = %d, %d, %d, want 1, 2, 3", a.ID, b.ID, c.ID)
	}
	if a.Index != 0 || c.Index != 1 {
		t.Fatalf("t1 indexes = %d, %d, want 0, 1", a.Index, c.Index)
	}
	if b.Index != 0 {
		t.Fatalf("t2 index = %d, want 0", b.Index)
	}
}

func TestHistoryFiltersByTask(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	ctx := context.Background()
	mustAppend(t, log, ctx, domain.ConversationEntry{TaskID: "t1", Role: domain.RoleUser, Content: "one"})
	mustAppend(t, log, ctx, domain.ConversationEntry{TaskID: "t2", Role: domain.RoleUser, Content: "other"})
	mustAppend(t, log, ctx, domain.ConversationEntry{TaskID: "t1", Role: domain.RoleAssistant, Content: "two"})

	history, err := log.History(ctx, "t1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 || history[0].Content != "one" || history[1].Content != "two" {
		t.Fatalf("History = %+v", history)
	}
}

func TestReadAllGlobalCursor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	ctx := context.Background()
	mustAppend(t, log, ctx, domain.ConversationEntry{TaskID: "t1", Role: domain.RoleUser, Content: "one"})
	second := mustAppend(t, log, ctx, domain.ConversationEntry{TaskID: "t2", Role: domain.RoleUser, Content: "two"})
	mustAppend(t, log, ctx, domain.ConversationEntry{TaskID: "t1", Role: domain.RoleAssistant, Content: "three"})

	entries, err := log.ReadAll(ctx, second.ID)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(entries) != 1 || entries[0].Content != "three" {
		t.Fatalf("ReadAll(%d) = %+v, want just the third entry", second.ID, entries)
	}

	all, err := log.ReadAll(ctx, 0)
	if err != nil {
		t.Fatalf("ReadAll(0): %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ReadAll(0) = %d entries, want 3", len(all))
	}
}

func TestTruncateDropsOldestForTaskOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	ctx := context.Background()
	mustAppend(t, log, ctx, domain.ConversationEntry{TaskID: "t1", Role: domain.RoleUser, Content: "one"})
	mustAppend(t, log, ctx, domain.ConversationEntry{TaskID: "t1", Role: domain.RoleAssistant, Content: "two"})
	mustAppend(t, log, ctx, domain.ConversationEntry{TaskID: "t1", Role: domain.RoleUser, Content: "three"})
	mustAppend(t, log, ctx, domain.ConversationEntry{TaskID: "t2", Role: domain.RoleUser, Content: "untouched"})

	if err := log.Truncate(ctx, "t1", 1); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	t1, err := log.History(ctx, "t1")
	if err != nil {
		t.Fatalf("History(t1): %v", err)
	}
	if len(t1) != 1 || t1[0].Content != "three" {
		t.Fatalf("History(t1) after truncate = %+v, want just the last entry", t1)
	}

	t2, err := log.History(ctx, "t2")
	if err != nil {
		t.Fatalf("History(t2): %v", err)
	}
	if len(t2) != 1 || t2[0].Content != "untouched" {
		t.Fatalf("History(t2) after truncating t1 = %+v, want it unchanged", t2)
	}
}

func TestClearRemovesAllEntriesForTask(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	ctx := context.Background()
	mustAppend(t, log, ctx, domain.ConversationEntry{TaskID: "t1", Role: domain.RoleUser, Content: "one"})
	mustAppend(t, log, ctx, domain.ConversationEntry{TaskID: "t1", Role: domain.RoleAssistant, Content: "two"})

	if err := log.Clear(ctx, "t1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	history, err := log.History(ctx, "t1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("History after Clear = %+v, want empty", history)
	}

	// Clearing survives a reopen: Rewrite must have durably replaced the file.
	log.Close()
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	history, err = reopened.History(ctx, "t1")
	if err != nil {
		t.Fatalf("History after reopen: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("History after reopen = %+v, want empty", history)
	}
}

func mustAppend(t *testing.T, log *Log, ctx context.Context, entry domain.ConversationEntry) domain.ConversationEntry {
	t.Helper()
	got, err := log.Append(ctx, entry)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	return got
}
