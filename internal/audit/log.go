// Package audit is the tool-call lifecycle log: every request and
// completion, independent of the conversation log, used to reconcile
// crashed runs during transcript repair and to answer "what did this task
// actually do" audits.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/seed-run/seed/internal/store"
	"github.com/seed-run/seed/pkg/domain"
)

// Log is the append-only audit store backed by state/audit.jsonl.
type Log struct {
	mu    sync.Mutex
	file  *store.AppendLog
	maxID int64
}

// Open loads path, recovering the ID counter.
func Open(path string) (*Log, error) {
	f, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	existing, err := store.ReadAll[domain.AuditEntry](path)
	if err != nil {
		return nil, err
	}
	l := &Log{file: f}
	for _, e := range existing {
		if e.ID > l.maxID {
			l.maxID = e.ID
		}
	}
	return l, nil
}

// Append adds entry to the log, assigning its ID.
func (l *Log) Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.maxID++
	entry.ID = l.maxID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := l.file.Append(entry); err != nil {
		return domain.AuditEntry{}, err
	}
	return entry, nil
}

// ByTask returns every audit entry for taskID in append order.
func (l *Log) ByTask(ctx context.Context, taskID string) ([]domain.AuditEntry, error) {
	all, err := store.ReadAll[domain.AuditEntry](l.file.Path())
	if err != nil {
		return nil, err
	}
	var out []domain.AuditEntry
	for _, e := range all {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

// CompletedToolCallIDs returns the set of ToolCallIDs for which a
// ToolCallCompleted entry exists for taskID, used by transcript repair to
// tell a crash-orphaned tool call (ran, audit recorded it, but the
// conversation-log write never landed) from one that never ran at all.
func (l *Log) CompletedToolCallIDs(ctx context.Context, taskID string) (map[string]domain.AuditEntry, error) {
	entries, err := l.ByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.AuditEntry)
	for _, e := range entries {
		if e.Type == domain.AuditToolCallCompleted {
			out[e.ToolCallID] = e
		}
	}
	return out, nil
}

// Close closes the backing file.
func (l *Log) Close() error { return l.file.Close() }
