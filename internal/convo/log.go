// Package convo is the conversation log: the durable per-task transcript
// exchanged with the LLM, separate from the event log so high-volume
// message content never bloats the orchestration stream.
package convo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/seed-run/seed/internal/store"
	"github.com/seed-run/seed/pkg/domain"
)

// Log is the append-only conversation store backed by
// state/conversations.jsonl.
type Log struct {
	mu     sync.Mutex
	file   *store.AppendLog
	maxID  int64
	maxIdx map[string]int64
}

// Open loads path, recovering maxID and per-task index counters.
func Open(path string) (*Log, error) {
	f, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	existing, err := store.ReadAll[domain.ConversationEntry](path)
	if err != nil {
		return nil, err
	}
	l := &Log{file: f, maxIdx: make(map[string]int64)}
	for _, e := range existing {
		if e.ID > l.maxID {
			l.maxID = e.ID
		}
		if e.Index+1 > l.maxIdx[e.TaskID] {
			l.maxIdx[e.TaskID] = e.Index + 1
		}
	}
	return l, nil
}

// Append adds entry to the log, assigning ID and per-task Index.
func (l *Log) Append(ctx context.Context, entry domain.ConversationEntry) (domain.ConversationEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.maxID++
	entry.ID = l.maxID
	entry.Index = l.maxIdx[entry.TaskID]
	l.maxIdx[entry.TaskID] = entry.Index + 1
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := l.file.Append(entry); err != nil {
		return domain.ConversationEntry{}, err
	}
	return entry, nil
}

// History returns taskID's conversation in index order, suitable for
// rebuilding the message list handed to an LLMProvider after a restart.
func (l *Log) History(ctx context.Context, taskID string) ([]domain.ConversationEntry, error) {
	all, err := store.ReadAll[domain.ConversationEntry](l.file.Path())
	if err != nil {
		return nil, err
	}
	var out []domain.ConversationEntry
	for _, e := range all {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ReadAll returns every entry across all tasks with ID strictly greater
// than fromIDExclusive, in ID order — the global cursor read a UI bus or
// export job uses to tail the conversation log without replaying it from
// the start each time.
func (l *Log) ReadAll(ctx context.Context, fromIDExclusive int64) ([]domain.ConversationEntry, error) {
	all, err := store.ReadAll[domain.ConversationEntry](l.file.Path())
	if err != nil {
		return nil, err
	}
	var out []domain.ConversationEntry
	for _, e := range all {
		if e.ID > fromIDExclusive {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Truncate drops every entry for taskID except the keepLastN most recent
// (by Index), leaving every other task's entries untouched. Along with
// Clear, this is the only way entries are ever removed from the log.
func (l *Log) Truncate(ctx context.Context, taskID string, keepLastN int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := store.ReadAll[domain.ConversationEntry](l.file.Path())
	if err != nil {
		return err
	}

	var task []domain.ConversationEntry
	var rest []domain.ConversationEntry
	for _, e := range all {
		if e.TaskID == taskID {
			task = append(task, e)
		} else {
			rest = append(rest, e)
		}
	}
	sort.Slice(task, func(i, j int) bool { return task[i].Index < task[j].Index })
	if keepLastN < 0 {
		keepLastN = 0
	}
	if len(task) > keepLastN {
		task = task[len(task)-keepLastN:]
	}

	kept := append(rest, task...)
	sort.Slice(kept, func(i, j int) bool { return kept[i].ID < kept[j].ID })

	lines := make([]any, len(kept))
	for i, e := range kept {
		lines[i] = e
	}
	return l.file.Rewrite(lines)
}

// Clear removes every entry for taskID from the log.
func (l *Log) Clear(ctx context.Context, taskID string) error {
	return l.Truncate(ctx, taskID, 0)
}

// Close closes the backing file.
func (l *Log) Close() error { return l.file.Close() }
