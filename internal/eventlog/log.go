// Package eventlog implements the append-only, globally and per-stream
// ordered event log described by the orchestrator's event-sourcing core.
package eventlog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/seed-run/seed/internal/store"
	"github.com/seed-run/seed/pkg/domain"
)

// DefaultAppendLockTimeout bounds how long Append waits for the on-disk
// lock before giving up with domain.ErrLockTimeout.
const DefaultAppendLockTimeout = 2 * time.Second

// Log is the event log for one workspace. It is safe for concurrent use;
// Append serializes through both an in-process mutex (fast path for the
// common single-process case) and an on-disk FileLock (so a second `seed`
// process started against the same workspace fails fast instead of
// corrupting state/events.jsonl).
type Log struct {
	mu   sync.Mutex
	file *store.AppendLog
	lock *store.FileLock

	maxID   int64
	maxSeq  map[string]int64
	pub     *publisher
}

// Open loads path (creating it if absent), replays it to recover maxID and
// per-stream maxSeq, and returns a ready Log.
func Open(path string) (*Log, error) {
	f, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	existing, err := store.ReadAll[domain.StoredEvent](path)
	if err != nil {
		return nil, err
	}

	l := &Log{
		file:   f,
		lock:   store.NewFileLock(path),
		maxSeq: make(map[string]int64),
		pub:    newPublisher(),
	}
	for _, e := range existing {
		if e.ID > l.maxID {
			l.maxID = e.ID
		}
		if e.Seq > l.maxSeq[e.TaskID] {
			l.maxSeq[e.TaskID] = e.Seq
		}
	}
	return l, nil
}

// Append assigns (id, seq, createdAt) to evt, durably appends it, and
// publishes it on the live feed. The on-disk lock is held only for the
// duration of the append, matching the spec's 2s LockTimeout.
func (l *Log) Append(ctx context.Context, evt domain.DomainEvent) (domain.StoredEvent, error) {
	if evt.TaskID == "" {
		return domain.StoredEvent{}, domain.Wrap(domain.ErrValidation, "taskId required", nil)
	}

	release, err := l.lock.Acquire(ctx, DefaultAppendLockTimeout)
	if err != nil {
		return domain.StoredEvent{}, err
	}
	defer release()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Reconcile the cached counters with the file before assigning, so
	// lines written by another Log on the same file are never reused.
	existing, err := store.ReadAll[domain.StoredEvent](l.file.Path())
	if err != nil {
		return domain.StoredEvent{}, fmt.Errorf("eventlog: reconcile: %w", err)
	}
	for _, e := range existing {
		if e.ID > l.maxID {
			l.maxID = e.ID
		}
		if e.Seq > l.maxSeq[e.TaskID] {
			l.maxSeq[e.TaskID] = e.Seq
		}
	}

	l.maxID++
	l.maxSeq[evt.TaskID]++
	stored := domain.StoredEvent{
		ID:        l.maxID,
		Seq:       l.maxSeq[evt.TaskID],
		TaskID:    evt.TaskID,
		Type:      evt.Type,
		Payload:   evt.Payload,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.file.Append(stored); err != nil {
		return domain.StoredEvent{}, fmt.Errorf("eventlog: append: %w", err)
	}
	// Publishing while still holding mu keeps subscribers' view of event
	// order identical to append order even when callers append
	// concurrently; Subscribe's contract requires fn not block.
	l.pub.publish(stored)
	return stored, nil
}

// ReadAll returns every event in the log in append order.
func (l *Log) ReadAll(ctx context.Context) ([]domain.StoredEvent, error) {
	return store.ReadAll[domain.StoredEvent](l.file.Path())
}

// ReadStream returns every event for taskID in Seq order.
func (l *Log) ReadStream(ctx context.Context, taskID string) ([]domain.StoredEvent, error) {
	all, err := l.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.StoredEvent
	for _, e := range all {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ReadByID returns the event with the given global id.
func (l *Log) ReadByID(ctx context.Context, id int64) (domain.StoredEvent, bool, error) {
	all, err := l.ReadAll(ctx)
	if err != nil {
		return domain.StoredEvent{}, false, err
	}
	for _, e := range all {
		if e.ID == id {
			return e, true, nil
		}
	}
	return domain.StoredEvent{}, false, nil
}

// Subscribe registers fn to be called (from the appending goroutine) for
// every event appended from now on, until the returned func is called to
// unsubscribe. fn must not block.
func (l *Log) Subscribe(fn func(domain.StoredEvent)) (unsubscribe func()) {
	return l.pub.subscribe(fn)
}

// Close releases the underlying file handle.
func (l *Log) Close() error {
	return l.file.Close()
}
