// Package store provides the append-only JSONL file primitives shared by
// the event log, conversation log, and audit log: durable line-oriented
// append with fsync, and full-file replay.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// AppendLog is a durable, process-local append-only JSONL file. Every
// Append call holds the writer mutex for the duration of marshal+write+
// fsync, matching the teacher's TracePlugin.OnEvent header-once-then-lines
// pattern (without the header: these files are self-describing per line).
type AppendLog struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// Open creates path's parent directory if needed and opens path for
// append, creating it if absent.
func Open(path string) (*AppendLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	return &AppendLog{path: path, f: f}, nil
}

// Append marshals v as one JSON line and fsyncs before returning, so a
// caller that has seen Append return nil can rely on the line surviving a
// crash.
func (l *AppendLog) Append(v any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}
	b = append(b, '\n')
	if _, err := l.f.Write(b); err != nil {
		return fmt.Errorf("store: write: %w", err)
	}
	return l.f.Sync()
}

// Close closes the underlying file.
func (l *AppendLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// Rewrite replaces the file's entire contents by marshaling each of lines
// as one JSON line, via a temp file plus rename so a reader never observes
// a half-written file, then reopens the append handle onto the new file.
// This is the only way this package's append-only files are ever mutated
// after the fact — truncation and clearing, both destructive by nature.
func (l *AppendLog) Rewrite(lines []any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tmp := l.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("store: create temp: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, v := range lines {
		b, err := json.Marshal(v)
		if err != nil {
			f.Close()
			return fmt.Errorf("store: marshal: %w", err)
		}
		b = append(b, '\n')
		if _, err := w.Write(b); err != nil {
			f.Close()
			return fmt.Errorf("store: write temp: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("store: flush temp: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("store: sync temp: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("store: close temp: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("store: rename: %w", err)
	}

	if err := l.f.Close(); err != nil {
		return fmt.Errorf("store: close old handle: %w", err)
	}
	nf, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("store: reopen %s: %w", l.path, err)
	}
	l.f = nf
	return nil
}

// Path returns the backing file path.
func (l *AppendLog) Path() string { return l.path }

// ReadAll decodes every line of path into a T, skipping a trailing blank
// line. The file need not exist; a missing file yields an empty slice.
//
// A line that fails to unmarshal is skipped with a logged warning rather
// than failing the whole read: a single torn write (the process died
// mid-fsync) must not make the rest of the log unreadable at startup.
func ReadAll[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	defer f.Close()

	var out []T
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			slog.Warn("store: skipping malformed line", "path", path, "line", lineNum, "error", err)
			continue
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("store: scan %s: %w", path, err)
	}
	return out, nil
}

// WriteAtomic writes v as a single JSON document to path via a temp file
// plus rename, so a reader never observes a partially written file. Used
// for projection checkpoints.
func WriteAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("store: mkdir: %w", err)
	}
	tmp := path + ".tmp"
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("store: write temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("store: rename: %w", err)
	}
	return nil
}

// ReadAtomic decodes the single JSON document at path into v. Returns
// (false, nil) if path does not exist.
func ReadAtomic(path string, v any) (bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("store: read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("store: decode %s: %w", path, err)
	}
	return true, nil
}
