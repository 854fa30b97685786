package config

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/seed-run/seed/internal/observability"
)

// Watcher watches the flat list of files its caller passes (seedd passes
// only its config file) and calls back with debounced coalesced
// change notifications, grounded on skills.Manager's watchLoop but
// trimmed to a flat path list instead of a discovered directory tree.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   *observability.Logger
	debounce time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Watch starts watching paths and invokes onChange (debounced) whenever
// any of them is created, written, or renamed over. Call Close to stop.
func Watch(paths []string, onChange func(path string), logger *observability.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if err := fsw.Add(p); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{watcher: fsw, logger: logger, debounce: 250 * time.Millisecond, cancel: cancel}
	w.wg.Add(1)
	go w.loop(ctx, onChange)
	return w, nil
}

func (w *Watcher) loop(ctx context.Context, onChange func(path string)) {
	defer w.wg.Done()

	var mu sync.Mutex
	timers := map[string]*time.Timer{}
	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := timers[path]; ok {
			t.Stop()
		}
		timers[path] = time.AfterFunc(w.debounce, func() { onChange(path) })
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warn("config watch error", "error", err)
			}
		}
	}
}

// Close stops the watch loop and releases the underlying inotify handle.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
