// Package projection implements the deterministic fold from the event log
// into read-model state, with crash-safe checkpointing.
package projection

import (
	"context"
	"fmt"

	"github.com/seed-run/seed/internal/eventlog"
	"github.com/seed-run/seed/pkg/domain"
)

// Reducer folds a single event into state, returning the updated state.
// Reducers must be pure and total: every domain.EventType the log can carry
// must be handled (even if only to pass state through unchanged), so a
// projection can never silently drop an event it doesn't recognize.
type Reducer[S any] func(state S, evt domain.StoredEvent) S

// checkpoint is the on-disk shape for a projection's persisted state:
// the folded value plus the last event ID it has incorporated, so a
// restart resumes the fold instead of replaying from scratch.
type checkpoint[S any] struct {
	Cursor int64 `json:"cursor"`
	State  S     `json:"state"`
}

// Projection maintains one named read model derived from a Log.
type Projection[S any] struct {
	name  string
	store *Store
	log   *eventlog.Log
	zero  S
	fold  Reducer[S]

	state  S
	cursor int64
}

// Open loads a persisted checkpoint for name from st (or starts from
// zero), then replays any events appended to log since the checkpoint's
// cursor, and subscribes to keep state current as new events arrive.
func Open[S any](log *eventlog.Log, st *Store, name string, zero S, fold Reducer[S]) (*Projection[S], error) {
	p := &Projection[S]{name: name, store: st, log: log, zero: zero, fold: fold, state: zero}

	var cp checkpoint[S]
	found, err := st.load(name, &cp)
	if err != nil {
		return nil, fmt.Errorf("projection %s: load checkpoint: %w", name, err)
	}
	if found {
		p.state = cp.State
		p.cursor = cp.Cursor
	}

	all, err := log.ReadAll(context.Background())
	if err != nil {
		return nil, fmt.Errorf("projection %s: replay: %w", name, err)
	}
	for _, e := range all {
		if e.ID <= p.cursor {
			continue
		}
		p.state = p.fold(p.state, e)
		p.cursor = e.ID
	}
	if err := p.checkpoint(); err != nil {
		return nil, err
	}

	log.Subscribe(func(e domain.StoredEvent) {
		p.apply(e)
	})

	return p, nil
}

func (p *Projection[S]) apply(e domain.StoredEvent) {
	if e.ID <= p.cursor {
		return
	}
	p.state = p.fold(p.state, e)
	p.cursor = e.ID
	_ = p.checkpoint()
}

func (p *Projection[S]) checkpoint() error {
	return p.store.save(p.name, checkpoint[S]{Cursor: p.cursor, State: p.state})
}

// State returns the projection's current folded value.
func (p *Projection[S]) State() S { return p.state }

// Cursor returns the last event ID incorporated into State.
func (p *Projection[S]) Cursor() int64 { return p.cursor }
