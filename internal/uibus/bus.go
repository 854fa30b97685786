// Package uibus is the ephemeral, lossy publish-subscribe feed a UI
// subscribes to for live updates: audit entries, streamed agent output,
// and task-status changes. Nothing here is durable — the event log is the
// durable record — so a dropped message only costs a UI refresh, never
// correctness.
package uibus

import (
	"sync/atomic"
)

// Kind is the payload kind carried on the bus.
type Kind string

const (
	KindAuditEntry   Kind = "audit_entry"
	KindAgentOutput  Kind = "agent_output"
	KindTaskUpdated  Kind = "task_updated"
)

// Message is one bus payload, scoped to a task.
type Message struct {
	TaskID string
	Kind   Kind
	Data   any
}

// droppable reports whether Kind can be dropped under backpressure.
// AgentOutput (streamed model/tool deltas) is high-volume and safe to
// drop; audit entries and task-status changes are not, matching
// BackpressureSink's isDroppableEvent split between deltas/stdio and
// lifecycle events.
func (k Kind) droppable() bool {
	return k == KindAgentOutput
}

// Config sizes the bus's two lanes.
type Config struct {
	HighPriBuffer int // default 32
	LowPriBuffer  int // default configurable chunk cap, e.g. 5000
}

// DefaultConfig returns the spec's defaults (low-priority cap 5000).
func DefaultConfig() Config {
	return Config{HighPriBuffer: 32, LowPriBuffer: 5000}
}

// Bus is a two-lane backpressure sink: high-priority messages block
// (briefly) rather than drop; low-priority messages are dropped oldest-
// first once the lane is full.
type Bus struct {
	highPri chan Message
	lowPri  chan Message
	merged  chan Message
	dropped uint64
	closed  uint32
}

// New creates a Bus and starts its merge loop. Call Close when done.
func New(cfg Config) *Bus {
	if cfg.HighPriBuffer <= 0 {
		cfg.HighPriBuffer = 32
	}
	if cfg.LowPriBuffer <= 0 {
		cfg.LowPriBuffer = 5000
	}
	b := &Bus{
		highPri: make(chan Message, cfg.HighPriBuffer),
		lowPri:  make(chan Message, cfg.LowPriBuffer),
		merged:  make(chan Message, cfg.HighPriBuffer),
	}
	go b.mergeLoop()
	return b
}

// Publish sends msg through the appropriate lane.
func (b *Bus) Publish(msg Message) {
	if atomic.LoadUint32(&b.closed) == 1 {
		return
	}
	if msg.Kind.droppable() {
		select {
		case b.lowPri <- msg:
		default:
			// Lane full: drop oldest by draining one slot then retrying,
			// so a burst of deltas never starves the newest content.
			select {
			case <-b.lowPri:
				atomic.AddUint64(&b.dropped, 1)
			default:
			}
			select {
			case b.lowPri <- msg:
			default:
				atomic.AddUint64(&b.dropped, 1)
			}
		}
		return
	}
	b.highPri <- msg
}

// Messages returns the merged, consumption channel a subscriber (the
// HTTP/WS layer) reads from.
func (b *Bus) Messages() <-chan Message { return b.merged }

// DroppedCount returns the number of low-priority messages dropped.
func (b *Bus) DroppedCount() uint64 { return atomic.LoadUint64(&b.dropped) }

// Close stops the bus and closes its output channel.
func (b *Bus) Close() {
	if !atomic.CompareAndSwapUint32(&b.closed, 0, 1) {
		return
	}
	close(b.highPri)
	close(b.lowPri)
}

func (b *Bus) mergeLoop() {
	defer close(b.merged)
	for {
		select {
		case m, ok := <-b.highPri:
			if !ok {
				drainAndClose(b.merged, b.lowPri)
				return
			}
			b.merged <- m
			continue
		default:
		}

		select {
		case m, ok := <-b.highPri:
			if !ok {
				drainAndClose(b.merged, b.lowPri)
				return
			}
			b.merged <- m
		case m, ok := <-b.lowPri:
			if ok {
				b.merged <- m
			}
		}
	}
}

func drainAndClose(merged chan Message, lowPri chan Message) {
	for m := range lowPri {
		merged <- m
	}
}
