package eventlog

import (
	"sync"

	"github.com/seed-run/seed/pkg/domain"
)

// publisher fans StoredEvents out to subscribers synchronously from the
// appending goroutine. Event-log events are never dropped (unlike the UI
// bus's low-priority lanes): a subscriber here is expected to be a fast,
// non-blocking dispatcher such as the Runtime Manager's or Task Service's
// own internal queue, mirroring agent.MultiSink's call-every-sink pattern.
type publisher struct {
	mu   sync.Mutex
	subs map[int]func(domain.StoredEvent)
	next int
}

func newPublisher() *publisher {
	return &publisher{subs: make(map[int]func(domain.StoredEvent))}
}

func (p *publisher) subscribe(fn func(domain.StoredEvent)) func() {
	p.mu.Lock()
	id := p.next
	p.next++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

func (p *publisher) publish(e domain.StoredEvent) {
	p.mu.Lock()
	fns := make([]func(domain.StoredEvent), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
