package studio

import "sync"

// Event represents a studio lifecycle event.
// Minimal and stable: name + project id and optional fields via key/values.
type Event struct {
	Name      string
	ProjectID string
	Fields    map[string]any
}

// EventPublisher receives events from the studio. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// MemoryPublisher stores events in-memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// StreamPublisher fans events out to subscriber channels; it backs the
// /events NDJSON stream. Slow subscribers drop events rather than block a
// generation.
type StreamPublisher struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewStreamPublisher() *StreamPublisher {
	return &StreamPublisher{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber. Call the returned cancel func when
// done to release the channel.
func (p *StreamPublisher) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()
	cancel := func() {
		p.mu.Lock()
		if _, ok := p.subs[ch]; ok {
			delete(p.subs, ch)
			close(ch)
		}
		p.mu.Unlock()
	}
	return ch, cancel
}

func (p *StreamPublisher) Publish(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
