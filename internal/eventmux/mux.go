package eventmux

import "sync"

// rawBufferSize and structuredBufferSize bound each subscriber's queue;
// a slow subscriber drops events rather than blocking the reader task
// (spec.md §4.F: "subscribers must be non-blocking or fan out to their
// own queues" — the mux enforces the non-blocking half of that contract
// so a stalled consumer never stalls worker output draining).
const (
	rawBufferSize        = 256
	structuredBufferSize = 256
)

// Mux fans one worker's lines out to raw-log and structured-event
// subscribers. Publish never blocks: a subscriber whose queue is full
// simply misses the event.
type Mux struct {
	mu         sync.Mutex
	rawSubs    []chan string
	eventSubs  []chan Event
}

// New returns an empty multiplexer.
func New() *Mux {
	return &Mux{}
}

// SubscribeRaw registers a new raw-log subscriber and returns its queue.
func (m *Mux) SubscribeRaw() <-chan string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan string, rawBufferSize)
	m.rawSubs = append(m.rawSubs, ch)
	return ch
}

// SubscribeEvents registers a new structured-event subscriber and
// returns its queue.
func (m *Mux) SubscribeEvents() <-chan Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan Event, structuredBufferSize)
	m.eventSubs = append(m.eventSubs, ch)
	return ch
}

// Publish classifies line and dispatches it to every subscriber: raw-log
// subscribers always receive it, and structured-event subscribers
// additionally receive it when it parses against the closed grammar.
// Called from the worker's reader task; must never block.
func (m *Mux) Publish(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ch := range m.rawSubs {
		select {
		case ch <- line:
		default:
		}
	}

	event, ok := Parse(line)
	if !ok {
		return
	}
	for _, ch := range m.eventSubs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close closes every subscriber channel. Publish must not be called
// after Close.
func (m *Mux) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.rawSubs {
		close(ch)
	}
	for _, ch := range m.eventSubs {
		close(ch)
	}
	m.rawSubs = nil
	m.eventSubs = nil
}
