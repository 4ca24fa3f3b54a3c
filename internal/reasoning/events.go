package reasoning

import "sync"

// Reasoning lifecycle event names. Every payload includes the goal.
const (
	EventStarted   = "reasoning.started"
	EventStep      = "reasoning.step"
	EventAborted   = "reasoning.aborted"
	EventCompleted = "reasoning.completed"
	EventConsensus = "reasoning.consensus"
)

// Event is one lifecycle notification emitted by a strategy.
type Event struct {
	Name    string
	Payload map[string]any
}

// Emitter fans events out to an observer goroutine. Emit never blocks the
// reasoning loop: when the observer falls behind the buffer, events are
// dropped rather than awaited.
type Emitter struct {
	mu      sync.Mutex
	ch      chan Event
	drained chan struct{}
	closed  bool
}

// NewEmitter starts an observer goroutine that drains emitted events into
// observe. A nil observe discards events. Close stops the goroutine.
func NewEmitter(buffer int, observe func(Event)) *Emitter {
	if buffer < 1 {
		buffer = 64
	}
	e := &Emitter{
		ch:      make(chan Event, buffer),
		drained: make(chan struct{}),
	}
	go func() {
		defer close(e.drained)
		for ev := range e.ch {
			if observe != nil {
				observe(ev)
			}
		}
	}()
	return e
}

// Emit queues an event for the observer. Events emitted after Close are
// dropped. Safe on a nil Emitter.
func (e *Emitter) Emit(name string, payload map[string]any) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.ch <- Event{Name: name, Payload: payload}:
	default:
	}
}

// Close stops accepting events and waits for the observer to drain the
// buffer. Safe to call more than once and on a nil Emitter.
func (e *Emitter) Close() {
	if e == nil {
		return
	}
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
	e.mu.Unlock()
	<-e.drained
}
