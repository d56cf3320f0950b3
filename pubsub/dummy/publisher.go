package dummy

import (
	"sync"

	"github.com/tamas-pataky/cultiva-node/pubsub"
)

// Publisher records emitted events for tests.
type Publisher struct {
	mu     sync.Mutex
	Events []*pubsub.Event
}

func (pub *Publisher) ID() string {
	return "dummy"
}

func (pub *Publisher) Emit(ev *pubsub.Event) {
	pub.mu.Lock()
	defer pub.mu.Unlock()
	pub.Events = append(pub.Events, ev)
}

// Emitted returns a copy of the events emitted so far.
func (pub *Publisher) Emitted() []*pubsub.Event {
	pub.mu.Lock()
	defer pub.mu.Unlock()
	return append([]*pubsub.Event(nil), pub.Events...)
}
