package eventbus

import (
	"sync"
	"sync/atomic"
)

// Kind tags an Event.
type Kind string

const (
	ResultPosted Kind = "ResultPosted"
	GameCreated  Kind = "GameCreated"
	GameUpdated  Kind = "GameUpdated"
	GameDeleted  Kind = "GameDeleted"

	// Connected is written by the broadcast gateway when a stream opens.
	// It is never published on the bus.
	Connected Kind = "Connected"
)

// DomainKinds are the event kinds a viewer connection subscribes to.
var DomainKinds = []Kind{ResultPosted, GameCreated, GameUpdated, GameDeleted}

// Event is the payload fanned out to subscribers. Only the fields relevant
// to Kind are set.
type Event struct {
	Kind         Kind   `json:"kind"`
	GameID       string `json:"gameId,omitempty"`
	Value        string `json:"value,omitempty"`
	GameDay      string `json:"gameDay,omitempty"`
	Name         string `json:"name,omitempty"`
	ConnectionID string `json:"connectionId,omitempty"`
}

// Handle identifies a subscription. The zero Handle is never issued.
type Handle uint64

type subscriber struct {
	kinds map[Kind]struct{}
	fn    func(Event)
}

// Bus is an in-process publish/subscribe hub. Delivery is best-effort:
// subscribers only see events published while they are registered.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Handle]*subscriber
	nextID atomic.Uint64
}

func New() *Bus {
	return &Bus{
		subs: make(map[Handle]*subscriber),
	}
}

// Subscribe registers fn for future events whose kind is in kinds.
func (b *Bus) Subscribe(kinds []Kind, fn func(Event)) Handle {
	s := &subscriber{
		kinds: make(map[Kind]struct{}, len(kinds)),
		fn:    fn,
	}
	for _, k := range kinds {
		s.kinds[k] = struct{}{}
	}

	h := Handle(b.nextID.Add(1))
	b.mu.Lock()
	b.subs[h] = s
	b.mu.Unlock()
	return h
}

// Unsubscribe removes h. Removing an unknown or already removed handle is a no-op.
func (b *Bus) Unsubscribe(h Handle) {
	b.mu.Lock()
	delete(b.subs, h)
	b.mu.Unlock()
}

// Publish calls every matching subscriber before returning. Callbacks run
// without the bus lock held, so they may subscribe or unsubscribe, but they
// must not block: a slow callback delays the ones after it.
func (b *Bus) Publish(e Event) int {
	b.mu.RLock()
	targets := make([]func(Event), 0, len(b.subs))
	for _, s := range b.subs {
		if _, ok := s.kinds[e.Kind]; ok {
			targets = append(targets, s.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range targets {
		fn(e)
	}
	return len(targets)
}

// Len returns the number of registered subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
