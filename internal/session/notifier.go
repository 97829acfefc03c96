package session

import (
	"sync"
	"time"
)

// EventKind names a session state change
type EventKind string

// Session events
const (
	EventTokenSet       EventKind = "token_set"
	EventTokenRemoved   EventKind = "token_removed"
	EventRefreshed      EventKind = "refreshed"
	EventLoggedOut      EventKind = "logged_out"
	EventSessionExpired EventKind = "session_expired"
)

// Event is published whenever a session's stored tokens change
type Event struct {
	Client string    `json:"client"`
	Kind   EventKind `json:"kind"`
	At     time.Time `json:"at"`
}

// Listener receives session events. It is called synchronously and must not block.
type Listener func(Event)

type subscription struct {
	client string
	fn     Listener
}

// Notifier fans session events out to subscribers
type Notifier struct {
	mu   sync.RWMutex
	next uint64
	subs map[uint64]subscription
}

// NewNotifier creates an empty notifier
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[uint64]subscription)}
}

// Subscribe registers fn for events of client, or of every client when client is empty.
// The returned func removes the subscription and is safe to call more than once.
func (n *Notifier) Subscribe(client string, fn Listener) func() {
	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = subscription{client: client, fn: fn}
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

// Publish delivers e to every matching subscriber
func (n *Notifier) Publish(e Event) {
	n.mu.RLock()
	targets := make([]Listener, 0, len(n.subs))
	for _, s := range n.subs {
		if s.client == "" || s.client == e.Client {
			targets = append(targets, s.fn)
		}
	}
	n.mu.RUnlock()

	for _, fn := range targets {
		fn(e)
	}
}

// Len returns the number of active subscriptions
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}
