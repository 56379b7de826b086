package store

import "sync"

// Collection names the logical groupings change events are tagged with.
type Collection string

const (
	CollectionTasks         Collection = "tasks"
	CollectionHabits        Collection = "habits"
	CollectionPoints        Collection = "points"
	CollectionNotifications Collection = "notifications"
)

// Event describes one committed change: which collection was written and
// which user owns the affected rows. Subscribers re-fetch whatever they
// need; events carry no row data.
type Event struct {
	Collection Collection
	UserID     string
}

// notifier fans change events out to subscribers. Callbacks run
// synchronously on the writing goroutine and must not block; anything
// slow belongs on the subscriber's own goroutine.
type notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[int]func(Event))}
}

// subscribe registers fn and returns its unsubscribe function.
// Unsubscribing twice is harmless.
func (n *notifier) subscribe(fn func(Event)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.subs[id] = fn

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// publish delivers ev to every subscriber registered at call time.
// Delivery order across events follows commit order on the writing
// goroutine.
func (n *notifier) publish(ev Event) {
	n.mu.Lock()
	fns := make([]func(Event), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
