package track

import "sync"

// Subscriber receives a copy of a record after each applied transition.
type Subscriber func(Record)

type busEntry struct {
	id      int
	fn      Subscriber
	removed bool
}

// Bus 是同步的观察者扇出：按订阅顺序逐个回调，回调内允许退订。
type Bus struct {
	mu      sync.Mutex
	nextID  int
	entries []*busEntry
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscription identifies one subscriber for later cancellation.
type Subscription struct {
	bus *Bus
	id  int
}

// Subscribe registers fn. Callbacks run synchronously on the publisher's
// goroutine, in subscription order.
func (b *Bus) Subscribe(fn Subscriber) *Subscription {
	if fn == nil {
		return &Subscription{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.entries = append(b.entries, &busEntry{id: b.nextID, fn: fn})
	return &Subscription{bus: b, id: b.nextID}
}

// Cancel removes the subscriber. Safe to call from inside a callback: the
// publish loop iterates a snapshot and re-checks liveness per entry, so there
// is no iterator invalidation.
func (s *Subscription) Cancel() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	for i, e := range s.bus.entries {
		if e.id == s.id {
			e.removed = true
			s.bus.entries = append(s.bus.entries[:i], s.bus.entries[i+1:]...)
			return
		}
	}
}

// Publish fans rec out to all current subscribers.
func (b *Bus) Publish(rec Record) {
	b.mu.Lock()
	snapshot := make([]*busEntry, len(b.entries))
	copy(snapshot, b.entries)
	b.mu.Unlock()

	for _, e := range snapshot {
		b.mu.Lock()
		alive := !e.removed
		b.mu.Unlock()
		if alive {
			e.fn(rec)
		}
	}
}
