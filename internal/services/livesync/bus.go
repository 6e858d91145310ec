package livesync

import "sync"

// Bus is the single internal channel every change source publishes into: the
// six stream event types, upload completion, retry completion and scheduled
// refreshes all collapse to one "re-fetch authoritative state now" signal.
// Subscribers never see which source fired. Each subscriber channel holds at
// most one pending signal, so rapid-fire publishes coalesce instead of
// queueing refetch storms.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

// NewBus creates an empty signal bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan struct{})}
}

// Subscribe registers a signal channel. The returned cancel func removes the
// subscription; after it returns no further signals are delivered.
func (b *Bus) Subscribe() (<-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan struct{}, 1)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
	return ch, cancel
}

// Publish delivers one coalesced signal to every subscriber. It never blocks:
// a subscriber with a signal already pending is skipped, which is safe
// because every signal means the same full refetch.
func (b *Bus) Publish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
