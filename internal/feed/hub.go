// Package feed provides cancelable snapshot streams for live queries.
package feed

import (
	"sync"
	"time"
)

// CancelFunc stops a subscription. Once it returns, nothing more is delivered
// on the subscription channel and the channel is closed. Safe to call twice.
type CancelFunc func()

// Snapshot is a full result set of a live query. Err is set instead of Items
// when the query could not be evaluated.
type Snapshot[T any] struct {
	Items []T       `json:"items"`
	Err   error     `json:"-"`
	At    time.Time `json:"at"`
}

// Hub fans every published value out to all subscribers.
// Delivery keeps only the newest undelivered value per subscriber, so a slow
// reader never blocks publishers and always catches up to the latest snapshot.
type Hub[T any] struct {
	mu      sync.Mutex
	subs    map[uint64]chan T
	next    uint64
	last    T
	hasLast bool
	closed  bool
}

// NewHub creates an empty hub
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[uint64]chan T)}
}

// Subscribe registers a subscriber. If a value was already published the
// subscriber receives it immediately.
func (h *Hub[T]) Subscribe() (<-chan T, CancelFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan T, 1)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.next
	h.next++
	h.subs[id] = ch
	if h.hasLast {
		ch <- h.last
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.remove(id) })
	}
}

// Publish delivers v to every current subscriber and remembers it for new ones
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.last = v
	h.hasLast = true
	for _, ch := range h.subs {
		deliver(ch, v)
	}
}

// Last returns the most recently published value
func (h *Hub[T]) Last() (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, h.hasLast
}

// Len returns the number of active subscribers
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription; later Subscribe calls get a closed channel
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		drainAndClose(ch)
		delete(h.subs, id)
	}
}

func (h *Hub[T]) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		drainAndClose(ch)
		delete(h.subs, id)
	}
}

// deliver must be called with the hub lock held; the hub is the only sender.
func deliver[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- v
}

// drainAndClose discards an undelivered value so a canceled subscriber sees no
// further emissions, only the closed channel.
func drainAndClose[T any](ch chan T) {
	select {
	case <-ch:
	default:
	}
	close(ch)
}
