package feed

import "sync"

type subscriptionKey struct {
	consumer string
	query    string
}

type tracked struct {
	token  uint64
	cancel CancelFunc
}

// Registry keeps at most one live subscription per (consumer, query).
// Tracking a new subscription for a pair cancels the previous one first, so a
// consumer that re-subscribes never receives duplicate deliveries.
type Registry struct {
	mu     sync.Mutex
	active map[subscriptionKey]tracked
	next   uint64
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{active: make(map[subscriptionKey]tracked)}
}

// Track records cancel as the live subscription for (consumer, query) and
// returns a CancelFunc that cancels it and forgets it.
func (r *Registry) Track(consumer, query string, cancel CancelFunc) CancelFunc {
	key := subscriptionKey{consumer: consumer, query: query}

	r.mu.Lock()
	prev, hadPrev := r.active[key]
	token := r.next
	r.next++
	r.active[key] = tracked{token: token, cancel: cancel}
	r.mu.Unlock()

	if hadPrev {
		prev.cancel()
	}

	return func() {
		r.mu.Lock()
		if cur, ok := r.active[key]; ok && cur.token == token {
			delete(r.active, key)
		}
		r.mu.Unlock()
		cancel()
	}
}

// Active returns the number of tracked subscriptions
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// CancelAll cancels every tracked subscription
func (r *Registry) CancelAll() {
	r.mu.Lock()
	all := r.active
	r.active = make(map[subscriptionKey]tracked)
	r.mu.Unlock()

	for _, t := range all {
		t.cancel()
	}
}
