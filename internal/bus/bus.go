// Package bus carries typed fire-and-forget notices between components
// that do not know about each other.
package bus

import (
	"encoding/json"
	"slices"
	"sync"

	"github.com/PrinceLee1/lovey-dovey/internal/domain"
)

// OpenGame asks whoever runs games to mount one. Code is the lobby or
// couple code; SessionID is zero for a solo catalog launch.
type OpenGame struct {
	SessionID int64           `json:"sessionId"`
	Kind      domain.Kind     `json:"kind"`
	Code      string          `json:"code"`
	Lobby     bool            `json:"lobby"`
	Settings  json.RawMessage `json:"settings,omitempty"`
}

// Topic fans a value out to every subscriber. Publish never waits for
// subscribers beyond calling them; with none it is a no-op.
type Topic[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
}

func (t *Topic[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.subs == nil {
		t.subs = make(map[int]func(T))
	}
	id := t.next
	t.next++
	t.subs[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
		})
	}
}

// Publish calls subscribers in subscription order.
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	ids := make([]int, 0, len(t.subs))
	for id := range t.subs {
		ids = append(ids, id)
	}
	fns := make([]func(T), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, t.subs[id])
	}
	t.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}
