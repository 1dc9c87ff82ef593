// Package events provides typed publish/subscribe topics. A publisher owns
// its topics; subscribers keep the returned function and call it on teardown.
package events

import "sync"

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Topic delivers published values to subscribers in subscription order.
// The zero value is ready to use.
type Topic[T any] struct {
	mu   sync.RWMutex
	next uint64
	subs []subscriber[T]
}

// Subscribe adds fn and returns a function that removes it. Calling the
// returned function more than once has no effect.
func (t *Topic[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	t.mu.Lock()
	t.next++
	id := t.next
	t.subs = append(t.subs, subscriber[T]{id: id, fn: fn})
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { t.remove(id) })
	}
}

func (t *Topic[T]) remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.subs {
		if s.id == id {
			t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
			return
		}
	}
}

// Publish calls every subscriber with v. Subscribers may unsubscribe
// during delivery.
func (t *Topic[T]) Publish(v T) {
	t.mu.RLock()
	subs := t.subs
	t.mu.RUnlock()

	for _, s := range subs {
		s.fn(v)
	}
}

func (t *Topic[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}
