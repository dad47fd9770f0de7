package notify

import (
	"context"
	"sync"
)

// Local delivers events to subscribers of the same process, synchronously and
// in subscription order.
type Local struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]Handler
	order  map[string][]int
}

var _ Notifier = (*Local)(nil)

func NewLocal() *Local {
	return &Local{
		subs:  make(map[string]map[int]Handler),
		order: make(map[string][]int),
	}
}

func (l *Local) Subscribe(topic string, h Handler) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	if l.subs[topic] == nil {
		l.subs[topic] = make(map[int]Handler)
	}
	l.subs[topic][id] = h
	l.order[topic] = append(l.order[topic], id)

	var once sync.Once
	return func() {
		once.Do(func() { l.unsubscribe(topic, id) })
	}
}

func (l *Local) unsubscribe(topic string, id int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.subs[topic], id)
	ids := l.order[topic]
	for i, v := range ids {
		if v == id {
			l.order[topic] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
}

// Publish calls the handlers outside the lock so they may publish or
// unsubscribe themselves.
func (l *Local) Publish(_ context.Context, ev Event) error {
	l.mu.RLock()
	handlers := make([]Handler, 0, len(l.order[ev.Topic]))
	for _, id := range l.order[ev.Topic] {
		handlers = append(handlers, l.subs[ev.Topic][id])
	}
	l.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
	return nil
}

// Subscribers returns the number of handlers for topic.
func (l *Local) Subscribers(topic string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.subs[topic])
}
