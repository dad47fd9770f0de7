package notify

import (
	"context"
	"errors"
)

// Fanout joins several notifiers: a publish goes to all of them and a
// subscription listens on all of them.
type Fanout []Notifier

var _ Notifier = Fanout(nil)

func (f Fanout) Subscribe(topic string, h Handler) func() {
	unsubs := make([]func(), 0, len(f))
	for _, n := range f {
		unsubs = append(unsubs, n.Subscribe(topic, h))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range f {
		if err := n.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
