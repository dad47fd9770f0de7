// Package notify carries "session changed" signals between controllers.
//
// Delivery across processes is at-least-once and may be delayed or repeated;
// subscribers are expected to reconcile idempotently.
package notify

import (
	"context"
)

// Topics published by portalctl.
const (
	TopicUserToken  = "user-token-changed"
	TopicAdminToken = "admin-token-changed"
	TopicAdminInfo  = "admin-info-updated"
	// TopicStorage is raised when a storage scope was modified outside this
	// process.
	TopicStorage = "storage"
)

// Event is a change signal. Origin identifies the publishing controller so it
// can ignore its own echoes; it is empty for events without a known source.
type Event struct {
	Topic  string `json:"topic"`
	Key    string `json:"key,omitempty"`
	Origin string `json:"origin,omitempty"`
}

type Handler func(Event)

// Notifier is a topic based publish/subscribe channel.
type Notifier interface {
	Subscribe(topic string, h Handler) (unsubscribe func())
	Publish(ctx context.Context, ev Event) error
}
