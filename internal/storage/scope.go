// Package storage provides the key/value scopes that back a session store.
//
// A Scope is a flat string namespace. Multi-key writes and deletes are applied
// as one unit so readers never observe half of a credential pair.
package storage

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("storage scope closed")

// Scope is one storage namespace, e.g. the short-lived token scope or the
// long-lived profile scope.
type Scope interface {
	// Get returns the value for key. A missing key is not an error.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes all values in a single atomic operation.
	Set(ctx context.Context, values map[string]string) error
	// Delete removes all keys before returning.
	Delete(ctx context.Context, keys ...string) error
}

// Closer is implemented by scopes that hold external resources.
type Closer interface {
	Close() error
}
