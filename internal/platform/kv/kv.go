// Package kv defines the key-value storage contract the registry core is
// built on: get/set/remove by key with durability owned by the backend.
package kv

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the key has never been set or was removed.
	ErrNotFound = errors.New("kv: key not found")
	// ErrExists indicates a conditional write found the key already present.
	ErrExists = errors.New("kv: key already exists")
)

// Store is the persistence surface shared by all backends. Values are
// opaque bytes; callers own serialization.
type Store interface {
	// Get returns the value at key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set writes value at key, replacing any prior value.
	Set(ctx context.Context, key string, value []byte) error
	// SetIfAbsent writes value only when key is unset, otherwise ErrExists.
	SetIfAbsent(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}
