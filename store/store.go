// Package store keeps the dashboard's persisted state: a flat map of string
// keys to text values, mirroring what the browser's local storage held.
// Collections are stored as whole JSON documents under fixed keys.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrConflict is returned when an optimistic transaction keeps losing the race
// against another writer.
var ErrConflict = errors.New("store: concurrent update conflict")

// Reader is the read half of a store or transaction.
type Reader interface {
	// Get returns the value under key. ok is false when the key is absent,
	// which is a valid empty state and not an error.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
}

// Tx is the view of the store inside Update.
type Tx interface {
	Reader
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store is a key-value text store.
type Store interface {
	Tx
	// Keys lists every key in ascending order.
	Keys(ctx context.Context) ([]string, error)
	// Update runs fn atomically: all of its writes become visible together,
	// or none do when fn (or the commit) fails.
	Update(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend string

	// SQLite
	Path string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Namespace     string
}

// Open returns the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendSQLite:
		return NewSQLite(opts.Path)
	case BackendRedis:
		return NewRedis(ctx, RedisOptions{
			Addr:      opts.RedisAddr,
			Password:  opts.RedisPassword,
			DB:        opts.RedisDB,
			Namespace: opts.Namespace,
		})
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("store: unknown backend %q", opts.Backend)
	}
}
