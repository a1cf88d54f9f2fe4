package storage

import "errors"

// ErrKeyNotFound is returned by Get for missing keys.
var ErrKeyNotFound = errors.New("key not found")

// KV is the minimal key-value surface the engine persists through. The
// core treats storage abstractly; Badger backs it in production and the
// in-memory implementation backs tests.
type KV interface {
	Put(key string, value []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
	// Scan visits every key with the given prefix. Returning an error
	// from fn stops the scan and propagates the error.
	Scan(prefix string, fn func(key string, value []byte) error) error
	Close() error
}
