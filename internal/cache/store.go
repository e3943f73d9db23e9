// Package cache provides key/value stores for encoded grid sections, keyed by
// the canonical combination key. A store only ever sees successful fetches;
// failed fetches are never written, so a later lookup re-fetches.
package cache

import "context"

// Store is the minimal surface the session needs.
type Store interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value under key.
	Set(ctx context.Context, key string, val []byte) error
	// Del removes keys; missing keys are not an error.
	Del(ctx context.Context, keys ...string) error
}
