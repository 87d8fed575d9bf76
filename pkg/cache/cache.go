// Package cache provides the lookup cache injected into registry clients.
//
// Registry lookups are the only network traffic peerguard generates, and a
// monitor that runs on every CI push would otherwise re-query the same
// (package, range) pairs over and over. The [Cache] interface hides the
// backend so the same client code runs against:
//
//   - [FileCache]: JSON files under the XDG cache directory (CLI default)
//   - [MemoryCache]: a process-local map (tests, one-shot library use)
//   - [RedisCache]: a shared Redis instance (fleets of CI runners)
//   - [NullCache]: caching disabled (--no-cache)
//
// Every entry carries its own TTL. Keys are produced by a [Keyer] so that
// callers never format cache keys by hand.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte slices with a per-entry time-to-live.
type Cache interface {
	// Get returns the cached value for key. A miss (absent or expired) is
	// reported as hit == false with a nil error.
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)

	// Set stores data under key. A ttl of zero means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer derives cache keys for the values peerguard caches.
type Keyer interface {
	// PeerKey identifies the peer-dependency lookup of pkg at versionRange
	// against the given registry.
	PeerKey(registry, pkg, versionRange string) string

	// SnapshotKey identifies the last-known dependency snapshot of a project.
	SnapshotKey(projectDir string) string
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key scheme.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// PeerKey returns "peer:<registry>:<hash(pkg, range)>". The range is hashed
// together with the name because ranges may contain characters some backends
// dislike in keys (spaces, pipes).
func (DefaultKeyer) PeerKey(registry, pkg, versionRange string) string {
	return hashKey("peer:"+registry, pkg, versionRange)
}

// SnapshotKey returns "snapshot:<projectDir>".
func (DefaultKeyer) SnapshotKey(projectDir string) string {
	return "snapshot:" + projectDir
}

// NullCache is a no-op cache that never stores anything. It backs the
// --no-cache flag so every lookup goes to the registry.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }
