// Package snapshot remembers the dependency set a project was last evaluated
// with, so the monitor can skip evaluations when nothing changed.
//
// A project has exactly one [Snapshot]. [Tracker.HasChanged] replaces it on
// every call, whatever the answer, and nothing ever deletes it. Where it
// lives is a [Store] decision: [FileStore] keeps the historical
// last_dependency_hash.txt next to the reports, [RedisStore] shares
// snapshots between CI runners that evaluate the same checkout path.
package snapshot

import (
	"context"
	"time"

	"github.com/matzehuels/peerguard/pkg/cache"
	"github.com/matzehuels/peerguard/pkg/manifest"
)

// Snapshot is the fingerprint of a project's dependency set.
type Snapshot struct {
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
}

// Store persists one snapshot per project directory.
type Store interface {
	// Get returns the snapshot for projectDir, or nil when none exists.
	Get(ctx context.Context, projectDir string) (*Snapshot, error)

	// Set replaces the snapshot for projectDir.
	Set(ctx context.Context, projectDir string, s Snapshot) error
}

// Hash fingerprints the merged runtime and development dependencies of m.
// The map is serialized with sorted keys, so reordering entries in
// package.json never changes the hash.
func Hash(m *manifest.Manifest) string {
	h, _ := cache.HashJSON(m.Merged())
	return h
}

// Tracker decides whether a project needs re-evaluation.
type Tracker struct {
	store Store
	now   func() time.Time
}

// NewTracker creates a Tracker backed by store.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// HasChanged reports whether m differs from the last snapshot of projectDir.
// The first call for a project returns true. The new hash is persisted in
// every case, so a repeated call without edits returns false.
func (t *Tracker) HasChanged(ctx context.Context, m *manifest.Manifest, projectDir string) (bool, error) {
	current := Hash(m)

	prev, err := t.store.Get(ctx, projectDir)
	if err != nil {
		return false, err
	}
	if err := t.store.Set(ctx, projectDir, Snapshot{Hash: current, Timestamp: t.now()}); err != nil {
		return false, err
	}
	return prev == nil || prev.Hash != current, nil
}

// Record replaces the snapshot of projectDir with the current state of m
// without comparing. Used after remediation rewrote the manifest, so the
// rewrite itself does not trigger another evaluation.
func (t *Tracker) Record(ctx context.Context, m *manifest.Manifest, projectDir string) error {
	return t.store.Set(ctx, projectDir, Snapshot{Hash: Hash(m), Timestamp: t.now()})
}

// Invalidate replaces the snapshot with an empty fingerprint, so the next
// HasChanged call reports a change. An evaluation that was cut short calls
// this to make sure it is repeated.
func (t *Tracker) Invalidate(ctx context.Context, projectDir string) error {
	return t.store.Set(ctx, projectDir, Snapshot{Timestamp: t.now()})
}
