package cache

// ScopedKeyer wraps a Keyer with a prefix so several teams or pipelines can
// share one Redis instance without seeing each other's entries.
//
// Example usage:
//
//	// Per-repository keys on a shared Redis
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "repo:web-frontend:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// PeerKey generates a prefixed key for peer-dependency lookups.
func (k *ScopedKeyer) PeerKey(registry, pkg, versionRange string) string {
	return k.prefix + k.inner.PeerKey(registry, pkg, versionRange)
}

// SnapshotKey generates a prefixed key for project snapshots.
func (k *ScopedKeyer) SnapshotKey(projectDir string) string {
	return k.prefix + k.inner.SnapshotKey(projectDir)
}
