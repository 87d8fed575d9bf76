package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/peerguard/pkg/cache"
)

// RedisStore keeps snapshots in Redis under [cache.Keyer.SnapshotKey] of the
// absolute project directory. Keys never expire.
type RedisStore struct {
	client redis.UniversalClient
	keyer  cache.Keyer
}

// NewRedisStore creates a store on client. A nil keyer selects the default
// key scheme.
func NewRedisStore(client redis.UniversalClient, keyer cache.Keyer) *RedisStore {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &RedisStore{client: client, keyer: keyer}
}

func (s *RedisStore) key(projectDir string) string {
	if abs, err := filepath.Abs(projectDir); err == nil {
		projectDir = abs
	}
	return s.keyer.SnapshotKey(projectDir)
}

// Get returns the stored snapshot, or nil when the key is absent.
func (s *RedisStore) Get(ctx context.Context, projectDir string) (*Snapshot, error) {
	data, err := s.client.Get(ctx, s.key(projectDir)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Set replaces the stored snapshot.
func (s *RedisStore) Set(ctx context.Context, projectDir string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(projectDir), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set snapshot: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
