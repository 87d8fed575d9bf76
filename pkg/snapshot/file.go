package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/peerguard/pkg/fsutil"
)

// HashFileName is the snapshot file written by FileStore.
const HashFileName = "last_dependency_hash.txt"

// FileStore keeps the snapshot as a single-line hex digest in a directory.
// A relative directory is resolved against the project directory, so one
// FileStore configured with "reports" serves any number of projects.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the snapshot file for projectDir.
func (s *FileStore) Path(projectDir string) string {
	dir := s.dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(projectDir, dir)
	}
	return filepath.Join(dir, HashFileName)
}

// Get reads the snapshot. The file's modification time is the snapshot time.
func (s *FileStore) Get(ctx context.Context, projectDir string) (*Snapshot, error) {
	path := s.Path(projectDir)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	snap := &Snapshot{Hash: strings.TrimSpace(string(data))}
	if info, err := os.Stat(path); err == nil {
		snap.Timestamp = info.ModTime()
	}
	return snap, nil
}

// Set writes the digest atomically.
func (s *FileStore) Set(ctx context.Context, projectDir string, snap Snapshot) error {
	path := s.Path(projectDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, []byte(snap.Hash+"\n"), 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
