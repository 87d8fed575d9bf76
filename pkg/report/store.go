package report

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/peerguard/pkg/errors"
)

// Store persists reports.
type Store interface {
	// Save persists r and returns where it was stored (a file path or a
	// document id).
	Save(ctx context.Context, r *Report) (string, error)

	// List returns every stored report, newest first.
	List(ctx context.Context) ([]*Report, error)

	// Latest returns the newest report, or nil, nil when there is none.
	Latest(ctx context.Context) (*Report, error)
}

// FilePrefix starts every report file name.
const FilePrefix = "dependency_report_"

// maxCollisions bounds the -N suffix search for one timestamp.
const maxCollisions = 1000

// FileStore writes one indented JSON file per report into a directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on the
// first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the report directory.
func (s *FileStore) Dir() string { return s.dir }

// Save writes r to dependency_report_<timestamp>.json. The file is created
// exclusively; when another report already took that second, a -1, -2, ...
// suffix is appended.
func (s *FileStore) Save(ctx context.Context, r *Report) (string, error) {
	if err := r.Validate(); err != nil {
		return "", errors.Wrap(errors.ErrCodeReportPersist, err, "refuse report %s", r.RunID)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeReportPersist, err, "encode report")
	}
	data = append(data, '\n')

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeReportPersist, err, "create report dir %s", s.dir)
	}

	for n := 0; n < maxCollisions; n++ {
		if err := ctx.Err(); err != nil {
			return "", errors.Wrap(errors.ErrCodeReportPersist, err, "save report")
		}
		path := filepath.Join(s.dir, fileName(r.Timestamp, n))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if stderrors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeReportPersist, err, "create %s", path)
		}
		_, werr := f.Write(data)
		cerr := f.Close()
		if err := stderrors.Join(werr, cerr); err != nil {
			_ = os.Remove(path)
			return "", errors.Wrap(errors.ErrCodeReportPersist, err, "write %s", path)
		}
		return path, nil
	}
	return "", errors.New(errors.ErrCodeReportPersist, "too many reports for timestamp %s", r.Timestamp)
}

func fileName(timestamp string, n int) string {
	if n == 0 {
		return FilePrefix + timestamp + ".json"
	}
	return FilePrefix + timestamp + "-" + strconv.Itoa(n) + ".json"
}

// List reads every report file in the directory. Files that are not valid
// reports are skipped.
func (s *FileStore) List(ctx context.Context) ([]*Report, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read report dir: %w", err)
	}

	type item struct {
		report *Report
		name   string
	}
	var items []item
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, FilePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		var r Report
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		if r.CreatedAt.IsZero() {
			// reports written before createdAt existed only carry the timestamp
			if t, err := time.ParseInLocation(TimestampLayout, r.Timestamp, time.Local); err == nil {
				r.CreatedAt = t
			}
		}
		items = append(items, item{&r, name})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.report.CreatedAt.Equal(b.report.CreatedAt) {
			return a.report.CreatedAt.After(b.report.CreatedAt)
		}
		return suffix(a.name) > suffix(b.name)
	})

	out := make([]*Report, len(items))
	for i, it := range items {
		out[i] = it.report
	}
	return out, nil
}

// suffix extracts N from dependency_report_<ts>-N.json, 0 when absent.
func suffix(name string) int {
	base := strings.TrimSuffix(strings.TrimPrefix(name, FilePrefix), ".json")
	if len(base) <= len(TimestampLayout) || base[len(TimestampLayout)] != '-' {
		return 0
	}
	n, _ := strconv.Atoi(base[len(TimestampLayout)+1:])
	return n
}

// Latest returns the newest report in the directory.
func (s *FileStore) Latest(ctx context.Context) (*Report, error) {
	reports, err := s.List(ctx)
	if err != nil || len(reports) == 0 {
		return nil, err
	}
	return reports[0], nil
}

var _ Store = (*FileStore)(nil)
