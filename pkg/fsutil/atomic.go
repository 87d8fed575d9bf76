package fsutil

import (
	"os"

	"github.com/google/renameio/v2"
)

// WriteFileAtomic writes data to path via a temp file in the same directory
// followed by rename. The temp file is fsynced before the rename.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(path, data, perm)
}

// SameContent reports whether the file at path exists and holds exactly data.
// A read error other than absence is returned so callers do not overwrite a
// file they could not inspect.
func SameContent(path string, data []byte) (bool, error) {
	existing, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return string(existing) == string(data), nil
}
