package lock

import (
	"fmt"
	"os"
	"path/filepath"

	stio "github.com/matzehuels/stacklock/pkg/io"
)

// ReadFile reads and decodes the lock artifact at path. A missing file
// yields an error matching os.ErrNotExist.
func ReadFile(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(data)
}

// WriteFile encodes lf and atomically replaces the artifact at path. Readers
// observe either the previous artifact or the complete new one.
func WriteFile(path string, lf *Lockfile) error {
	data, err := Encode(lf)
	if err != nil {
		return err
	}
	return stio.WriteFileAtomic(path, data, 0o644)
}

// PathFor returns the lock artifact path for a manifest path.
func PathFor(manifestPath string) string {
	return filepath.Join(filepath.Dir(manifestPath), FileName)
}
