// Package atomicfile writes files through a synced temp file and a rename, so
// readers see either the previous content or the new one, never a torn file.
package atomicfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Write copies r into filename. The temp file is created next to filename
// with tempPrefix so watchers can ignore it. It returns the bytes written.
func Write(filename, tempPrefix string, r io.Reader, perm os.FileMode) (n int64, err error) {
	tmp, err := os.CreateTemp(filepath.Dir(filename), tempPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if n, err = io.Copy(tmp, r); err != nil {
		return n, errors.Join(fmt.Errorf("write temp file: %w", err), tmp.Close())
	}
	if err = tmp.Sync(); err != nil {
		return n, errors.Join(fmt.Errorf("sync temp file: %w", err), tmp.Close())
	}
	if err = tmp.Close(); err != nil {
		return n, fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return n, fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmpName, filename); err != nil {
		return n, fmt.Errorf("rename temp file to %s: %w", filename, err)
	}
	return n, nil
}

// WriteFile is Write for an in-memory payload.
func WriteFile(filename, tempPrefix string, data []byte, perm os.FileMode) error {
	_, err := Write(filename, tempPrefix, bytes.NewReader(data), perm)
	return err
}
