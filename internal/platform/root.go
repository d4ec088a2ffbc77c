package platform

import (
	"errors"
	"path/filepath"

	"github.com/aretw0/tilth/pkg/adapters/fs"
)

// ErrRootNotFound is returned when no ancestor looks like a content root.
var ErrRootNotFound = errors.New("root not found")

// rootIndicators mark a directory as a content root.
var rootIndicators = []string{fs.DefaultSystemDir, ".git", "data"}

// FindRoot walks upwards from startDir looking for a content root
// (a directory holding .tilth, .git or data) and returns its absolute path.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		for _, name := range rootIndicators {
			if hasFile(dir, name) {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", ErrRootNotFound
}
