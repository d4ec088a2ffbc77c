package fs

import (
	"os"

	"github.com/aretw0/tilth/internal/atomicfile"
)

// TempFilePrefix marks in-flight atomic writes. The watcher ignores these names.
const TempFilePrefix = ".tilth-tmp-"

func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	return atomicfile.WriteFile(filename, TempFilePrefix, data, perm)
}
