package atomicfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestWrite(t *testing.T) {
	t.Run("Streams Reader", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "cat.png")

		n, err := Write(filename, ".upload-", strings.NewReader("meow"), 0644)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)

		got, err := os.ReadFile(filename)
		require.NoError(t, err)
		assert.Equal(t, "meow", string(got))
	})

	t.Run("Failed Copy Keeps Old File And Cleans Up", func(t *testing.T) {
		dir := t.TempDir()
		filename := filepath.Join(dir, "cat.png")
		require.NoError(t, os.WriteFile(filename, []byte("old"), 0644))

		_, err := Write(filename, ".upload-", failingReader{}, 0644)
		require.Error(t, err)

		got, err := os.ReadFile(filename)
		require.NoError(t, err)
		assert.Equal(t, "old", string(got))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temp file removed")
	})

	t.Run("Applies Permissions", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "a.md")
		require.NoError(t, WriteFile(filename, ".tmp-", []byte("a"), 0600))

		info, err := os.Stat(filename)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})
}
