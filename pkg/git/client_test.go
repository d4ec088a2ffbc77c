package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Lock(t *testing.T) {
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, "", nil)

	unlock, err := client.Lock()
	require.NoError(t, err)

	lockPath := filepath.Join(tmpDir, ".tilth.lock")
	_, err = os.Stat(lockPath)
	assert.NoError(t, err, "lock file not created")

	unlock()

	_, err = os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err), "lock file not removed after unlock")
}

func TestClient_LockTimeout(t *testing.T) {
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, ".custom.lock", nil)
	client.LockTimeout = 50 * time.Millisecond

	unlock, err := client.Lock()
	require.NoError(t, err)
	defer unlock()

	_, err = client.Lock()
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestClient_InitAddCommit(t *testing.T) {
	if !IsInstalled() {
		t.Skip("git not installed")
	}

	tmpDir := t.TempDir()
	client := NewClient(tmpDir, "", nil)

	require.NoError(t, client.Init())
	_, err := os.Stat(filepath.Join(tmpDir, ".git"))
	require.NoError(t, err, ".git directory not created")
	assert.True(t, client.IsRepo())

	_, _ = client.Run("config", "user.email", "test@example.com")
	_, _ = client.Run("config", "user.name", "Test")

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "apple.md"), []byte("Body"), 0644))
	require.NoError(t, client.Add("apple.md"))
	require.NoError(t, client.Commit("docs(blog): add apple"))

	status, err := client.Status()
	require.NoError(t, err)
	assert.Empty(t, status)

	// Nothing staged: no error.
	assert.NoError(t, client.Commit("empty"))
}
