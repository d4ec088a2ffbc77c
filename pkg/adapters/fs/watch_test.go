package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_ClosesWhenWatcherStops(t *testing.T) {
	dir := t.TempDir()
	repo := NewRepository(Config{
		Path:         dir,
		Gitless:      true,
		Debounce:     10 * time.Millisecond,
		ErrorHandler: func(error) {},
	})
	require.NoError(t, repo.Initialize(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	require.NoError(t, repo.addTree(watcher, dir))
	events := repo.startWatch(ctx, watcher, "")

	// Nobody reads events, so this delivery stays in flight.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "apple.md"), []byte("Body"), 0644))
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, watcher.Close())

	require.Eventually(t, func() bool {
		return !repo.State().(RepositoryState).WatcherActive
	}, 2*time.Second, 10*time.Millisecond, "watch loop did not shut down")

	select {
	case _, ok := <-events:
		assert.False(t, ok, "events channel closed without delivering")
	case <-time.After(time.Second):
		t.Fatal("events channel not closed")
	}
}
