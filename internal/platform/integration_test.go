package platform_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tilth/internal/platform"
	"github.com/aretw0/tilth/pkg/content"
	"github.com/aretw0/tilth/pkg/core"
	"github.com/aretw0/tilth/pkg/editor"
	"github.com/aretw0/tilth/pkg/git"
)

const appleRaw = "---\ntitle: Apple\n---\nBody text"

func setupSite(t *testing.T, opts ...platform.Option) (*content.RepositoryStore, *core.Service, string) {
	t.Helper()
	root := t.TempDir()
	blog := filepath.Join(root, "data", "blog")
	require.NoError(t, os.MkdirAll(blog, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(blog, "apple.md"), []byte(appleRaw), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(blog, "banana.md"), []byte("---\ntitle: Banana\n---\nYellow"), 0644))

	store, service, err := platform.NewStore(root, opts...)
	require.NoError(t, err)
	return store, service, root
}

func TestNewStore_EditAndSaveGitless(t *testing.T) {
	store, _, root := setupSite(t, platform.WithVersioning(false))
	ctx := context.Background()

	slugs, err := store.Slugs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "banana"}, slugs)

	page := editor.NewPage(store, nil, editor.NewViewer(true))
	require.NoError(t, page.Open(ctx, "apple"))

	session := page.Session()
	require.NotNil(t, session)
	require.NoError(t, session.Change("frontmatter.title", "Green Apple"))
	require.NoError(t, session.Save(ctx))
	assert.False(t, session.Dirty())

	raw, err := os.ReadFile(filepath.Join(root, "data", "blog", "apple.md"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "title: Green Apple")
	assert.Contains(t, string(raw), "Body text")

	_, err = os.Stat(filepath.Join(root, ".git"))
	assert.True(t, os.IsNotExist(err))
}

func TestNewStore_AllowList(t *testing.T) {
	store, _, _ := setupSite(t, platform.WithVersioning(false), platform.WithAllowList("apple"))

	_, err := store.Load(context.Background(), "banana")
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func TestNewStore_SaveCommits(t *testing.T) {
	if !git.IsInstalled() {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_AUTHOR_NAME", "Test")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Test")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")

	store, _, root := setupSite(t, platform.WithVersioning(true), platform.WithAutoInit(true))
	ctx := context.Background()

	post, err := store.Load(ctx, "apple")
	require.NoError(t, err)
	post.MarkdownBody = "Crunchy"
	require.NoError(t, store.Commit(ctx, post))

	client := git.NewClient(root, "", nil)
	subject, err := client.Run("log", "-1", "--format=%s")
	require.NoError(t, err)
	assert.Equal(t, "docs(blog): update apple", subject)

	status, err := client.Status()
	require.NoError(t, err)
	assert.NotContains(t, status, "apple.md")
}

func TestNew_MustExist(t *testing.T) {
	nonExistent := filepath.Join(t.TempDir(), "does-not-exist")

	_, err := platform.New(nonExistent, platform.WithMustExist(true))
	assert.Error(t, err)
}

func TestNew_WatchReportsExternalEdit(t *testing.T) {
	_, service, root := setupSite(t, platform.WithVersioning(false))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := service.Watch(ctx, "data/blog/*")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "data", "blog", "apple.md"), []byte("---\ntitle: Apple\n---\nEdited"), 0644))

	require.Eventually(t, func() bool {
		select {
		case e := <-events:
			return e.ID == "data/blog/apple"
		default:
			return false
		}
	}, 3*time.Second, 20*time.Millisecond)
}

func TestInit_ReadOnly(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "existing.md"), []byte("---\ntitle: Old\n---\noriginal content"), 0644))

	repo, err := platform.Init(root, platform.WithReadOnly(true), platform.WithVersioning(false))
	require.NoError(t, err)
	ctx := context.Background()

	doc, err := repo.Get(ctx, "existing")
	require.NoError(t, err)
	assert.Equal(t, "original content", doc.Content)

	err = repo.Save(ctx, core.Document{ID: "new", Content: "forbidden"})
	assert.ErrorIs(t, err, core.ErrReadOnly)
	_, err = os.Stat(filepath.Join(root, "new.md"))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, repo.Delete(ctx, "existing"), core.ErrReadOnly)

	syncable, ok := repo.(core.Syncable)
	require.True(t, ok)
	assert.ErrorIs(t, syncable.Sync(ctx), core.ErrReadOnly)

	_, err = repo.List(ctx)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, ".tilth", "index.json"))
	assert.True(t, os.IsNotExist(err), "read-only mode must not persist the index")
}
