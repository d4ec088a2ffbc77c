package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TILTH_ROOT", "/srv/site")
	t.Setenv("TILTH_ADDR", ":9000")
	t.Setenv("TILTH_EDITING", "false")
	t.Setenv("TILTH_ALLOW", "apple, banana,,")
	t.Setenv("TILTH_COLLECTION", "")
	t.Setenv("TILTH_PUBLIC_DIR", "")

	c := loadConfig()
	assert.Equal(t, "/srv/site", c.Root)
	assert.Equal(t, ":9000", c.Addr)
	assert.False(t, c.Editing)
	assert.Equal(t, []string{"apple", "banana"}, c.AllowList)
	assert.Equal(t, "data/blog", c.Collection)
	assert.Equal(t, filepath.Join("/srv/site", "public"), c.publicDir("/srv/site"))
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TILTH_ADDR=127.0.0.1:7000\n"), 0644))
	t.Setenv("TILTH_ADDR", "")
	os.Unsetenv("TILTH_ADDR")

	c := loadConfig()
	assert.Equal(t, "127.0.0.1:7000", c.Addr)
	assert.True(t, c.Editing)
}

func TestEditCommand(t *testing.T) {
	root := t.TempDir()
	blog := filepath.Join(root, "data", "blog")
	require.NoError(t, os.MkdirAll(blog, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(blog, "apple.md"), []byte("---\ntitle: Apple\n---\nBody text"), 0644))
	t.Chdir(root)
	t.Setenv("TILTH_EDITING", "")
	t.Setenv("TILTH_ALLOW", "")
	t.Setenv("TILTH_COLLECTION", "")

	rootCmd.SetArgs([]string{"--root", root, "--nover", "edit", "apple", "--set", "frontmatter.title=Green Apple"})
	require.NoError(t, rootCmd.Execute())

	raw, err := os.ReadFile(filepath.Join(blog, "apple.md"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "title: Green Apple")
	assert.Contains(t, string(raw), "Body text")
}
