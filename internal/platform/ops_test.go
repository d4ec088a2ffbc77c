package platform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/tilth/pkg/adapters/fs"
	"github.com/aretw0/tilth/pkg/core"
	"github.com/aretw0/tilth/pkg/git"
)

func gitIdentity(t *testing.T) {
	t.Helper()
	if !git.IsInstalled() {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_AUTHOR_NAME", "Test")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Test")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")
}

func TestInit(t *testing.T) {
	t.Run("AutoInit=true Creates Directory and Git Repo", func(t *testing.T) {
		gitIdentity(t)
		sitePath := filepath.Join(t.TempDir(), "site")

		repo, err := Init(sitePath, WithAutoInit(true))
		if err != nil {
			t.Fatalf("Init failed: %v", err)
		}

		fsRepo, ok := repo.(*fs.Repository)
		if !ok {
			t.Fatalf("Expected fs repository")
		}
		if fsRepo.Path != sitePath {
			t.Errorf("Expected path %s, got %s", sitePath, fsRepo.Path)
		}
		if info, err := os.Stat(sitePath); err != nil || !info.IsDir() {
			t.Errorf("Site directory not created")
		}
		if _, err := os.Stat(filepath.Join(sitePath, ".git")); os.IsNotExist(err) {
			t.Errorf(".git directory not found")
		}
	})

	t.Run("AutoInit=false Fails if Directory Missing", func(t *testing.T) {
		sitePath := filepath.Join(t.TempDir(), "missing")

		if _, err := Init(sitePath, WithAutoInit(false)); err == nil {
			t.Error("Expected failure for missing directory when AutoInit=false")
		}
	})

	t.Run("Versioning=false Does Not Initialize Git", func(t *testing.T) {
		sitePath := filepath.Join(t.TempDir(), "gitless")

		if _, err := Init(sitePath, WithAutoInit(true), WithVersioning(false)); err != nil {
			t.Fatalf("Init failed: %v", err)
		}
		if _, err := os.Stat(sitePath); os.IsNotExist(err) {
			t.Errorf("Site directory not created")
		}
		if _, err := os.Stat(filepath.Join(sitePath, ".git")); !os.IsNotExist(err) {
			t.Errorf(".git directory should not exist in gitless mode")
		}
	})

	t.Run("Injected Repository Is Returned", func(t *testing.T) {
		injected := fs.NewRepository(fs.Config{Path: t.TempDir(), Gitless: true})

		repo, err := Init("ignored", WithRepository(injected))
		if err != nil {
			t.Fatalf("Init failed: %v", err)
		}
		if repo != injected {
			t.Errorf("Expected injected repository to be returned")
		}
	})
}

func TestDetectGitless(t *testing.T) {
	t.Run("Existing .git", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.Mkdir(filepath.Join(dir, ".git"), 0755); err != nil {
			t.Fatal(err)
		}
		if detectGitless(dir, fs.DefaultSystemDir, false) {
			t.Error("Expected git mode when .git exists")
		}
	})

	t.Run("Plain Folder Without AutoInit", func(t *testing.T) {
		if !detectGitless(t.TempDir(), fs.DefaultSystemDir, false) {
			t.Error("Expected gitless mode for a plain folder")
		}
	})

	t.Run("Existing System Dir Stays Gitless", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.Mkdir(filepath.Join(dir, fs.DefaultSystemDir), 0755); err != nil {
			t.Fatal(err)
		}
		if !detectGitless(dir, fs.DefaultSystemDir, true) {
			t.Error("Expected gitless mode when only the system dir exists")
		}
	})
}

func TestSync(t *testing.T) {
	t.Run("Sync Fails if Gitless", func(t *testing.T) {
		if err := Sync(t.TempDir(), WithVersioning(false)); err == nil {
			t.Error("Expected Sync to fail in gitless mode")
		}
	})

	t.Run("Sync Fails with No Remote", func(t *testing.T) {
		gitIdentity(t)
		tmpDir := t.TempDir()
		client := git.NewClient(tmpDir, "", nil)
		if err := client.Init(); err != nil {
			t.Fatal(err)
		}

		if err := Sync(tmpDir, WithVersioning(true)); err == nil {
			t.Error("Expected Sync to fail without remote")
		}
	})

	t.Run("Sync Requires Syncable Repository", func(t *testing.T) {
		err := Sync("ignored", WithRepository(plainRepo{}))
		if !errors.Is(err, ErrNotSyncable) {
			t.Errorf("Expected ErrNotSyncable, got %v", err)
		}
	})
}

type plainRepo struct{}

func (plainRepo) Save(context.Context, core.Document) error { return nil }
func (plainRepo) Get(context.Context, string) (core.Document, error) {
	return core.Document{}, core.ErrNotFound
}
func (plainRepo) List(context.Context) ([]core.Document, error) { return nil, nil }
func (plainRepo) Delete(context.Context, string) error          { return nil }
func (plainRepo) Initialize(context.Context) error              { return nil }
