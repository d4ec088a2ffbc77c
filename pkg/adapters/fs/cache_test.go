package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCache_Load(t *testing.T) {
	t.Run("Starts Empty if File Missing", func(t *testing.T) {
		c := newCache(t.TempDir(), ".tilth")

		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if c.Len() != 0 {
			t.Errorf("expected empty entries, got %d", c.Len())
		}
	})

	t.Run("Loads Valid JSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		cacheDir := filepath.Join(tmpDir, ".tilth")
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			t.Fatal(err)
		}

		jsonContent := `{
			"version": 2,
			"entries": {
				"data/blog/apple.md": {
					"id": "data/blog/apple",
					"metadata": {"title": "Apple"},
					"format": "yaml"
				}
			}
		}`
		if err := os.WriteFile(filepath.Join(cacheDir, "index.json"), []byte(jsonContent), 0644); err != nil {
			t.Fatal(err)
		}

		c := newCache(tmpDir, ".tilth")
		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		entry, ok := c.index.Entries["data/blog/apple.md"]
		if !ok {
			t.Fatal("expected entry data/blog/apple.md not found")
		}
		if entry.Metadata["title"] != "Apple" {
			t.Errorf("expected title 'Apple', got '%v'", entry.Metadata["title"])
		}
	})

	t.Run("Resets on Corrupted or Outdated Index", func(t *testing.T) {
		for name, body := range map[string]string{
			"corrupt":  "{ invalid json ",
			"outdated": `{"version": 1, "entries": {"a.md": {"id": "a"}}}`,
		} {
			t.Run(name, func(t *testing.T) {
				tmpDir := t.TempDir()
				cacheDir := filepath.Join(tmpDir, ".tilth")
				if err := os.MkdirAll(cacheDir, 0755); err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(filepath.Join(cacheDir, "index.json"), []byte(body), 0644); err != nil {
					t.Fatal(err)
				}

				c := newCache(tmpDir, ".tilth")
				if err := c.Load(); err != nil {
					t.Fatalf("Load should self-heal, got: %v", err)
				}
				if c.Len() != 0 {
					t.Errorf("expected reset entries, got %d", c.Len())
				}
			})
		}
	})
}

func TestCache_SaveAndGet(t *testing.T) {
	tmpDir := t.TempDir()
	c := newCache(tmpDir, ".tilth")
	mtime := time.Now().Truncate(time.Second)

	c.Set("data/blog/apple.md", &indexEntry{ID: "data/blog/apple", Metadata: map[string]any{"title": "Apple"}, LastModified: mtime})

	if err := c.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, ".tilth", "index.json")); err != nil {
		t.Fatalf("index not written: %v", err)
	}

	reloaded := newCache(tmpDir, ".tilth")
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, hit := reloaded.Get("data/blog/apple.md", mtime); !hit {
		t.Error("expected cache hit for identical mtime")
	}
	if _, hit := reloaded.Get("data/blog/apple.md", mtime.Add(time.Second)); hit {
		t.Error("expected cache miss for newer mtime")
	}
}

func TestCache_Prune(t *testing.T) {
	c := newCache(t.TempDir(), ".tilth")
	c.Set("a.md", &indexEntry{ID: "a"})
	c.Set("b.md", &indexEntry{ID: "b"})

	c.Prune(map[string]bool{"a.md": true})

	if c.Len() != 1 {
		t.Fatalf("expected 1 entry after prune, got %d", c.Len())
	}
	if _, ok := c.Snapshot()["a.md"]; !ok {
		t.Error("kept entry was pruned")
	}
}
