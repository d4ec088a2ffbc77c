package fs

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/tilth/pkg/core"
)

const cacheVersion = 2

// indexEntry is the cached listing data of one file.
type indexEntry struct {
	ID           string        `json:"id"`
	Metadata     core.Metadata `json:"metadata,omitempty"`
	Format       string        `json:"format,omitempty"`
	LastModified time.Time     `json:"lastModified"`
}

// index is the persisted form of the cache. Entries are keyed by slash
// separated path relative to the repository root (e.g. "data/blog/apple.md").
type index struct {
	Version int                    `json:"version"`
	Entries map[string]*indexEntry `json:"entries"`
}

// cache keeps file metadata so List does not re-parse unchanged files.
type cache struct {
	path  string
	mu    sync.RWMutex
	index index
	dirty bool
}

func newCache(root, systemDir string) *cache {
	return &cache{
		path:  filepath.Join(root, systemDir, "index.json"),
		index: index{Version: cacheVersion, Entries: make(map[string]*indexEntry)},
	}
}

// Load reads the index from disk. A missing, corrupt or outdated index is
// replaced by an empty one.
func (c *cache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cache: %w", err)
	}

	var loaded index
	if err := json.Unmarshal(data, &loaded); err != nil || loaded.Version != cacheVersion || loaded.Entries == nil {
		c.index = index{Version: cacheVersion, Entries: make(map[string]*indexEntry)}
		c.dirty = true
		return nil
	}
	c.index = loaded
	c.dirty = false
	return nil
}

// Save persists the index if it changed since the last Load or Save.
func (c *cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return err
	}
	if err := writeFileAtomic(c.path, data, 0644); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// Get returns the entry for relPath if it was recorded for the same mtime.
func (c *cache) Get(relPath string, mtime time.Time) (*indexEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.index.Entries[relPath]
	if !ok || !entry.LastModified.Equal(mtime) {
		return nil, false
	}
	return entry, true
}

func (c *cache) Set(relPath string, entry *indexEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.index.Entries[relPath] = entry
	c.dirty = true
}

func (c *cache) Delete(relPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index.Entries[relPath]; ok {
		delete(c.index.Entries, relPath)
		c.dirty = true
	}
}

// Prune drops every entry whose path is not in keep.
func (c *cache) Prune(keep map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for p := range c.index.Entries {
		if !keep[p] {
			delete(c.index.Entries, p)
			c.dirty = true
		}
	}
}

// Snapshot returns a copy of the entries.
func (c *cache) Snapshot() map[string]indexEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]indexEntry, len(c.index.Entries))
	for k, v := range c.index.Entries {
		e := *v
		e.Metadata = maps.Clone(v.Metadata)
		out[k] = e
	}
	return out
}

func (c *cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.index.Entries)
}
