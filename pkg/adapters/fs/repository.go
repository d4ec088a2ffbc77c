// Package fs stores documents as markdown files on the local filesystem,
// optionally versioning every write with git.
package fs

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/tilth/pkg/core"
	"github.com/aretw0/tilth/pkg/git"
)

// DefaultSystemDir holds the listing cache and names the git lock file.
const DefaultSystemDir = ".tilth"

// DocumentExt is the extension of files managed by the repository. IDs are
// relative paths without it.
const DocumentExt = ".md"

// ErrOutsideRoot is returned for IDs that would resolve outside the repository.
var ErrOutsideRoot = errors.New("document path escapes repository root")

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path      string
	AutoInit  bool
	Gitless   bool
	MustExist bool
	ReadOnly  bool
	// Strict rejects documents with malformed metadata instead of degrading
	// them to empty metadata.
	Strict       bool
	Logger       *slog.Logger
	SystemDir    string
	ErrorHandler func(error)
	// Debounce coalesces bursts of filesystem events per document.
	Debounce time.Duration
}

// Repository implements core.Repository using the filesystem and git.
type Repository struct {
	Path       string
	git        *git.Client
	cache      *cache
	config     Config
	serializer Serializer

	mu            sync.RWMutex
	watcherActive bool
	lastReconcile *time.Time
	// writes remembers checksums of files this process wrote so the watcher
	// can tell them apart from external edits. An empty sum marks a removal.
	writes map[string]string
}

// NewRepository creates a new filesystem-backed repository.
func NewRepository(config Config) *Repository {
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Debounce <= 0 {
		config.Debounce = 50 * time.Millisecond
	}
	return &Repository{
		Path:       config.Path,
		git:        git.NewClient(config.Path, config.SystemDir+".lock", config.Logger),
		cache:      newCache(config.Path, config.SystemDir),
		config:     config,
		serializer: NewMarkdownSerializer(config.Strict, config.Logger),
		writes:     make(map[string]string),
	}
}

// Begin starts a new transaction.
func (r *Repository) Begin(ctx context.Context) (core.Transaction, error) {
	if r.config.ReadOnly {
		return nil, core.ErrReadOnly
	}
	return NewTransaction(r), nil
}

// Initialize prepares the directory, the git repository and the cache.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.MustExist {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("content path does not exist: %s", r.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("content path is not a directory: %s", r.Path)
		}
	} else if err := os.MkdirAll(r.Path, 0755); err != nil {
		return fmt.Errorf("create content directory: %w", err)
	}

	if !r.config.Gitless {
		if err := r.initGit(); err != nil {
			return err
		}
	}

	if err := r.cache.Load(); err != nil {
		r.config.Logger.Warn("cache unavailable, starting empty", "error", err)
	}
	return nil
}

func (r *Repository) initGit() error {
	if !git.IsInstalled() {
		return fmt.Errorf("git is not installed")
	}

	created := false
	if !r.git.IsRepo() {
		if !r.config.AutoInit {
			return fmt.Errorf("path is not a git repository: %s", r.Path)
		}
		if err := r.git.Init(); err != nil {
			return fmt.Errorf("git init: %w", err)
		}
		created = true
	}

	if r.config.ReadOnly {
		return nil
	}

	modified, err := r.ensureIgnore()
	if err != nil {
		return fmt.Errorf("ensure .gitignore: %w", err)
	}
	if modified && created {
		if err := r.git.Add(".gitignore"); err != nil {
			return fmt.Errorf("git add .gitignore: %w", err)
		}
		if err := r.git.Commit(fmt.Sprintf("chore: ignore %s", r.config.SystemDir)); err != nil {
			return fmt.Errorf("git commit .gitignore: %w", err)
		}
	}
	return nil
}

// ensureIgnore keeps the system directory and the lock file out of git.
func (r *Repository) ensureIgnore() (bool, error) {
	ignorePath := filepath.Join(r.Path, ".gitignore")
	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	present := make(map[string]bool)
	for _, line := range strings.Split(string(content), "\n") {
		present[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, entry := range []string{r.config.SystemDir + "/", r.config.SystemDir + ".lock"} {
		if !present[entry] {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return false, nil
	}

	var b strings.Builder
	b.Write(content)
	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		b.WriteString("\n")
	}
	for _, entry := range missing {
		b.WriteString(entry + "\n")
	}
	return true, writeFileAtomic(ignorePath, []byte(b.String()), 0644)
}

// Sync pulls and pushes the underlying git repository.
func (r *Repository) Sync(ctx context.Context) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	if r.config.Gitless {
		return fmt.Errorf("cannot sync in gitless mode")
	}
	if !r.git.IsRepo() {
		return fmt.Errorf("path is not a git repository: %s", r.Path)
	}

	unlock, err := r.git.Lock()
	if err != nil {
		return fmt.Errorf("acquire git lock: %w", err)
	}
	defer unlock()

	return r.git.Sync()
}

// resolve maps an ID to its slash separated path relative to the root.
func (r *Repository) resolve(id string) (string, error) {
	if id == "" {
		return "", core.ErrEmptyID
	}
	rel := filepath.ToSlash(filepath.Clean(filepath.FromSlash(id)))
	if filepath.Ext(rel) != DocumentExt {
		rel += DocumentExt
	}
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, id)
	}
	return rel, nil
}

// idFor is the inverse of resolve.
func idFor(rel string) string {
	return strings.TrimSuffix(filepath.ToSlash(rel), DocumentExt)
}

// Save persists a document and, unless gitless, commits it. The commit
// message is the change reason on ctx, "update <id>" otherwise.
func (r *Repository) Save(ctx context.Context, doc core.Document) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	rel, err := r.resolve(doc.ID)
	if err != nil {
		return err
	}

	if r.config.Gitless {
		return r.write(rel, doc)
	}

	unlock, err := r.git.Lock()
	if err != nil {
		return fmt.Errorf("acquire git lock: %w", err)
	}
	defer unlock()

	if err := r.write(rel, doc); err != nil {
		return err
	}
	if err := r.git.Add(rel); err != nil {
		return fmt.Errorf("git add: %w", err)
	}

	msg := "update " + idFor(rel)
	if reason, ok := core.ChangeReason(ctx); ok {
		msg = reason
	}
	if err := r.git.Commit(msg); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	return nil
}

// write serializes doc to rel and refreshes the cache entry.
func (r *Repository) write(rel string, doc core.Document) error {
	data, err := r.serializer.Serialize(doc)
	if err != nil {
		return fmt.Errorf("serialize %s: %w", rel, err)
	}

	fullPath := filepath.Join(r.Path, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	r.recordWrite(rel, data)
	if err := writeFileAtomic(fullPath, data, 0644); err != nil {
		r.forgetWrite(rel)
		return err
	}

	if info, err := os.Stat(fullPath); err == nil {
		r.cache.Set(rel, &indexEntry{
			ID:           idFor(rel),
			Metadata:     doc.Metadata,
			Format:       doc.Format,
			LastModified: info.ModTime(),
		})
		r.saveCache()
	}
	return nil
}

// Get retrieves a document from the filesystem.
func (r *Repository) Get(ctx context.Context, id string) (core.Document, error) {
	rel, err := r.resolve(id)
	if err != nil {
		return core.Document{}, err
	}
	return r.read(rel)
}

func (r *Repository) read(rel string) (core.Document, error) {
	f, err := os.Open(filepath.Join(r.Path, filepath.FromSlash(rel)))
	if err != nil {
		if os.IsNotExist(err) {
			return core.Document{}, fmt.Errorf("%w: %s", core.ErrNotFound, idFor(rel))
		}
		return core.Document{}, err
	}
	defer f.Close()

	doc, err := r.serializer.Parse(f)
	if err != nil {
		return core.Document{}, fmt.Errorf("parse %s: %w", rel, err)
	}
	doc.ID = idFor(rel)
	return *doc, nil
}

// List returns every document with its metadata. Content is left empty;
// unchanged files are served from the cache.
func (r *Repository) List(ctx context.Context) ([]core.Document, error) {
	var docs []core.Document
	seen := make(map[string]bool)

	err := filepath.WalkDir(r.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != r.Path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != DocumentExt || strings.HasPrefix(d.Name(), TempFilePrefix) {
			return nil
		}

		relPath, err := filepath.Rel(r.Path, path)
		if err != nil {
			return err
		}
		rel := filepath.ToSlash(relPath)
		info, err := d.Info()
		if err != nil {
			return nil
		}
		seen[rel] = true

		if entry, hit := r.cache.Get(rel, info.ModTime()); hit {
			docs = append(docs, core.Document{ID: entry.ID, Metadata: entry.Metadata, Format: entry.Format})
			return nil
		}

		doc, err := r.read(rel)
		if err != nil {
			r.config.Logger.Warn("skipping unreadable document", "path", rel, "error", err)
			return nil
		}
		r.cache.Set(rel, &indexEntry{
			ID:           doc.ID,
			Metadata:     doc.Metadata,
			Format:       doc.Format,
			LastModified: info.ModTime(),
		})
		docs = append(docs, core.Document{ID: doc.ID, Metadata: doc.Metadata, Format: doc.Format})
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.cache.Prune(seen)
	r.saveCache()
	return docs, nil
}

// Delete removes a document and, unless gitless, commits the removal.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	rel, err := r.resolve(id)
	if err != nil {
		return err
	}

	fullPath := filepath.Join(r.Path, filepath.FromSlash(rel))
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", core.ErrNotFound, idFor(rel))
	}

	r.recordWrite(rel, nil)

	if r.config.Gitless {
		if err := os.Remove(fullPath); err != nil {
			return fmt.Errorf("remove file: %w", err)
		}
		r.dropCached(rel)
		return nil
	}

	unlock, err := r.git.Lock()
	if err != nil {
		return fmt.Errorf("acquire git lock: %w", err)
	}
	defer unlock()

	if err := r.git.Rm(rel); err != nil {
		return fmt.Errorf("git rm: %w", err)
	}
	msg := "delete " + idFor(rel)
	if reason, ok := core.ChangeReason(ctx); ok {
		msg = reason
	}
	if err := r.git.Commit(msg); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	r.dropCached(rel)
	return nil
}

func (r *Repository) dropCached(rel string) {
	r.cache.Delete(rel)
	r.saveCache()
}

// Reconcile compares the cache with the disk and reports what changed since
// the last listing. It runs after git releases its index lock, when the
// watcher may have missed events.
func (r *Repository) Reconcile(ctx context.Context) ([]core.Event, error) {
	before := r.cache.Snapshot()
	if _, err := r.List(ctx); err != nil {
		return nil, err
	}
	after := r.cache.Snapshot()

	now := time.Now().Unix()
	var events []core.Event
	for rel, entry := range after {
		prev, ok := before[rel]
		switch {
		case !ok:
			events = append(events, core.Event{Type: core.EventCreate, ID: entry.ID, Timestamp: now})
		case !prev.LastModified.Equal(entry.LastModified):
			events = append(events, core.Event{Type: core.EventModify, ID: entry.ID, Timestamp: now})
		}
	}
	for rel, entry := range before {
		if _, ok := after[rel]; !ok {
			events = append(events, core.Event{Type: core.EventDelete, ID: entry.ID, Timestamp: now})
		}
	}

	r.mu.Lock()
	stamp := time.Now()
	r.lastReconcile = &stamp
	r.mu.Unlock()
	return events, nil
}

func (r *Repository) saveCache() {
	if r.config.ReadOnly {
		return
	}
	if err := r.cache.Save(); err != nil {
		r.config.Logger.Debug("cache save failed", "error", err)
	}
}

func (r *Repository) recordWrite(rel string, data []byte) {
	sum := ""
	if data != nil {
		sum = checksum(data)
	}
	r.mu.Lock()
	r.writes[rel] = sum
	r.mu.Unlock()
}

func (r *Repository) forgetWrite(rel string) {
	r.mu.Lock()
	delete(r.writes, rel)
	r.mu.Unlock()
}

// ownWrite reports whether the current state of rel is the one this process
// last wrote. A mismatch clears the record.
func (r *Repository) ownWrite(rel string, removed bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sum, ok := r.writes[rel]
	if !ok {
		return false
	}
	if removed {
		if sum == "" {
			delete(r.writes, rel)
			return true
		}
		return false
	}
	data, err := os.ReadFile(filepath.Join(r.Path, filepath.FromSlash(rel)))
	if err == nil && sum != "" && checksum(data) == sum {
		return true
	}
	delete(r.writes, rel)
	return false
}

func checksum(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// IsGitInstalled checks if git is available in the system path.
func IsGitInstalled() bool {
	return git.IsInstalled()
}
