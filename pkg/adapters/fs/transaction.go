package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/aretw0/tilth/pkg/core"
)

// ErrTransactionClosed is returned by operations on a committed or rolled
// back transaction.
var ErrTransactionClosed = errors.New("transaction closed")

// Transaction implements core.Transaction for the filesystem. Staged writes
// land on disk and in a single git commit on Commit.
type Transaction struct {
	repo    *Repository
	staged  map[string]core.Document // relative path -> document
	deleted map[string]bool
	mu      sync.Mutex
	closed  bool
}

// NewTransaction creates a new transaction.
func NewTransaction(repo *Repository) *Transaction {
	return &Transaction{
		repo:    repo,
		staged:  make(map[string]core.Document),
		deleted: make(map[string]bool),
	}
}

// Save stages a document for saving.
func (t *Transaction) Save(ctx context.Context, doc core.Document) error {
	rel, err := t.repo.resolve(doc.ID)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransactionClosed
	}

	t.staged[rel] = doc
	delete(t.deleted, rel)
	return nil
}

// Get retrieves a document, favoring staged changes.
func (t *Transaction) Get(ctx context.Context, id string) (core.Document, error) {
	rel, err := t.repo.resolve(id)
	if err != nil {
		return core.Document{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return core.Document{}, ErrTransactionClosed
	}

	if t.deleted[rel] {
		return core.Document{}, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	if doc, ok := t.staged[rel]; ok {
		return doc, nil
	}
	return t.repo.read(rel)
}

// Delete stages a document for deletion.
func (t *Transaction) Delete(ctx context.Context, id string) error {
	rel, err := t.repo.resolve(id)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransactionClosed
	}

	t.deleted[rel] = true
	delete(t.staged, rel)
	return nil
}

// Commit applies all staged changes. Unless gitless they are recorded in one
// commit named changeReason.
func (t *Transaction) Commit(ctx context.Context, changeReason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransactionClosed
	}

	if !t.repo.config.Gitless {
		unlock, err := t.repo.git.Lock()
		if err != nil {
			return fmt.Errorf("acquire git lock: %w", err)
		}
		defer unlock()
	}

	added := make([]string, 0, len(t.staged))
	for rel := range t.staged {
		added = append(added, rel)
	}
	sort.Strings(added)
	for _, rel := range added {
		if err := t.repo.write(rel, t.staged[rel]); err != nil {
			return err
		}
	}

	var removed []string
	for rel := range t.deleted {
		fullPath := filepath.Join(t.repo.Path, filepath.FromSlash(rel))
		if _, err := os.Stat(fullPath); os.IsNotExist(err) {
			continue
		}
		t.repo.recordWrite(rel, nil)
		if t.repo.config.Gitless {
			if err := os.Remove(fullPath); err != nil {
				return fmt.Errorf("remove %s: %w", rel, err)
			}
		}
		removed = append(removed, rel)
	}
	sort.Strings(removed)

	if !t.repo.config.Gitless {
		if err := t.repo.git.Add(added...); err != nil {
			return fmt.Errorf("git add: %w", err)
		}
		if err := t.repo.git.Rm(removed...); err != nil {
			return fmt.Errorf("git rm: %w", err)
		}
		msg := changeReason
		if msg == "" {
			msg = "batch transaction update"
		}
		if err := t.repo.git.Commit(msg); err != nil {
			return fmt.Errorf("git commit: %w", err)
		}
	}

	for _, rel := range removed {
		t.repo.dropCached(rel)
	}
	t.closed = true
	return nil
}

// Rollback discards all staged changes. Rolling back a closed transaction is a no-op.
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.staged = nil
	t.deleted = nil
	t.closed = true
	return nil
}
