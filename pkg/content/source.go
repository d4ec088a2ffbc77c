package content

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Source resolves a slug to a post. Unknown or invalid slugs yield an error
// matching ErrNotFound. Loading has no side effects.
type Source interface {
	Load(ctx context.Context, slug string) (Post, error)
}

// Store is a Source that can also persist posts.
type Store interface {
	Source
	Commit(ctx context.Context, post Post) error
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, slug string) (Post, error)

// Load implements Source.
func (f SourceFunc) Load(ctx context.Context, slug string) (Post, error) {
	return f(ctx, slug)
}

// MapSource is an in-memory registry of raw posts keyed by slug.
type MapSource struct {
	mu         sync.RWMutex
	raw        map[string][]byte
	collection string
	logger     *slog.Logger
}

// NewMapSource registers raw contents by slug under DefaultCollection.
func NewMapSource(raw map[string]string) *MapSource {
	m := &MapSource{
		raw:        make(map[string][]byte, len(raw)),
		collection: DefaultCollection,
		logger:     slog.New(slog.DiscardHandler),
	}
	for slug, content := range raw {
		m.raw[slug] = []byte(content)
	}
	return m
}

// Load implements Source.
func (m *MapSource) Load(ctx context.Context, slug string) (Post, error) {
	if !ValidSlug(slug) {
		return Post{}, fmt.Errorf("%w: %q", ErrNotFound, slug)
	}
	m.mu.RLock()
	raw, ok := m.raw[slug]
	m.mu.RUnlock()
	if !ok {
		return Post{}, fmt.Errorf("%w: %q", ErrNotFound, slug)
	}
	return Decode(PathFor(m.collection, slug), raw, m.logger), nil
}

// Commit implements Store. The post must address a registered slug.
func (m *MapSource) Commit(ctx context.Context, post Post) error {
	slug := post.Slug()
	if post.FileRelativePath != PathFor(m.collection, slug) || !ValidSlug(slug) {
		return fmt.Errorf("%w: %q", ErrNotFound, post.FileRelativePath)
	}
	data, err := Encode(post)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.raw[slug]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, slug)
	}
	m.raw[slug] = data
	return nil
}

// Raw returns the stored bytes of slug.
func (m *MapSource) Raw(slug string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.raw[slug]
	return string(raw), ok
}

// Slugs lists the registered slugs in order.
func (m *MapSource) Slugs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slugs := make([]string, 0, len(m.raw))
	for slug := range m.raw {
		slugs = append(slugs, slug)
	}
	slices.Sort(slugs)
	return slugs, nil
}
