package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/tilth/pkg/core"
	"github.com/aretw0/tilth/pkg/frontmatter"
)

// RepositoryStore loads and commits posts through a core.Service. Only slugs
// that pass ValidSlug and the allow-list are addressable.
type RepositoryStore struct {
	service    *core.Service
	collection string
	allow      []string
	logger     *slog.Logger
	reason     func(Post) string
}

// StoreOption configures a RepositoryStore.
type StoreOption func(*RepositoryStore)

// WithAllowList fixes the addressable slugs. Without it the allow-list is
// whatever the repository currently lists in the collection.
func WithAllowList(slugs ...string) StoreOption {
	return func(s *RepositoryStore) {
		s.allow = slices.Clone(slugs)
	}
}

// WithCollection changes the directory holding the posts.
func WithCollection(dir string) StoreOption {
	return func(s *RepositoryStore) {
		if dir != "" {
			s.collection = strings.Trim(path.Clean(dir), "/")
		}
	}
}

// WithStoreLogger sets the logger.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *RepositoryStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithChangeReason overrides the commit message built for each save.
func WithChangeReason(fn func(Post) string) StoreOption {
	return func(s *RepositoryStore) {
		if fn != nil {
			s.reason = fn
		}
	}
}

// NewRepositoryStore creates a store over service.
func NewRepositoryStore(service *core.Service, opts ...StoreOption) *RepositoryStore {
	s := &RepositoryStore{
		service:    service,
		collection: DefaultCollection,
		logger:     slog.New(slog.DiscardHandler),
		reason: func(p Post) string {
			return "docs(blog): update " + p.Slug()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collection returns the directory holding the posts.
func (s *RepositoryStore) Collection() string {
	return s.collection
}

func (s *RepositoryStore) id(slug string) string {
	return path.Join(s.collection, slug)
}

// Slugs lists the addressable slugs in order.
func (s *RepositoryStore) Slugs(ctx context.Context) ([]string, error) {
	if s.allow != nil {
		out := slices.Clone(s.allow)
		slices.Sort(out)
		return out, nil
	}

	docs, err := s.service.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	pattern := s.collection + "/*.md"
	var slugs []string
	for _, doc := range docs {
		if ok, _ := doublestar.Match(pattern, doc.ID+".md"); !ok {
			continue
		}
		if slug := path.Base(doc.ID); ValidSlug(slug) {
			slugs = append(slugs, slug)
		}
	}
	slices.Sort(slugs)
	return slugs, nil
}

func (s *RepositoryStore) allowed(ctx context.Context, slug string) (bool, error) {
	if !ValidSlug(slug) {
		return false, nil
	}
	slugs, err := s.Slugs(ctx)
	if err != nil {
		return false, err
	}
	_, found := slices.BinarySearch(slugs, slug)
	return found, nil
}

// Load implements Source.
func (s *RepositoryStore) Load(ctx context.Context, slug string) (Post, error) {
	ok, err := s.allowed(ctx, slug)
	if err != nil {
		return Post{}, err
	}
	if !ok {
		s.logger.Debug("slug rejected", "slug", slug)
		return Post{}, fmt.Errorf("%w: %q", ErrNotFound, slug)
	}

	doc, err := s.service.GetDocument(ctx, s.id(slug))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Post{}, fmt.Errorf("%w: %q", ErrNotFound, slug)
		}
		return Post{}, fmt.Errorf("load %q: %w", slug, err)
	}

	meta := map[string]any(doc.Metadata)
	if meta == nil {
		meta = map[string]any{}
	}
	return Post{
		FileRelativePath: PathFor(s.collection, slug),
		Frontmatter:      meta,
		MarkdownBody:     doc.Content,
		Format:           frontmatter.Format(doc.Format),
	}, nil
}

// Commit implements Store. The post must address an allowed slug of the
// collection. A change reason already set on ctx wins over the configured one.
func (s *RepositoryStore) Commit(ctx context.Context, post Post) error {
	slug := post.Slug()
	if post.FileRelativePath != PathFor(s.collection, slug) {
		return fmt.Errorf("%w: %q", ErrNotFound, post.FileRelativePath)
	}
	ok, err := s.allowed(ctx, slug)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, slug)
	}

	if _, ok := core.ChangeReason(ctx); !ok {
		ctx = core.WithChangeReason(ctx, s.reason(post))
	}
	err = s.service.SaveDocument(ctx, core.Document{
		ID:       s.id(slug),
		Content:  post.MarkdownBody,
		Metadata: core.Metadata(post.Frontmatter),
		Format:   string(post.Format),
	})
	if err != nil {
		return err
	}
	s.logger.Info("post saved", "slug", slug)
	return nil
}
