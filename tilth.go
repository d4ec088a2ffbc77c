package tilth

import (
	"context"
	"log/slog"

	"github.com/aretw0/tilth/internal/platform"
	"github.com/aretw0/tilth/pkg/content"
	"github.com/aretw0/tilth/pkg/core"
)

// --- Configuration ---

// Option configures how a site is opened.
type Option = platform.Option

// WithAutoInit creates the content root (and git repository) when missing.
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithVersioning enables or disables git versioning.
func WithVersioning(enabled bool) Option {
	return platform.WithVersioning(enabled)
}

// WithMustExist fails when the content root does not exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithReadOnly refuses every write.
func WithReadOnly(readOnly bool) Option {
	return platform.WithReadOnly(readOnly)
}

// WithStrict rejects posts with malformed frontmatter.
func WithStrict(strict bool) Option {
	return platform.WithStrict(strict)
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRepository injects a custom storage adapter.
func WithRepository(repo core.Repository) Option {
	return platform.WithRepository(repo)
}

// WithSystemDir sets the hidden directory name (default ".tilth").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithEventBuffer sets the size of the watch event buffer.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithWatcherErrorHandler receives errors from the background watcher.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// WithCollection sets the directory holding posts (default "data/blog").
func WithCollection(dir string) Option {
	return platform.WithCollection(dir)
}

// WithAllowList restricts editing to the given slugs.
func WithAllowList(slugs ...string) Option {
	return platform.WithAllowList(slugs...)
}

// --- Factory ---

// New opens the content root at path and returns the document service.
func New(path string, opts ...Option) (*core.Service, error) {
	return platform.New(path, opts...)
}

// NewStore opens the content root at path and returns the post store that
// editing pages load from and commit to.
func NewStore(path string, opts ...Option) (*content.RepositoryStore, *core.Service, error) {
	return platform.NewStore(path, opts...)
}

// Init prepares the content root without building a service.
func Init(path string, opts ...Option) (core.Repository, error) {
	return platform.Init(path, opts...)
}

// Sync pulls and pushes the git repository at path.
func Sync(path string, opts ...Option) error {
	return platform.Sync(path, opts...)
}

// FindRoot walks upwards from dir to the nearest content root.
func FindRoot(dir string) (string, error) {
	return platform.FindRoot(dir)
}

// WithChangeReason sets the commit message used by the next save through ctx.
func WithChangeReason(ctx context.Context, reason string) context.Context {
	return core.WithChangeReason(ctx, reason)
}
