package platform

import (
	"log/slog"

	"github.com/aretw0/tilth/pkg/core"
)

// options holds the configuration shared by Init, Sync, New and NewStore.
type options struct {
	repository   core.Repository
	logger       *slog.Logger
	autoInit     bool
	gitless      *bool
	mustExist    bool
	readOnly     bool
	strict       bool
	systemDir    string
	eventBuffer  int
	errorHandler func(error)
	collection   string
	allowList    []string
}

// Option defines a functional option for configuring a site.
type Option func(*options)

func defaultOptions() *options {
	return &options{}
}

func apply(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithAutoInit creates the content root (and the git repository when
// versioning is on) if it does not exist yet.
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.autoInit = auto
	}
}

// WithVersioning enables or disables git versioning.
// When unset, versioning is detected from the presence of .git.
func WithVersioning(enabled bool) Option {
	return func(o *options) {
		gitless := !enabled
		o.gitless = &gitless
	}
}

// WithMustExist fails initialization when the root directory is missing.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithReadOnly opens the site without allowing writes.
func WithReadOnly(readOnly bool) Option {
	return func(o *options) {
		o.readOnly = readOnly
	}
}

// WithStrict makes malformed frontmatter a hard error instead of a warning.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithSystemDir overrides the directory holding the index cache (default ".tilth").
func WithSystemDir(dir string) Option {
	return func(o *options) {
		o.systemDir = dir
	}
}

// WithLogger sets the logger passed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRepository injects a storage adapter, skipping the filesystem one.
func WithRepository(repo core.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithEventBuffer sets the buffer between the file watcher and its consumer.
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.eventBuffer = size
	}
}

// WithWatcherErrorHandler receives errors raised by the background watcher.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}

// WithCollection sets the directory, relative to the root, holding posts.
func WithCollection(dir string) Option {
	return func(o *options) {
		o.collection = dir
	}
}

// WithAllowList restricts the editable posts to the given slugs.
func WithAllowList(slugs ...string) Option {
	return func(o *options) {
		o.allowList = append([]string(nil), slugs...)
	}
}
