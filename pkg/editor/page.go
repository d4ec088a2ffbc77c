package editor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/tilth/pkg/content"
	"github.com/aretw0/tilth/pkg/core"
	"github.com/aretw0/tilth/pkg/form"
)

// Renderer turns a markdown body into HTML for display.
type Renderer interface {
	Render(markdown string) (string, error)
}

// PageOption configures a Page.
type PageOption func(*Page)

// WithPageLogger sets the logger of the page and of its sessions.
func WithPageLogger(logger *slog.Logger) PageOption {
	return func(p *Page) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithBindings replaces DefaultBindings.
func WithBindings(bindings ...FieldBinding) PageOption {
	return func(p *Page) {
		p.bindings = bindings
	}
}

// WithRenderer enables the HTML preview in View.
func WithRenderer(r Renderer) PageOption {
	return func(p *Page) {
		p.renderer = r
	}
}

// WithSessionOptions are passed to every Bind.
func WithSessionOptions(opts ...Option) PageOption {
	return func(p *Page) {
		p.sessionOpts = append(p.sessionOpts, opts...)
	}
}

// Page shows one post at a time. Opening another slug discards the current
// session without saving.
type Page struct {
	source      content.Source
	committer   Committer
	viewer      *Viewer
	bindings    []FieldBinding
	renderer    Renderer
	sessionOpts []Option
	logger      *slog.Logger

	mu      sync.Mutex
	gen     uint64
	slug    string
	loading bool
	session *Session
	err     error
}

// NewPage creates a page reading from source. A nil committer falls back to
// source when it is a content.Store; a nil viewer has editing disabled.
func NewPage(source content.Source, committer Committer, viewer *Viewer, opts ...PageOption) *Page {
	if committer == nil {
		if store, ok := source.(content.Store); ok {
			committer = store
		}
	}
	if viewer == nil {
		viewer = NewViewer(false)
	}
	p := &Page{
		source:    source,
		committer: committer,
		viewer:    viewer,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Viewer returns the viewer flag of the page.
func (p *Page) Viewer() *Viewer { return p.viewer }

// Open navigates to slug. The previous session is discarded first. When a
// later Open or Close overtakes this one, its result is dropped and
// ErrSuperseded returned. Load errors (content.ErrNotFound included) leave
// the page without a session.
func (p *Page) Open(ctx context.Context, slug string) error {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	prev := p.session
	p.session = nil
	p.slug = slug
	p.loading = true
	p.err = nil
	p.mu.Unlock()

	if prev != nil {
		prev.Close()
	}

	post, err := p.source.Load(ctx, slug)
	var s *Session
	if err == nil {
		opts := append([]Option{WithLogger(p.logger)}, p.sessionOpts...)
		s, err = Bind(post, p.bindings, p.committer, opts...)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen {
		if s != nil {
			s.Close()
		}
		return ErrSuperseded
	}
	p.loading = false
	if err != nil {
		p.err = err
		if errors.Is(err, content.ErrNotFound) {
			p.logger.Info("post not found", "slug", slug)
		} else {
			p.logger.Error("post load failed", "slug", slug, "error", err)
		}
		return err
	}
	p.session = s
	p.logger.Debug("post opened", "slug", slug, "session", s.ID())
	return nil
}

// Close discards the current session without saving.
func (p *Page) Close() {
	p.mu.Lock()
	p.gen++
	s := p.session
	p.session = nil
	p.slug = ""
	p.loading = false
	p.err = nil
	p.mu.Unlock()

	if s != nil {
		s.Close()
	}
}

// Session returns the bound session, nil while loading or after a failed load.
func (p *Page) Session() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// Slug returns the slug of the last navigation.
func (p *Page) Slug() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slug
}

// Err returns the error of the last load.
func (p *Page) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Refresh reloads the current post into a clean, idle session. Sessions with
// unsaved edits or a pending save are left alone.
func (p *Page) Refresh(ctx context.Context) error {
	p.mu.Lock()
	s, slug, gen := p.session, p.slug, p.gen
	p.mu.Unlock()
	if s == nil {
		return nil
	}
	if s.Pending() || s.Dirty() {
		return ErrUnsavedChanges
	}

	post, err := p.source.Load(ctx, slug)
	if err != nil {
		return err
	}

	p.mu.Lock()
	current := p.gen == gen
	p.mu.Unlock()
	if !current {
		return ErrSuperseded
	}
	return s.Reload(post)
}

// Follow applies external changes of the current post until events closes
// or ctx is done.
func (p *Page) Follow(ctx context.Context, events <-chan core.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			p.apply(ctx, e)
		}
	}
}

func (p *Page) apply(ctx context.Context, e core.Event) {
	s := p.Session()
	if s == nil || strings.TrimSuffix(s.Path(), ".md") != e.ID {
		return
	}

	if e.Type == core.EventDelete {
		p.logger.Warn("post removed outside the editor", "path", s.Path())
		return
	}

	switch err := p.Refresh(ctx); {
	case err == nil:
		p.logger.Info("post reloaded after external change", "path", s.Path())
	case errors.Is(err, ErrUnsavedChanges), errors.Is(err, form.ErrSubmitPending):
		p.logger.Warn("external change ignored, session has local edits", "path", s.Path())
	case errors.Is(err, ErrSuperseded):
	default:
		p.logger.Error("reload failed", "path", s.Path(), "error", err)
	}
}
