// Package editor binds a loaded post to an editable form session and drives
// the load, edit, save and reset lifecycle of a page.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/aretw0/tilth/pkg/content"
	"github.com/aretw0/tilth/pkg/form"
)

// Committer persists a post. content.Store implements it.
type Committer interface {
	Commit(ctx context.Context, post content.Post) error
}

// CommitterFunc adapts a function to Committer.
type CommitterFunc func(ctx context.Context, post content.Post) error

// Commit implements Committer.
func (f CommitterFunc) Commit(ctx context.Context, post content.Post) error {
	return f(ctx, post)
}

// Uploader stores a file and returns its public URL.
type Uploader interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithUploader enables uploads into markdown fields.
func WithUploader(u Uploader) Option {
	return func(s *Session) {
		s.uploader = u
	}
}

// Session is the edit state of one post. Edits stay in memory until Save.
type Session struct {
	id        string
	bindings  []FieldBinding
	byPath    map[string]FieldBinding
	form      *form.Form
	committer Committer
	uploader  Uploader
	logger    *slog.Logger
	closed    atomic.Bool

	mu   sync.RWMutex
	base content.Post
}

// Bind creates a session for post. Nil bindings mean DefaultBindings. Fields
// that do not resolve in post start empty.
func Bind(post content.Post, bindings []FieldBinding, committer Committer, opts ...Option) (*Session, error) {
	if bindings == nil {
		bindings = DefaultBindings()
	}
	if err := validateBindings(bindings); err != nil {
		return nil, err
	}

	s := &Session{
		id:        uuid.NewString(),
		bindings:  append([]FieldBinding(nil), bindings...),
		byPath:    make(map[string]FieldBinding, len(bindings)),
		committer: committer,
		logger:    slog.New(slog.DiscardHandler),
		base:      post.Clone(),
	}
	for _, opt := range opts {
		opt(s)
	}

	fields := make([]form.Field, 0, len(bindings))
	for _, b := range bindings {
		s.byPath[b.Path] = b
		fields = append(fields, form.Field{Name: b.Path, Component: string(b.Affordance), Rules: b.Rules})
	}

	f, err := form.New(form.Config{
		Fields:        fields,
		InitialValues: s.valuesOf(s.base),
		OnSubmit:      s.commit,
		Logger:        s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBinding, err)
	}
	s.form = f
	return s, nil
}

func (s *Session) valuesOf(post content.Post) form.Values {
	values := make(form.Values, len(s.bindings))
	for _, b := range s.bindings {
		values[b.Path] = initialValue(post, b.Path)
	}
	return values
}

// commit is the form submit handler.
func (s *Session) commit(ctx context.Context, values form.Values) error {
	if s.committer == nil {
		return fmt.Errorf("commit %s: no committer configured", s.Path())
	}

	s.mu.RLock()
	next := compose(s.base, s.bindings, values)
	s.mu.RUnlock()

	if err := s.committer.Commit(ctx, next); err != nil {
		s.logger.Warn("save rejected", "path", next.FileRelativePath, "error", err)
		return fmt.Errorf("commit %s: %w", next.FileRelativePath, err)
	}

	s.mu.Lock()
	s.base = next
	s.mu.Unlock()
	s.logger.Info("post saved", "path", next.FileRelativePath, "session", s.id)
	return nil
}

// ID identifies the session.
func (s *Session) ID() string { return s.id }

// Path returns the file path of the bound post.
func (s *Session) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.FileRelativePath
}

// Bindings returns the field bindings.
func (s *Session) Bindings() []FieldBinding {
	return append([]FieldBinding(nil), s.bindings...)
}

// Live returns the post as currently edited.
func (s *Session) Live() content.Post {
	values := s.form.Values()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return compose(s.base, s.bindings, values)
}

// Value returns the current value of a bound field.
func (s *Session) Value(path string) (any, bool) {
	return s.form.Value(path)
}

// Change edits a bound field in memory. A whole float64 given for a field
// whose baseline is an integer is stored as that integer type.
func (s *Session) Change(path string, value any) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if _, ok := s.byPath[path]; ok {
		s.mu.RLock()
		ok = writable(s.base, path)
		s.mu.RUnlock()
		if !ok {
			return fmt.Errorf("%w: %q", ErrFieldOutsideDocument, path)
		}
		value = matchNumber(value, s.form.Baseline()[path])
	}
	return s.form.Change(path, value)
}

// Save commits the live values. While a save is pending further saves are
// rejected with form.ErrSubmitPending. On failure edits are kept.
func (s *Session) Save(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	return s.form.Submit(ctx)
}

// Reset restores the values of the last successful save, or of the load.
func (s *Session) Reset() {
	if s.closed.Load() {
		return
	}
	s.form.Reset()
}

// Reload replaces the baseline with post. It refuses to drop local edits or
// to race a pending save.
func (s *Session) Reload(post content.Post) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}

	next := post.Clone()
	values := s.valuesOf(next)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.form.Load(values, true); err != nil {
		if errors.Is(err, form.ErrDirty) {
			return ErrUnsavedChanges
		}
		return err
	}
	s.base = next
	return nil
}

// Attach uploads r and appends an image reference to a markdown field. It
// returns the public URL of the upload.
func (s *Session) Attach(ctx context.Context, path, filename string, r io.Reader) (string, error) {
	if s.closed.Load() {
		return "", ErrSessionClosed
	}
	b, ok := s.byPath[path]
	if !ok {
		return "", fmt.Errorf("%w: %q", form.ErrUnknownField, path)
	}
	if b.Affordance != AffordanceMarkdown || s.uploader == nil {
		return "", fmt.Errorf("%w: %q", ErrUploadNotAllowed, path)
	}

	url, err := s.uploader.Save(ctx, filename, r)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}

	cur, _ := s.form.Value(path)
	text := toString(cur)
	if text != "" {
		text += "\n\n"
	}
	text += fmt.Sprintf("![%s](%s)\n", filename, url)
	if err := s.Change(path, text); err != nil {
		return "", err
	}
	return url, nil
}

// Dirty reports whether any field differs from the baseline.
func (s *Session) Dirty() bool { return s.form.Dirty() }

// DirtyFields lists the edited field paths.
func (s *Session) DirtyFields() []string { return s.form.DirtyFields() }

// Pending reports whether a save is in flight.
func (s *Session) Pending() bool { return s.form.Pending() }

// Close discards the session without saving. It is idempotent.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	if s.form.Dirty() {
		s.logger.Info("discarding unsaved edits", "path", s.Path(), "fields", s.form.DirtyFields())
	}
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool { return s.closed.Load() }
