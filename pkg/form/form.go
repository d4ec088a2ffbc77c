// Package form keeps the editable state of a set of named fields: current
// values, the baseline they are compared against, and the pending flag of an
// in-flight submit. It knows nothing about the document the fields come from.
package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	// ErrSubmitPending is returned by Submit while a previous submit has not finished.
	ErrSubmitPending = errors.New("form: submit already pending")
	// ErrUnknownField is returned for names that were not registered.
	ErrUnknownField = errors.New("form: unknown field")
	// ErrInvalidField is returned by New for empty or duplicate field names.
	ErrInvalidField = errors.New("form: invalid field")
	// ErrDirty is returned by Load when a clean form was required.
	ErrDirty = errors.New("form: unsaved changes")
)

// Field registers one editable value.
type Field struct {
	Name string
	// Component is an opaque hint for the presentation layer (e.g. "text").
	Component string
	// Rules are checked against the field value on Submit.
	Rules []validation.Rule
}

// Values maps field names to values.
type Values map[string]any

// Clone returns a shallow copy of v.
func (v Values) Clone() Values {
	if v == nil {
		return Values{}
	}
	return maps.Clone(v)
}

// SubmitFunc receives a snapshot of the values taken when Submit was called.
type SubmitFunc func(ctx context.Context, values Values) error

// Config describes a form. Fields absent from InitialValues start as nil.
type Config struct {
	Fields        []Field
	InitialValues Values
	OnSubmit      SubmitFunc
	Logger        *slog.Logger
}

// Form is safe for concurrent use. OnSubmit runs without holding the form
// lock so edits and resets are served while a submit is pending.
type Form struct {
	mu       sync.Mutex
	fields   []Field
	index    map[string]int
	values   Values
	baseline Values
	pending  bool
	onSubmit SubmitFunc
	logger   *slog.Logger
}

// New registers the fields and initializes values and baseline.
func New(cfg Config) (*Form, error) {
	f := &Form{
		index:    make(map[string]int, len(cfg.Fields)),
		values:   Values{},
		onSubmit: cfg.OnSubmit,
		logger:   cfg.Logger,
	}
	if f.logger == nil {
		f.logger = slog.New(slog.DiscardHandler)
	}

	for i, field := range cfg.Fields {
		if field.Name == "" {
			return nil, fmt.Errorf("%w: field %d has no name", ErrInvalidField, i)
		}
		if _, dup := f.index[field.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrInvalidField, field.Name)
		}
		f.index[field.Name] = i
		f.fields = append(f.fields, field)
		f.values[field.Name] = cfg.InitialValues[field.Name]
	}
	f.baseline = f.values.Clone()
	return f, nil
}

// Fields returns the registered fields in registration order.
func (f *Form) Fields() []Field {
	return slices.Clone(f.fields)
}

// Value returns the current value of name.
func (f *Form) Value(name string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[name]
	return v, ok
}

// Values returns a copy of all current values.
func (f *Form) Values() Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values.Clone()
}

// Baseline returns a copy of the values Reset would restore.
func (f *Form) Baseline() Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.baseline.Clone()
}

// Change sets the current value of name. The baseline is untouched.
func (f *Form) Change(name string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.index[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	f.values[name] = value
	return nil
}

// Reset restores every field to the baseline. It never fails.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = f.baseline.Clone()
}

// Load replaces both values and baseline, e.g. after the source document
// changed. It is refused while a submit is pending, and with requireClean
// also while any field differs from the baseline.
func (f *Form) Load(values Values, requireClean bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending {
		return ErrSubmitPending
	}
	if requireClean && len(f.dirtyLocked()) > 0 {
		return ErrDirty
	}
	for name := range f.index {
		f.values[name] = values[name]
	}
	f.baseline = f.values.Clone()
	return nil
}

// Pending reports whether a submit is in flight.
func (f *Form) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

// Dirty reports whether any field differs from the baseline.
func (f *Form) Dirty() bool {
	return len(f.DirtyFields()) > 0
}

// DirtyFields lists the fields that differ from the baseline in registration order.
func (f *Form) DirtyFields() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirtyLocked()
}

func (f *Form) dirtyLocked() []string {

	var dirty []string
	for _, field := range f.fields {
		if !reflect.DeepEqual(f.values[field.Name], f.baseline[field.Name]) {
			dirty = append(dirty, field.Name)
		}
	}
	return dirty
}

// Validate checks the current values against the field rules. The result is
// nil or a validation.Errors keyed by field name.
func (f *Form) Validate() error {
	return f.validate(f.Values())
}

func (f *Form) validate(values Values) error {
	errs := validation.Errors{}
	for _, field := range f.fields {
		if len(field.Rules) == 0 {
			continue
		}
		if err := validation.Validate(values[field.Name], field.Rules...); err != nil {
			errs[field.Name] = err
		}
	}
	return errs.Filter()
}

// Submit validates a snapshot of the current values and hands it to
// OnSubmit. On success the snapshot becomes the baseline, so edits made while
// the submit was pending stay dirty. On failure the values are untouched.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.pending {
		f.mu.Unlock()
		return ErrSubmitPending
	}
	snapshot := f.values.Clone()
	f.pending = true
	f.mu.Unlock()

	err := f.validate(snapshot)
	if err == nil && f.onSubmit != nil {
		err = f.onSubmit(ctx, snapshot)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = false
	if err != nil {
		f.logger.Debug("submit rejected", "error", err)
		return err
	}
	f.baseline = snapshot
	return nil
}
