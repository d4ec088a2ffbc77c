package editor

import "errors"

var (
	// ErrSessionClosed is returned by a session discarded by navigation or Close.
	ErrSessionClosed = errors.New("editor: session closed")
	// ErrInvalidBinding reports a misconfigured field binding list.
	ErrInvalidBinding = errors.New("editor: invalid field binding")
	// ErrFieldOutsideDocument is returned when editing a path that cannot be
	// stored in the document.
	ErrFieldOutsideDocument = errors.New("editor: field is outside the document")
	// ErrUploadNotAllowed is returned for uploads to fields without the
	// markdown affordance or without an upload target.
	ErrUploadNotAllowed = errors.New("editor: uploads not allowed for field")
	// ErrUnsavedChanges is returned when a reload would overwrite local edits.
	ErrUnsavedChanges = errors.New("editor: session has unsaved changes")
	// ErrSuperseded is returned by a load that a later navigation replaced.
	ErrSuperseded = errors.New("editor: load superseded by navigation")
)
