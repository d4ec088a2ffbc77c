package editor

import "github.com/aretw0/introspection"

// SessionState exposes the edit state for observability.
type SessionState struct {
	ID          string   `json:"id"`
	Path        string   `json:"path"`
	Dirty       bool     `json:"dirty"`
	DirtyFields []string `json:"dirty_fields,omitempty"`
	Pending     bool     `json:"pending"`
	Closed      bool     `json:"closed"`
}

// State implements introspection.Introspectable.
func (s *Session) State() any {
	dirty := s.DirtyFields()
	return SessionState{
		ID:          s.id,
		Path:        s.Path(),
		Dirty:       len(dirty) > 0,
		DirtyFields: dirty,
		Pending:     s.Pending(),
		Closed:      s.Closed(),
	}
}

// ComponentType implements introspection.Component.
func (s *Session) ComponentType() string {
	return "session"
}

var (
	_ introspection.Introspectable = (*Session)(nil)
	_ introspection.Component      = (*Session)(nil)
)
