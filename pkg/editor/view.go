package editor

import (
	"errors"
	"slices"

	"github.com/aretw0/tilth/pkg/content"
)

// FieldView is the display state of one bound field.
type FieldView struct {
	Path       string     `json:"path"`
	Affordance Affordance `json:"affordance"`
	Value      any        `json:"value"`
	Dirty      bool       `json:"dirty"`
	Writable   bool       `json:"writable"`
}

// View is what a page shows. Without a session nothing is editable and
// Post is nil.
type View struct {
	Slug      string        `json:"slug"`
	Loading   bool          `json:"loading"`
	Found     bool          `json:"found"`
	Editable  bool          `json:"editable"`
	SessionID string        `json:"session_id,omitempty"`
	Post      *content.Post `json:"post,omitempty"`
	HTML      string        `json:"html,omitempty"`
	Fields    []FieldView   `json:"fields,omitempty"`
	Controls  []Control     `json:"controls,omitempty"`
	Dirty     bool          `json:"dirty"`
	Pending   bool          `json:"pending"`
	Error     string        `json:"error,omitempty"`
}

// View snapshots the page.
func (p *Page) View() View {
	p.mu.Lock()
	v := View{Slug: p.slug, Loading: p.loading}
	s, err := p.session, p.err
	p.mu.Unlock()

	if err != nil {
		v.Found = !errors.Is(err, content.ErrNotFound)
		v.Error = err.Error()
	}
	if s == nil {
		return v
	}

	live := s.Live()
	dirty := s.DirtyFields()
	v.Found = true
	v.Editable = true
	v.SessionID = s.ID()
	v.Post = &live
	v.Dirty = len(dirty) > 0
	v.Pending = s.Pending()
	v.Controls = p.viewer.Controls()

	for _, b := range s.Bindings() {
		value, _ := s.Value(b.Path)
		v.Fields = append(v.Fields, FieldView{
			Path:       b.Path,
			Affordance: b.Affordance,
			Value:      value,
			Dirty:      slices.Contains(dirty, b.Path),
			Writable:   writable(live, b.Path),
		})
	}

	if p.renderer != nil {
		html, err := p.renderer.Render(live.MarkdownBody)
		if err != nil {
			p.logger.Warn("render failed", "path", live.FileRelativePath, "error", err)
		} else {
			v.HTML = html
		}
	}
	return v
}
