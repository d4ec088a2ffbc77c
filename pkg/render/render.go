// Package render converts markdown bodies to HTML for display.
package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

// Options tune the markdown engine.
type Options struct {
	// Unsafe lets raw HTML in the body through to the output.
	Unsafe    bool
	HardWraps bool
}

// Markdown renders GitHub flavoured markdown. It is stateless and safe for
// concurrent use.
type Markdown struct {
	engine goldmark.Markdown
}

// New builds a renderer with GFM, linkify and task lists enabled.
func New(opts Options) *Markdown {
	var rendererOptions []goldmark.Option
	var htmlOptions []renderer.Option
	if opts.Unsafe {
		htmlOptions = append(htmlOptions, html.WithUnsafe())
	}
	if opts.HardWraps {
		htmlOptions = append(htmlOptions, html.WithHardWraps())
	}
	if len(htmlOptions) > 0 {
		rendererOptions = append(rendererOptions, goldmark.WithRendererOptions(htmlOptions...))
	}

	engineOptions := append([]goldmark.Option{
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.TaskList),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	}, rendererOptions...)

	return &Markdown{engine: goldmark.New(engineOptions...)}
}

// Render implements editor.Renderer.
func (m *Markdown) Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := m.engine.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("markdown render: %w", err)
	}
	return buf.String(), nil
}
