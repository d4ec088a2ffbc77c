package fs

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/tilth/pkg/core"
	"github.com/aretw0/tilth/pkg/frontmatter"
)

// Serializer defines how to read and write a specific file format.
type Serializer interface {
	// Parse reads from r and returns a Document. The ID is left empty.
	Parse(r io.Reader) (*core.Document, error)
	// Serialize converts the Document to bytes.
	Serialize(doc core.Document) ([]byte, error)
}

// MarkdownSerializer reads and writes markdown files with an optional YAML
// (---) or TOML (+++) metadata block.
type MarkdownSerializer struct {
	// Strict turns a malformed metadata block into a parse error. Otherwise the
	// document degrades to empty metadata and the body is kept.
	Strict bool
	Logger *slog.Logger
}

// NewMarkdownSerializer creates a markdown serializer.
func NewMarkdownSerializer(strict bool, logger *slog.Logger) *MarkdownSerializer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MarkdownSerializer{Strict: strict, Logger: logger}
}

func (s *MarkdownSerializer) Parse(r io.Reader) (*core.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	parsed, err := frontmatter.Parse(data)
	if err != nil {
		var malformed *frontmatter.MalformedError
		if !errors.As(err, &malformed) || s.Strict {
			return nil, fmt.Errorf("parse metadata: %w", err)
		}
		s.Logger.Warn("malformed metadata block, using empty metadata", "format", malformed.Format, "error", malformed.Err)
		return &core.Document{
			Content:  malformed.Body,
			Metadata: core.Metadata{},
			Format:   string(malformed.Format),
		}, nil
	}

	return &core.Document{
		Content:  parsed.Body,
		Metadata: core.Metadata(parsed.Metadata),
		Format:   string(parsed.Format),
	}, nil
}

func (s *MarkdownSerializer) Serialize(doc core.Document) ([]byte, error) {
	return frontmatter.Serialize(frontmatter.Document{
		Metadata: frontmatter.Metadata(doc.Metadata),
		Body:     doc.Content,
		Format:   frontmatter.Format(doc.Format),
	})
}
