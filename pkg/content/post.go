// Package content loads and stores blog posts addressed by slug.
package content

import (
	"errors"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/aretw0/tilth/pkg/frontmatter"
)

// DefaultCollection is the directory, relative to the content root, that
// holds the posts.
const DefaultCollection = "data/blog"

// ErrNotFound is returned for unknown or invalid slugs.
var ErrNotFound = errors.New("content: document not found")

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidSlug reports whether slug is safe to address a post with.
func ValidSlug(slug string) bool {
	return slugPattern.MatchString(slug)
}

// PathFor returns the file path of slug inside collection.
func PathFor(collection, slug string) string {
	return path.Join(collection, slug+".md")
}

// Post is an editable document. FileRelativePath is its identity.
type Post struct {
	FileRelativePath string         `json:"fileRelativePath"`
	Frontmatter      map[string]any `json:"frontmatter"`
	MarkdownBody     string         `json:"markdownBody"`
	// Format is the metadata block syntax found on load. It is kept on save.
	Format frontmatter.Format `json:"format,omitempty"`
}

// Slug returns the file name of the post without extension.
func (p Post) Slug() string {
	return strings.TrimSuffix(path.Base(p.FileRelativePath), ".md")
}

// Clone returns a deep copy of p.
func (p Post) Clone() Post {
	p.Frontmatter = cloneMap(p.Frontmatter)
	return p
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = cloneValue(val[i])
		}
		return out
	default:
		return v
	}
}

// Decode parses raw into a post stored at filePath. A malformed metadata
// block degrades to empty metadata and is logged.
func Decode(filePath string, raw []byte, logger *slog.Logger) Post {
	doc, err := frontmatter.Parse(raw)
	if err != nil {
		var malformed *frontmatter.MalformedError
		if errors.As(err, &malformed) {
			if logger != nil {
				logger.Warn("malformed frontmatter, using empty metadata", "path", filePath, "error", malformed.Err)
			}
			return Post{FileRelativePath: filePath, Frontmatter: map[string]any{}, MarkdownBody: malformed.Body, Format: malformed.Format}
		}
		return Post{FileRelativePath: filePath, Frontmatter: map[string]any{}, MarkdownBody: string(raw)}
	}
	return Post{
		FileRelativePath: filePath,
		Frontmatter:      map[string]any(doc.Metadata),
		MarkdownBody:     doc.Body,
		Format:           doc.Format,
	}
}

// Encode renders p back into its stored form.
func Encode(p Post) ([]byte, error) {
	return frontmatter.Serialize(frontmatter.Document{
		Metadata: frontmatter.Metadata(p.Frontmatter),
		Body:     p.MarkdownBody,
		Format:   p.Format,
	})
}
