// Package frontmatter splits markdown sources into a metadata block and a body.
//
// Two block formats are recognised, both delimited by a line of their own:
//
//	---            +++
//	title: Apple   title = "Apple"
//	---            +++
//	Body text      Body text
//
// A source that does not open with a delimiter line has no metadata and the
// whole source is the body.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format identifies the syntax of a metadata block.
type Format string

const (
	FormatNone Format = ""
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Metadata is the key/value mapping parsed from a metadata block.
type Metadata map[string]any

// Document is a source decomposed into metadata and body.
type Document struct {
	Metadata Metadata
	Body     string
	// Format is the block syntax found on parse, FormatNone when absent.
	Format Format
}

// MalformedError reports a metadata block that could not be decoded.
// Body holds what follows the block (or the whole source when the block
// was never closed) so callers can degrade to an empty mapping.
type MalformedError struct {
	Format Format
	Body   string
	Err    error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed %s frontmatter: %v", e.Format, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

var errUnclosed = errors.New("block started but no closing delimiter found")

func delimiter(f Format) string {
	switch f {
	case FormatTOML:
		return "+++"
	default:
		return "---"
	}
}

// detect returns the block format announced by the first line of data.
func detect(data []byte) Format {
	line, _, _ := bytes.Cut(data, []byte("\n"))
	switch string(bytes.TrimRight(line, "\r")) {
	case "---":
		return FormatYAML
	case "+++":
		return FormatTOML
	}
	return FormatNone
}

// split locates the block delimited by delim. It returns the raw block, the
// remaining body and whether a closing delimiter line was found.
func split(data []byte, delim string) (block, body []byte, ok bool) {
	_, rest, found := bytes.Cut(data, []byte("\n"))
	if !found {
		return nil, nil, false
	}

	offset := 0
	for offset <= len(rest) {
		line := rest[offset:]
		end := bytes.IndexByte(line, '\n')
		next := len(rest)
		if end >= 0 {
			line = line[:end]
			next = offset + end + 1
		}
		if string(bytes.TrimRight(line, "\r")) == delim {
			return rest[:offset], rest[next:], true
		}
		if end < 0 {
			break
		}
		offset = next
	}
	return nil, nil, false
}

// Parse decomposes data. Sources without a block yield empty metadata and the
// full source as body. A block that cannot be decoded yields a *MalformedError.
func Parse(data []byte) (*Document, error) {
	format := detect(data)
	if format == FormatNone {
		return &Document{Metadata: Metadata{}, Body: string(data)}, nil
	}

	block, body, ok := split(data, delimiter(format))
	if !ok {
		return nil, &MalformedError{Format: format, Body: string(data), Err: errUnclosed}
	}

	meta, err := decode(block, format)
	if err != nil {
		return nil, &MalformedError{Format: format, Body: string(body), Err: err}
	}

	return &Document{Metadata: meta, Body: string(body), Format: format}, nil
}

func decode(block []byte, format Format) (Metadata, error) {
	meta := Metadata{}
	if len(bytes.TrimSpace(block)) == 0 {
		return meta, nil
	}

	var raw map[string]any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(block, &raw); err != nil {
			return nil, err
		}
	case FormatTOML:
		if err := toml.Unmarshal(block, &raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format: %q", format)
	}

	for k, v := range raw {
		meta[k] = normalize(v)
	}
	return meta, nil
}

// Serialize renders doc back into a source. Empty metadata renders the body
// alone; otherwise the block uses doc.Format, YAML when unset.
func Serialize(doc Document) ([]byte, error) {
	if len(doc.Metadata) == 0 {
		return []byte(doc.Body), nil
	}

	format := doc.Format
	if format == FormatNone {
		format = FormatYAML
	}

	var buf bytes.Buffer
	delim := delimiter(format)
	buf.WriteString(delim + "\n")

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any(doc.Metadata)); err != nil {
			return nil, fmt.Errorf("encode yaml frontmatter: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml frontmatter: %w", err)
		}
	case FormatTOML:
		if err := toml.NewEncoder(&buf).Encode(map[string]any(doc.Metadata)); err != nil {
			return nil, fmt.Errorf("encode toml frontmatter: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %q", format)
	}

	if !strings.HasSuffix(buf.String(), "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString(delim + "\n")
	buf.WriteString(doc.Body)
	return buf.Bytes(), nil
}

// normalize converts decoder-specific container types into
// map[string]any and []any so field paths can walk them uniformly.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = normalize(inner)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[fmt.Sprint(k)] = normalize(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = normalize(val[i])
		}
		return out
	default:
		return v
	}
}
