package frontmatter_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tilth/pkg/frontmatter"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		source string
		meta   frontmatter.Metadata
		body   string
		format frontmatter.Format
	}{
		{
			name:   "yaml block",
			source: "---\ntitle: Apple\n---\nBody text",
			meta:   frontmatter.Metadata{"title": "Apple"},
			body:   "Body text",
			format: frontmatter.FormatYAML,
		},
		{
			name:   "toml block",
			source: "+++\ntitle = \"Cake\"\n+++\nSweet",
			meta:   frontmatter.Metadata{"title": "Cake"},
			body:   "Sweet",
			format: frontmatter.FormatTOML,
		},
		{
			name:   "no block",
			source: "# Heading\n\nJust markdown",
			meta:   frontmatter.Metadata{},
			body:   "# Heading\n\nJust markdown",
		},
		{
			name:   "empty block",
			source: "---\n---\nBody",
			meta:   frontmatter.Metadata{},
			body:   "Body",
			format: frontmatter.FormatYAML,
		},
		{
			name:   "crlf line endings",
			source: "---\r\ntitle: Banana\r\n---\r\nYellow",
			meta:   frontmatter.Metadata{"title": "Banana"},
			body:   "Yellow",
			format: frontmatter.FormatYAML,
		},
		{
			name:   "dashes inside body are kept",
			source: "---\ntitle: Apple\n---\nabove\n---\nbelow",
			meta:   frontmatter.Metadata{"title": "Apple"},
			body:   "above\n---\nbelow",
			format: frontmatter.FormatYAML,
		},
		{
			name:   "empty source",
			source: "",
			meta:   frontmatter.Metadata{},
			body:   "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := frontmatter.Parse([]byte(tc.source))
			require.NoError(t, err)
			assert.Equal(t, tc.meta, doc.Metadata)
			assert.Equal(t, tc.body, doc.Body)
			assert.Equal(t, tc.format, doc.Format)
		})
	}
}

func TestParse_NestedMetadata(t *testing.T) {
	source := "---\ntitle: Apple\nauthor:\n  name: Ada\n  links:\n    - a\n    - b\n---\nBody"

	doc, err := frontmatter.Parse([]byte(source))
	require.NoError(t, err)

	author, ok := doc.Metadata["author"].(map[string]any)
	require.True(t, ok, "nested map should be map[string]any, got %T", doc.Metadata["author"])
	assert.Equal(t, "Ada", author["name"])
	assert.Equal(t, []any{"a", "b"}, author["links"])
}

func TestParse_Malformed(t *testing.T) {
	t.Run("invalid yaml keeps body", func(t *testing.T) {
		_, err := frontmatter.Parse([]byte("---\ntitle: [unclosed\n---\nStill here"))
		require.Error(t, err)

		var malformed *frontmatter.MalformedError
		require.True(t, errors.As(err, &malformed))
		assert.Equal(t, frontmatter.FormatYAML, malformed.Format)
		assert.Equal(t, "Still here", malformed.Body)
	})

	t.Run("unclosed block keeps whole source", func(t *testing.T) {
		source := "---\ntitle: Apple\nno closing line"
		_, err := frontmatter.Parse([]byte(source))

		var malformed *frontmatter.MalformedError
		require.True(t, errors.As(err, &malformed))
		assert.Equal(t, source, malformed.Body)
	})

	t.Run("non-mapping yaml", func(t *testing.T) {
		_, err := frontmatter.Parse([]byte("---\n- a\n- b\n---\nBody"))
		var malformed *frontmatter.MalformedError
		assert.True(t, errors.As(err, &malformed))
	})
}

func TestSerialize_RoundTrip(t *testing.T) {
	docs := map[string]frontmatter.Document{
		"yaml": {
			Metadata: frontmatter.Metadata{
				"title": "Apple",
				"tags":  []any{"fruit", "red"},
				"meta":  map[string]any{"draft": true},
			},
			Body:   "Body text\n\nwith paragraphs\n",
			Format: frontmatter.FormatYAML,
		},
		"toml": {
			Metadata: frontmatter.Metadata{"title": "Cake", "layers": int64(3)},
			Body:     "Sweet",
			Format:   frontmatter.FormatTOML,
		},
		"default format": {
			Metadata: frontmatter.Metadata{"title": "Banana"},
			Body:     "Yellow",
		},
		"body only": {
			Metadata: frontmatter.Metadata{},
			Body:     "No metadata at all",
		},
	}

	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			data, err := frontmatter.Serialize(doc)
			require.NoError(t, err)

			parsed, err := frontmatter.Parse(data)
			require.NoError(t, err)
			assert.Equal(t, doc.Metadata, parsed.Metadata)
			assert.Equal(t, doc.Body, parsed.Body)
		})
	}
}

func TestSerialize_KeepsFormat(t *testing.T) {
	doc, err := frontmatter.Parse([]byte("+++\ntitle = 'Cake'\n+++\nSweet"))
	require.NoError(t, err)

	doc.Metadata["title"] = "Carrot Cake"
	data, err := frontmatter.Serialize(*doc)
	require.NoError(t, err)

	assert.Contains(t, string(data), "+++\n")
	assert.NotContains(t, string(data), "---")
}

func TestSerialize_ExactYAML(t *testing.T) {
	data, err := frontmatter.Serialize(frontmatter.Document{
		Metadata: frontmatter.Metadata{"title": "Apple"},
		Body:     "Body text",
	})
	require.NoError(t, err)
	assert.Equal(t, "---\ntitle: Apple\n---\nBody text", string(data))
}
