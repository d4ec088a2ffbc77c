package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tilth/pkg/adapters/web"
	"github.com/aretw0/tilth/pkg/content"
	"github.com/aretw0/tilth/pkg/editor"
	"github.com/aretw0/tilth/pkg/media"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	src    *content.MapSource
	page   *editor.Page
	server *web.Server
	public string
}

func newFixture(t *testing.T, enabled bool) *fixture {
	t.Helper()
	src := content.NewMapSource(map[string]string{
		"apple":  "---\ntitle: Apple\n---\nBody text",
		"banana": "Yellow",
	})
	public := filepath.Join(t.TempDir(), "public")
	store := media.NewStore(public, nil)
	page := editor.NewPage(src, nil, editor.NewViewer(enabled),
		editor.WithBindings(
			editor.FieldBinding{Path: "frontmatter.title", Affordance: editor.AffordanceText, Rules: []validation.Rule{validation.Required}},
			editor.FieldBinding{Path: "markdownBody", Affordance: editor.AffordanceMarkdown},
		),
		editor.WithSessionOptions(editor.WithUploader(store)),
	)
	return &fixture{src: src, page: page, server: web.NewServer(page, src, web.WithMedia(store)), public: public}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestListPosts(t *testing.T) {
	f := newFixture(t, true)
	rec, out := f.do(t, http.MethodGet, "/api/posts", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"apple", "banana"}, out["posts"])
}

func TestOpenPost(t *testing.T) {
	f := newFixture(t, true)

	rec, out := f.do(t, http.MethodPost, "/api/posts/apple/open", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["editable"])
	post := out["post"].(map[string]any)
	assert.Equal(t, "Body text", post["markdownBody"])
	assert.Equal(t, []any{"save", "reset"}, out["controls"])

	rec, out = f.do(t, http.MethodPost, "/api/posts/missing-slug/open", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, out["found"])
	assert.Nil(t, out["post"])
}

func TestEditSaveReset(t *testing.T) {
	f := newFixture(t, true)
	f.do(t, http.MethodPost, "/api/posts/apple/open", nil)

	rec, out := f.do(t, http.MethodPatch, "/api/page/fields", map[string]any{"path": "frontmatter.title", "value": "Pie"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["dirty"])

	rec, _ = f.do(t, http.MethodPost, "/api/page/save", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	raw, _ := f.src.Raw("apple")
	assert.Equal(t, "---\ntitle: Pie\n---\nBody text", raw)

	f.do(t, http.MethodPatch, "/api/page/fields", map[string]any{"path": "markdownBody", "value": "scratch"})
	rec, out = f.do(t, http.MethodPost, "/api/page/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, out["dirty"])
	assert.Equal(t, "Body text", out["post"].(map[string]any)["markdownBody"])
}

func TestSaveValidationError(t *testing.T) {
	f := newFixture(t, true)
	f.do(t, http.MethodPost, "/api/posts/apple/open", nil)
	f.do(t, http.MethodPatch, "/api/page/fields", map[string]any{"path": "frontmatter.title", "value": ""})

	rec, out := f.do(t, http.MethodPost, "/api/page/save", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, out["fields"], "frontmatter.title")
}

func TestErrorsWithoutSession(t *testing.T) {
	f := newFixture(t, true)

	rec, _ := f.do(t, http.MethodPost, "/api/page/save", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, out := f.do(t, http.MethodGet, "/api/page", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, out["editable"])

	f.do(t, http.MethodPost, "/api/posts/apple/open", nil)
	rec, _ = f.do(t, http.MethodPatch, "/api/page/fields", map[string]any{"path": "frontmatter.nope", "value": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = f.do(t, http.MethodPatch, "/api/page/fields", map[string]any{"value": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestViewerToggle(t *testing.T) {
	f := newFixture(t, false)
	f.do(t, http.MethodPost, "/api/posts/apple/open", nil)

	_, out := f.do(t, http.MethodGet, "/api/page", nil)
	assert.Nil(t, out["controls"])

	rec, out := f.do(t, http.MethodPut, "/api/viewer", map[string]any{"enabled": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["enabled"])

	_, out = f.do(t, http.MethodGet, "/api/page", nil)
	assert.Equal(t, []any{"save", "reset"}, out["controls"])

	rec, _ = f.do(t, http.MethodPut, "/api/viewer", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadAndServeImage(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, f.page.Open(context.Background(), "apple"))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "cat.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, w.WriteField("path", "markdownBody"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/page/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "/images/cat.png", out["url"])
	assert.Contains(t, f.page.Session().Live().MarkdownBody, "![cat.png](/images/cat.png)")

	img := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(img, httptest.NewRequest(http.MethodGet, "/images/cat.png", nil))
	assert.Equal(t, http.StatusOK, img.Code)
	assert.Equal(t, "png-bytes", img.Body.String())
}
