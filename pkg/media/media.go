// Package media stores uploaded images under the public directory of the
// site and maps them to the URLs they are served from.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aretw0/tilth/internal/atomicfile"
)

// ImagesDir is the directory, relative to the public directory, images are stored in.
const ImagesDir = "images"

// URLPrefix is the public URL images are served under.
const URLPrefix = "/images/"

// tempPrefix names partial uploads. List skips them as hidden files.
const tempPrefix = ".upload-"

// ErrInvalidName is returned for file names that cannot be stored safely.
var ErrInvalidName = errors.New("media: invalid file name")

// File describes a stored image.
type File struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Store writes uploads to <publicDir>/images.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a store rooted at publicDir (e.g. "public").
func NewStore(publicDir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{dir: filepath.Join(publicDir, ImagesDir), logger: logger}
}

// Dir returns the directory images are written to.
func (s *Store) Dir() string { return s.dir }

// URL returns the public URL of name.
func URL(name string) string {
	return URLPrefix + name
}

// Clean reduces filename to a safe base name: no directories, no leading
// dots, spaces replaced by underscores.
func Clean(filename string) (string, error) {
	name := path.Base(filepath.ToSlash(filename))
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	if name == "" || name == "." || name == "/" || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, filename)
	}
	return name, nil
}

// Save stores r as filename and returns its public URL. An existing file of
// the same name is replaced.
func (s *Store) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	name, err := Clean(filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create images directory: %w", err)
	}

	n, err := atomicfile.Write(filepath.Join(s.dir, name), tempPrefix, readerWithContext(ctx, r), 0644)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", name, err)
	}

	s.logger.Info("image stored", "name", name, "size", n)
	return URL(name), nil
}

// List returns the stored images.
func (s *Store) List(ctx context.Context) ([]File, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var files []File
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, File{Name: e.Name(), URL: URL(e.Name()), Size: info.Size()})
	}
	return files, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
