// Package web exposes an editor page as a JSON API.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/aretw0/tilth/pkg/content"
	"github.com/aretw0/tilth/pkg/editor"
	"github.com/aretw0/tilth/pkg/form"
	"github.com/aretw0/tilth/pkg/media"
)

// Lister enumerates the slugs that can be opened.
type Lister interface {
	Slugs(ctx context.Context) ([]string, error)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMedia serves stored images under media.URLPrefix.
func WithMedia(store *media.Store) Option {
	return func(s *Server) {
		s.media = store
	}
}

// Server routes HTTP requests to a page.
type Server struct {
	page   *editor.Page
	lister Lister
	media  *media.Store
	logger *slog.Logger
	engine *gin.Engine
}

// NewServer builds the routes.
func NewServer(page *editor.Page, lister Lister, opts ...Option) *Server {
	s := &Server{
		page:   page,
		lister: lister,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests())
	if s.media != nil {
		r.Static(media.URLPrefix, s.media.Dir())
	}

	api := r.Group("/api")
	{
		api.GET("/posts", s.listPosts)
		api.POST("/posts/:slug/open", s.openPost)
		api.GET("/page", s.view)
		api.POST("/page/close", s.closePage)
		api.PATCH("/page/fields", s.changeField)
		api.POST("/page/save", s.save)
		api.POST("/page/reset", s.reset)
		api.POST("/page/upload", s.upload)
		api.GET("/viewer", s.viewer)
		api.PUT("/viewer", s.setViewer)
	}
	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// status maps domain errors to HTTP status codes.
func status(err error) int {
	var verrs validation.Errors
	switch {
	case errors.Is(err, content.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &verrs),
		errors.Is(err, editor.ErrFieldOutsideDocument),
		errors.Is(err, editor.ErrUploadNotAllowed),
		errors.Is(err, media.ErrInvalidName):
		return http.StatusUnprocessableEntity
	case errors.Is(err, form.ErrUnknownField):
		return http.StatusBadRequest
	case errors.Is(err, form.ErrSubmitPending),
		errors.Is(err, editor.ErrSessionClosed),
		errors.Is(err, editor.ErrSuperseded),
		errors.Is(err, errNoSession):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	code := status(err)
	body := gin.H{"error": err.Error()}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		body["fields"] = verrs
	}
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(code, body)
}
