package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aretw0/tilth/pkg/editor"
)

var errNoSession = errors.New("no post is open")

func (s *Server) session() (*editor.Session, error) {
	if sess := s.page.Session(); sess != nil {
		return sess, nil
	}
	return nil, errNoSession
}

func (s *Server) listPosts(c *gin.Context) {
	slugs, err := s.lister.Slugs(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": slugs})
}

func (s *Server) openPost(c *gin.Context) {
	if err := s.page.Open(c.Request.Context(), c.Param("slug")); err != nil {
		c.JSON(status(err), s.page.View())
		return
	}
	c.JSON(http.StatusOK, s.page.View())
}

func (s *Server) view(c *gin.Context) {
	c.JSON(http.StatusOK, s.page.View())
}

func (s *Server) closePage(c *gin.Context) {
	s.page.Close()
	c.JSON(http.StatusOK, s.page.View())
}

type changeRequest struct {
	Path  string `json:"path" binding:"required"`
	Value any    `json:"value"`
}

func (s *Server) changeField(c *gin.Context) {
	var req changeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	sess, err := s.session()
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := sess.Change(req.Path, req.Value); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.page.View())
}

func (s *Server) save(c *gin.Context) {
	sess, err := s.session()
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := sess.Save(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.page.View())
}

func (s *Server) reset(c *gin.Context) {
	sess, err := s.session()
	if err != nil {
		s.fail(c, err)
		return
	}
	sess.Reset()
	c.JSON(http.StatusOK, s.page.View())
}

func (s *Server) upload(c *gin.Context) {
	sess, err := s.session()
	if err != nil {
		s.fail(c, err)
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}
	path := c.DefaultPostForm("path", "markdownBody")

	f, err := header.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()

	url, err := sess.Attach(c.Request.Context(), path, header.Filename, f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "page": s.page.View()})
}

func (s *Server) viewer(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"enabled": s.page.Viewer().Enabled()})
}

type viewerRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (s *Server) setViewer(c *gin.Context) {
	var req viewerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if *req.Enabled {
		s.page.Viewer().Enable()
	} else {
		s.page.Viewer().Disable()
	}
	c.JSON(http.StatusOK, gin.H{"enabled": s.page.Viewer().Enabled()})
}
