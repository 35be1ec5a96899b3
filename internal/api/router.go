package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mangalair/internal/auth"
	"mangalair/internal/catalog"
	"mangalair/internal/comments"
	"mangalair/internal/config"
	"mangalair/internal/likes"
	"mangalair/internal/ratelimit"
	"mangalair/internal/user"
)

// Server bundles the dependencies the HTTP handlers need.
type Server struct {
	Cfg      *config.Config
	Log      zerolog.Logger
	Resolver *auth.Resolver
	Users    user.Store
	Likes    *likes.Service
	Comments *comments.Store
	Catalog  *catalog.Client

	// Abuse gates, consulted by the mutating endpoints.
	CommentGate *ratelimit.Limiter
	LikeGate    *ratelimit.Limiter
}

// NewRouter creates and configures the gin router.
func NewRouter(s *Server) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(recoveryMiddleware(s.Log))
	r.Use(loggingMiddleware(s.Log))
	r.Use(corsMiddleware())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/api/config", s.handleConfig)

	r.GET("/api/catalog", s.handleCatalog)
	r.GET("/api/series/:series_key/meta", s.handleSeriesMeta)
	r.GET("/api/series/:series_key/chapters-index", s.handleChaptersIndex)

	r.GET("/api/likes/all", s.handleLikesAll)
	r.GET("/api/comments/:series_key/:chapter_id", s.handleCommentsList)

	authed := r.Group("/", auth.RequireInitData(s.Resolver))
	authed.GET("/api/me", s.handleMe)
	authed.POST("/api/me/update", s.handleMeUpdate)
	authed.GET("/api/likes/:series_key/toggle", s.handleLikeToggle)
	authed.POST("/api/likes/:series_key/toggle", s.handleLikeToggle)
	authed.POST("/api/comments/:series_key/:chapter_id/add", s.handleCommentAdd)

	r.NoRoute(s.handleFallback)

	return r
}

// handleFallback serves the legacy comma-joined routes as 307 redirects and,
// when a frontend build is present, its static files.
func (s *Server) handleFallback(c *gin.Context) {
	path := c.Request.URL.Path

	if path == "/likes,all" {
		c.Redirect(http.StatusTemporaryRedirect, "/api/likes/all")
		return
	}
	if rest, ok := strings.CutPrefix(path, "/comments,"); ok {
		parts := strings.Split(rest, ",")
		switch {
		case len(parts) == 2:
			c.Redirect(http.StatusTemporaryRedirect, "/api/comments/"+parts[0]+"/"+parts[1])
			return
		case len(parts) == 3 && parts[2] == "add":
			c.Redirect(http.StatusTemporaryRedirect, "/api/comments/"+parts[0]+"/"+parts[1]+"/add")
			return
		}
	}

	if s.Cfg.FrontendDir != "" {
		s.serveFrontend(c, path)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

func (s *Server) serveFrontend(c *gin.Context, path string) {
	file := filepath.Join(s.Cfg.FrontendDir, filepath.Clean("/"+path))
	if st, err := os.Stat(file); err == nil && !st.IsDir() {
		c.File(file)
		return
	}
	index := filepath.Join(s.Cfg.FrontendDir, "index.html")
	if _, err := os.Stat(index); err == nil {
		c.File(index)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}

func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "*")
		c.Header("Access-Control-Allow-Headers", "*")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
