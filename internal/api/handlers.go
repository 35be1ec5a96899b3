package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"mangalair/internal/account"
	"mangalair/internal/auth"
	"mangalair/internal/catalog"
	"mangalair/internal/comments"
	"mangalair/internal/likes"
	"mangalair/pkg/models"
)

func currentUser(c *gin.Context) (*models.User, account.Account) {
	u := c.MustGet(auth.CtxUserKey).(*models.User)
	acc := c.MustGet(auth.CtxAccountKey).(account.Account)
	return u, acc
}

// splitSeriesKey separates "<sid>-<slug>" on the first hyphen.
func splitSeriesKey(key string) (sid, slug string, ok bool) {
	return strings.Cut(key, "-")
}

func (s *Server) handleConfig(c *gin.Context) {
	if s.Cfg.PublicBase == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "PUBLIC_BASE is not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"PUBLIC_BASE": s.Cfg.PublicBase, "COMMENTS_API": "/api"})
}

func (s *Server) handleMe(c *gin.Context) {
	_, acc := currentUser(c)
	c.JSON(http.StatusOK, gin.H{"ok": true, "account": acc})
}

func (s *Server) handleMeUpdate(c *gin.Context) {
	u, acc := currentUser(c)

	if !s.LikeGate.Allow("upd:" + u.TgID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many updates, slow down"})
		return
	}

	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updated := account.Merge(acc, payload)
	dataJSON, err := updated.Encode()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encode failed"})
		return
	}
	u.DataJSON = dataJSON
	if err := s.Users.Save(c.Request.Context(), u); err != nil {
		s.Log.Error().Err(err).Str("tg_id", u.TgID).Msg("save account failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "account": updated})
}

func (s *Server) handleCatalog(c *gin.Context) {
	if s.Cfg.PublicBase == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "PUBLIC_BASE is not configured"})
		return
	}
	data, err := s.Catalog.Index(c.Request.Context())
	if err != nil {
		s.upstreamError(c, err)
		return
	}
	// Fold like counts into the listing; the catalog still renders if the
	// scan fails.
	if counts, err := s.Likes.CountAll(c.Request.Context()); err == nil {
		catalog.MergeLikeCounts(data, counts)
	} else {
		s.Log.Warn().Err(err).Msg("like scan failed, serving catalog without counts")
	}
	c.JSON(http.StatusOK, data)
}

func (s *Server) handleSeriesMeta(c *gin.Context) {
	s.proxySeries(c, s.Catalog.SeriesMeta)
}

func (s *Server) handleChaptersIndex(c *gin.Context) {
	s.proxySeries(c, s.Catalog.ChaptersIndex)
}

func (s *Server) proxySeries(c *gin.Context, fetch func(ctx context.Context, sid, slug string) (any, error)) {
	sid, slug, ok := splitSeriesKey(c.Param("series_key"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid series key"})
		return
	}
	if s.Cfg.PublicBase == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "PUBLIC_BASE is not configured"})
		return
	}
	data, err := fetch(c.Request.Context(), sid, slug)
	if err != nil {
		s.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (s *Server) upstreamError(c *gin.Context, err error) {
	var ue *catalog.UpstreamError
	if errors.As(err, &ue) {
		s.Log.Warn().Str("url", ue.URL).Int("status", ue.Status).Err(ue.Err).Msg("upstream fetch failed")
		c.JSON(ue.Status, gin.H{"error": ue.Error()})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": "upstream error"})
}

func (s *Server) handleLikesAll(c *gin.Context) {
	counts, err := s.Likes.CountAll(c.Request.Context())
	if err != nil {
		s.Log.Error().Err(err).Msg("like scan failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "counts": counts})
}

func (s *Server) handleLikeToggle(c *gin.Context) {
	sid, slug, ok := splitSeriesKey(c.Param("series_key"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid series key"})
		return
	}
	key := likes.SeriesKey(sid, slug)
	u, acc := currentUser(c)

	if !s.LikeGate.Allow("like:" + u.TgID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many toggles, slow down"})
		return
	}

	liked, count, err := s.Likes.Toggle(c.Request.Context(), u, acc, key)
	if err != nil {
		s.Log.Error().Err(err).Str("tg_id", u.TgID).Str("series_key", key).Msg("like toggle failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "liked": liked, "count": count})
}

func commentJSON(cm models.Comment) gin.H {
	return gin.H{
		"id":     cm.ID,
		"author": cm.Author(),
		"tg_id":  cm.TgID,
		"text":   cm.Text,
		"ts":     cm.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleCommentsList(c *gin.Context) {
	key := c.Param("series_key")
	if _, _, ok := splitSeriesKey(key); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid series key"})
		return
	}
	rows, err := s.Comments.ListByChapter(c.Request.Context(), key, c.Param("chapter_id"))
	if err != nil {
		s.Log.Error().Err(err).Msg("list comments failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	items := make([]gin.H, 0, len(rows))
	for _, cm := range rows {
		items = append(items, commentJSON(cm))
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "items": items})
}

func (s *Server) handleCommentAdd(c *gin.Context) {
	key := c.Param("series_key")
	if _, _, ok := splitSeriesKey(key); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid series key"})
		return
	}
	u, acc := currentUser(c)

	if !s.CommentGate.Allow("cmt:" + u.TgID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many comments, try again later"})
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	text, err := comments.ValidateText(payload.Text)
	if err != nil {
		if errors.Is(err, comments.ErrTextTooLong) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "comment too long (max 1000 characters)"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty comment"})
		return
	}

	username := acc.Username()
	if username == "" {
		username = u.Username
	}
	cm := &models.Comment{
		SeriesKey: key,
		ChapterID: c.Param("chapter_id"),
		TgID:      u.TgID,
		Username:  username,
		Text:      text,
	}
	if err := s.Comments.Add(c.Request.Context(), cm); err != nil {
		s.Log.Error().Err(err).Msg("add comment failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "item": commentJSON(*cm)})
}
