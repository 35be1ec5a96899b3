package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CtxUserKey    = "auth_user"
	CtxAccountKey = "auth_account"

	// InitDataHeader is the canonical transport for the signed payload;
	// the initData query parameter is the fallback.
	InitDataHeader = "X-Telegram-Init-Data"
	InitDataQuery  = "initData"
)

// ExtractInitData pulls the raw signed payload from a request.
func ExtractInitData(c *gin.Context) string {
	if raw := c.GetHeader(InitDataHeader); raw != "" {
		return raw
	}
	return c.Query(InitDataQuery)
}

// RequireInitData authenticates the request via the resolver and stores the
// (user, account) pair in the gin context. Verification sub-reasons stay in
// the logs; clients only see a generic message.
func RequireInitData(r *Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ExtractInitData(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "initData missing"})
			return
		}
		u, acc, err := r.Resolve(c.Request.Context(), raw)
		if err != nil {
			if !IsAuthFailure(err) {
				r.Log.Error().Err(err).Msg("resolve failed")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "db error"})
				return
			}
			r.Log.Debug().Err(err).Msg("initData rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "initData invalid"})
			return
		}
		c.Set(CtxUserKey, u)
		c.Set(CtxAccountKey, acc)
		c.Next()
	}
}
