package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/philanthrohub/directory/internal/config"
	"github.com/philanthrohub/directory/internal/search"
	"github.com/philanthrohub/directory/internal/session"
)

const (
	// SessionIDKey is the gin.Context key holding the session ID.
	SessionIDKey = "session_id"

	// SessionStateKey is the gin.Context key holding the session's *search.State.
	SessionStateKey = "session_state"
)

// SessionMiddleware attaches the caller's search/filter state to the context,
// starting a new session when the cookie is missing or stale. The cookie is
// re-issued on every response so its lifetime follows the registry's TTL.
func SessionMiddleware(registry *session.Registry, cfg config.SessionsConfig, secure bool) gin.HandlerFunc {
	maxAge := int(cfg.TTL.Seconds())

	return func(c *gin.Context) {
		cookie, _ := c.Cookie(cfg.CookieName)
		id, state, _ := registry.Resolve(cookie)

		c.Set(SessionIDKey, id)
		c.Set(SessionStateKey, state)

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cfg.CookieName, id, maxAge, "/", "", secure, true)

		c.Next()
	}
}

// SessionState returns the state attached by SessionMiddleware, or nil.
func SessionState(c *gin.Context) *search.State {
	v, ok := c.Get(SessionStateKey)
	if !ok {
		return nil
	}
	state, _ := v.(*search.State)
	return state
}
