// internal/interfaces/http/middleware/session.go
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/your-org/watchstore-backend/internal/config"
	"github.com/your-org/watchstore-backend/internal/domain/shopper"
)

// ContextSessionID holds the anonymous session id
const ContextSessionID = "session_id"

// Session reads the session cookie, issuing a new one when missing.
// Every response renews the cookie so it outlives the session cart.
func Session(cfg *config.Config) gin.HandlerFunc {
	name := cfg.Cart.SessionCookie
	maxAge := int(cfg.Cart.SessionTTL.Seconds())
	secure := cfg.IsProduction()

	return func(c *gin.Context) {
		sessionID, err := c.Cookie(name)
		if err != nil || sessionID == "" {
			sessionID = uuid.NewString()
		}

		c.SetCookie(name, sessionID, maxAge, "/", "", secure, true)
		c.Set(ContextSessionID, sessionID)

		c.Next()
	}
}

// GetSessionIDFromContext returns the session id set by Session
func GetSessionIDFromContext(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}

// OwnerFromContext builds the shopper identity for the request
func OwnerFromContext(c *gin.Context) shopper.Owner {
	owner := shopper.Anonymous(GetSessionIDFromContext(c))
	if userID, ok := GetUserIDFromContext(c); ok {
		owner.UserID = userID
	}
	return owner
}
