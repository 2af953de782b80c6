package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
)

const (
	GuestTokenHeader = "X-Guest-Token"
	GuestTokenKey    = "guest_token"
)

// GuestToken accepts the device's guest token from the X-Guest-Token header
// or the guest_token query parameter. A malformed token is rejected.
func GuestToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(GuestTokenHeader)
		if raw == "" {
			raw = c.Query(GuestTokenKey)
		}
		if raw == "" {
			c.Next()
			return
		}

		parsed, err := uuid.Parse(raw)
		if err != nil {
			GetLoggerFromContext(c).Warn("Rejecting malformed guest token", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			apperrors.BadRequest(c, apperrors.SessionGuestTokenInvalid, "Guest token is not valid")
			c.Abort()
			return
		}

		c.Set(GuestTokenKey, parsed.String())
		c.Next()
	}
}

func GetGuestToken(c *gin.Context) (string, bool) {
	return getString(c, GuestTokenKey)
}
