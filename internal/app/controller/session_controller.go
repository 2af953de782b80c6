package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/session"
)

type SessionController struct{}

func NewSessionController() *SessionController {
	return &SessionController{}
}

// IssueGuestToken creates a device-scoped guest identity
// POST /api/v1/session/guest
func (ctrl *SessionController) IssueGuestToken(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	token := session.NewGuestToken()
	log.Info("Guest token issued", nil)

	c.JSON(http.StatusCreated, gin.H{
		"guest_token": token,
		"header":      middleware.GuestTokenHeader,
	})
}

// Current returns the identity the request resolves to
// GET /api/v1/session
func (ctrl *SessionController) Current(c *gin.Context) {
	identity := session.FromContext(c)
	c.JSON(http.StatusOK, gin.H{
		"kind":        identity.Kind.String(),
		"user_id":     identity.UserID,
		"guest_token": identity.GuestToken,
	})
}
