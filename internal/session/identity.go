// Package session resolves who a request acts for and publishes identity
// changes (sign-in, sign-up, sign-out) to interested components.
package session

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type Kind int

const (
	Unknown Kind = iota
	Guest
	Account
)

func (k Kind) String() string {
	switch k {
	case Guest:
		return "guest"
	case Account:
		return "account"
	default:
		return "unknown"
	}
}

// Identity is the single active owner of a request. Guest identities are
// scoped to one device by GuestToken.
type Identity struct {
	Kind       Kind   `json:"-"`
	UserID     uint   `json:"user_id,omitempty"`
	GuestToken string `json:"guest_token,omitempty"`
}

func GuestIdentity(token string) Identity {
	return Identity{Kind: Guest, GuestToken: token}
}

func AccountIdentity(userID uint) Identity {
	return Identity{Kind: Account, UserID: userID}
}

func (i Identity) IsGuest() bool   { return i.Kind == Guest && i.GuestToken != "" }
func (i Identity) IsAccount() bool { return i.Kind == Account && i.UserID != 0 }
func (i Identity) IsKnown() bool   { return i.IsGuest() || i.IsAccount() }

// Key is a stable owner key, used to address notifications.
func (i Identity) Key() string {
	switch {
	case i.IsAccount():
		return fmt.Sprintf("user:%d", i.UserID)
	case i.IsGuest():
		return "guest:" + i.GuestToken
	default:
		return ""
	}
}

func (i Identity) String() string {
	if k := i.Key(); k != "" {
		return k
	}
	return "unknown"
}

// FromContext resolves the request identity. An authenticated user wins
// over a guest token sent alongside it.
func FromContext(c *gin.Context) Identity {
	if userID, ok := middleware.GetUserID(c); ok && userID != 0 {
		return AccountIdentity(userID)
	}
	if token, ok := middleware.GetGuestToken(c); ok {
		return GuestIdentity(token)
	}
	return Identity{}
}

// GuestTokenFromContext returns the device guest token even when the request
// is authenticated; sign-in uses it to find the cart to merge.
func GuestTokenFromContext(c *gin.Context) (string, bool) {
	return middleware.GetGuestToken(c)
}

// NewGuestToken issues a token for a new device.
func NewGuestToken() string {
	return uuid.NewString()
}
