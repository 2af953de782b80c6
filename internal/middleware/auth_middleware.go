package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/pkg/util"
)

// Context keys for user information
const (
	UserIDKey      = "user_id"
	UserEmailKey   = "user_email"
	UserRoleKey    = "user_role"
	AccessTokenKey = "access_token"
)

// TokenRevocations reports signed-out tokens.
type TokenRevocations interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type AuthMiddleware struct {
	jwtSecret   string
	revocations TokenRevocations
}

// NewAuthMiddleware builds the JWT middleware. revocations may be nil.
func NewAuthMiddleware(jwtSecret string, revocations TokenRevocations) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret:   jwtSecret,
		revocations: revocations,
	}
}

var errMalformedHeader = errors.New("malformed authorization header")

// extractToken reads "Bearer <token>" or, for WebSocket upgrades, ?token=.
func extractToken(c *gin.Context) (string, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || scheme != "Bearer" || token == "" {
			return "", errMalformedHeader
		}
		return token, nil
	}
	return c.Query("token"), nil
}

func (m *AuthMiddleware) verify(c *gin.Context, token string) (*util.Claims, string, error) {
	claims, err := util.ValidateToken(token, m.jwtSecret)
	if err != nil {
		if errors.Is(err, util.ErrExpiredToken) {
			return nil, apperrors.AuthTokenExpired, err
		}
		return nil, apperrors.AuthTokenInvalid, err
	}
	if claims.TokenType != util.AccessToken {
		return nil, apperrors.AuthTokenInvalid, util.ErrInvalidToken
	}
	if m.revocations != nil {
		revoked, err := m.revocations.IsRevoked(c.Request.Context(), token)
		if err != nil {
			// blacklist outage does not lock every user out
			GetLoggerFromContext(c).Warn("Token blacklist unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		} else if revoked {
			return nil, apperrors.AuthTokenRevoked, util.ErrInvalidToken
		}
	}
	return claims, "", nil
}

func setClaims(c *gin.Context, claims *util.Claims, token string) {
	c.Set(UserIDKey, claims.UserID)
	c.Set(UserEmailKey, claims.Email)
	c.Set(UserRoleKey, model.UserRole(claims.Role))
	c.Set(AccessTokenKey, token)
}

// Authenticate validates JWT token (required)
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token, err := extractToken(c)
		if err != nil {
			log.Warn("Invalid authorization header format", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Malformed authorization header")
			c.Abort()
			return
		}
		if token == "" {
			apperrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		claims, code, err := m.verify(c, token)
		if err != nil {
			log.Warn("Token validation failed", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			apperrors.RespondWithError(c, http.StatusUnauthorized, code, "Your session is no longer valid, please sign in again")
			c.Abort()
			return
		}

		setClaims(c, claims, token)
		log.Debug("User authenticated", map[string]interface{}{
			"user_id": claims.UserID,
			"role":    claims.Role,
		})
		c.Next()
	}
}

// OptionalAuthenticate sets the user when a valid token is present and
// otherwise lets the request continue as a guest.
func (m *AuthMiddleware) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractToken(c)
		if err != nil || token == "" {
			c.Next()
			return
		}

		claims, _, err := m.verify(c, token)
		if err != nil {
			GetLoggerFromContext(c).Debug("Ignoring invalid token, continuing as guest", map[string]interface{}{
				"error": err.Error(),
			})
			c.Next()
			return
		}

		setClaims(c, claims, token)
		c.Next()
	}
}

// RequireRole must run after Authenticate.
func (m *AuthMiddleware) RequireRole(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		role, ok := GetUserRole(c)
		if !ok {
			apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthzRoleNotFound, "Role information is missing")
			c.Abort()
			return
		}

		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}

		userID, _ := GetUserID(c)
		log.Warn("Insufficient permissions", map[string]interface{}{
			"user_id":        userID,
			"user_role":      role,
			"required_roles": roles,
		})
		apperrors.Forbidden(c, "")
		c.Abort()
	}
}

func GetUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

func GetUserEmail(c *gin.Context) (string, bool) {
	v, ok := c.Get(UserEmailKey)
	if !ok {
		return "", false
	}
	email, ok := v.(string)
	return email, ok
}

func GetUserRole(c *gin.Context) (model.UserRole, bool) {
	v, ok := c.Get(UserRoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(model.UserRole)
	return role, ok
}

// GetAccessToken returns the raw bearer token of an authenticated request.
func GetAccessToken(c *gin.Context) (string, bool) {
	return getString(c, AccessTokenKey)
}

func getString(c *gin.Context, key string) (string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
