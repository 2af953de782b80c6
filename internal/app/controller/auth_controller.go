package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type AuthController struct {
	authService service.AuthService
}

func NewAuthController(authService service.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Register creates an account and merges the device's guest cart into it
// POST /api/v1/auth/register
func (ctrl *AuthController) Register(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid registration request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	guestToken, _ := middleware.GetGuestToken(c)
	user, tokens, err := ctrl.authService.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
	}, guestToken)
	if err != nil {
		log.Warn("Registration failed", map[string]interface{}{
			"error": err.Error(),
		})
		respondServiceError(c, err, "user")
		return
	}

	log.Info("User registered", map[string]interface{}{
		"user_id": user.ID,
	})
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user,
		"tokens":  tokens,
	})
}

// Login authenticates and merges the device's guest cart
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	guestToken, _ := middleware.GetGuestToken(c)
	user, tokens, err := ctrl.authService.Login(c.Request.Context(), req.Email, req.Password, guestToken)
	if err != nil {
		log.Warn("Login failed", map[string]interface{}{
			"email": req.Email,
			"error": err.Error(),
		})
		respondServiceError(c, err, "user")
		return
	}

	log.Info("User logged in", map[string]interface{}{
		"user_id": user.ID,
	})
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    user,
		"tokens":  tokens,
	})
}

// Refresh rotates a token pair
// POST /api/v1/auth/refresh
func (ctrl *AuthController) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "refresh_token is required")
		return
	}

	tokens, err := ctrl.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err, "token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Logout revokes the token pair and hands back a fresh guest token
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid logout request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationRequired, "refresh_token is required")
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "User not authenticated")
		return
	}
	token, _ := middleware.GetAccessToken(c)

	guestToken, err := ctrl.authService.Logout(c.Request.Context(), userID, token, req.RefreshToken)
	if err != nil {
		log.Error("Logout failed", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "Failed to sign out")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Logged out",
		"guest_token": guestToken,
	})
}

// Me returns the signed-in user
// GET /api/v1/auth/me
func (ctrl *AuthController) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "User not authenticated")
		return
	}

	user, err := ctrl.authService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
