package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/session"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/mailer"
	"github.com/ikkim/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

// TokenRevoker records signed-out tokens until they expire.
type TokenRevoker interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput, guestToken string) (*model.User, *util.TokenPair, error)
	Login(ctx context.Context, email, password, guestToken string) (*model.User, *util.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*util.TokenPair, error)
	Logout(ctx context.Context, userID uint, accessToken, refreshToken string) (string, error)
	GetUserByID(ctx context.Context, id uint) (*model.User, error)
}

type authService struct {
	userRepo      repository.UserRepository
	broker        *session.Broker
	revoker       TokenRevoker
	mail          mailer.Sender
	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewAuthService(
	userRepo repository.UserRepository,
	broker *session.Broker,
	revoker TokenRevoker,
	mail mailer.Sender,
	jwtSecret string,
	accessExpiry, refreshExpiry time.Duration,
) AuthService {
	if mail == nil {
		mail = mailer.LogSender{}
	}
	return &authService{
		userRepo:      userRepo,
		broker:        broker,
		revoker:       revoker,
		mail:          mail,
		jwtSecret:     jwtSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Register(ctx context.Context, input RegisterInput, guestToken string) (*model.User, *util.TokenPair, error) {
	email := normalizeEmail(input.Email)
	logger.Info("Attempting user registration", map[string]interface{}{
		"email": email,
	})

	if err := util.CheckPasswordStrength(input.Password); err != nil {
		return nil, nil, err
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}
	if existing != nil {
		logger.Warn("Registration failed: email already exists", map[string]interface{}{
			"email": email,
		})
		return nil, nil, ErrEmailAlreadyExists
	}

	hashed, err := util.HashPassword(input.Password)
	if err != nil {
		logger.Error("Failed to hash password", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hashed,
		Name:         strings.TrimSpace(input.Name),
		Phone:        strings.TrimSpace(input.Phone),
		Role:         model.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	s.signIn(ctx, user, guestToken)
	s.sendWelcome(ctx, user)

	logger.Info("User registered", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, tokens, nil
}

func (s *authService) Login(ctx context.Context, email, password, guestToken string) (*model.User, *util.TokenPair, error) {
	email = normalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: unknown email", map[string]interface{}{
				"email": email,
			})
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login failed: wrong password", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	s.signIn(ctx, user, guestToken)

	logger.Info("User logged in", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, tokens, nil
}

// Refresh rotates a token pair. The presented refresh token is revoked.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*util.TokenPair, error) {
	claims, err := util.ValidateRefreshToken(refreshToken, s.jwtSecret)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrInvalidRefreshToken
		}
	}

	user, err := s.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	if s.revoker != nil {
		if err := s.revoker.Revoke(ctx, refreshToken, claims.RemainingTTL()); err != nil {
			logger.Warn("Failed to revoke rotated refresh token", map[string]interface{}{
				"user_id": user.ID,
				"error":   err.Error(),
			})
		}
	}
	return tokens, nil
}

// Logout revokes the access token and the user's refresh token, then returns
// the device to a fresh guest identity, whose token is returned. A refresh
// token that is expired or issued to another user is left alone.
func (s *authService) Logout(ctx context.Context, userID uint, accessToken, refreshToken string) (string, error) {
	if s.revoker != nil && accessToken != "" {
		claims, err := util.ValidateToken(accessToken, s.jwtSecret)
		if err == nil {
			if err := s.revoker.Revoke(ctx, accessToken, claims.RemainingTTL()); err != nil {
				logger.Error("Failed to revoke access token", err, map[string]interface{}{
					"user_id": userID,
				})
				return "", err
			}
		}
	}

	if s.revoker != nil && refreshToken != "" {
		claims, err := util.ValidateRefreshToken(refreshToken, s.jwtSecret)
		switch {
		case err != nil:
			logger.Debug("Skipping revocation of invalid refresh token", map[string]interface{}{
				"user_id": userID,
			})
		case claims.UserID != userID:
			logger.Warn("Refresh token presented at logout belongs to another user", map[string]interface{}{
				"user_id":  userID,
				"token_of": claims.UserID,
			})
		default:
			if err := s.revoker.Revoke(ctx, refreshToken, claims.RemainingTTL()); err != nil {
				logger.Error("Failed to revoke refresh token", err, map[string]interface{}{
					"user_id": userID,
				})
				return "", err
			}
		}
	}

	guestToken := session.NewGuestToken()
	if s.broker != nil {
		s.broker.Publish(ctx, session.Transition{
			From: session.AccountIdentity(userID),
			To:   session.GuestIdentity(guestToken),
		})
	}

	logger.Info("User logged out", map[string]interface{}{
		"user_id": userID,
	})
	return guestToken, nil
}

func (s *authService) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) issueTokens(user *model.User) (*util.TokenPair, error) {
	tokens, err := util.GenerateTokenPair(user.ID, user.Email, string(user.Role), s.jwtSecret, s.accessExpiry, s.refreshExpiry)
	if err != nil {
		logger.Error("Failed to generate tokens", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, err
	}
	return tokens, nil
}

// signIn publishes the transition synchronously so subscribers finish
// before the response is written.
func (s *authService) signIn(ctx context.Context, user *model.User, guestToken string) {
	if s.broker == nil {
		return
	}
	from := session.Identity{}
	if guestToken != "" {
		from = session.GuestIdentity(guestToken)
	}
	s.broker.Publish(ctx, session.Transition{From: from, To: session.AccountIdentity(user.ID)})
}

func (s *authService) sendWelcome(ctx context.Context, user *model.User) {
	html, err := mailer.RenderWelcome(mailer.WelcomeData{Name: user.Name})
	if err == nil {
		err = s.mail.Send(ctx, user.Email, "Welcome to the store", html)
	}
	if err != nil {
		logger.Warn("Welcome email not sent", map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		})
	}
}
