package service

import (
	"errors"
	"strings"
	"time"

	"github.com/edgelog/internal/config"
	"github.com/edgelog/internal/models"
	"github.com/edgelog/internal/repository"
	"github.com/edgelog/pkg/crypto"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidToken       = errors.New("invalid token")
)

const tokenIssuer = "edgelog"

// AuthService handles authentication operations
type AuthService struct {
	userRepo  *repository.UserRepository
	referral  *ReferralService
	jwtConfig config.JWTConfig
	logger    *zap.Logger
}

// NewAuthService creates a new AuthService. referral may be nil, in which
// case referral codes are ignored at sign-up.
func NewAuthService(userRepo *repository.UserRepository, referral *ReferralService, jwtConfig config.JWTConfig, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		referral:  referral,
		jwtConfig: jwtConfig,
		logger:    logger,
	}
}

// RegisterRequest represents the registration request
type RegisterRequest struct {
	Username     string `json:"username" binding:"required,min=3,max=50"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=6,max=100"`
	Timezone     string `json:"timezone" binding:"max=64"`
	ReferralCode string `json:"referral_code" binding:"max=16"`
}

// LoginRequest represents the login request. Username may also be an email.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents the JWT token response
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// JWTClaims represents the JWT claims
type JWTClaims struct {
	UserID   uint        `json:"user_id"`
	Username string      `json:"username"`
	Plan     models.Plan `json:"plan"`
	IsAdmin  bool        `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

// Register registers a new user. An unknown referral code fails the sign-up
// before anything is written.
func (s *AuthService) Register(req *RegisterRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.userRepo.ExistsByUsername(req.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUsernameTaken
	}

	exists, err = s.userRepo.ExistsByEmail(email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, ErrInvalidTimezone
	}

	code := strings.TrimSpace(req.ReferralCode)
	if code != "" && s.referral != nil {
		if err := s.referral.ValidateCode(code); err != nil {
			return nil, err
		}
	}

	passwordHash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     req.Username,
		Email:        email,
		PasswordHash: passwordHash,
		Plan:         models.PlanFree,
		Timezone:     tz,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	if code != "" && s.referral != nil {
		if err := s.referral.AttachReferral(user.ID, code); err != nil {
			// the account exists; a lost referral must not fail sign-up
			s.logger.Warn("referral attach failed",
				zap.Uint("user_id", user.ID),
				zap.String("code", code),
				zap.Error(err))
		} else if refreshed, err := s.userRepo.GetByID(user.ID); err == nil {
			user = refreshed
		}
	}

	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *AuthService) Login(req *LoginRequest) (*TokenResponse, error) {
	user, err := s.userRepo.GetByUsernameOrEmail(req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !crypto.CheckPassword(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.generateToken(user)
}

// RefreshToken issues a new token carrying the user's current plan
func (s *AuthService) RefreshToken(tokenString string) (*TokenResponse, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return nil, err
	}

	return s.generateToken(user)
}

// ValidateToken validates a JWT token and returns the claims
func (s *AuthService) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtConfig.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

func (s *AuthService) generateToken(user *models.User) (*TokenResponse, error) {
	expiresIn := time.Duration(s.jwtConfig.ExpireHours) * time.Hour
	now := time.Now()

	claims := &JWTClaims{
		UserID:   user.ID,
		Username: user.Username,
		Plan:     user.ActivePlan(now),
		IsAdmin:  user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: tokenString,
		TokenType:   "Bearer",
		ExpiresIn:   s.jwtConfig.ExpireHours * 3600,
	}, nil
}

// GetUserByID retrieves a user by ID
func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	return s.userRepo.GetByID(id)
}
