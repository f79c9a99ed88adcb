package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yukikurage/stellar-tasks/internal/access"
	"github.com/yukikurage/stellar-tasks/internal/constants"
	"github.com/yukikurage/stellar-tasks/internal/models"
	"github.com/yukikurage/stellar-tasks/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUsernameRequired     = errors.New("username is required")
	ErrUsernameTaken        = errors.New("username already exists")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrFailedToCreateUser   = errors.New("failed to create user")
	ErrFailedToIssueToken   = errors.New("failed to issue token")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrInvalidInviteToken   = errors.New("invalid admin invite token")
)

// AuthConfig configures token issuance and admin promotion.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	// AdminInviteToken, when set, is the only way to sign up as an
	// administrator. When empty the first user becomes the administrator.
	AdminInviteToken string
	Timeout          time.Duration
}

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo repository.UserRepository
	cfg      AuthConfig
	now      Clock
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, cfg AuthConfig) *AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = constants.DefaultTokenTTL
	}
	return &AuthService{
		userRepo: userRepo,
		cfg:      cfg,
		now:      time.Now,
	}
}

// tokenClaims is the bearer token payload.
type tokenClaims struct {
	Role models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Username         string
	Name             string
	Password         string
	AdminInviteToken string
}

// Signup creates a new user and decides its role.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	ctx, cancel := withTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if _, err := s.userRepo.FindByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	role, err := s.roleFor(ctx, input.AdminInviteToken)
	if err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = username
	}
	user := &models.User{
		Username:     username,
		Name:         name,
		PasswordHash: string(hashedPassword),
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToCreateUser, err)
	}

	return user, nil
}

func (s *AuthService) roleFor(ctx context.Context, inviteToken string) (models.UserRole, error) {
	if s.cfg.AdminInviteToken != "" {
		if inviteToken == "" {
			return models.RoleMember, nil
		}
		if subtle.ConstantTimeCompare([]byte(inviteToken), []byte(s.cfg.AdminInviteToken)) != 1 {
			return "", ErrInvalidInviteToken
		}
		return models.RoleAdmin, nil
	}

	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to count users: %w", err)
	}
	if count == 0 {
		return models.RoleAdmin, nil
	}
	return models.RoleMember, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Username string
	Password string
}

// Login verifies credentials and returns the user with a bearer token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, string, error) {
	ctx, cancel := withTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// IssueToken signs an HS256 token carrying the user id and role.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFailedToIssueToken, err)
	}
	return signed, nil
}

// ParseToken verifies a bearer token and returns the caller it names.
func (s *AuthService) ParseToken(token string) (access.Actor, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return access.Actor{}, ErrInvalidToken
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return access.Actor{}, ErrInvalidToken
	}
	switch claims.Role {
	case models.RoleAdmin, models.RoleMember:
	default:
		return access.Actor{}, ErrInvalidToken
	}

	return access.Actor{UserID: userID, Role: claims.Role}, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}
