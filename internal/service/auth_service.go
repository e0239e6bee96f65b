package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"cellscope/internal/config"
	"cellscope/internal/ids"
	"cellscope/internal/models"
	"cellscope/internal/repository"
	"cellscope/internal/security"
)

var (
	// ErrInvalidCredentials covers both unknown username and wrong
	// password so the response leaks nothing about which one failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingFields      = errors.New("all fields are required")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already exists")
	ErrTokenMissing       = errors.New("token missing")
	ErrTokenMismatch      = errors.New("token mismatch")
)

type AuthService struct {
	users repository.Users
	cfg   *config.AppConfig
	log   zerolog.Logger
}

func NewAuthService(users repository.Users, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users: users,
		cfg:   cfg,
		log:   log,
	}
}

type SignupInput struct {
	Username string
	Email    string
	Password string
}

type AuthResult struct {
	Token string
	User  models.User
}

func (s *AuthService) Signup(ctx context.Context, input SignupInput) (AuthResult, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Username == "" || input.Email == "" || input.Password == "" {
		return AuthResult{}, ErrMissingFields
	}

	if _, err := s.users.FindByUsername(ctx, input.Username); err == nil {
		return AuthResult{}, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, err
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return AuthResult{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, err
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: passwordHash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return AuthResult{}, err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return AuthResult{}, err
	}

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user registered")

	return AuthResult{Token: token, User: user}, nil
}

type LoginInput struct {
	Username string
	Password string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	if input.Username == "" || input.Password == "" {
		return AuthResult{}, ErrMissingFields
	}

	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	if !security.VerifyPassword(input.Password, user.PasswordHash) {
		return AuthResult{}, ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) issueToken(user models.User) (string, error) {
	return security.IssueSessionToken(
		s.cfg.Security.JWTSecret,
		user.ID,
		user.Username,
		s.cfg.Security.TokenTTL,
	)
}

// ValidateDualToken implements the explicit session check: the client-held
// copy must exist, match the httpOnly cookie byte for byte, verify
// cryptographically, and reference a live user.
func (s *AuthService) ValidateDualToken(ctx context.Context, clientToken, cookieToken string) (models.User, error) {
	if clientToken == "" || cookieToken == "" {
		return models.User{}, ErrTokenMissing
	}
	if clientToken != cookieToken {
		return models.User{}, ErrTokenMismatch
	}

	claims, err := security.ParseSessionToken(cookieToken, s.cfg.Security.JWTSecret)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, repository.ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
