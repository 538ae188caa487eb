package service

import (
	"context"
	"strings"
	"time"

	"snapverse/internal/middleware"
	"snapverse/internal/models"
	"snapverse/internal/observability"
	"snapverse/internal/repository"
	"snapverse/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	IssueToken(user *models.User, now time.Time) (string, *middleware.TokenClaims, error)
}

// TokenRevoker blocks a token ID until it would have expired anyway.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
}

type AuthService struct {
	userRepo repository.UserRepository
	tokens   TokenIssuer
	revoker  TokenRevoker
	hashCost int
	now      func() time.Time
	events   *observability.EventLogger
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// NewAuthService wires the auth flows. revoker may be nil, in which case
// logout only succeeds without blocking the token.
func NewAuthService(userRepo repository.UserRepository, tokens TokenIssuer, revoker TokenRevoker) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		revoker:  revoker,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
		events:   observability.NewEventLogger("auth"),
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, models.NewValidationError("Username, email, and password are required")
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("User already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Username:  in.Username,
		Email:     in.Email,
		Password:  string(hashed),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		IsActive:  true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	now := s.now()
	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]any{"last_login": now}); err != nil {
		s.events.Error(ctx, err, "login.last_login")
	} else {
		user.LastLogin = &now
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, _, err := s.tokens.IssueToken(user, s.now())
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Logout revokes the presented token.
func (s *AuthService) Logout(ctx context.Context, claims *middleware.TokenClaims) error {
	if claims == nil {
		return models.NewUnauthorizedError("Authorization header required")
	}
	if s.revoker == nil || claims.ID == "" {
		return nil
	}
	expires := s.now().Add(middleware.AccessTokenTTL)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	if err := s.revoker.Revoke(ctx, claims.ID, expires); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
