// Package middleware provides authentication, logging, tracing and rate
// limiting middleware for the HTTP server.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"snapverse/internal/config"
	"snapverse/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenTTL is the lifetime of an issued access token.
const AccessTokenTTL = 7 * 24 * time.Hour

// Fiber locals set by the authenticator.
const (
	LocalUserID = "userID"
	LocalClaims = "claims"
)

// TokenClaims are the claims carried by access tokens.
type TokenClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *TokenClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid subject %q", c.Subject)
	}
	return uint(id), nil
}

// Revocations reports whether a token ID was revoked by logout.
type Revocations interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Authenticator issues and verifies HS256 access tokens.
type Authenticator struct {
	secret   []byte
	issuer   string
	audience string
	revoked  Revocations
}

// NewAuthenticator builds an Authenticator from config. revoked may be nil.
func NewAuthenticator(cfg *config.Config, revoked Revocations) *Authenticator {
	return &Authenticator{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
		revoked:  revoked,
	}
}

// IssueToken signs a new access token for user.
func (a *Authenticator) IssueToken(user *models.User, now time.Time) (string, *TokenClaims, error) {
	claims := &TokenClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    a.issuer,
			Audience:  jwt.ClaimStrings{a.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// ParseToken verifies signature, issuer, audience and expiry.
func (a *Authenticator) ParseToken(raw string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (a *Authenticator) authenticate(c *fiber.Ctx) (*TokenClaims, uint, error) {
	raw, ok := bearerToken(c)
	if !ok {
		return nil, 0, models.NewUnauthorizedError("Authorization header required")
	}
	claims, err := a.ParseToken(raw)
	if err != nil {
		return nil, 0, models.NewUnauthorizedError("Invalid or expired token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, 0, models.NewUnauthorizedError("Invalid user ID in token")
	}
	if a.revoked != nil {
		revoked, err := a.revoked.IsRevoked(c.UserContext(), claims.ID)
		if err != nil {
			// Redis outages leave tokens usable until expiry.
			Logger.WarnContext(c.UserContext(), "token revocation check failed", slog.String("error", err.Error()))
		} else if revoked {
			return nil, 0, models.NewUnauthorizedError("Token has been revoked")
		}
	}
	return claims, userID, nil
}

func setIdentity(c *fiber.Ctx, claims *TokenClaims, userID uint) {
	c.Locals(LocalUserID, userID)
	c.Locals(LocalClaims, claims)
	c.SetUserContext(WithUserID(c.UserContext(), userID))
}

// Required rejects requests without a valid, unrevoked bearer token.
func (a *Authenticator) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, userID, err := a.authenticate(c)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		setIdentity(c, claims, userID)
		return c.Next()
	}
}

// Optional identifies the caller when a valid token is present and lets
// anonymous requests through.
func (a *Authenticator) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := bearerToken(c); ok {
			if claims, userID, err := a.authenticate(c); err == nil {
				setIdentity(c, claims, userID)
			}
		}
		return c.Next()
	}
}

// UserID returns the authenticated user's ID, if any.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(LocalUserID).(uint)
	return id, ok && id != 0
}

// Claims returns the verified token claims, if any.
func Claims(c *fiber.Ctx) (*TokenClaims, bool) {
	claims, ok := c.Locals(LocalClaims).(*TokenClaims)
	return claims, ok
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
