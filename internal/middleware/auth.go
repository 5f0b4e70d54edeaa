// Package middleware provides authentication, logging, metrics and rate limiting middleware.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// TokenIssuer is the "iss" claim of every session token.
	TokenIssuer = "inkwell-api"
	// TokenAudience is the "aud" claim of every session token.
	TokenAudience = "inkwell-client"
	// TokenTTL is how long a session token stays valid.
	TokenTTL = 7 * 24 * time.Hour

	blacklistPrefix = "blacklist:"
)

var (
	ErrMissingToken = errors.New("authorization required")
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrRevokedToken = errors.New("token has been revoked")
)

// Session is the identity carried by a validated token.
type Session struct {
	UserID    uint
	Username  string
	JTI       string
	ExpiresAt time.Time
}

// TokenManager issues, validates and revokes session tokens.
type TokenManager struct {
	secret []byte
	redis  *redis.Client
}

// NewTokenManager builds a TokenManager. rdb may be nil, in which case revocation is disabled.
func NewTokenManager(secret string, rdb *redis.Client) *TokenManager {
	return &TokenManager{secret: []byte(secret), redis: rdb}
}

// Issue signs a token for the given user.
func (m *TokenManager) Issue(userID uint, username string) (string, error) {
	if len(m.secret) == 0 {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      TokenIssuer,
		"aud":      TokenAudience,
		"exp":      now.Add(TokenTTL).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses tokenString and checks signature, issuer, audience and revocation.
func (m *TokenManager) Validate(ctx context.Context, tokenString string) (*Session, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, ErrInvalidToken
	}

	session := &Session{UserID: uint(userID)}
	session.Username, _ = claims["username"].(string)
	session.JTI, _ = claims["jti"].(string)
	if exp, expErr := claims.GetExpirationTime(); expErr == nil && exp != nil {
		session.ExpiresAt = exp.Time
	}

	if session.JTI != "" && m.redis != nil {
		n, err := m.redis.Exists(ctx, blacklistPrefix+session.JTI).Result()
		if err == nil && n > 0 {
			return nil, ErrRevokedToken
		}
	}

	return session, nil
}

// Revoke blacklists the session's JTI until the token would have expired.
func (m *TokenManager) Revoke(ctx context.Context, s *Session) error {
	if m.redis == nil || s == nil || s.JTI == "" {
		return nil
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return m.redis.Set(ctx, blacklistPrefix+s.JTI, "1", ttl).Err()
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) string {
	parts := strings.Split(c.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(m *TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := m.Validate(c.UserContext(), BearerToken(c))
		if err != nil {
			msg := "Invalid or expired token"
			switch {
			case errors.Is(err, ErrMissingToken):
				msg = "Authorization required"
			case errors.Is(err, ErrRevokedToken):
				msg = "Token has been revoked"
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(msg))
		}
		setSession(c, session)
		return c.Next()
	}
}

// OptionalAuth records the session when a valid token is present and never rejects the request.
func OptionalAuth(m *TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := BearerToken(c); token != "" {
			if session, err := m.Validate(c.UserContext(), token); err == nil {
				setSession(c, session)
			}
		}
		return c.Next()
	}
}

func setSession(c *fiber.Ctx, s *Session) {
	c.Locals("userID", s.UserID)
	c.Locals("session", s)
	// Sync to UserContext for logging and downstream services
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, s.UserID))
}

// CurrentUserID returns the authenticated user ID, or 0 for anonymous requests.
func CurrentUserID(c *fiber.Ctx) uint {
	if uid, ok := c.Locals("userID").(uint); ok {
		return uid
	}
	return 0
}

// CurrentSession returns the validated session, if any.
func CurrentSession(c *fiber.Ctx) *Session {
	s, _ := c.Locals("session").(*Session)
	return s
}
