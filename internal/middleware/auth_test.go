package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func TestAuthRequired(t *testing.T) {
	manager := NewTokenManager(testSecret, nil)

	app := fiber.New()
	app.Get("/test", AuthRequired(manager), func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"userID": CurrentUserID(c)})
	})

	valid, err := manager.Issue(123, "reader")
	require.NoError(t, err)

	foreignIssuer := func() string {
		claims := jwt.MapClaims{
			"sub": strconv.FormatUint(123, 10),
			"iss": "someone-else",
			"aud": TokenAudience,
			"exp": time.Now().Add(time.Hour).Unix(),
		}
		s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		return s
	}

	expired := func() string {
		claims := jwt.MapClaims{
			"sub": "123",
			"iss": TokenIssuer,
			"aud": TokenAudience,
			"exp": time.Now().Add(-time.Hour).Unix(),
		}
		s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		return s
	}

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedUserID uint
	}{
		{"Happy Path", "Bearer " + valid, http.StatusOK, 123},
		{"Missing Header", "", http.StatusUnauthorized, 0},
		{"Invalid Format", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, 0},
		{"Wrong Issuer", "Bearer " + foreignIssuer(), http.StatusUnauthorized, 0},
		{"Expired Token", "Bearer " + expired(), http.StatusUnauthorized, 0},
		{"Garbage Token", "Bearer not.a.token", http.StatusUnauthorized, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body map[string]uint
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.expectedUserID, body["userID"])
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	manager := NewTokenManager(testSecret, nil)
	app := fiber.New()
	app.Get("/feed", OptionalAuth(manager), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": CurrentUserID(c)})
	})

	token, err := manager.Issue(7, "anna")
	require.NoError(t, err)

	for header, want := range map[string]uint{"": 0, "Bearer " + token: 7, "Bearer junk": 0} {
		req := httptest.NewRequest(http.MethodGet, "/feed", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]uint
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		_ = resp.Body.Close()
		assert.Equal(t, want, body["userID"])
	}
}

func TestTokenManager_Revoke(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	manager := NewTokenManager(testSecret, rdb)
	ctx := context.Background()

	token, err := manager.Issue(5, "writer")
	require.NoError(t, err)

	session, err := manager.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, uint(5), session.UserID)
	assert.Equal(t, "writer", session.Username)
	assert.NotEmpty(t, session.JTI)

	require.NoError(t, manager.Revoke(ctx, session))
	assert.True(t, mr.Exists("blacklist:"+session.JTI))

	_, err = manager.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrRevokedToken)
}
