package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitsEnforced(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"", false},
		{"development", false},
		{"test", false},
		{"staging", true},
		{"production", true},
	}
	for _, tt := range tests {
		t.Run("env="+tt.env, func(t *testing.T) {
			t.Setenv("APP_ENV", tt.env)
			assert.Equal(t, tt.want, limitsEnforced())
		})
	}
}

func TestLimitTake_NilRedis(t *testing.T) {
	l := Limit{Name: "x", Max: 1, Window: time.Minute}

	t.Setenv("APP_ENV", "test")
	allowed, _, err := l.Take(context.Background(), nil, "ip:1")
	require.NoError(t, err)
	assert.True(t, allowed)

	t.Setenv("APP_ENV", "production")
	allowed, _, err = l.Take(context.Background(), nil, "ip:1")
	assert.ErrorIs(t, err, errNoRedis)
	assert.False(t, allowed)
}

func TestRateLimitMiddleware_NilRedis(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	open := Limit{Name: "open", Max: 1, Window: time.Minute}
	closed := Limit{Name: "closed", Max: 1, Window: time.Minute, FailClosed: true}

	app := fiber.New()
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Get("/open", RateLimit(nil, open), ok)
	app.Get("/closed", RateLimit(nil, closed), ok)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/open", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/closed", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestRateLimitWithRedis(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	app := fiber.New()
	app.Post("/subscribe", RateLimit(rdb, Limit{Name: "subscribe", Max: 2, Window: time.Minute}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	statuses := make([]int, 0, 3)
	var retryAfter string
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/subscribe", nil))
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
		retryAfter = resp.Header.Get(fiber.HeaderRetryAfter)
		_ = resp.Body.Close()
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
	assert.Equal(t, "60", retryAfter)
	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "rl:subscribe:ip:")
	assert.Equal(t, time.Minute, mr.TTL(keys[0]))

	mr.FastForward(time.Minute)
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/subscribe", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestRateLimit_KeysByUser(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	app := fiber.New()
	app.Post("/comment", func(c *fiber.Ctx) error {
		c.Locals("userID", uint(7))
		return c.Next()
	}, RateLimit(rdb, CommentLimit), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/comment", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()
	assert.True(t, mr.Exists("rl:create_comment:user:7"))
}
