package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youwow/affiliate/internal/app/ratelimit"
)

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func newLimitedApp(limiter *ratelimit.Limiter, cfg RateLimitConfig) *fiber.App {
	app := fiber.New()
	app.Post("/login", RateLimit(limiter, cfg, nil), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func loginFrom(t *testing.T, app *fiber.App, ip string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/login", nil)
	req.Header.Set("X-Forwarded-For", ip)
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestRateLimit_BlocksAfterLimit(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	limiter := ratelimit.New(ratelimit.NewMemoryStore(ratelimit.WithMemoryClock(clock)), ratelimit.WithClock(clock))
	app := newLimitedApp(limiter, RateLimitConfig{Key: "admin-auth", Limit: 5, Window: 15 * time.Minute})

	for i := 0; i < 5; i++ {
		resp := loginFrom(t, app, "1.2.3.4")
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "5", resp.Header.Get("X-RateLimit-Limit"))
	}

	resp := loginFrom(t, app, "1.2.3.4")
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "900", resp.Header.Get(fiber.HeaderRetryAfter))
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.Contains(t, readBody(t, resp), `"success":false`)

	// Another client is unaffected.
	resp = loginFrom(t, app, "5.6.7.8")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

type brokenStore struct{}

func (brokenStore) Incr(context.Context, string, time.Time, time.Duration) (ratelimit.Entry, error) {
	return ratelimit.Entry{}, errors.New("store down")
}

func TestRateLimit_FailsOpenByDefault(t *testing.T) {
	app := newLimitedApp(ratelimit.New(brokenStore{}), DefaultRateLimitConfig())
	resp := loginFrom(t, app, "1.2.3.4")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRateLimit_FailClosed(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	cfg.FailClosed = true
	app := newLimitedApp(ratelimit.New(brokenStore{}), cfg)
	resp := loginFrom(t, app, "1.2.3.4")
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
