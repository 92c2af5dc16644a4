package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestHealthHandler(t *testing.T) {
	app := fiber.New()
	NewHealthHandler(map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
	}).Register(app)

	resp, body := do(t, app, jsonRequest(fiber.MethodGet, "/health", ""))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, body = do(t, app, jsonRequest(fiber.MethodGet, "/health/ready", ""))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
}

func TestHealthHandler_NotReady(t *testing.T) {
	app := fiber.New()
	NewHealthHandler(map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}).Register(app)

	resp, body := do(t, app, jsonRequest(fiber.MethodGet, "/health/ready", ""))
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["postgres"])
	assert.Equal(t, "connection refused", checks["redis"])
}
