package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAdminGuard_Verify(t *testing.T) {
	header := func(token string) http.Header {
		h := http.Header{}
		if token != "" {
			h.Set(AdminTokenHeader, token)
		}
		return h
	}

	unset := NewAdminGuard("", nil)
	assert.False(t, unset.Verify(header("anything")))
	assert.False(t, unset.Verify(header("")))

	guard := NewAdminGuard("s3cret", nil)
	assert.False(t, guard.Verify(header("")))
	assert.False(t, guard.Verify(header("s3cre")))
	assert.False(t, guard.Verify(header("s3cret ")))
	assert.True(t, guard.Verify(header("s3cret")))
}

func TestAdminGuard_Middleware(t *testing.T) {
	app := fiber.New()
	app.Get("/admin", NewAdminGuard("s3cret", nil).Middleware(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	req := httptest.NewRequest(fiber.MethodGet, "/admin", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"success":false,"error":"Unauthorized"}`, readBody(t, resp))

	req = httptest.NewRequest(fiber.MethodGet, "/admin", nil)
	req.Header.Set(AdminTokenHeader, "s3cret")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestPasswordMatches(t *testing.T) {
	assert.True(t, PasswordMatches("hunter2", "hunter2"))
	assert.False(t, PasswordMatches("hunter2", "hunter3"))
	assert.False(t, PasswordMatches("", ""))
	assert.False(t, PasswordMatches("hunter2", ""))

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, PasswordMatches(string(hash), "hunter2"))
	assert.False(t, PasswordMatches(string(hash), "hunter3"))
}
