package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	httpUtil "github.com/youwow/affiliate/internal/http/util"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AdminTokenHeader carries the shared admin secret.
const AdminTokenHeader = "x-admin-token"

// AdminGuard gates privileged routes behind a shared secret token.
// An unconfigured secret rejects every request.
type AdminGuard struct {
	secret []byte
	logger *zap.Logger
}

// NewAdminGuard builds a guard for secret.
func NewAdminGuard(secret string, logger *zap.Logger) *AdminGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminGuard{secret: []byte(secret), logger: logger}
}

// Configured reports whether a non-empty secret is set.
func (g *AdminGuard) Configured() bool {
	return len(g.secret) > 0
}

// Token returns the configured secret handed to authenticated admins.
func (g *AdminGuard) Token() string {
	return string(g.secret)
}

// Verify reports whether headers carry the configured admin token.
func (g *AdminGuard) Verify(headers http.Header) bool {
	return g.VerifyToken(headers.Get(AdminTokenHeader))
}

// VerifyToken compares token against the secret in constant time.
// Empty tokens and an empty secret never match.
func (g *AdminGuard) VerifyToken(token string) bool {
	if !g.Configured() || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), g.secret) == 1
}

// Middleware rejects requests without a valid admin token with 401.
func (g *AdminGuard) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !g.VerifyToken(c.Get(AdminTokenHeader)) {
			if !g.Configured() {
				g.logger.Error("admin token is not configured; rejecting admin request",
					zap.String("path", c.Path()))
			}
			return httpUtil.Fail(c, fiber.StatusUnauthorized, "Unauthorized")
		}
		return c.Next()
	}
}

// PasswordMatches checks given against the configured admin password, which
// may be stored either as a bcrypt hash or as plain text.
func PasswordMatches(configured, given string) bool {
	if configured == "" || given == "" {
		return false
	}
	if isBcryptHash(configured) {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(given)) == 1
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
