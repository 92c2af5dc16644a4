package util

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	HeaderForwardedFor = "X-Forwarded-For"
	HeaderRealIP       = "X-Real-IP"

	// UnknownClient is returned when no proxy header identifies the caller.
	UnknownClient = "unknown"
)

// ResolveClientIP returns the best-effort client address from proxy headers:
// the first X-Forwarded-For entry, else X-Real-IP verbatim, else "unknown".
// The result is not validated; callers must sit behind a trusted proxy.
func ResolveClientIP(h http.Header) string {
	return resolveClientIP(h.Get)
}

// ClientIP resolves the client identity of a Fiber request. The returned
// string is safe to retain after the handler returns.
func ClientIP(c *fiber.Ctx) string {
	return strings.Clone(resolveClientIP(func(key string) string { return c.Get(key) }))
}

func resolveClientIP(get func(string) string) string {
	if forwarded := get(HeaderForwardedFor); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := get(HeaderRealIP); realIP != "" {
		return realIP
	}
	return UnknownClient
}
