package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

// Auth accepts requests carrying the configured bearer token. Tokens are
// compared by their SHA-256 digest in constant time.
func Auth(token string) fiber.Handler {
	want := hashToken(token)

	return func(c *fiber.Ctx) error {
		got := extractBearerToken(c)
		if got == "" {
			return domain.ErrUnauthorized
		}

		if subtle.ConstantTimeCompare(hashToken(got), want) != 1 {
			return domain.ErrUnauthorized
		}

		return c.Next()
	}
}

// extractBearerToken reads "Authorization: Bearer <token>", falling back to
// the access_token query parameter on websocket upgrades
func extractBearerToken(c *fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	if auth == "" {
		// browsers cannot set headers on websocket handshakes
		if strings.EqualFold(c.Get(fiber.HeaderUpgrade), "websocket") {
			return strings.TrimSpace(c.Query("access_token"))
		}
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func hashToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}
