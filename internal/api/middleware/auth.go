package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// LocalAPIKeyID is the key to retrieve the caller's key id from context.
const LocalAPIKeyID = "api_key_id"

// Auth creates an authentication middleware using static API keys. With no
// keys configured every request is let through.
func Auth(apiKeys []string) fiber.Handler {
	hashes := make([][]byte, 0, len(apiKeys))
	for _, key := range apiKeys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		sum := sha256.Sum256([]byte(key))
		hashes = append(hashes, sum[:])
	}

	return func(c *fiber.Ctx) error {
		if len(hashes) == 0 {
			return c.Next()
		}

		apiKey := extractBearerToken(c)
		if apiKey == "" {
			return domain.ErrUnauthorized
		}

		sum := sha256.Sum256([]byte(apiKey))
		for _, h := range hashes {
			if subtle.ConstantTimeCompare(sum[:], h) == 1 {
				c.Locals(LocalAPIKeyID, keyID(sum[:]))
				return c.Next()
			}
		}

		return domain.ErrUnauthorized
	}
}

// extractBearerToken extracts token from Authorization header
func extractBearerToken(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	if auth == "" {
		return ""
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// keyID is a short, loggable prefix of the key hash.
func keyID(hash []byte) string {
	return hex.EncodeToString(hash[:6])
}

// GetAPIKeyID returns the authenticated key id, or "" when auth is disabled.
func GetAPIKeyID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalAPIKeyID).(string)
	return id
}
