package auth

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/spec-kit/crew-ticket-service/pkg/util/errorutil"
)

// WebhookSecretHeader carries the shared secret on event deliveries.
const WebhookSecretHeader = "X-Webhook-Secret"

// HashSecret hashes a webhook secret with the given cost.
func HashSecret(secret string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CompareSecret verifies a secret against its hashed value.
func CompareSecret(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// VerifyWebhookSecret rejects event deliveries whose secret does not match
// hashed. An empty hash rejects every delivery.
func VerifyWebhookSecret(hashed string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := c.Get(WebhookSecretHeader)
		if secret == "" || hashed == "" {
			return apperrors.NewUnauthorized("missing webhook secret")
		}
		if err := CompareSecret(hashed, secret); err != nil {
			return apperrors.NewUnauthorized("invalid webhook secret")
		}
		return c.Next()
	}
}
