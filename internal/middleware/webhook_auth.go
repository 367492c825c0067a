package middleware

import (
	"crypto/subtle"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/agendia-app/agendia-backend/internal/storage"
)

// ValidateGatewayToken validates that a chat webhook call carries the
// apikey registered for the instance it claims to be from
func ValidateGatewayToken(store storage.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := c.Get("apikey")
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing gateway apikey",
			})
		}

		instance := c.Params("instance")
		company, err := store.GetCompanyByInstance(instance)
		if err != nil {
			log.Printf("Webhook for unknown instance %q rejected", instance)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unknown instance",
			})
		}

		if company.GatewayToken == "" ||
			subtle.ConstantTimeCompare([]byte(apiKey), []byte(company.GatewayToken)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid gateway apikey",
			})
		}

		return c.Next()
	}
}
