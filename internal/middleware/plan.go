package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// RequireFeature gates a route on the authenticated company's plan flags.
// Must run after RequireCompanyAuth.
func RequireFeature(feature string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		company := CompanyFromCtx(c)
		if company == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}
		if !company.Plan.HasFeature(feature) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "Plan does not include this feature",
				"feature": feature,
			})
		}
		return c.Next()
	}
}
