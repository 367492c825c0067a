package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/agendia-app/agendia-backend/internal/models"
	"github.com/agendia-app/agendia-backend/internal/storage"
)

const companyLocalKey = "company"

// CompanyClaims is the JWT payload for company API tokens
type CompanyClaims struct {
	CompanyID uint `json:"company_id"`
	jwt.RegisteredClaims
}

// RequireCompanyAuth validates the Bearer token and loads the company (with
// its plan) into the request context. Every /api route runs behind it.
func RequireCompanyAuth(secret string, store storage.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing bearer token",
			})
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims := &CompanyClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid || claims.CompanyID == 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		company, err := store.GetCompany(claims.CompanyID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unknown company",
			})
		}
		if !company.IsActive {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Company is suspended",
			})
		}

		c.Locals(companyLocalKey, company)
		return c.Next()
	}
}

// CompanyFromCtx returns the authenticated company set by RequireCompanyAuth
func CompanyFromCtx(c *fiber.Ctx) *models.Company {
	company, _ := c.Locals(companyLocalKey).(*models.Company)
	return company
}

// SetCompanyForTest injects a company into the request context (tests only)
func SetCompanyForTest(c *fiber.Ctx, company *models.Company) {
	c.Locals(companyLocalKey, company)
}
