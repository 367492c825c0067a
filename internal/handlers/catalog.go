package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/agendia-app/agendia-backend/internal/middleware"
	"github.com/agendia-app/agendia-backend/internal/storage"
)

// CatalogHandler exposes the company's services and professionals
type CatalogHandler struct {
	store storage.Store
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(store storage.Store) *CatalogHandler {
	return &CatalogHandler{store: store}
}

// ListServices returns the company's service catalog.
// GET /api/services
func (h *CatalogHandler) ListServices(c *fiber.Ctx) error {
	company := middleware.CompanyFromCtx(c)

	svcs, err := h.store.GetServicesByCompany(company.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"services": svcs, "count": len(svcs)})
}

// ListProfessionals returns the company's staff.
// GET /api/professionals
func (h *CatalogHandler) ListProfessionals(c *fiber.Ctx) error {
	company := middleware.CompanyFromCtx(c)

	pros, err := h.store.GetProfessionalsByCompany(company.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"professionals": pros, "count": len(pros)})
}
