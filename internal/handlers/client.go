package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/agendia-app/agendia-backend/internal/middleware"
	"github.com/agendia-app/agendia-backend/internal/models"
	"github.com/agendia-app/agendia-backend/internal/storage"
)

// ClientHandler exposes the company's CRM rows
type ClientHandler struct {
	store storage.Store
}

// NewClientHandler creates a new client handler
func NewClientHandler(store storage.Store) *ClientHandler {
	return &ClientHandler{store: store}
}

// CreateClientRequest is the CRM row payload
type CreateClientRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Notes string `json:"notes"`
}

// Create adds a client.
// POST /api/clients
func (h *ClientHandler) Create(c *fiber.Ctx) error {
	company := middleware.CompanyFromCtx(c)

	var req CreateClientRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}

	client, err := h.store.CreateClient(&models.Client{
		CompanyID: company.ID,
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		Notes:     req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(client)
}

// List returns the company's clients.
// GET /api/clients
func (h *ClientHandler) List(c *fiber.Ctx) error {
	company := middleware.CompanyFromCtx(c)

	clients, err := h.store.GetClientsByCompany(company.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"clients": clients, "count": len(clients)})
}

// Get returns one client.
// GET /api/clients/:id
func (h *ClientHandler) Get(c *fiber.Ctx) error {
	company := middleware.CompanyFromCtx(c)

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid client id")
	}
	client, err := h.store.GetClient(uint(id))
	if errors.Is(err, storage.ErrNotFound) || (err == nil && client.CompanyID != company.ID) {
		return fiber.NewError(fiber.StatusNotFound, "client not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(client)
}

// Update edits a client.
// PUT /api/clients/:id
func (h *ClientHandler) Update(c *fiber.Ctx) error {
	company := middleware.CompanyFromCtx(c)

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid client id")
	}
	client, err := h.store.GetClient(uint(id))
	if errors.Is(err, storage.ErrNotFound) || (err == nil && client.CompanyID != company.ID) {
		return fiber.NewError(fiber.StatusNotFound, "client not found")
	}
	if err != nil {
		return err
	}

	var req CreateClientRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name != "" {
		client.Name = req.Name
	}
	if req.Phone != "" {
		client.Phone = models.NormalizePhone(req.Phone)
	}
	if req.Email != "" {
		client.Email = req.Email
	}
	if req.Notes != "" {
		client.Notes = req.Notes
	}

	if err := h.store.UpdateClient(client); err != nil {
		return err
	}
	return c.JSON(client)
}
