package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/agendia-app/agendia-backend/internal/middleware"
	"github.com/agendia-app/agendia-backend/internal/models"
	"github.com/agendia-app/agendia-backend/internal/services"
	"github.com/agendia-app/agendia-backend/internal/storage"
)

// AppointmentHandler exposes the company-scoped appointment CRUD surface
type AppointmentHandler struct {
	store    storage.Store
	payments *services.PaymentService
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(store storage.Store, payments *services.PaymentService) *AppointmentHandler {
	return &AppointmentHandler{store: store, payments: payments}
}

// CreateAppointmentRequest is the manual booking payload
type CreateAppointmentRequest struct {
	ProfessionalID uint   `json:"professional_id"`
	ServiceID      uint   `json:"service_id"`
	ClientName     string `json:"client_name"`
	ClientPhone    string `json:"client_phone"`
	ClientEmail    string `json:"client_email"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	Notes          string `json:"notes"`
}

// Create books an appointment manually.
// POST /api/appointments
func (h *AppointmentHandler) Create(c *fiber.Ctx) error {
	company := middleware.CompanyFromCtx(c)

	var req CreateAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.ServiceID == 0 || req.Date == "" || req.StartTime == "" || req.ClientName == "" {
		return fiber.NewError(fiber.StatusBadRequest, "service_id, date, start_time and client_name are required")
	}

	svc, err := h.store.GetService(req.ServiceID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && svc.CompanyID != company.ID) {
		return fiber.NewError(fiber.StatusNotFound, "service not found")
	}
	if err != nil {
		return err
	}

	appt := &models.Appointment{
		CompanyID:      company.ID,
		ProfessionalID: req.ProfessionalID,
		ServiceID:      svc.ID,
		ClientName:     req.ClientName,
		ClientPhone:    req.ClientPhone,
		ClientEmail:    req.ClientEmail,
		Date:           req.Date,
		StartTime:      req.StartTime,
		DurationMin:    svc.DurationMin,
		Price:          svc.Price, // always the catalog price
		Status:         models.StatusScheduled,
		Notes:          req.Notes,
	}

	created, err := h.store.CreateAppointment(appt)
	if errors.Is(err, storage.ErrSlotTaken) {
		return fiber.NewError(fiber.StatusConflict, "professional already booked for this slot")
	}
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// List returns the company's appointments, optionally bounded by ?from=&to=
// (YYYY-MM-DD).
// GET /api/appointments
func (h *AppointmentHandler) List(c *fiber.Ctx) error {
	company := middleware.CompanyFromCtx(c)

	from := c.Query("from")
	to := c.Query("to")

	var (
		appts []*models.Appointment
		err   error
	)
	if from != "" && to != "" {
		appts, err = h.store.GetAppointmentsByDateRange(company.ID, from, to)
	} else {
		appts, err = h.store.GetAppointmentsByCompany(company.ID)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"appointments": appts, "count": len(appts)})
}

// Get returns one appointment.
// GET /api/appointments/:id
func (h *AppointmentHandler) Get(c *fiber.Ctx) error {
	company := middleware.CompanyFromCtx(c)

	appt, err := h.loadOwned(c, company.ID)
	if err != nil {
		return err
	}
	return c.JSON(appt)
}

// UpdateStatusRequest carries the requested status transition
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus applies a status transition, rejecting moves the transition
// table does not allow.
// PATCH /api/appointments/:id/status
func (h *AppointmentHandler) UpdateStatus(c *fiber.Ctx) error {
	company := middleware.CompanyFromCtx(c)

	appt, err := h.loadOwned(c, company.ID)
	if err != nil {
		return err
	}

	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if !models.ValidStatus(req.Status) {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "unknown status: "+req.Status)
	}
	if !models.CanTransition(appt.Status, req.Status) {
		return fiber.NewError(fiber.StatusUnprocessableEntity,
			"cannot transition from "+appt.Status+" to "+req.Status)
	}

	flipped, err := h.store.UpdateAppointmentStatusIf(appt.ID, appt.Status, req.Status)
	if err != nil {
		return err
	}
	if !flipped {
		// The row changed between read and update
		return fiber.NewError(fiber.StatusConflict, "appointment status changed concurrently")
	}

	updated, err := h.store.GetAppointment(appt.ID)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

// CreatePaymentLink issues a Mercado Pago checkout link for an existing
// appointment.
// POST /api/appointments/:id/payment-link
func (h *AppointmentHandler) CreatePaymentLink(c *fiber.Ctx) error {
	company := middleware.CompanyFromCtx(c)

	appt, err := h.loadOwned(c, company.ID)
	if err != nil {
		return err
	}
	if models.IsTerminalStatus(appt.Status) || appt.Status == models.StatusConfirmed {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "appointment does not await payment")
	}

	link, err := h.payments.CreateAppointmentPaymentLink(c.Context(), company, appt)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "payment link generation failed")
	}
	return c.JSON(fiber.Map{"payment_link": link})
}

// loadOwned fetches the :id appointment and checks tenant ownership
func (h *AppointmentHandler) loadOwned(c *fiber.Ctx, companyID uint) (*models.Appointment, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid appointment id")
	}
	appt, err := h.store.GetAppointment(uint(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "appointment not found")
	}
	if err != nil {
		return nil, err
	}
	if appt.CompanyID != companyID {
		// Cross-tenant probing gets the same answer as a missing row
		return nil, fiber.NewError(fiber.StatusNotFound, "appointment not found")
	}
	return appt, nil
}
