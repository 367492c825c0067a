package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/agendia-app/agendia-backend/internal/services"
)

// PaymentHandler receives Mercado Pago webhook notifications
type PaymentHandler struct {
	payments *services.PaymentService
}

// NewPaymentHandler creates a new payment webhook handler
func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// MercadoPagoNotification is the JSON webhook envelope. Mercado Pago also
// delivers the same fields as query parameters (type / data.id), so both
// shapes are accepted.
type MercadoPagoNotification struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

// HandleWebhook processes payment notifications.
// POST /webhook/mercadopago
//
// The response is 200 with an acknowledgment for every processed or
// reconciliation-flagged notification; only malformed requests get a 4xx
// and only retry-worthy internal failures get a 5xx.
func (h *PaymentHandler) HandleWebhook(c *fiber.Ctx) error {
	notifType := c.Query("type", c.Query("topic"))
	paymentID := c.Query("data.id", c.Query("id"))

	if paymentID == "" {
		var notification MercadoPagoNotification
		if err := c.BodyParser(&notification); err == nil {
			if notifType == "" {
				notifType = notification.Type
			}
			paymentID = notification.Data.ID
		}
	}

	if notifType != "" && notifType != "payment" {
		// Merchant orders, plan events etc. are not ours to process
		return c.JSON(fiber.Map{"status": "ignored"})
	}
	if paymentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing payment id",
		})
	}

	if err := h.payments.ProcessPaymentWebhook(c.Context(), paymentID); err != nil {
		// Provider/storage unavailable: let the provider retry
		log.Printf("❌ Payment webhook processing failed for %s: %v", paymentID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "processing failed",
		})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}
