package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/agendia-app/agendia-backend/internal/services"
)

// WhatsAppHandler handles inbound chat webhooks from the gateway
type WhatsAppHandler struct {
	conversation *services.ConversationService
}

// NewWhatsAppHandler creates a new WhatsApp handler
func NewWhatsAppHandler(conversation *services.ConversationService) *WhatsAppHandler {
	return &WhatsAppHandler{conversation: conversation}
}

// GatewayWebhookPayload is the Evolution-style inbound message envelope
type GatewayWebhookPayload struct {
	Event    string `json:"event"`
	Instance string `json:"instance"`
	Data     struct {
		Key struct {
			RemoteJid string `json:"remoteJid"`
			FromMe    bool   `json:"fromMe"`
		} `json:"key"`
		PushName string `json:"pushName"`
		Message  struct {
			Conversation    string `json:"conversation"`
			ExtendedTextMsg struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
		} `json:"message"`
	} `json:"data"`
}

// messageText returns the text body regardless of which message shape the
// gateway used
func (p *GatewayWebhookPayload) messageText() string {
	if p.Data.Message.Conversation != "" {
		return p.Data.Message.Conversation
	}
	return p.Data.Message.ExtendedTextMsg.Text
}

// HandleWebhook processes incoming WhatsApp messages.
// POST /webhook/whatsapp/:instance
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload GatewayWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing chat webhook: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	instance := c.Params("instance")
	if instance == "" {
		instance = payload.Instance
	}

	text := payload.messageText()
	phone := payload.Data.Key.RemoteJid

	// Only client messages: skip our own sends and status events
	if payload.Data.Key.FromMe || text == "" || phone == "" {
		return c.SendStatus(fiber.StatusOK)
	}

	log.Printf("📱 WhatsApp message on %s from %s: %s", instance, phone, text)

	if err := h.conversation.HandleInbound(c.Context(), instance, phone, text); err != nil {
		// Conversation failures are logged and acked; the gateway retrying
		// the same message would only duplicate the turn
		log.Printf("Error processing message: %v", err)
	}

	return c.SendStatus(fiber.StatusOK)
}

// TestWebhookPayload drives the flow without a gateway (for development)
type TestWebhookPayload struct {
	Instance string `json:"instance"`
	From     string `json:"from"`
	Message  string `json:"message"`
}

// HandleTestWebhook processes test WhatsApp messages (for development)
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	log.Printf("🧪 Test webhook received on %s from %s: %s", payload.Instance, payload.From, payload.Message)

	if strings.TrimSpace(payload.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Empty message",
		})
	}

	if err := h.conversation.HandleInbound(c.Context(), payload.Instance, payload.From, payload.Message); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"success": true})
}
