package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/agendia-app/agendia-backend/internal/handlers"
	"github.com/agendia-app/agendia-backend/internal/middleware"
	"github.com/agendia-app/agendia-backend/internal/models"
	"github.com/agendia-app/agendia-backend/internal/services"
	"github.com/agendia-app/agendia-backend/internal/storage"
)

// Deps carries the wired services the routes need
type Deps struct {
	Store        storage.Store
	Conversation *services.ConversationService
	Payments     *services.PaymentService
	JWTSecret    string
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, deps Deps) {
	whatsappHandler := handlers.NewWhatsAppHandler(deps.Conversation)
	paymentHandler := handlers.NewPaymentHandler(deps.Payments)
	appointmentHandler := handlers.NewAppointmentHandler(deps.Store, deps.Payments)
	clientHandler := handlers.NewClientHandler(deps.Store)
	catalogHandler := handlers.NewCatalogHandler(deps.Store)

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to Agendia Backend!",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"health":          "/health",
				"api":             "/api",
				"chat_webhook":    "/webhook/whatsapp/:instance",
				"payment_webhook": "/webhook/mercadopago",
				"test_whatsapp":   "/test/whatsapp",
			},
		})
	})

	app.Get("/health", handlers.HealthCheck)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")

	// Chat webhook - ENVIRONMENT-AWARE VALIDATION
	if os.Getenv("ENVIRONMENT") == "development" || os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true" {
		// Development: skip apikey validation for tunneled gateways
		webhooks.Post("/whatsapp/:instance", whatsappHandler.HandleWebhook)
		log.Println("⚠️  Chat webhook validation DISABLED")
	} else {
		webhooks.Post("/whatsapp/:instance", middleware.ValidateGatewayToken(deps.Store), whatsappHandler.HandleWebhook)
	}

	// Mercado Pago notifications carry no shared secret; authenticity comes
	// from re-fetching the payment from the provider API
	webhooks.Post("/mercadopago", paymentHandler.HandleWebhook)

	// ========== TEST ROUTES (Development Only) ==========
	if os.Getenv("ENVIRONMENT") == "development" {
		app.Post("/test/whatsapp", whatsappHandler.HandleTestWebhook)
	}

	// ========== API ROUTES ==========
	api := app.Group("/api",
		middleware.RequireCompanyAuth(deps.JWTSecret, deps.Store),
		middleware.RequireFeature(models.FeatureAPIAccess),
	)

	appointments := api.Group("/appointments")
	appointments.Post("/", appointmentHandler.Create)
	appointments.Get("/", appointmentHandler.List)
	appointments.Get("/:id", appointmentHandler.Get)
	appointments.Patch("/:id/status", appointmentHandler.UpdateStatus)
	appointments.Post("/:id/payment-link",
		middleware.RequireFeature(models.FeatureOnlinePayments),
		appointmentHandler.CreatePaymentLink)

	clients := api.Group("/clients")
	clients.Post("/", clientHandler.Create)
	clients.Get("/", clientHandler.List)
	clients.Get("/:id", clientHandler.Get)
	clients.Put("/:id", clientHandler.Update)

	api.Get("/services", catalogHandler.ListServices)
	api.Get("/professionals", catalogHandler.ListProfessionals)
}
