package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/agendia-app/agendia-backend/database"
	"github.com/agendia-app/agendia-backend/internal/cache"
	"github.com/agendia-app/agendia-backend/internal/config"
	"github.com/agendia-app/agendia-backend/internal/jobs"
	"github.com/agendia-app/agendia-backend/internal/models"
	"github.com/agendia-app/agendia-backend/internal/routes"
	"github.com/agendia-app/agendia-backend/internal/services"
	"github.com/agendia-app/agendia-backend/internal/storage"
)

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		err := godotenv.Load(".env")
		if err != nil {
			err = godotenv.Load("environments/.env.development")
			if err != nil {
				log.Println("⚠️  No .env file found - checking environment variables")
			}
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}
	if cfg.MercadoPagoAccessToken == "" {
		log.Fatal("MP_ACCESS_TOKEN is required - payment links cannot be issued without it")
	}
	if cfg.PublicBaseURL == "" {
		log.Fatal("PUBLIC_BASE_URL is required - the payment provider must reach /webhook/mercadopago")
	}

	// Initialize storage
	var store storage.Store

	// Check if we should use memory store (for testing)
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		// Connect to database
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		// Run migrations
		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.Plan{},
			&models.Company{},
			&models.Professional{},
			&models.Service{},
			&models.Client{},
			&models.Appointment{},
			&models.Message{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
		log.Println("✅ Using PostgreSQL database storage")
	}

	// Redis holds pending bookings between link issuance and webhook delivery
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pendingCache := cache.NewPendingCache(rdb, cache.DefaultTTL)

	// WhatsApp gateway
	var gateway services.Gateway
	if cfg.GatewayProvider == "twilio" {
		gateway, err = services.NewTwilioGateway()
		if err != nil {
			log.Fatal("Failed to initialize Twilio gateway: ", err)
		}
		log.Println("✅ Twilio WhatsApp gateway initialized")
	} else {
		gateway, err = services.NewEvolutionGateway(cfg.GatewayBaseURL, cfg.GatewayAPIKey)
		if err != nil {
			log.Fatal("Failed to initialize WhatsApp gateway: ", err)
		}
		log.Println("✅ Evolution WhatsApp gateway initialized")
	}

	// OpenAI assistant
	assistant, err := services.NewAssistant(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		log.Fatal("Failed to initialize assistant: ", err)
	}
	log.Println("✅ OpenAI assistant initialized")

	// Payments
	mpClient, err := services.NewMercadoPagoClient(cfg.MercadoPagoAccessToken)
	if err != nil {
		log.Fatal("Failed to initialize Mercado Pago client: ", err)
	}
	paymentService, err := services.NewPaymentService(store, pendingCache, mpClient, gateway, cfg.PublicBaseURL)
	if err != nil {
		log.Fatal("Failed to initialize payment service: ", err)
	}
	log.Println("✅ Payment service initialized")

	conversationService := services.NewConversationService(store, assistant, paymentService, gateway)

	// Start the appointment reminder job
	reminderJob := jobs.NewReminderJob(store, gateway)
	reminderJob.Start()

	log.Println("✅ All services initialized and scheduled jobs started")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "Agendia Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))

	// Setup routes
	routes.SetupRoutes(app, routes.Deps{
		Store:        store,
		Conversation: conversationService,
		Payments:     paymentService,
		JWTSecret:    cfg.JWTSecret,
	})

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		log.Println("⏹️  Stopping reminder job...")
		reminderJob.Stop()
		log.Println("⏹️  Shutting down server...")
		_ = app.Shutdown()
	}()

	// Start server
	log.Println("========================================")
	log.Printf("🚀 Agendia Backend starting on port %s", cfg.Port)
	log.Printf("📊 Storage: %s", getStorageType())
	log.Printf("🌍 Environment: %s", cfg.Env)
	log.Printf("📱 Gateway: %s", cfg.GatewayProvider)
	log.Printf("💳 Payment webhooks: %s/webhook/mercadopago", cfg.PublicBaseURL)
	log.Println("========================================")

	log.Fatal(app.Listen(":" + cfg.Port))
}

func getStorageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}
