package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Config holds application configuration, resolved once in main and injected
// into services. Per-tenant settings (AI prompt, gateway instance) live on the
// Company row, not here.
type Config struct {
	Port string
	Env  string

	// Public HTTPS base of this deployment; payment webhooks are registered
	// under it
	PublicBaseURL string

	// Database
	DBUser string
	DBPass string
	DBName string
	DBHost string

	// Redis (pending-booking cache + webhook idempotency)
	RedisAddr     string
	RedisPassword string

	// OpenAI defaults (overridable per company)
	OpenAIAPIKey string
	OpenAIModel  string

	// Mercado Pago
	MercadoPagoAccessToken string

	// WhatsApp gateway
	GatewayProvider string // "evolution" or "twilio"
	GatewayBaseURL  string
	GatewayAPIKey   string

	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioWhatsAppFrom string

	// API auth
	JWTSecret string
}

// Load reads configuration from the environment
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENVIRONMENT", "development"),
		PublicBaseURL: strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),

		DBUser: getEnv("DB_USER", "postgres"),
		DBPass: os.Getenv("DB_PASS"),
		DBName: getEnv("DB_NAME", "agendia"),
		DBHost: getEnv("DB_HOST", "localhost"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		MercadoPagoAccessToken: os.Getenv("MP_ACCESS_TOKEN"),

		GatewayProvider: getEnv("GATEWAY_PROVIDER", "evolution"),
		GatewayBaseURL:  os.Getenv("GATEWAY_BASE_URL"),
		GatewayAPIKey:   os.Getenv("GATEWAY_API_KEY"),

		TwilioAccountSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppFrom: os.Getenv("TWILIO_WHATSAPP_FROM"),

		JWTSecret: os.Getenv("JWT_SECRET"),
	}

	if cfg.Env == "production" {
		if cfg.PublicBaseURL == "" {
			return nil, fmt.Errorf("PUBLIC_BASE_URL is required in production")
		}
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
	}

	if cfg.PublicBaseURL != "" && IsLoopbackURL(cfg.PublicBaseURL) {
		return nil, fmt.Errorf("PUBLIC_BASE_URL must not be a loopback address: %s", cfg.PublicBaseURL)
	}

	return cfg, nil
}

// IsLoopbackURL reports whether the URL points at localhost. Payment
// providers cannot deliver webhooks to a loopback address.
func IsLoopbackURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1" || host == "0.0.0.0"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
