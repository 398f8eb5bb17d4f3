package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Downstream services
	TISSAPIURL      string
	DoctorServerURL string
	WhatsAppURL     string
	OCRServiceURL   string

	// OpenAI
	OpenAIBaseURL string
	OpenAIKey     string
	OpenAIModel   string

	// Facebook
	FacebookGraphURL    string
	FacebookAppID       string
	FacebookAccessToken string
	FacebookPixelID     string
	FacebookRedirectURL string
	FacebookAPIVersion  string

	// HTTP client
	HTTPTimeout           time.Duration
	WhatsAppQRTimeout     time.Duration
	WhatsAppActionTimeout time.Duration

	// Resilience. MaxRetries defaults to 0: downstream failures are not
	// retried unless explicitly enabled.
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// OAuth
	OAuthStateTTL time.Duration

	// Observability
	OTLPEndpoint string

	// CORS / rate limiting
	AllowedOrigins  string
	RateLimitPerMin int

	// Dev mode: echo downstream error detail in responses.
	DevMode bool
}

// Load reads configuration from environment variables with defaults.
// A .env file, if present, is loaded first (env vars take precedence).
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		TISSAPIURL:      getEnv("TISS_API_URL", "http://localhost:5000"),
		DoctorServerURL: getEnv("DOCTOR_SERVER_URL", "http://localhost:3001"),
		WhatsAppURL:     getEnv("WHATSAPP_GATEWAY_URL", "http://localhost:3002"),
		OCRServiceURL:   getEnv("OCR_SERVICE_URL", "http://localhost:8100"),

		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		FacebookGraphURL:    getEnv("FACEBOOK_GRAPH_URL", "https://graph.facebook.com"),
		FacebookAppID:       getEnv("FACEBOOK_APP_ID", ""),
		FacebookAccessToken: getEnv("FACEBOOK_ACCESS_TOKEN", ""),
		FacebookPixelID:     getEnv("FACEBOOK_PIXEL_ID", ""),
		FacebookRedirectURL: getEnv("FACEBOOK_REDIRECT_URL", "http://localhost:8080/v1/facebook/oauth/callback"),
		FacebookAPIVersion:  getEnv("FACEBOOK_API_VERSION", "v19.0"),

		HTTPTimeout:           getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		WhatsAppQRTimeout:     getEnvDuration("WHATSAPP_QR_TIMEOUT", 30*time.Second),
		WhatsAppActionTimeout: getEnvDuration("WHATSAPP_ACTION_TIMEOUT", 15*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 0),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		OAuthStateTTL: getEnvDuration("OAUTH_STATE_TTL", 10*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		AllowedOrigins:  getEnv("CORS_ALLOWED_ORIGINS", "*"),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MIN", 300),

		DevMode: getEnv("DEV_MODE", "false") == "true",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
