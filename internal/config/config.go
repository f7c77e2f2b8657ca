// Package config provides environment configuration for the API server.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Upstream providers.
const (
	ProviderGateway = "gateway"
	ProviderOpenAI  = "openai"
)

// Storage drivers.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Upstream chat gateway
	Provider       string
	GatewayURL     string
	GatewayAPIKey  string
	GatewayUser    string
	GatewayTimeout time.Duration

	// OpenAI fallback provider
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Storage
	StorageDriver string
	DatabasePath  string
	AnalyticsPath string

	// NATS settings (optional; empty URL disables turn events)
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings
	JWTSecret string

	// CORS origins; empty allows any http(s) origin
	CORSAllowedOrigins []string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables. A dotenv file named
// by ENV_FILE (default ".env") is applied first without overriding variables
// that are already set.
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 0),

		// Gateway
		Provider:       getEnv("LLM_PROVIDER", ProviderGateway),
		GatewayURL:     getEnv("GATEWAY_URL", "https://api.dify.ai/v1/chat-messages"),
		GatewayAPIKey:  getEnv("GATEWAY_API_KEY", os.Getenv("DIFY_API_KEY")),
		GatewayUser:    getEnv("GATEWAY_USER", "anonymous-user"),
		GatewayTimeout: getDurationEnv("GATEWAY_TIMEOUT", 2*time.Minute),

		// OpenAI
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		// Storage
		StorageDriver: getEnv("STORAGE_DRIVER", StorageSQLite),
		DatabasePath:  getEnv("DATABASE_PATH", "data/conversations.db"),
		AnalyticsPath: getEnv("ANALYTICS_PATH", "data/analytics.bolt"),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// CORS
		CORSAllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS"),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}, nil
}

// Validate reports configuration that cannot work at runtime.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGateway:
		if c.GatewayAPIKey == "" {
			return errors.New("GATEWAY_API_KEY is required for the gateway provider")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is required for the openai provider")
		}
	default:
		return errors.New("LLM_PROVIDER must be gateway or openai")
	}

	switch c.StorageDriver {
	case StorageSQLite, StorageMemory:
	default:
		return errors.New("STORAGE_DRIVER must be sqlite or memory")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
