package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port            string
	Env             string
	PublicBaseURL   string
	LogLevel        string
	MetricsEnabled  bool
	UpstreamTimeout time.Duration

	// Remote services
	IdentityBaseURL string
	SalonBaseURL    string
	AppCode         string

	// Browser session + persisted key-value storage
	SessionBackend      string
	SessionTTL          time.Duration
	SessionCookieName   string
	SessionCookieSecure bool
	RedisAddr           string
	RedisPassword       string
	RedisTLS            bool

	// Booking wizard
	Timezone string
	Language string

	// Customer re-sync after login
	CustomerRefreshBaseDelay   time.Duration
	CustomerRefreshMaxDelay    time.Duration
	CustomerRefreshMaxAttempts int

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// Schedule suggestions
	LLMProvider         string
	GeminiAPIKey        string
	GeminiModelID       string
	BedrockModelID      string
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		PublicBaseURL:   getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		MetricsEnabled:  getEnvAsBool("METRICS_ENABLED", true),
		UpstreamTimeout: getEnvAsDuration("UPSTREAM_TIMEOUT", 15*time.Second),

		IdentityBaseURL: getEnv("IDENTITY_API_BASE_URL", ""),
		SalonBaseURL:    getEnv("SALON_API_BASE_URL", ""),
		AppCode:         getEnv("APP_CODE", ""),

		SessionBackend:      strings.ToLower(strings.TrimSpace(getEnv("SESSION_BACKEND", "redis"))),
		SessionTTL:          getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
		SessionCookieName:   getEnv("SESSION_COOKIE_NAME", "salon_sid"),
		SessionCookieSecure: getEnvAsBool("SESSION_COOKIE_SECURE", false),
		RedisAddr:           getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisTLS:            getEnvAsBool("REDIS_TLS", false),

		Timezone: getEnv("SALON_TIMEZONE", "Asia/Ho_Chi_Minh"),
		Language: strings.ToLower(getEnv("SALON_LANGUAGE", "vi")),

		CustomerRefreshBaseDelay:   getEnvAsDuration("CUSTOMER_REFRESH_BASE_DELAY", 5*time.Second),
		CustomerRefreshMaxDelay:    getEnvAsDuration("CUSTOMER_REFRESH_MAX_DELAY", time.Minute),
		CustomerRefreshMaxAttempts: getEnvAsInt("CUSTOMER_REFRESH_MAX_ATTEMPTS", 5),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		LLMProvider:         strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "auto"))),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:       getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blank entries.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
