package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Identity
	JWTSecret         string
	CustomTokenSecret string
	AppID             string

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiBaseURL        string
	GeminiTransport      string
	GeminiRequestsPerMin int
	GeminiConcurrentReqs int
	GeminiTimeout        time.Duration

	// Workspace
	ChatHistoryLimit int
	MaxImageBytes    int64

	// HTTP
	RateLimitPerSecond int
	FrontendURL        string

	// Logging
	LogLevel string
}

// Load reads the environment once at process start. The returned value is
// passed by pointer to every constructor that needs it.
func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "3001"),
		Env:                  getEnvOrDefault("ENV", "development"),
		DatabaseURL:          mustGetEnv("DATABASE_URL"),
		RedisURL:             mustGetEnv("REDIS_URL"),
		JWTSecret:            mustGetEnv("JWT_SECRET"),
		CustomTokenSecret:    getEnvOrDefault("CUSTOM_TOKEN_SECRET", ""),
		AppID:                getEnvOrDefault("APP_ID", "default-app-id"),
		GeminiAPIKey:         mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL:        getEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiTransport:      getEnvOrDefault("GEMINI_TRANSPORT", "rest"),
		GeminiRequestsPerMin: getEnvAsIntOrDefault("GEMINI_REQUESTS_PER_MINUTE", 60),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		GeminiTimeout:        getEnvAsDurationOrDefault("GEMINI_TIMEOUT", 60*time.Second),
		ChatHistoryLimit:     getEnvAsIntOrDefault("CHAT_HISTORY_LIMIT", 30),
		MaxImageBytes:        int64(getEnvAsIntOrDefault("MAX_IMAGE_BYTES", 8<<20)),
		RateLimitPerSecond:   getEnvAsIntOrDefault("RATE_LIMIT_PER_SECOND", 5),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
	}

	return cfg
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
