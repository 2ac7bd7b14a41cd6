package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret            string
	JWTExpireHours       string
	JWTRefreshExpireDays string

	// Demo account created by the seeder
	DemoUserEmail    string
	DemoUserPassword string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       string

	// Email Configuration
	EmailFrom     string
	EmailFromName string
	SMTPHost      string
	SMTPPort      string
	SMTPUsername  string
	SMTPPassword  string
	SMTPEnabled   bool

	// Rate Limiting (mutating endpoints)
	RateLimitMaxRequests   string
	RateLimitWindowSeconds string
	RateLimitMessage       string
	RateLimitTimeoutMillis string
	RateLimitFailOpen      bool

	// Password Reset
	ResetTokenBackend      string
	ResetTokenTTLMinutes   string
	ResetTokenSweepMinutes string

	// Frontend URL
	FrontendURL string

	// Service URL
	PromptServiceURL string

	// MinIO Configuration
	MinIOServerURL    string
	MinIORootUser     string
	MinIORootPassword string
	MinIOUseSSL       bool
	MinIOBucketName   string
	AvatarMaxBytes    string

	// Logging
	LogMode  string
	LogLevel string
	LogDir   string
}

var cfg *Config

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("Environment loaded from: %s", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg = &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "promptmaker"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT
		JWTSecret:            getEnv("JWT_SECRET", "your-secret-key-change-this"),
		JWTExpireHours:       getEnv("JWT_EXPIRE_HOURS", "3"),
		JWTRefreshExpireDays: getEnv("JWT_REFRESH_EXPIRE_DAYS", "7"),

		// Demo account
		DemoUserEmail:    getEnv("DEMO_USER_EMAIL", "demo@promptmaker.dev"),
		DemoUserPassword: getEnv("DEMO_USER_PASSWORD", "demo12345"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),

		// Email Configuration
		EmailFrom:     getEnv("EMAIL_FROM", "noreply@promptmaker.dev"),
		EmailFromName: getEnv("EMAIL_FROM_NAME", "Prompt Maker"),
		SMTPHost:      getEnv("SMTP_HOST", "smtp.example.com"),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SMTPEnabled:   getEnvAsBool("SMTP_ENABLED", false),

		// Rate Limiting
		RateLimitMaxRequests:   getEnv("RATE_LIMIT_MAX_REQUESTS", "10"),
		RateLimitWindowSeconds: getEnv("RATE_LIMIT_WINDOW_SECONDS", "60"),
		RateLimitMessage:       getEnv("RATE_LIMIT_MESSAGE", "Too many requests, please try again later."),
		RateLimitTimeoutMillis: getEnv("RATE_LIMIT_TIMEOUT_MS", "200"),
		RateLimitFailOpen:      getEnvAsBool("RATE_LIMIT_FAIL_OPEN", true),

		// Password Reset
		ResetTokenBackend:      getEnv("RESET_TOKEN_BACKEND", "memory"),
		ResetTokenTTLMinutes:   getEnv("RESET_TOKEN_TTL_MINUTES", "60"),
		ResetTokenSweepMinutes: getEnv("RESET_TOKEN_SWEEP_MINUTES", "15"),

		// Frontend URL
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		// Service URL
		PromptServiceURL: getEnv("PROMPT_SERVICE_URL", "http://localhost:8080"),

		// MinIO Configuration
		MinIOServerURL:    getEnv("MINIO_SERVER_URL", "http://localhost:9000"),
		MinIORootUser:     getEnv("MINIO_ROOT_USER", "minioadmin"),
		MinIORootPassword: getEnv("MINIO_ROOT_PASSWORD", "minioadmin"),
		MinIOUseSSL:       getEnvAsBool("MINIO_USE_SSL", false),
		MinIOBucketName:   getEnv("MINIO_BUCKET_NAME", "promptmaker-avatars"),
		AvatarMaxBytes:    getEnv("AVATAR_MAX_BYTES", "2097152"),

		// Logging
		LogMode:  getEnv("LOG_MODE", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogDir:   getEnv("LOG_DIR", "logs"),
	}

	log.Println("Configuration loaded successfully")
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	if cfg == nil {
		LoadConfig()
	}
	return cfg
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// atoiOr parses a numeric config field, falling back to def when it is not a positive integer
func atoiOr(value string, def int) int {
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return n
	}
	return def
}

// GetRateLimitMaxRequests returns the rate limit max requests as integer
func (c *Config) GetRateLimitMaxRequests() int {
	return atoiOr(c.RateLimitMaxRequests, 10)
}

// GetRateLimitWindowSeconds returns the rate limit window as integer
func (c *Config) GetRateLimitWindowSeconds() int {
	return atoiOr(c.RateLimitWindowSeconds, 60)
}

// GetRateLimitTimeoutMillis returns the backing store timeout for the rate limiter
func (c *Config) GetRateLimitTimeoutMillis() int {
	return atoiOr(c.RateLimitTimeoutMillis, 200)
}

// GetResetTokenTTLMinutes returns how long a password reset token stays valid
func (c *Config) GetResetTokenTTLMinutes() int {
	return atoiOr(c.ResetTokenTTLMinutes, 60)
}

// GetResetTokenSweepMinutes returns the interval between reset token cleanups
func (c *Config) GetResetTokenSweepMinutes() int {
	return atoiOr(c.ResetTokenSweepMinutes, 15)
}

// GetRedisDB returns the Redis database number
func (c *Config) GetRedisDB() int {
	if value, err := strconv.Atoi(c.RedisDB); err == nil {
		return value
	}
	return 0
}

// GetSMTPPort returns the SMTP port as integer
func (c *Config) GetSMTPPort() int {
	return atoiOr(c.SMTPPort, 587)
}

// GetAvatarMaxBytes returns the maximum accepted avatar upload size
func (c *Config) GetAvatarMaxBytes() int64 {
	return int64(atoiOr(c.AvatarMaxBytes, 2<<20))
}
