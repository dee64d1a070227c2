package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/Skotchmaster/storefront/internal/mail"
	"github.com/Skotchmaster/storefront/internal/upload"
	"github.com/Skotchmaster/storefront/pkg/config"
)

type SearchConfig struct {
	URL      string
	User     string
	Password string
	Index    string
}

type Config struct {
	Env      string
	Port     string
	LogLevel string

	DatabaseURL string

	JWTSecret    []byte
	JWTExpiresIn time.Duration

	// BaseURL prefixes the links sent by mail.
	BaseURL string
	Mail    mail.SMTPConfig

	PaystackSecret  string
	PaystackBaseURL string

	KafkaBrokers []string
	Search       SearchConfig

	RedisURL        string
	RateLimitMax    int
	RateLimitWindow time.Duration

	UploadDir string
	S3        upload.S3Config

	CORSOrigins []string
	// TrustProxy takes client addresses from X-Forwarded-For set by a
	// proxy on a private network.
	TrustProxy bool
}

func (c *Config) Production() bool { return c.Env == "production" }

// Load reads .env when present and then the process environment.
func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found, using system environment variables")
	}

	return &Config{
		Env:      config.EnvDefault("APP_ENV", "development"),
		Port:     config.EnvDefault("SERVER_PORT", "8080"),
		LogLevel: config.EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL: config.EnvDefault("DATABASE_URL", ""),

		JWTSecret:    []byte(config.EnvDefault("JWT_SECRET", "")),
		JWTExpiresIn: config.EnvDurationDefault("JWT_EXPIRES_IN", 24*time.Hour),

		BaseURL: config.EnvDefault("APP_BASE_URL", "http://localhost:8080"),
		Mail: mail.SMTPConfig{
			Host:     config.EnvDefault("EMAIL_HOST", ""),
			Port:     config.EnvIntDefault("EMAIL_PORT", 587),
			Username: config.EnvDefault("EMAIL_USERNAME", ""),
			Password: config.EnvDefault("EMAIL_PASSWORD", ""),
			From:     config.EnvDefault("EMAIL_FROM", "Storefront <no-reply@storefront.local>"),
		},

		PaystackSecret:  config.EnvDefault("PAYSTACK_SECRET_KEY", ""),
		PaystackBaseURL: config.EnvDefault("PAYSTACK_BASE_URL", "https://api.paystack.co"),

		KafkaBrokers: config.CSV(config.EnvDefault("KAFKA_BROKERS", "")),
		Search: SearchConfig{
			URL:      config.EnvDefault("ES_URL", ""),
			User:     config.EnvDefault("ES_USER", ""),
			Password: config.EnvDefault("ES_PASSWORD", ""),
			Index:    config.EnvDefault("ES_INDEX", "products"),
		},

		RedisURL:        config.EnvDefault("REDIS_URL", ""),
		RateLimitMax:    config.EnvIntDefault("RATE_LIMIT_MAX", 100),
		RateLimitWindow: config.EnvDurationDefault("RATE_LIMIT_WINDOW", time.Hour),

		UploadDir: config.EnvDefault("UPLOAD_DIR", "public/img"),
		S3: upload.S3Config{
			Bucket:    config.EnvDefault("S3_BUCKET", ""),
			Region:    config.EnvDefault("S3_REGION", "us-east-1"),
			Endpoint:  config.EnvDefault("S3_ENDPOINT", ""),
			PublicURL: config.EnvDefault("S3_PUBLIC_URL", ""),
			AccessKey: config.EnvDefault("S3_ACCESS_KEY_ID", ""),
			SecretKey: config.EnvDefault("S3_SECRET_ACCESS_KEY", ""),
		},

		CORSOrigins: config.CSV(config.EnvDefault("CORS_ORIGINS", "*")),
		TrustProxy:  config.EnvBoolDefault("TRUST_PROXY", false),
	}
}
