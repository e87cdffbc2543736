package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration, read from the environment.
// Optional collaborators (Redis, S3, SES, Elasticsearch, Kafka, tracing) are
// disabled when their settings are empty.
type Config struct {
	Port        string
	Environment string
	LogLevel    string
	LogFile     string
	CORSOrigins []string

	DatabaseURL string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	JWTSecret []byte
	JWTTTL    time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURL   string

	AWSRegion  string
	S3Bucket   string
	CDNBaseURL string
	MailFrom   string
	MailName   string

	ElasticsearchURL string

	KafkaBrokers []string
	KafkaTopic   string

	OTLPEndpoint    string
	TracingEnabled  bool
	TraceSampleRate float64

	// OTPStore selects the OTP backend: "redis" or "db". Empty picks redis
	// when a Redis host is set.
	OTPStore string
}

// LoadDotEnv loads .env when present. A missing file is not an error.
func LoadDotEnv(paths ...string) bool {
	return godotenv.Load(paths...) == nil
}

// Load reads the configuration from the process environment
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8787"),
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:     getEnvOrDefault("LOG_FILE", "plaza.log"),
		CORSOrigins: splitList(getEnvOrDefault("CORS_ORIGINS", "*")),

		DatabaseURL: DatabaseURL(),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret: []byte(os.Getenv("JWT_SECRET")),
		JWTTTL:    getDurationOrDefault("JWT_TTL", 24*time.Hour),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		OAuthRedirectURL:   os.Getenv("OAUTH_REDIRECT_URL"),

		AWSRegion:  getEnvOrDefault("AWS_REGION", "us-east-1"),
		S3Bucket:   os.Getenv("AWS_BUCKET"),
		CDNBaseURL: os.Getenv("CDN_BASE_URL"),
		MailFrom:   os.Getenv("MAIL_FROM"),
		MailName:   getEnvOrDefault("MAIL_FROM_NAME", "Plaza"),

		ElasticsearchURL: os.Getenv("ELASTICSEARCH_URL"),

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getEnvOrDefault("KAFKA_TOPIC", "plaza.events"),

		OTLPEndpoint:    getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		TracingEnabled:  os.Getenv("OTEL_ENABLED") == "true",
		TraceSampleRate: getFloatOrDefault("OTEL_SAMPLING_RATE", 1.0),

		OTPStore: strings.ToLower(os.Getenv("OTP_STORE")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings the server cannot run without
func (c *Config) Validate() error {
	if len(c.JWTSecret) == 0 {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	if c.OTPStore != "" && c.OTPStore != "redis" && c.OTPStore != "db" {
		return fmt.Errorf("OTP_STORE must be \"redis\" or \"db\", got %q", c.OTPStore)
	}
	return nil
}

// UseRedisOTP reports whether OTP codes live in Redis
func (c *Config) UseRedisOTP() bool {
	if c.OTPStore != "" {
		return c.OTPStore == "redis"
	}
	return c.RedisHost != ""
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// DatabaseURL returns DATABASE_URL, or a DSN assembled from the DB_* variables
func DatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnvOrDefault("DB_HOST", "localhost"),
		getEnvOrDefault("DB_PORT", "5432"),
		getEnvOrDefault("DB_USER", "postgres"),
		os.Getenv("DB_PASSWORD"),
		getEnvOrDefault("DB_NAME", "plaza"),
		getEnvOrDefault("DB_SSLMODE", "disable"),
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
