package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Env       string
	LogLevel  string
	LogFormat string

	// Campaign inputs
	ContactsFile  string
	StartFrom     int
	Delay         time.Duration
	ProgressEvery int
	TextOnly      bool
	ImagesFolder  string
	DefaultImage  string
	ImageCacheDir string

	// Browser session
	WhatsAppURL      string
	ChromePath       string
	ChromeProfileDir string
	Headless         bool
	LoginTimeout     time.Duration
	ActionTimeout    time.Duration
	CloseGrace       time.Duration

	// Status endpoint
	StatusAddr string

	// Outcome journal
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	JournalTTL    time.Duration

	// AWS (S3 image assets, SES summary email)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Operator summary email
	NotifyEmail       string
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		ContactsFile:  getEnv("CONTACTS_FILE", "contacts.xlsx"),
		StartFrom:     getEnvAsInt("START_FROM", 0),
		Delay:         getEnvAsDuration("DELAY", 5*time.Second),
		ProgressEvery: getEnvAsInt("PROGRESS_EVERY", 10),
		TextOnly:      getEnvAsBool("TEXT_ONLY", false),
		ImagesFolder:  getEnv("IMAGES_FOLDER", ""),
		DefaultImage:  getEnv("DEFAULT_IMAGE", ""),
		ImageCacheDir: getEnv("IMAGE_CACHE_DIR", ".image-cache"),

		WhatsAppURL:      getEnv("WHATSAPP_URL", "https://web.whatsapp.com"),
		ChromePath:       getEnv("CHROME_PATH", ""),
		ChromeProfileDir: getEnv("CHROME_PROFILE_DIR", "./chrome_profile"),
		Headless:         getEnvAsBool("HEADLESS", false),
		LoginTimeout:     getEnvAsDuration("LOGIN_TIMEOUT", 300*time.Second),
		ActionTimeout:    getEnvAsDuration("ACTION_TIMEOUT", 10*time.Second),
		CloseGrace:       getEnvAsDuration("CLOSE_GRACE", 5*time.Second),

		StatusAddr: getEnv("STATUS_ADDR", ""),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		JournalTTL:    getEnvAsDuration("JOURNAL_TTL", 30*24*time.Hour),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		NotifyEmail:       getEnv("NOTIFY_EMAIL", ""),
		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Campaign Sender"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
	}
}

// UsesS3 reports whether any configured image input points at S3.
func (c *Config) UsesS3() bool {
	return strings.HasPrefix(c.DefaultImage, "s3://") || strings.HasPrefix(c.ImagesFolder, "s3://")
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

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("15s") or a bare number of seconds ("15").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	if secs, err := strconv.ParseFloat(valueStr, 64); err == nil && secs >= 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}
