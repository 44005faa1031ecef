package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// MailConfig holds every mail-provider setting. Which provider is used is
// decided once at startup by email.SelectProvider.
type MailConfig struct {
	// Option 1: custom SMTP server
	SMTPHost   string
	SMTPPort   int `validate:"min=1,max=65535"`
	SMTPSecure bool
	SMTPUser   string
	SMTPPass   string
	// Option 2: Gmail with an app-specific password
	GmailUser        string
	GmailAppPassword string
	// Option 3: SendGrid HTTP API
	SendGridAPIKey   string
	SendGridEndpoint string `validate:"required,url"`
	// Fallback: Ethereal sandbox (non-production only)
	EtherealUser string
	EtherealPass string

	FromEmail        string `validate:"required,email"`
	ToEmail          string `validate:"required,email"`
	SendConfirmation bool
	SendTimeout      time.Duration `validate:"gt=0"`
	QueueSize        int           `validate:"min=1"`
	QueueWorkers     int           `validate:"min=1"`
}

type Config struct {
	Port           string   `validate:"required,numeric"`
	GinMode        string   `validate:"omitempty,oneof=debug release test"`
	AllowedOrigins []string `validate:"dive,required"`
	TrustedProxies []string
	StaticDir      string
	SiteName       string `validate:"required"`
	SiteURL        string `validate:"required,url"`
	// DefaultLanguage is used when a request carries no usable Accept-Language
	DefaultLanguage string `validate:"oneof=de en"`
	MaxBodyBytes    int64  `validate:"min=1024"`
	MetricsEnabled  bool

	Mail MailConfig

	// Redis/Upstash Configuration
	RedisURL      string
	RedisPassword string
	// Rate Limiting Configuration
	ContactRateLimitMax    int           `validate:"min=1"`
	ContactRateLimitWindow time.Duration `validate:"gt=0"`
	RateLimitFailClosed    bool
	// Spam protection
	SpamMinFillTime  time.Duration `validate:"gte=0"`
	SpamKeywords     []string
	SpamKeywordsFile string
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

func LoadConfig() (*Config, error) {
	// .env is optional; production containers get real environment variables
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "3000"),
		GinMode:         getEnv("GIN_MODE", "debug"),
		AllowedOrigins:  splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		TrustedProxies:  splitList(getEnv("TRUSTED_PROXIES", "")),
		StaticDir:       getEnv("STATIC_DIR", ""),
		SiteName:        getEnv("SITE_NAME", "Erinnerungslicht"),
		SiteURL:         strings.TrimRight(getEnv("SITE_URL", "https://erinnerungslicht.de"), "/"),
		DefaultLanguage: strings.ToLower(getEnv("DEFAULT_LANGUAGE", "de")),
		MaxBodyBytes:    int64(getEnvInt("MAX_BODY_BYTES", 64*1024)),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		Mail: MailConfig{
			SMTPHost:         getEnv("SMTP_HOST", ""),
			SMTPPort:         getEnvInt("SMTP_PORT", 587),
			SMTPSecure:       getEnvBool("SMTP_SECURE", false),
			SMTPUser:         getEnv("SMTP_USER", ""),
			SMTPPass:         getEnv("SMTP_PASS", ""),
			GmailUser:        getEnv("GMAIL_USER", ""),
			GmailAppPassword: getEnv("GMAIL_APP_PASSWORD", ""),
			SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
			SendGridEndpoint: getEnv("SENDGRID_ENDPOINT", "https://api.sendgrid.com/v3/mail/send"),
			EtherealUser:     getEnv("ETHEREAL_USER", "ethereal.user@ethereal.email"),
			EtherealPass:     getEnv("ETHEREAL_PASS", "ethereal.pass"),
			FromEmail:        getEnv("FROM_EMAIL", "noreply@erinnerungslicht.de"),
			ToEmail:          getEnv("TO_EMAIL", "info@erinnerungslicht.de"),
			SendConfirmation: getEnvBool("SEND_CONFIRMATION", false),
			SendTimeout:      getEnvSeconds("MAIL_SEND_TIMEOUT_SECONDS", 15*time.Second),
			QueueSize:        getEnvInt("CONFIRMATION_QUEUE_SIZE", 64),
			QueueWorkers:     getEnvInt("CONFIRMATION_WORKERS", 2),
		},
		RedisURL:               getEnv("REDIS_URL", getEnv("UPSTASH_REDIS_URL", "")),
		RedisPassword:          getEnv("REDIS_PASSWORD", getEnv("UPSTASH_REDIS_PASSWORD", "")),
		ContactRateLimitMax:    getEnvInt("CONTACT_RATE_LIMIT_MAX", 5),
		ContactRateLimitWindow: getEnvSeconds("CONTACT_RATE_LIMIT_WINDOW_SECONDS", 15*time.Minute),
		RateLimitFailClosed:    getEnvBool("RATE_LIMIT_FAIL_CLOSED", false),
		SpamMinFillTime:        time.Duration(getEnvInt("SPAM_MIN_FILL_MS", 3000)) * time.Millisecond,
		SpamKeywords:           splitList(getEnv("SPAM_KEYWORDS", "")),
		SpamKeywordsFile:       getEnv("SPAM_KEYWORDS_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.RedisURL == "" {
		log.Println("WARNING: REDIS_URL not configured. Rate limiting will use in-memory windows.")
	}

	return cfg, nil
}

// Validate checks the struct tags on Config and MailConfig.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool returns a boolean environment variable or fallback if not set/invalid
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvSeconds reads a whole number of seconds.
func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if secs, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
