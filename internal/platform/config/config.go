package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Addr            string        `env:"APP_ADDR" envDefault:":8080"`
	Environment     string        `env:"APP_ENV" envDefault:"development"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	JWTSecret       string        `env:"JWT_SECRET"`
	TokenTTL        time.Duration `env:"TOKEN_TTL" envDefault:"12h"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	ApprovalThreshold      decimal.Decimal `env:"APPROVAL_THRESHOLD" envDefault:"1000"`
	AllowPendingEdits      bool            `env:"ALLOW_PENDING_EDITS" envDefault:"true"`
	PrivilegedPendingEdits bool            `env:"PRIVILEGED_PENDING_EDITS" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisChannel  string `env:"REDIS_CHANNEL" envDefault:"expenseflow.notifications"`

	AppBaseURL   string `env:"APP_BASE_URL"`
	EmailFrom    string `env:"EMAIL_FROM" envDefault:"no-reply@example.com"`
	EmailEnabled bool   `env:"EMAIL_ENABLED" envDefault:"false"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"true"`

	RunMigrations  bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	RunSeed        bool   `env:"RUN_SEED" envDefault:"true"`
	SeedAdminEmail string `env:"SEED_ADMIN_EMAIL"`

	MaxBodyBytes       int64 `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	RateLimitPerMinute int   `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	JobQueueSize       int   `env:"JOB_QUEUE_SIZE" envDefault:"128"`
	MetricsEnabled     bool  `env:"METRICS_ENABLED" envDefault:"true"`

	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile         string `env:"LOG_FILE"`
	OTelEndpoint    string `env:"OTEL_ENDPOINT"`
	OTelServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"expenseflow"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if c.ApprovalThreshold.IsNegative() {
		return fmt.Errorf("APPROVAL_THRESHOLD must not be negative")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.JobQueueSize <= 0 {
		return fmt.Errorf("JOB_QUEUE_SIZE must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}
