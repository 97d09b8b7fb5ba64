package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Addr                 string        `mapstructure:"APP_ADDR"`
	Environment          string        `mapstructure:"APP_ENV"`
	LogLevel             string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL          string        `mapstructure:"DATABASE_URL"`
	StorageDriver        string        `mapstructure:"STORAGE_DRIVER"`
	MigrationsDir        string        `mapstructure:"MIGRATIONS_DIR"`
	RunMigrations        bool          `mapstructure:"RUN_MIGRATIONS"`
	RunSeed              bool          `mapstructure:"RUN_SEED"`
	JWTSecret            string        `mapstructure:"JWT_SECRET"`
	DataEncryptionKey    string        `mapstructure:"DATA_ENCRYPTION_KEY"`
	AttachmentDir        string        `mapstructure:"ATTACHMENT_DIR"`
	MaxBodyBytes         int64         `mapstructure:"MAX_BODY_BYTES"`
	RateLimitPerMinute   int           `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	EmailEnabled         bool          `mapstructure:"EMAIL_ENABLED"`
	EmailFrom            string        `mapstructure:"EMAIL_FROM"`
	EmailProvider        string        `mapstructure:"EMAIL_PROVIDER"`
	SMTPHost             string        `mapstructure:"SMTP_HOST"`
	SMTPPort             int           `mapstructure:"SMTP_PORT"`
	SMTPUser             string        `mapstructure:"SMTP_USER"`
	SMTPPassword         string        `mapstructure:"SMTP_PASSWORD"`
	SMTPUseTLS           bool          `mapstructure:"SMTP_USE_TLS"`
	NotifyTransport      string        `mapstructure:"NOTIFY_TRANSPORT"`
	AWSRegion            string        `mapstructure:"AWS_REGION"`
	AWSEndpoint          string        `mapstructure:"AWS_ENDPOINT"`
	NotificationQueueURL string        `mapstructure:"NOTIFICATION_QUEUE_URL"`
	WorkerConcurrency    int           `mapstructure:"WORKER_CONCURRENCY"`
	TracingExporter      string        `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint         string        `mapstructure:"OTLP_ENDPOINT"`
	MetricsEnabled       bool          `mapstructure:"METRICS_ENABLED"`
	StandardWorkdayHours float64       `mapstructure:"STANDARD_WORKDAY_HOURS"`
	DefaultLocation      string        `mapstructure:"DEFAULT_LOCATION"`
	ShutdownTimeout      time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var defaults = map[string]any{
	"APP_ADDR":               ":8080",
	"APP_ENV":                "development",
	"LOG_LEVEL":              "info",
	"DATABASE_URL":           "",
	"STORAGE_DRIVER":         "postgres",
	"MIGRATIONS_DIR":         "migrations",
	"RUN_MIGRATIONS":         true,
	"RUN_SEED":               true,
	"JWT_SECRET":             "",
	"DATA_ENCRYPTION_KEY":    "",
	"ATTACHMENT_DIR":         "data/attachments",
	"MAX_BODY_BYTES":         10485760,
	"RATE_LIMIT_PER_MINUTE":  120,
	"EMAIL_ENABLED":          false,
	"EMAIL_FROM":             "no-reply@example.com",
	"EMAIL_PROVIDER":         "smtp",
	"SMTP_HOST":              "",
	"SMTP_PORT":              587,
	"SMTP_USER":              "",
	"SMTP_PASSWORD":          "",
	"SMTP_USE_TLS":           true,
	"NOTIFY_TRANSPORT":       "inline",
	"AWS_REGION":             "us-east-1",
	"AWS_ENDPOINT":           "",
	"NOTIFICATION_QUEUE_URL": "",
	"WORKER_CONCURRENCY":     4,
	"TRACING_EXPORTER":       "none",
	"OTLP_ENDPOINT":          "localhost:4317",
	"METRICS_ENABLED":        true,
	"STANDARD_WORKDAY_HOURS": 8.0,
	"DEFAULT_LOCATION":       "location_a",
	"SHUTDOWN_TIMEOUT":       "10s",
}

// Load reads every key from the environment, falling back to defaults.
func Load() (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c Config) UseMemoryStore() bool {
	return c.StorageDriver == "memory"
}

func (c Config) Validate() error {
	switch c.StorageDriver {
	case "postgres":
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case "memory":
	default:
		return fmt.Errorf("STORAGE_DRIVER must be postgres or memory")
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
		}
		if c.UseMemoryStore() {
			return fmt.Errorf("STORAGE_DRIVER=memory is not allowed in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.StandardWorkdayHours <= 0 || c.StandardWorkdayHours > 24 {
		return fmt.Errorf("STANDARD_WORKDAY_HOURS must be within (0, 24]")
	}
	if c.EmailEnabled {
		switch c.EmailProvider {
		case "smtp":
			if c.SMTPHost == "" {
				return fmt.Errorf("SMTP_HOST must be set when EMAIL_PROVIDER is smtp")
			}
		case "ses":
		default:
			return fmt.Errorf("EMAIL_PROVIDER must be smtp or ses")
		}
	}
	switch c.NotifyTransport {
	case "inline":
	case "sqs":
		if c.NotificationQueueURL == "" {
			return fmt.Errorf("NOTIFICATION_QUEUE_URL must be set when NOTIFY_TRANSPORT is sqs")
		}
	default:
		return fmt.Errorf("NOTIFY_TRANSPORT must be inline or sqs")
	}
	switch c.TracingExporter {
	case "none", "stdout", "otlp":
	default:
		return fmt.Errorf("TRACING_EXPORTER must be none, stdout or otlp")
	}
	return nil
}
