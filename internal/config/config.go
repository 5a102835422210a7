package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config keeps runtime settings for the API server and its batch jobs.
type Config struct {
	Port     string
	AppEnv   string
	AppURL   string
	LogLevel string
	Timezone string

	DatabaseDriver string
	DatabaseURL    string

	SessionSecret string

	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	SMTPFrom   string
	SMTPSecure bool

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	TelegramToken string

	AMQPURL      string
	AMQPExchange string

	ReportSchedule    string
	ReminderSchedule  string
	OverspendSchedule string
	JobTimeout        time.Duration
}

// Load reads configuration from a .env file (if present) and environment
// variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:     getEnv("PORT", "8080"),
		AppEnv:   getEnv("APP_ENV", "development"),
		AppURL:   getEnv("APP_URL", "http://localhost:8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("TIMEZONE", "UTC"),

		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:    getEnv("DATABASE_URL", "walletwatch.db"),

		SessionSecret: getEnv("SESSION_SECRET", ""),

		SMTPHost:   getEnv("SMTP_HOST", ""),
		SMTPPort:   getEnvInt("SMTP_PORT", 587),
		SMTPUser:   getEnv("SMTP_USER", ""),
		SMTPPass:   getEnv("SMTP_PASS", ""),
		SMTPFrom:   getEnv("SMTP_FROM", ""),
		SMTPSecure: getEnv("SMTP_SECURE", "false") == "true",

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", ""),

		TelegramToken: getEnv("TELEGRAM_TOKEN", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "walletwatch"),

		ReportSchedule:    getEnv("REPORT_SCHEDULE", "0 0 10 1 * *"),
		ReminderSchedule:  getEnv("REMINDER_SCHEDULE", "0 0 20 * * *"),
		OverspendSchedule: getEnv("OVERSPEND_SCHEDULE", "0 0 9 * * *"),
		JobTimeout:        getEnvDuration("JOB_TIMEOUT", 5*time.Minute),
	}

	if cfg.GoogleRedirectURI == "" {
		cfg.GoogleRedirectURI = strings.TrimRight(cfg.AppURL, "/") + "/auth/google/callback"
	}

	return cfg, cfg.Validate()
}

// Production reports whether APP_ENV is production.
func (c Config) Production() bool {
	return c.AppEnv == "production"
}

func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Location resolves TIMEZONE.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Validate returns every problem found, joined into one error.
func (c Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DatabaseDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required for the postgres driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid database driver '%s': must be sqlite or postgres", c.DatabaseDriver))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.Production() && len(c.SessionSecret) < 32 {
		problems = append(problems, "SESSION_SECRET must be at least 32 characters in production")
	}

	if c.SMTPHost != "" {
		if c.SMTPFrom == "" {
			problems = append(problems, "SMTP_FROM is required when SMTP_HOST is set")
		}
		if c.SMTPPort < 1 || c.SMTPPort > 65535 {
			problems = append(problems, fmt.Sprintf("invalid SMTP port %d", c.SMTPPort))
		}
	}

	if (c.GoogleClientID == "") != (c.GoogleClientSecret == "") {
		problems = append(problems, "GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together")
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"REPORT_SCHEDULE":    c.ReportSchedule,
		"REMINDER_SCHEDULE":  c.ReminderSchedule,
		"OVERSPEND_SCHEDULE": c.OverspendSchedule,
	} {
		if _, err := parser.Parse(spec); err != nil {
			problems = append(problems, fmt.Sprintf("invalid %s '%s': %v", name, spec, err))
		}
	}

	if c.JobTimeout < time.Second {
		problems = append(problems, fmt.Sprintf("invalid job timeout %v: must be at least 1 second", c.JobTimeout))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
