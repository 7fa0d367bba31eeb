package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP (reminder notifications)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Tagging service
	OpenAIAPIKey   string
	OpenAIModel    string
	TaggingTimeout time.Duration

	// SMTP (reminder delivery, used by the reminder worker)
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// Engine
	ProcessorInterval    time.Duration
	CatchUpMaxOccurrence int
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8082"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/budgetwise.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budgetwise"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "recurring_reminders"),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		TaggingTimeout: getEnvDuration("TAGGING_TIMEOUT", 10*time.Second),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "no-reply@budgetwise.local"),

		ProcessorInterval:    getEnvDuration("RECURRING_PROCESSOR_INTERVAL", 24*time.Hour),
		CatchUpMaxOccurrence: getEnvInt("CATCHUP_MAX_OCCURRENCES", 100),
	}
}

// Validate checks the configuration and returns a combined error if invalid.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		problems = append(problems, "SQLite database path cannot be empty")
	} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				problems = append(problems, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SMTPHost != "" {
		if port, err := strconv.Atoi(c.SMTPPort); err != nil || port < 1 || port > 65535 {
			problems = append(problems, fmt.Sprintf("invalid SMTP port '%s'", c.SMTPPort))
		}
		if c.SMTPFrom == "" {
			problems = append(problems, "SMTP sender address cannot be empty when SMTP host is provided")
		}
	}

	if c.TaggingTimeout < time.Second || c.TaggingTimeout > time.Minute {
		problems = append(problems, fmt.Sprintf("invalid tagging timeout %v: must be between 1s and 1m", c.TaggingTimeout))
	}

	if c.ProcessorInterval < time.Minute {
		problems = append(problems, fmt.Sprintf("invalid processor interval %v: must be at least 1 minute", c.ProcessorInterval))
	} else if c.ProcessorInterval > 7*24*time.Hour {
		problems = append(problems, fmt.Sprintf("invalid processor interval %v: must be at most 7 days", c.ProcessorInterval))
	}

	if c.CatchUpMaxOccurrence < 1 {
		problems = append(problems, fmt.Sprintf("invalid catch-up cap %d: must be at least 1", c.CatchUpMaxOccurrence))
	} else if c.CatchUpMaxOccurrence > 10000 {
		problems = append(problems, fmt.Sprintf("invalid catch-up cap %d: must be at most 10000", c.CatchUpMaxOccurrence))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
