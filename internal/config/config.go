package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Logging
	LogLevel  string
	LogFormat string

	// Search
	DefaultMaxCombos int
	MaxCombosLimit   int
	MaxEntries       int
	SearchTimeout    time.Duration

	// Result cache
	ResultCacheSize int
	ResultCacheTTL  time.Duration

	// AMQP (optional)
	AMQPURL         string
	AMQPExchange    string
	AMQPQueue       string
	AMQPResultQueue string

	// Google Sheets entry source (optional)
	GoogleSpreadsheetID string
	GoogleSheetRange    string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DefaultMaxCombos: getEnvInt("DEFAULT_MAX_COMBOS", 500),
		MaxCombosLimit:   getEnvInt("MAX_COMBOS_LIMIT", 5000),
		MaxEntries:       getEnvInt("MAX_ENTRIES", 500),
		SearchTimeout:    getEnvDuration("SEARCH_TIMEOUT", 10*time.Second),

		ResultCacheSize: getEnvInt("RESULT_CACHE_SIZE", 256),
		ResultCacheTTL:  getEnvDuration("RESULT_CACHE_TTL", 10*time.Minute),

		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "combos"),
		AMQPQueue:       getEnv("AMQP_QUEUE", "search_requests"),
		AMQPResultQueue: getEnv("AMQP_RESULT_QUEUE", "search_results"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetRange:    getEnv("GOOGLE_SHEET_RANGE", "Entries!A:A"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !oneOf(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}
	validFormats := []string{"text", "json"}
	if !oneOf(validFormats, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}

	// Validate search limits
	if c.MaxCombosLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid max combos limit %d: must be at least 1", c.MaxCombosLimit))
	}
	if c.DefaultMaxCombos < 1 {
		errors = append(errors, fmt.Sprintf("invalid default max combos %d: must be at least 1", c.DefaultMaxCombos))
	} else if c.MaxCombosLimit >= 1 && c.DefaultMaxCombos > c.MaxCombosLimit {
		errors = append(errors, fmt.Sprintf("invalid default max combos %d: exceeds limit %d", c.DefaultMaxCombos, c.MaxCombosLimit))
	}
	if c.MaxEntries < 1 {
		errors = append(errors, fmt.Sprintf("invalid max entries %d: must be at least 1", c.MaxEntries))
	} else if c.MaxEntries > 10000 {
		errors = append(errors, fmt.Sprintf("invalid max entries %d: must be at most 10000", c.MaxEntries))
	}
	if c.SearchTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid search timeout %v: must be at least 100ms", c.SearchTimeout))
	} else if c.SearchTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid search timeout %v: must be at most 5 minutes", c.SearchTimeout))
	}

	// Validate result cache
	if c.ResultCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid result cache size %d: must not be negative", c.ResultCacheSize))
	}
	if c.ResultCacheSize > 0 && c.ResultCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid result cache TTL %v: must be at least 1 second", c.ResultCacheTTL))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPResultQueue == "" {
			errors = append(errors, "AMQP result queue name cannot be empty when AMQP URL is provided")
		} else if c.AMQPResultQueue == c.AMQPQueue {
			errors = append(errors, "AMQP result queue must differ from the request queue")
		}
	}

	// Validate Google Sheets source if enabled
	if c.GoogleSpreadsheetID != "" && !strings.Contains(c.GoogleSheetRange, "!") {
		errors = append(errors, fmt.Sprintf("invalid sheet range '%s': must look like 'Sheet!A:A'", c.GoogleSheetRange))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// AsyncEnabled reports whether searches can be queued over AMQP.
func (c *Config) AsyncEnabled() bool {
	return c.AMQPURL != ""
}

// SheetsEnabled reports whether the spreadsheet entry source is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

func oneOf(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
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
