package common

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	Limits    LimitsConfig
	RateLimit RateLimitConfig
	Store     StoreConfig
	PDF       PDFConfig
	LogLevel  slog.Level
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string
	GRPCAddr       string
	RequestTimeout time.Duration
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// LimitsConfig bounds uploads and transcripts.
type LimitsConfig struct {
	MaxFileSizeMB           int
	MinWordCount            int
	MaxWordCount            int
	TranscriptWordThreshold int
}

// MaxFileSizeBytes is the upload ceiling in bytes.
func (l LimitsConfig) MaxFileSizeBytes() int64 {
	return int64(l.MaxFileSizeMB) * 1024 * 1024
}

// RateLimitConfig is accepted and reported but not enforced by this service.
type RateLimitConfig struct {
	RequestsPerMinute int
	Interval          time.Duration
	MaxTrackedIPs     int
}

// StoreConfig selects and configures the job store backend.
type StoreConfig struct {
	Backend       string // redis | sqlite | postgres | memory
	KeyPrefix     string
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
	PostgresDSN   string
	DialTimeout   time.Duration
}

// PDFConfig holds extraction settings.
type PDFConfig struct {
	Extractor      string // fitz | pdftotext
	PdftotextBin   string
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
}

// LoadConfig loads configuration from environment variables. A .env file in the working
// directory is read first when present; real environment variables win.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:       getEnv("GRPC_ADDR", ":9090"),
			RequestTimeout: getEnvAsDuration("HTTP_REQUEST_TIMEOUT", 5*time.Minute),
		},
		LLM: LLMConfig{
			Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Timeout: getEnvAsDuration("OPENAI_TIMEOUT", 90*time.Second),
		},
		Limits: LimitsConfig{
			MaxFileSizeMB:           getEnvAsPositiveInt("MAX_FILE_SIZE_MB", 25),
			MinWordCount:            getEnvAsPositiveInt("MIN_WORD_COUNT", 500),
			MaxWordCount:            getEnvAsPositiveInt("MAX_WORD_COUNT", 50000),
			TranscriptWordThreshold: getEnvAsPositiveInt("TRANSCRIPT_WORD_THRESHOLD", 15000),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvAsPositiveInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 10),
			Interval:          getEnvAsDuration("RATE_LIMIT_INTERVAL", 60*time.Second),
			MaxTrackedIPs:     getEnvAsPositiveInt("RATE_LIMIT_MAX_TRACKED_IPS", 500),
		},
		Store: StoreConfig{
			Backend:       strings.ToLower(getEnv("JOB_STORE", "redis")),
			KeyPrefix:     getEnv("JOB_KEY_PREFIX", "pdf-job:"),
			TTL:           getEnvAsDuration("JOB_TTL", 0),
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			SQLitePath:    getEnv("SQLITE_PATH", "./studydeck.db"),
			PostgresDSN:   getEnv("DB_URL", ""),
			DialTimeout:   getEnvAsDuration("STORE_DIAL_TIMEOUT", 5*time.Second),
		},
		PDF: PDFConfig{
			Extractor:      strings.ToLower(getEnv("PDF_EXTRACTOR", "fitz")),
			PdftotextBin:   getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Workers:        getEnvAsPositiveInt("PDF_WORKERS", 4),
			QueueSize:      getEnvAsPositiveInt("PDF_QUEUE_SIZE", 64),
			ProcessTimeout: getEnvAsDuration("PDF_PROCESS_TIMEOUT", 2*time.Minute),
		},
		LogLevel: getEnvAsLogLevel("LOG_LEVEL", slog.LevelInfo),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsPositiveInt treats zero and negative values as unparsable.
func getEnvAsPositiveInt(key string, defaultValue int) int {
	if v := getEnvAsInt(key, defaultValue); v > 0 {
		return v
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration >= 0 {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsLogLevel(key string, defaultValue slog.Level) slog.Level {
	var lvl slog.Level
	if value := os.Getenv(key); value != "" {
		if err := lvl.UnmarshalText([]byte(strings.TrimSpace(value))); err == nil {
			return lvl
		}
	}
	return defaultValue
}

// Validate reports every configuration problem at once. Callers decide whether a problem is
// fatal; the server keeps running with the affected component degraded.
func (c *Config) Validate() error {
	var errs []error
	if err := c.LLM.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Store.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Limits.MinWordCount > c.Limits.MaxWordCount {
		errs = append(errs, ConfigurationError(
			fmt.Sprintf("MIN_WORD_COUNT (%d) exceeds MAX_WORD_COUNT (%d)", c.Limits.MinWordCount, c.Limits.MaxWordCount), nil))
	}
	switch c.PDF.Extractor {
	case "fitz", "pdftotext":
	default:
		errs = append(errs, ConfigurationError(fmt.Sprintf("unknown PDF_EXTRACTOR %q", c.PDF.Extractor), nil))
	}
	return errors.Join(errs...)
}

// Validate checks provider credentials without contacting the provider.
func (c LLMConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ConfigurationError("OPENAI_API_KEY is required", nil)
	}
	if strings.TrimSpace(c.Model) == "" {
		return ConfigurationError("OPENAI_MODEL is required", nil)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ConfigurationError(fmt.Sprintf("OPENAI_BASE_URL %q is not a valid http(s) URL", c.BaseURL), err)
	}
	return nil
}

// Validate checks that the selected backend has what it needs to connect.
func (c StoreConfig) Validate() error {
	switch c.Backend {
	case "redis":
		if c.RedisAddr == "" {
			return ConfigurationError("REDIS_ADDR is required for the redis job store", nil)
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return ConfigurationError("SQLITE_PATH is required for the sqlite job store", nil)
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return ConfigurationError("DB_URL is required for the postgres job store", nil)
		}
	case "memory":
	default:
		return ConfigurationError(fmt.Sprintf("unknown JOB_STORE %q", c.Backend), nil)
	}
	return nil
}
