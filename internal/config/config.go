package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/futig/formchat-backend/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr     string        `env:"SERVER_ADDR" envDefault:":5000"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5m"`

	// External service configurations
	LLMConnectorCfg      LLMConnectorConfig      `envPrefix:"LLM_"`
	CallbackConnectorCfg CallbackConnectorConfig `envPrefix:"CALLBACK_"`

	// Logging configuration
	LogLevel string    `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  LogConfig `envPrefix:"LOG_FILE_"`

	// File upload configuration
	FileUploadCfg FileUploadConfig `envPrefix:"FILE_UPLOAD_"`

	// Conversation configuration
	ConversationCfg ConversationConfig `envPrefix:"CONVERSATION_"`

	// Finalizer configuration
	FinalizerCfg FinalizerConfig `envPrefix:"FINALIZER_"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Telegram bot configuration (optional)
	TelegramCfg TelegramConfig `envPrefix:"TELEGRAM_"`

	// Environment (set from flag, not from env var)
	Environment string
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken        string `env:"BOT_TOKEN"`
	UpdateTimeout   int    `env:"UPDATE_TIMEOUT" envDefault:"60"`
	DefaultLanguage string `env:"DEFAULT_LANGUAGE" envDefault:"english"`
	ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"30"` // seconds

	// Rate limiting
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"20"`
	RateLimitBurst     int `env:"RATE_LIMIT_BURST" envDefault:"5"`

	// How long a chat keeps its /language choice
	PreferenceTTL time.Duration `env:"PREFERENCE_TTL" envDefault:"720h"`
}

type LLMConnectorConfig struct {
	HTTPClientConfig
	CompletionEndpoint string        `env:"COMPLETION_ENDPOINT" envDefault:"/v1/chat/completions"`
	Model              string        `env:"MODEL" envDefault:"local-model"`
	Temperature        float64       `env:"TEMPERATURE" envDefault:"0.7"`
	MaxTokens          int           `env:"MAX_TOKENS" envDefault:"0"`
	CompletionTimeout  time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"60s"`
}

type CallbackConnectorConfig struct {
	HTTPClientConfig
	CallbackEndpoint string `env:"ENDPOINT"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"60s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"60s"`
	TLSHandshakeTimeout   time.Duration `env:"TLS_HANDSHAKE_TIMEOUT" envDefault:"10s"`
	MaxResponseSize       int64         `env:"MAX_RESPONSE_SIZE" envDefault:"8388608"` // 8 MiB, 0 disables
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL"`
}

// LogConfig configures the optional rotating log file
type LogConfig struct {
	Path       string `env:"PATH"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB" envDefault:"10"`
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"MAX_AGE_DAYS" envDefault:"30"`
}

// FileUploadConfig holds file upload limits
type FileUploadConfig struct {
	MaxFileSize   int64 `env:"MAX_FILE_SIZE" envDefault:"10485760"`   // 10 MiB
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"33554432"` // 32 MiB
}

// ConversationConfig holds conversation engine settings
type ConversationConfig struct {
	PivotLanguage    string        `env:"PIVOT_LANGUAGE" envDefault:"english"`
	DefaultSessionID string        `env:"DEFAULT_SESSION_ID" envDefault:"default"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	DownloadPrefix   string        `env:"DOWNLOAD_PREFIX" envDefault:"/download/"`
}

// FinalizerConfig holds artifact output settings
type FinalizerConfig struct {
	OutputDir        string               `env:"OUTPUT_DIR" envDefault:"temp"`
	TranscriptFormat string               `env:"TRANSCRIPT_FORMAT" envDefault:"txt"`
	ArtifactTTL      time.Duration        `env:"ARTIFACT_TTL" envDefault:"24h"`
	Retry            pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}

	cfg.Environment = *envFlag

	return cfg, nil
}

// Parse reads the configuration from the process environment and validates it
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

var transcriptFormats = map[string]bool{
	"txt":      true,
	"markdown": true,
	"pdf":      true,
	"docx":     true,
}

func validateConfig(cfg *Config) error {
	var errors []string

	if !cfg.EnableMocks && cfg.LLMConnectorCfg.Url == "" {
		errors = append(errors, "LLM_SERVICE_URL is required unless ENABLE_MOCKS is set")
	}

	if cfg.LLMConnectorCfg.Temperature < 0 || cfg.LLMConnectorCfg.Temperature > 2 {
		errors = append(errors, fmt.Sprintf("LLM_TEMPERATURE must be between 0 and 2, got %v", cfg.LLMConnectorCfg.Temperature))
	}

	if cfg.LLMConnectorCfg.CompletionTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("LLM_COMPLETION_TIMEOUT must be positive, got %s", cfg.LLMConnectorCfg.CompletionTimeout))
	}

	if strings.TrimSpace(cfg.ConversationCfg.PivotLanguage) == "" {
		errors = append(errors, "CONVERSATION_PIVOT_LANGUAGE must not be empty")
	}

	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("REQUEST_TIMEOUT must be positive, got %s", cfg.RequestTimeout))
	}

	if cfg.ConversationCfg.SessionTTL <= 0 {
		errors = append(errors, fmt.Sprintf("CONVERSATION_SESSION_TTL must be positive, got %s", cfg.ConversationCfg.SessionTTL))
	}

	if !transcriptFormats[cfg.FinalizerCfg.TranscriptFormat] {
		errors = append(errors, fmt.Sprintf("FINALIZER_TRANSCRIPT_FORMAT must be one of txt, markdown, pdf, docx, got %q", cfg.FinalizerCfg.TranscriptFormat))
	}

	if cfg.FinalizerCfg.ArtifactTTL <= 0 {
		errors = append(errors, fmt.Sprintf("FINALIZER_ARTIFACT_TTL must be positive, got %s", cfg.FinalizerCfg.ArtifactTTL))
	}

	if cfg.FileUploadCfg.MaxFileSize <= 0 || cfg.FileUploadCfg.MaxFileSize > cfg.FileUploadCfg.MaxUploadSize {
		errors = append(errors, fmt.Sprintf("FILE_UPLOAD_MAX_FILE_SIZE must be between 1 and FILE_UPLOAD_MAX_UPLOAD_SIZE(%d), got %d", cfg.FileUploadCfg.MaxUploadSize, cfg.FileUploadCfg.MaxFileSize))
	}

	if cfg.TelegramCfg.RateLimitPerMinute <= 0 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_RATE_LIMIT_PER_MINUTE must be positive, got %d", cfg.TelegramCfg.RateLimitPerMinute))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
