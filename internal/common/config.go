package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration. It is read once at startup and
// never mutated afterwards.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Export   ExportConfig
	Log      LogConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string // postgres://... or a sqlite path; empty disables snapshots
	MaxConns        int32
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Languages     string
	Timeout       time.Duration
	PSM           int
	OEM           int
	DPI           int
	MaxFileMB     int
	Concurrency   int
	HeicConverter string
	TessdataDir   string
	Preprocess    bool
	Debug         bool
	DebugDir      string
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider         string // "bedrock" | "openai"
	Region           string
	ModelID          string
	ProfileARN       string
	OpusProfileARN   string
	MaxTokens        int
	Temperature      float32
	Timeout          time.Duration
	Concurrency      int
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	SchemaValidation bool
}

// ExportConfig holds output-related configuration
type ExportConfig struct {
	OutputDir     string
	BulkImportURL string
	BulkImportKey string
}

// LogConfig selects the slog handler used by the binaries.
type LogConfig struct {
	Level  string
	Format string // "text" | "json"
}

// LoadDotEnv loads .env style files into the process environment. Missing
// files are ignored; variables already set win.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		OCR: OCRConfig{
			Languages:     getEnv("OCR_LANGS", "eng+chi_sim"),
			Timeout:       getEnvAsMillisOrDuration("OCR_TIMEOUT", 150*time.Second),
			PSM:           getEnvAsInt("OCR_TESS_PSM", 6),
			OEM:           getEnvAsInt("OCR_TESS_OEM", 1),
			DPI:           getEnvAsInt("PDF_DPI", 300),
			MaxFileMB:     getEnvAsInt("OCR_MAX_FILE_MB", 50),
			Concurrency:   getEnvAsInt("OCR_CONCURRENCY", 2),
			HeicConverter: getEnv("HEIC_CONVERTER", "magick"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			Preprocess:    getEnvAsBool("OCR_PREPROCESS", true),
			Debug:         getEnvAsBool("OCR_DEBUG", false),
			DebugDir:      getEnv("OCR_DEBUG_DIR", "./ocr_debug"),
		},
		LLM: LLMConfig{
			Provider:         strings.ToLower(getEnv("LLM_PROVIDER", "bedrock")),
			Region:           firstEnv("us-east-1", "AWS_REGION", "AWS_BEDROCK_REGION"),
			ModelID:          firstEnv("", "BEDROCK_LIGHT_MODEL_ID", "BEDROCK_MODEL_ID"),
			ProfileARN:       getEnv("BEDROCK_PROFILE_ARN", ""),
			OpusProfileARN:   getEnv("BEDROCK_OPUS_PROFILE_ARN", ""),
			MaxTokens:        getEnvAsInt("LLM_MAX_TOKENS", 6000),
			Temperature:      getEnvAsFloat32("LLM_TEMPERATURE", 0.1),
			Timeout:          getEnvAsDuration("LLM_TIMEOUT", 180*time.Second),
			Concurrency:      getEnvAsInt("LLM_CONCURRENCY", 1),
			OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			SchemaValidation: getEnvAsBool("LLM_SCHEMA_VALIDATION", true),
		},
		Export: ExportConfig{
			OutputDir:     getEnv("OUTPUT_DIR", "./ocr_outputs"),
			BulkImportURL: getEnv("BULK_IMPORT_URL", ""),
			BulkImportKey: getEnv("BULK_IMPORT_API_KEY", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

// MaxFileBytes is the upload cap in bytes.
func (c OCRConfig) MaxFileBytes() int64 {
	return int64(c.MaxFileMB) << 20
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// firstEnv returns the first non-empty variable among keys.
func firstEnv(defaultValue string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsMillisOrDuration accepts "90s" style durations or a bare number of
// milliseconds, e.g. OCR_TIMEOUT=150000.
func getEnvAsMillisOrDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return getEnvAsDuration(key, defaultValue)
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("GRPC_ADDR", c.Server.GRPCAddr, Required).
		Field("OCR_LANGS", c.OCR.Languages, Required).
		Field("OCR_MAX_FILE_MB", c.OCR.MaxFileMB, Positive).
		Field("OCR_TIMEOUT", c.OCR.Timeout, Positive).
		Field("OCR_CONCURRENCY", c.OCR.Concurrency, Positive).
		Field("OCR_TESS_PSM", c.OCR.PSM, Between(0, 13)).
		Field("LLM_PROVIDER", c.LLM.Provider, OneOf("bedrock", "openai")).
		Field("LLM_MAX_TOKENS", c.LLM.MaxTokens, Positive).
		Field("LLM_CONCURRENCY", c.LLM.Concurrency, Positive)
	if c.LLM.Provider == "openai" {
		v.Field("OPENAI_API_KEY", c.LLM.OpenAIAPIKey, Required)
	} else {
		v.Field("AWS_REGION", c.LLM.Region, Required)
	}
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
