package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the service configuration, read from environment variables.
type Config struct {
	Port string

	// Postgres
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string

	// optional infrastructure; empty disables it
	RedisAddr     string
	RedisPassword string
	MongoURI      string
	MongoDatabase string

	JWTSecret       string
	UploadSecret    string
	PublicBaseURL   string
	BlobDir         string
	AllowedOrigins  []string
	MaxArtifactSize int64

	Provider           string
	PromptVersionID    string
	EvaluatorVersionID string

	Cooldown                   time.Duration
	UploadURLTTL               time.Duration
	InProgressTimeout          time.Duration
	UploadedUnsubmittedTimeout time.Duration
	ProcessingStaleAfter       time.Duration
	StageTimeout               time.Duration
	StageMaxRetries            int
	RetryBackoff               time.Duration
	PipelineWorkers            int
	PipelineQueueSize          int
	SweepSchedule              string
}

// loads configuration from environment variables
func LoadConfig() (*Config, error) {
	var errs []error
	config := &Config{
		Port:       getEnvOrDefault("PORT", "8080"),
		DBHost:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
		DBUser:     getEnvOrDefault("POSTGRES_USER", "postgres"),
		DBPassword: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
		DBName:     getEnvOrDefault("POSTGRES_DB", "postgres"),
		DBPort:     getEnvOrDefault("POSTGRES_PORT", "5432"),
		DBSSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDatabase: getEnvOrDefault("MONGO_DB", "interview"),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		UploadSecret:   os.Getenv("UPLOAD_SIGNING_SECRET"),
		PublicBaseURL:  getEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:8080/api/v1/interview"),
		BlobDir:        getEnvOrDefault("BLOB_DIR", "./data/recordings"),
		AllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),

		Provider:           getEnvOrDefault("AI_PROVIDER", "gemini"),
		PromptVersionID:    getEnvOrDefault("PROMPT_VERSION_ID", "pv-2024-default"),
		EvaluatorVersionID: getEnvOrDefault("EVALUATOR_VERSION_ID", "ev-2024-default"),

		SweepSchedule: getEnvOrDefault("SWEEP_SCHEDULE", "@every 1m"),
	}

	config.MaxArtifactSize = getInt64(&errs, "MAX_ARTIFACT_BYTES", 512<<20)
	config.Cooldown = getDuration(&errs, "COOLDOWN_WINDOW", 24*time.Hour)
	config.UploadURLTTL = getDuration(&errs, "UPLOAD_URL_TTL", 30*time.Minute)
	config.InProgressTimeout = getDuration(&errs, "IN_PROGRESS_TIMEOUT", 2*time.Hour)
	config.UploadedUnsubmittedTimeout = getDuration(&errs, "UPLOADED_UNSUBMITTED_TIMEOUT", time.Hour)
	config.ProcessingStaleAfter = getDuration(&errs, "PROCESSING_STALE_AFTER", 15*time.Minute)
	config.StageTimeout = getDuration(&errs, "STAGE_TIMEOUT", 2*time.Minute)
	config.StageMaxRetries = getInt(&errs, "STAGE_MAX_RETRIES", 3)
	config.RetryBackoff = getDuration(&errs, "STAGE_RETRY_BACKOFF", 5*time.Second)
	config.PipelineWorkers = getInt(&errs, "PIPELINE_WORKERS", 4)
	config.PipelineQueueSize = getInt(&errs, "PIPELINE_QUEUE_SIZE", 256)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// DSN returns the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

func validateConfig(config *Config) error {
	if config.Provider != "gemini" {
		return errors.New("unsupported AI provider: " + config.Provider + ". Currently supported: gemini")
	}
	// Gemini credentials are checked by gemini.NewConfig()
	if config.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if config.UploadSecret == "" {
		return errors.New("UPLOAD_SIGNING_SECRET is required")
	}
	if config.UploadSecret == config.JWTSecret {
		return errors.New("UPLOAD_SIGNING_SECRET must differ from JWT_SECRET")
	}
	if config.StageMaxRetries < 1 {
		return errors.New("STAGE_MAX_RETRIES must be at least 1")
	}
	if config.PipelineWorkers < 1 {
		return errors.New("PIPELINE_WORKERS must be at least 1")
	}
	if config.StageTimeout <= 0 || config.UploadURLTTL <= 0 {
		return errors.New("STAGE_TIMEOUT and UPLOAD_URL_TTL must be positive")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(errs *[]error, key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}

func getInt(errs *[]error, key string, defaultValue int) int {
	return int(getInt64(errs, key, int64(defaultValue)))
}

func getInt64(errs *[]error, key string, defaultValue int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
