package config

import (
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/RishiKendai/codenest/internal/configs/env"
	"github.com/RishiKendai/codenest/internal/features"
)

// Config holds all configuration for the application
type Config struct {
	// MongoDB
	MongoURI    string
	MongoDBName string

	// Redis
	RedisHost               string
	RedisPassword           string
	RedisStreamKey          string
	RedisConsumerGroup      string
	RedisDeadLetterKey      string
	StreamRetentionDuration time.Duration

	// JWT
	JWTSecret string
	JWTIssuer string

	// Rate Limiting
	RateLimitRPS float64

	// Concurrency
	MaxConcurrentCompute int
	ExtractConcurrency   int

	// Computation
	ComputationTimeout time.Duration

	// Feature extraction
	DecodePolicy    features.DecodePolicy
	ExcludePatterns []string

	// Classifier
	ModelPath string

	// Logging
	LogLevel string

	// Server
	ServerPort  string
	MetricsPort string
}

func Load() (*Config, error) {
	cfg := &Config{}

	// MongoDB
	cfg.MongoURI = env.GetEnv("MONGO_URI", "")
	cfg.MongoDBName = env.GetEnv("MONGO_DB_NAME", "")

	// Redis
	cfg.RedisHost = env.GetEnv("REDIS_HOST", "localhost:6379")
	cfg.RedisPassword = env.GetEnv("REDIS_PASSWORD", "")
	cfg.RedisStreamKey = env.GetEnv("REDIS_STREAM_KEY", "codenest:batches")
	cfg.RedisConsumerGroup = env.GetEnv("REDIS_CONSUMER_GROUP", "codenest:group")
	cfg.RedisDeadLetterKey = env.GetEnv("REDIS_DEAD_LETTER_KEY", "codenest:dlq")
	retentionHours := env.GetEnvInt("STREAM_RETENTION_DURATION", 24)
	cfg.StreamRetentionDuration = time.Duration(retentionHours) * time.Hour

	// JWT
	cfg.JWTSecret = env.GetEnv("JWT_SECRET", "")
	cfg.JWTIssuer = env.GetEnv("JWT_ISSUER", "codenest")

	// Rate Limiting
	cfg.RateLimitRPS = env.GetEnvFloat("RATE_LIMIT_RPS", 10.0)

	// Concurrency
	cfg.MaxConcurrentCompute = env.GetEnvInt("MAX_CONCURRENT_COMPUTE", 5)
	cfg.ExtractConcurrency = env.GetEnvInt("EXTRACT_CONCURRENCY", 4)

	// Computation
	timeoutMinutes := env.GetEnvInt("COMPUTATION_TIMEOUT_MINUTES", 30)
	cfg.ComputationTimeout = time.Duration(timeoutMinutes) * time.Minute

	// Feature extraction
	policy, err := features.ParseDecodePolicy(env.GetEnv("DECODE_ERROR_POLICY", string(features.DecodeSkip)))
	if err != nil {
		return nil, fmt.Errorf("invalid DECODE_ERROR_POLICY: %w", err)
	}
	cfg.DecodePolicy = policy
	cfg.ExcludePatterns = env.GetEnvList("EXCLUDE_PATTERNS")

	// Classifier
	cfg.ModelPath = env.GetEnv("MODEL_PATH", "models/classifier.json")

	// Logging
	cfg.LogLevel = env.GetEnv("LOG_LEVEL", "info")

	// Server
	cfg.ServerPort = env.GetEnv("SERVER_PORT", "8080")
	cfg.MetricsPort = env.GetEnv("METRICS_PORT", "2112")

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.MongoDBName == "" {
		return fmt.Errorf("MONGO_DB_NAME is required")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.MaxConcurrentCompute <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_COMPUTE must be greater than 0")
	}
	if c.ExtractConcurrency <= 0 {
		return fmt.Errorf("EXTRACT_CONCURRENCY must be greater than 0")
	}
	if c.ComputationTimeout <= 0 {
		return fmt.Errorf("COMPUTATION_TIMEOUT_MINUTES must be greater than 0")
	}
	if c.StreamRetentionDuration <= 0 {
		return fmt.Errorf("STREAM_RETENTION_DURATION must be greater than 0")
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be greater than 0")
	}
	if c.ServerPort == c.MetricsPort {
		return fmt.Errorf("SERVER_PORT and METRICS_PORT must differ")
	}
	for _, pattern := range c.ExcludePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid EXCLUDE_PATTERNS entry %q", pattern)
		}
	}
	return nil
}

// FeatureOptions returns the extraction settings for the feature aggregator
func (c *Config) FeatureOptions() features.Options {
	return features.Options{
		DecodePolicy:    c.DecodePolicy,
		ExcludePatterns: c.ExcludePatterns,
	}
}
