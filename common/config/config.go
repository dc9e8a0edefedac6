package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service  ServiceConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Jobs     JobsConfig
	Paths    PathsConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JobsConfig holds async job runner settings
type JobsConfig struct {
	// Type selects the runner backend: "redis" for normal operation,
	// "memory" for single-process setups and tests
	Type string
	// QueueName is the redis list jobs are pushed to
	QueueName string
	// StatusTTL bounds how long finished job status keys are kept
	StatusTTL time.Duration
	// PollTimeout is the BLPOP timeout of the worker loop
	PollTimeout time.Duration
}

// PathsConfig holds the on-disk roots the diff engine works against
type PathsConfig struct {
	// SourceDir is the root of checked-out package source trees
	SourceDir string
	// PatchDir is the root of imported image-comparison patch trees;
	// generated diff artifacts live under <PatchDir>/version-compare
	PatchDir string
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"), // Default to text for development
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "dissector"),
			User:        getEnv("POSTGRES_USER", "dissector"),
			Password:    getEnv("POSTGRES_PASSWORD", "dissector"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 50),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 10),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Jobs: JobsConfig{
			Type:        getEnv("JOBS_TYPE", "redis"),
			QueueName:   getEnv("JOBS_QUEUE", "dissector_jobs"),
			StatusTTL:   getEnvDuration("JOBS_STATUS_TTL", 24*time.Hour),
			PollTimeout: getEnvDuration("JOBS_POLL_TIMEOUT", 5*time.Second),
		},
		Paths: PathsConfig{
			SourceDir: getEnv("VERSION_COMPARE_SOURCE_DIR", "/srv/dissector/sources"),
			PatchDir:  getEnv("IMAGE_COMPARE_PATCH_DIR", "/srv/dissector/patches"),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	if c.Paths.SourceDir == "" {
		return fmt.Errorf("source dir is required")
	}

	if c.Paths.PatchDir == "" {
		return fmt.Errorf("patch dir is required")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// RedisAddr returns the host:port address of the Redis server
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
