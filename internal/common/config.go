package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Gateway  GatewayConfig
	Outreach OutreachConfig
	Database DatabaseConfig
	Server   ServerConfig
	Worker   WorkerConfig
}

// GatewayConfig holds the client side view of the backend gateway.
type GatewayConfig struct {
	BaseURL             string        `validate:"required,url"`
	Timeout             time.Duration `validate:"gt=0"`
	Kind                string        `validate:"required"`
	OverviewConcurrency int           `validate:"gte=1,lte=64"`
}

// OutreachConfig holds the third-party dialing/campaign API settings.
type OutreachConfig struct {
	BaseURL   string `validate:"omitempty,url"`
	APIKey    string `validate:"required_with=BaseURL"`
	KeyHeader string `validate:"required"`
	// CampaignID is used for rows that do not name their own campaign.
	CampaignID string
}

// Enabled reports whether the outreach provider is configured.
func (o OutreachConfig) Enabled() bool {
	return o.BaseURL != "" && o.APIKey != ""
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string `validate:"required"`
	MaxConns        int32  `validate:"gte=1"`
	MinConns        int32  `validate:"gte=0,ltefield=MaxConns"`
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration `validate:"gt=0"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string `validate:"required"`
	GRPCAddr string `validate:"required"`
}

// WorkerConfig sizes the gateway's row processing queue.
type WorkerConfig struct {
	Workers        int           `validate:"gte=1"`
	QueueSize      int           `validate:"gte=1"`
	ProcessTimeout time.Duration `validate:"gt=0"`
	RowDelay       time.Duration `validate:"gte=0"`
}

// LoadConfig loads configuration from environment variables. A .env file in the working
// directory is read first when present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Gateway: GatewayConfig{
			BaseURL:             strings.TrimRight(getEnv("GATEWAY_BASE_URL", ""), "/"),
			Timeout:             getEnvAsDuration("GATEWAY_TIMEOUT", 30*time.Second),
			Kind:                getEnv("AUTOMATION_KIND", "legal"),
			OverviewConcurrency: getEnvAsInt("OVERVIEW_CONCURRENCY", 4),
		},
		Outreach: OutreachConfig{
			BaseURL:   strings.TrimRight(getEnv("OUTREACH_BASE_URL", ""), "/"),
			APIKey:    getEnv("OUTREACH_API_KEY", ""),
			KeyHeader: getEnv("OUTREACH_API_KEY_HEADER", "X-Api-Key"),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", "file:automations.db"),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8081"),
			GRPCAddr: getEnv("GRPC_ADDR", ":9090"),
		},
		Worker: WorkerConfig{
			Workers:        getEnvAsInt("WORKERS", 4),
			QueueSize:      getEnvAsInt("QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 3*time.Minute),
			RowDelay:       getEnvAsDuration("ROW_DELAY", 0),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

var validate = validator.New()

// ValidateClient validates the settings the CLI and client packages need.
func (c *Config) ValidateClient() error {
	if err := validateStruct(c.Gateway, CodeConfig); err != nil {
		return err
	}
	return validateStruct(c.Outreach, CodeConfig)
}

// ValidateServer validates the settings the reference gateway needs.
func (c *Config) ValidateServer() error {
	for _, s := range []any{c.Database, c.Server, c.Worker, c.Outreach} {
		if err := validateStruct(s, CodeConfig); err != nil {
			return err
		}
	}
	return nil
}

func validateStruct(s any, code string) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewAppError(code, "validation failed", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed '%s'", fe.Namespace(), fe.Tag()))
	}
	return NewAppError(code, strings.Join(msgs, "; "), ErrInvalidInput)
}

// ValidateRequest runs the shared validator over a decoded gateway request body.
func ValidateRequest(s any) error {
	return validateStruct(s, CodeInvalidInput)
}
