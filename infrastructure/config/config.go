package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends selectable with STORAGE_BACKEND.
const (
	StorageDynamoDB = "dynamodb"
	StorageSQLite   = "sqlite"
	StorageMemory   = "memory"
)

// Cost sources selectable with COST_SOURCE. "store" reads prices from the
// storage backend's own table.
const (
	CostSourceFile  = "file"
	CostSourceStore = "store"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion        string
	OperationsTable  string
	DynamoDBEndpoint string // local DynamoDB override
	EventBusName     string

	// Storage
	StorageBackend      string
	SQLitePath          string
	HistoryStrategy     string
	HistoryScanSegments int

	// Operation pricing
	CostSource         string
	OperationCostsFile string
	CostCacheTTL       time.Duration

	// Settlement
	StoreTimeout      time.Duration
	MaxSettleAttempts int

	// random.org
	RandomStringAPIEndpoint string
	RandomStringAPIKey      string
	RandomStringTimeout     time.Duration

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Local server limits
	RateLimitRPS   float64
	RateLimitBurst int

	// Observability
	MetricsNamespace string
	EnableMetrics    bool
	EnableTracing    bool
	EnableCORS       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	lambdaName := getEnv("AWS_LAMBDA_FUNCTION_NAME", "")

	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		OperationsTable:  getEnv("OPERATIONS_TABLE", "operations"),
		DynamoDBEndpoint: getEnv("DYNAMODB_ENDPOINT", ""),
		EventBusName:     getEnv("EVENT_BUS_NAME", ""),

		StorageBackend:      strings.ToLower(getEnv("STORAGE_BACKEND", StorageDynamoDB)),
		SQLitePath:          getEnv("SQLITE_PATH", "./data/mathops.db"),
		HistoryStrategy:     strings.ToLower(getEnv("HISTORY_STRATEGY", "query")),
		HistoryScanSegments: getEnvInt("HISTORY_SCAN_SEGMENTS", 4),

		CostSource:         strings.ToLower(getEnv("COST_SOURCE", CostSourceFile)),
		OperationCostsFile: getEnv("OPERATION_COSTS_FILE", ""),
		CostCacheTTL:       getEnvDuration("COST_CACHE_TTL", time.Minute),

		StoreTimeout:      getEnvDuration("STORE_TIMEOUT", 0),
		MaxSettleAttempts: getEnvInt("MAX_SETTLE_ATTEMPTS", 0),

		RandomStringAPIEndpoint: getEnv("RANDOM_STRING_API_ENDPOINT", ""),
		RandomStringAPIKey:      getEnv("RANDOM_STRING_API_KEY", ""),
		RandomStringTimeout:     getEnvDuration("RANDOM_STRING_TIMEOUT", 0),

		IsLambda:           lambdaName != "" || getEnvBool("IS_LAMBDA", false),
		LambdaFunctionName: lambdaName,

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "mathops"),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),

		LogLevel:         getEnv("LOG_LEVEL", "info"),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "MathOps"),
		EnableMetrics:    getEnvBool("ENABLE_METRICS", false),
		EnableTracing:    getEnvBool("ENABLE_TRACING", false),
		EnableCORS:       getEnvBool("ENABLE_CORS", true),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageDynamoDB, StorageSQLite, StorageMemory:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be dynamodb, sqlite or memory, got %q", c.StorageBackend)
	}
	switch c.CostSource {
	case CostSourceFile, CostSourceStore:
	default:
		return fmt.Errorf("COST_SOURCE must be file or store, got %q", c.CostSource)
	}
	if c.HistoryStrategy != "query" && c.HistoryStrategy != "scan" {
		return fmt.Errorf("HISTORY_STRATEGY must be query or scan, got %q", c.HistoryStrategy)
	}
	if c.HistoryScanSegments < 1 {
		return fmt.Errorf("HISTORY_SCAN_SEGMENTS must be positive")
	}

	if c.IsProduction() {
		if c.OperationsTable == "" {
			return fmt.Errorf("OPERATIONS_TABLE is required")
		}
		if c.RandomStringAPIKey == "" {
			return fmt.Errorf("RANDOM_STRING_API_KEY is required in production")
		}
		if !c.IsLambda && c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("3s") or bare milliseconds ("3000").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
