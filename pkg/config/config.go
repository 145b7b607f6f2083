package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Pipeline PipelineConfig
	Tiles    TilesConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// PipelineConfig holds the aggregation pipeline configuration
type PipelineConfig struct {
	Source string
	Metric string

	// Resolutions to aggregate at; the pipeline runs once per entry so
	// every zoom bracket has data behind it.
	Resolutions []int

	// Transactions priced at or below the floor, or at or above the
	// ceiling, are treated as data-entry errors and skipped.
	PriceFloor   float64
	PriceCeiling float64

	// Confidence tunables: K saturates the log10 sample factor,
	// RecencyFloor bounds the one-year linear decay from below.
	ConfidenceK  float64
	RecencyFloor float64

	TransactionsPath string
	PostcodesPath    string

	// Percentile scope: "global" or a country code.
	NormalizerScope string
}

// TilesConfig holds tile serving configuration
type TilesConfig struct {
	MaxCellsPerTile int
	CoarseTTL       int
	FineTTL         int
}

// Load loads configuration from environment variables. A .env file in the
// working directory is honoured when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Env:  getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "openpricemap"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Pipeline: PipelineConfig{
			Source:           getEnv("PIPELINE_SOURCE", "uk_land_registry"),
			Metric:           getEnv("PIPELINE_METRIC", "price"),
			Resolutions:      getEnvAsInts("PIPELINE_RESOLUTIONS", []int{5, 6, 7, 8}),
			PriceFloor:       getEnvAsFloat("PIPELINE_PRICE_FLOOR", 1000),
			PriceCeiling:     getEnvAsFloat("PIPELINE_PRICE_CEILING", 50000000),
			ConfidenceK:      getEnvAsFloat("PIPELINE_CONFIDENCE_K", 2.0),
			RecencyFloor:     getEnvAsFloat("PIPELINE_RECENCY_FLOOR", 0.2),
			TransactionsPath: getEnv("PIPELINE_TRANSACTIONS_PATH", "data/price-paid.csv"),
			PostcodesPath:    getEnv("PIPELINE_POSTCODES_PATH", "data/postcodes.csv"),
			NormalizerScope:  getEnv("PIPELINE_NORMALIZER_SCOPE", "global"),
		},
		Tiles: TilesConfig{
			MaxCellsPerTile: getEnvAsInt("TILES_MAX_CELLS", 2000),
			CoarseTTL:       getEnvAsInt("TILES_COARSE_TTL", 86400),
			FineTTL:         getEnvAsInt("TILES_FINE_TTL", 3600),
		},
	}, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

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

func getEnvAsInts(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		intVal, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return defaultValue
		}
		out = append(out, intVal)
	}
	return out
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
