package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Kafka          KafkaConfig
	Redis          RedisConfig
	MarketData     MarketDataConfig
	Import         ImportConfig
	Log            LogConfig
	MigrationsPath string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	Host            string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled     bool
	Brokers     []string
	Topic       string
	PricesTopic string
	GroupID     string
}

// RedisConfig holds the optional shared cache configuration.
// An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MarketDataConfig holds the market-data client configuration
type MarketDataConfig struct {
	BaseURL       string
	RatePerSecond float64
	Burst         int
	CacheTTL      time.Duration
	NegativeTTL   time.Duration
	MaxRetries    int

	// Timeout bounds a whole lookup, retries included. RequestTimeout bounds one HTTP attempt.
	Timeout        time.Duration
	RequestTimeout time.Duration
}

// ImportConfig holds bulk import configuration
type ImportConfig struct {
	FailurePolicy  string
	Concurrency    int
	MaxUploadBytes int64
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Pretty bool
}

// Load reads configuration from environment variables, after loading a .env
// file from the working directory when one exists
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8000"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "portfolio_monitor"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Enabled:     getEnvBool("KAFKA_ENABLED", false),
			Brokers:     getEnvList("KAFKA_BROKERS", "localhost:9092"),
			Topic:       getEnv("KAFKA_TOPIC", "portfolio-events"),
			PricesTopic: getEnv("KAFKA_PRICES_TOPIC", "daily-prices"),
			GroupID:     getEnv("KAFKA_GROUP_ID", "portfolio-monitor"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		MarketData: MarketDataConfig{
			BaseURL:        getEnv("MARKETDATA_BASE_URL", "https://query1.finance.yahoo.com"),
			RatePerSecond:  getEnvFloat("MARKETDATA_RATE_PER_SECOND", 10),
			Burst:          getEnvInt("MARKETDATA_BURST", 2),
			CacheTTL:       getEnvDuration("MARKETDATA_CACHE_TTL", 24*time.Hour),
			NegativeTTL:    getEnvDuration("MARKETDATA_NEGATIVE_TTL", 15*time.Minute),
			Timeout:        getEnvDuration("MARKETDATA_TIMEOUT", 10*time.Second),
			RequestTimeout: getEnvDuration("MARKETDATA_REQUEST_TIMEOUT", 3*time.Second),
			MaxRetries:     getEnvInt("MARKETDATA_MAX_RETRIES", 3),
		},
		Import: ImportConfig{
			FailurePolicy:  getEnv("IMPORT_FAILURE_POLICY", "fail_fast"),
			Concurrency:    getEnvInt("IMPORT_CONCURRENCY", 4),
			MaxUploadBytes: int64(getEnvInt("IMPORT_MAX_UPLOAD_BYTES", 5<<20)),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
		MigrationsPath: getEnv("MIGRATIONS_PATH", "db/migrations"),
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Addr returns the HTTP listen address
func (s *ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvList(key, defaultValue string) []string {
	var list []string
	for _, item := range strings.Split(getEnv(key, defaultValue), ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
