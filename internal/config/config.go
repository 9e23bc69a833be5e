package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Location modes
const (
	LocationModePush = "push"
	LocationModePoll = "poll"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	API       APIConfig
	Tracking  TrackingConfig
	Inventory InventoryConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NewRelic  NewRelicConfig
	WebSocket WebSocketConfig
	Log       LogConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port            string
	Env             string
	Host            string
	ShutdownTimeout time.Duration
}

// APIConfig describes the remote bike-sharing server
type APIConfig struct {
	BaseURL    string
	Token      string
	AuthScheme string
	Timeout    time.Duration
}

type TrackingConfig struct {
	MinStepKM            float64
	ReserveMaxDistanceKM float64
	LocationMode         string
	PollInterval         time.Duration
	MaxFixAge            time.Duration
	NotificationInterval time.Duration
}

type InventoryConfig struct {
	PollInterval time.Duration
	CacheTTL     time.Duration
}

type DatabaseConfig struct {
	Enabled        bool
	Host           string
	Port           int
	Name           string
	User           string
	Password       string
	SSLMode        string
	MaxConnections int
	MaxIdleConns   int
}

type RedisConfig struct {
	Enabled     bool
	Host        string
	Port        string
	Password    string
	DB          int
	MaxRetries  int
	PoolSize    int
	MinIdleConn int
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

type NewRelicConfig struct {
	LicenseKey string
	AppName    string
	Enabled    bool
	LogLevel   string
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

// CORSConfig lists the web origins allowed to call the tracker. An empty
// list allows none; "*" must be set explicitly.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := fromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func fromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("SERVER_ENV", "development"),
			Host:            getEnv("SERVER_HOST", "127.0.0.1"),
			ShutdownTimeout: parseDuration(getEnv("SERVER_SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
		},
		API: APIConfig{
			BaseURL:    strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000"), "/"),
			Token:      getEnv("API_TOKEN", ""),
			AuthScheme: getEnv("API_AUTH_SCHEME", "Token"),
			Timeout:    parseDuration(getEnv("API_TIMEOUT", "15s"), 15*time.Second),
		},
		Tracking: TrackingConfig{
			MinStepKM:            getEnvAsFloat64("TRACKING_MIN_STEP_KM", 0.1),
			ReserveMaxDistanceKM: getEnvAsFloat64("RESERVE_MAX_DISTANCE_KM", 0.05),
			LocationMode:         strings.ToLower(getEnv("TRACKING_LOCATION_MODE", LocationModePush)),
			PollInterval:         parseDuration(getEnv("TRACKING_POLL_INTERVAL", "5s"), 5*time.Second),
			MaxFixAge:            parseDuration(getEnv("TRACKING_MAX_FIX_AGE", "2m"), 2*time.Minute),
			NotificationInterval: parseDuration(getEnv("TRACKING_NOTIFICATION_INTERVAL", "1s"), time.Second),
		},
		Inventory: InventoryConfig{
			PollInterval: parseDuration(getEnv("INVENTORY_POLL_INTERVAL", "5s"), 5*time.Second),
			CacheTTL:     parseDuration(getEnv("INVENTORY_CACHE_TTL", "1m"), time.Minute),
		},
		Database: DatabaseConfig{
			Enabled:        getEnvAsBool("DB_ENABLED", false),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvAsInt("DB_PORT", 5432),
			Name:           getEnv("DB_NAME", "busterbike"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConnections: getEnvAsInt("DB_MAX_CONNECTIONS", 5),
			MaxIdleConns:   getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", 2),
		},
		Redis: RedisConfig{
			Enabled:     getEnvAsBool("REDIS_ENABLED", false),
			Host:        getEnv("REDIS_HOST", "localhost"),
			Port:        getEnv("REDIS_PORT", "6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvAsInt("REDIS_DB", 0),
			MaxRetries:  getEnvAsInt("REDIS_MAX_RETRIES", 3),
			PoolSize:    getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConn: 2,
			DialTimeout: 5 * time.Second,
			ReadTimeout: 3 * time.Second,
		},
		NewRelic: NewRelicConfig{
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			AppName:    getEnv("NEW_RELIC_APP_NAME", "BusterBike-RideTracker"),
			Enabled:    getEnvAsBool("NEW_RELIC_ENABLED", false),
			LogLevel:   getEnv("NEW_RELIC_LOG_LEVEL", "info"),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER_SIZE", 1024),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Authorization"}),
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	if c.Tracking.MinStepKM < 0 {
		return fmt.Errorf("TRACKING_MIN_STEP_KM must not be negative")
	}
	if c.Tracking.ReserveMaxDistanceKM <= 0 {
		return fmt.Errorf("RESERVE_MAX_DISTANCE_KM must be positive")
	}
	switch c.Tracking.LocationMode {
	case LocationModePush, LocationModePoll:
	default:
		return fmt.Errorf("TRACKING_LOCATION_MODE must be %q or %q, got %q",
			LocationModePush, LocationModePoll, c.Tracking.LocationMode)
	}
	if c.Database.Enabled && c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required when DB_ENABLED is set")
	}
	if c.Redis.Enabled && c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required when REDIS_ENABLED is set")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}
