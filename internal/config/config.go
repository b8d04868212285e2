package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the dispatch engine.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Dispatch DispatchConfig
	Fare     FareConfig
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// DispatchConfig holds the matching and polling parameters. The defaults
// (10s interval, 12 attempts, 5 minute no-show grace) mirror the values the
// cooperative runs with today; they are product knobs, not derived values.
type DispatchConfig struct {
	PollInterval time.Duration
	MaxAttempts  int
	NoShowGrace  time.Duration
}

// FareConfig holds the tariff table. Amounts are in pesos.
type FareConfig struct {
	BaseFlat       float64 // flat rate covering the first FlagdownKm
	FlagdownKm     float64
	PerKm          float64 // applied beyond FlagdownKm
	DriverFreeKm   float64 // driver-to-pickup distance included in the base
	DriverPerKm    float64 // applied to driver distance beyond DriverFreeKm
	ConvenienceFee float64 // folded into the displayed base fare
	PWDPercent     float64
	SeniorPercent  float64
	StudentPercent float64
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "toda_dispatch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "toda-dispatch-engine"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Dispatch: DispatchConfig{
			PollInterval: getDurationEnv("DISPATCH_POLL_INTERVAL", 10*time.Second),
			MaxAttempts:  getIntEnv("DISPATCH_MAX_ATTEMPTS", 12),
			NoShowGrace:  getDurationEnv("DISPATCH_NOSHOW_GRACE", 5*time.Minute),
		},
		Fare: FareConfig{
			BaseFlat:       getFloatEnv("FARE_BASE_FLAT", 30),
			FlagdownKm:     getFloatEnv("FARE_FLAGDOWN_KM", 2),
			PerKm:          getFloatEnv("FARE_PER_KM", 10),
			DriverFreeKm:   getFloatEnv("FARE_DRIVER_FREE_KM", 1),
			DriverPerKm:    getFloatEnv("FARE_DRIVER_PER_KM", 5),
			ConvenienceFee: getFloatEnv("FARE_CONVENIENCE_FEE", 5),
			PWDPercent:     getFloatEnv("FARE_PWD_PERCENT", 20),
			SeniorPercent:  getFloatEnv("FARE_SENIOR_PERCENT", 20),
			StudentPercent: getFloatEnv("FARE_STUDENT_PERCENT", 10),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
