// Package config loads and validates the application configuration from
// environment variables. Loading collects every problem it finds and reports
// them together, so a misconfigured deployment fails fast with a complete
// list instead of one error at a time.
//
// The resulting AppConfig is immutable and constructed exactly once in main;
// request-handling code receives the pieces it needs by reference and never
// reads the environment itself.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// PoolConfig holds settings for the PostgreSQL connection pool.
type PoolConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxSize  int
}

// AuthConfig holds session-token settings.
type AuthConfig struct {
	// TokenSecret signs session tokens. Required.
	TokenSecret string
	// TokenDuration is the validity window of an issued token and the
	// max-age of the session cookie carrying it.
	TokenDuration time.Duration
	// MinPasswordLength is the weakest password accepted at registration.
	MinPasswordLength int
}

// WeatherConfig holds settings for the external weather service client and
// the refresh policy applied to stored cities.
type WeatherConfig struct {
	// BaseURL of the Open-Meteo compatible endpoint.
	BaseURL string
	// Timeout bounds a single outbound weather request.
	Timeout time.Duration
	// UpdateInterval is how fresh a city's weather must be before a batch
	// refresh will fetch it again.
	UpdateInterval time.Duration
	// MaxConcurrent bounds the number of in-flight fetches in one batch.
	MaxConcurrent int
}

// SeedConfig holds settings for the default-city seed source.
type SeedConfig struct {
	// CitiesCSV is the path of the (name,latitude,longitude) seed file.
	// A missing file is not an error; a built-in list is used instead.
	CitiesCSV string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string
	// Debug switches the logger to development output.
	Debug bool
	// MigrationsPath is the directory of SQL migration files.
	MigrationsPath string
}

// AppConfig is the top-level configuration for the application.
type AppConfig struct {
	DB      *PoolConfig
	Auth    *AuthConfig
	Weather *WeatherConfig
	Seed    *SeedConfig
	Server  *ServerConfig
}

func getRequiredEnv(key string, errs *[]string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		*errs = append(*errs, fmt.Sprintf("missing required environment variable: %s", key))
		return ""
	}
	return value
}

func getOptionalEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getOptionalEnvInt(key string, defaultValue int, errs *[]string) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected integer, got %q: %v", key, valueStr, err))
		return defaultValue
	}
	return valueInt
}

func getOptionalEnvBool(key string, defaultValue bool, errs *[]string) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueBool, err := strconv.ParseBool(valueStr)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected boolean, got %q: %v", key, valueStr, err))
		return defaultValue
	}
	return valueBool
}

// getOptionalEnvDuration parses values like "30m" or "1h30s".
func getOptionalEnvDuration(key string, defaultValue time.Duration, errs *[]string) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected duration string, got %q: %v", key, valueStr, err))
		return defaultValue
	}
	return valueDuration
}

// LoadConfig reads the environment and returns a fully validated AppConfig,
// or a single error aggregating everything that was wrong.
func LoadConfig() (*AppConfig, error) {
	var errs []string

	db := &PoolConfig{
		Host:     getOptionalEnv("DB_HOST", "localhost"),
		Port:     getOptionalEnvInt("DB_PORT", 5432, &errs),
		User:     getRequiredEnv("DB_USER", &errs),
		Password: getRequiredEnv("DB_PASSWORD", &errs),
		DBName:   getRequiredEnv("DB_NAME", &errs),
		MaxSize:  getOptionalEnvInt("DB_POOL_SIZE", 10, &errs),
	}
	if db.MaxSize < 1 {
		errs = append(errs, fmt.Sprintf("DB_POOL_SIZE must be positive, got %d", db.MaxSize))
		db.MaxSize = 1
	}

	auth := &AuthConfig{
		TokenSecret:       getRequiredEnv("AUTH_TOKEN_SECRET", &errs),
		TokenDuration:     getOptionalEnvDuration("AUTH_TOKEN_DURATION", 30*time.Minute, &errs),
		MinPasswordLength: getOptionalEnvInt("AUTH_MIN_PASSWORD_LENGTH", 6, &errs),
	}
	if auth.TokenDuration <= 0 {
		errs = append(errs, fmt.Sprintf("AUTH_TOKEN_DURATION must be positive, got %s", auth.TokenDuration))
	}

	weather := &WeatherConfig{
		BaseURL:        getOptionalEnv("WEATHER_BASE_URL", "https://api.open-meteo.com"),
		Timeout:        getOptionalEnvDuration("WEATHER_TIMEOUT", 10*time.Second, &errs),
		UpdateInterval: getOptionalEnvDuration("WEATHER_UPDATE_INTERVAL", 15*time.Minute, &errs),
		MaxConcurrent:  getOptionalEnvInt("WEATHER_MAX_CONCURRENT", 4, &errs),
	}
	if weather.MaxConcurrent < 1 {
		errs = append(errs, fmt.Sprintf("WEATHER_MAX_CONCURRENT must be positive, got %d", weather.MaxConcurrent))
		weather.MaxConcurrent = 1
	}

	seed := &SeedConfig{
		CitiesCSV: getOptionalEnv("SEED_CITIES_CSV", "data/default_cities.csv"),
	}

	server := &ServerConfig{
		Port:           getOptionalEnv("PORT", "8080"),
		Debug:          getOptionalEnvBool("APP_DEBUG", false, &errs),
		MigrationsPath: getOptionalEnv("MIGRATIONS_PATH", "./migrations"),
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration errors:\n- %s", strings.Join(errs, "\n- "))
	}

	return &AppConfig{
		DB:      db,
		Auth:    auth,
		Weather: weather,
		Seed:    seed,
		Server:  server,
	}, nil
}
