package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	Environment       string
	MongoURI          string
	MongoDatabase     string
	JWTSecret         string
	JWTTTL            time.Duration
	AllowedOrigins    []string
	TextbeltKey       string
	TextbeltURL       string
	LogLevel          string
	LogFormat         string
	SlotMinutes       int
	Location          *time.Location
	VerifyConcurrency int
}

// Load reads configuration from the environment, after loading a .env file
// if one is present. The returned flag reports whether .env was found.
func Load() (*Config, bool, error) {
	foundDotEnv := godotenv.Load() == nil

	cfg := &Config{
		Port:           getEnvOrDefault("API_PORT", "8080"),
		Environment:    getEnvOrDefault("ENVIRONMENT", "development"),
		MongoURI:       os.Getenv("MONGO_URI"),
		MongoDatabase:  os.Getenv("MONGO_DATABASE"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AllowedOrigins: splitList(getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:3000")),
		TextbeltKey:    os.Getenv("TEXTBELT_API_KEY"),
		TextbeltURL:    getEnvOrDefault("TEXTBELT_URL", "https://textbelt.com/text"),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:      getEnvOrDefault("LOG_FORMAT", ""),
	}

	ttlHours, err := getIntOrDefault("JWT_TTL_HOURS", 24)
	if err != nil {
		return nil, foundDotEnv, err
	}
	cfg.JWTTTL = time.Duration(ttlHours) * time.Hour

	if cfg.SlotMinutes, err = getIntOrDefault("SLOT_MINUTES", 30); err != nil {
		return nil, foundDotEnv, err
	}
	if cfg.VerifyConcurrency, err = getIntOrDefault("VERIFY_CONCURRENCY", 8); err != nil {
		return nil, foundDotEnv, err
	}

	tz := getEnvOrDefault("TIMEZONE", "Local")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, foundDotEnv, fmt.Errorf("TIMEZONE %q: %w", tz, err)
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
		if cfg.IsProduction() {
			cfg.LogFormat = "json"
		}
	}

	return cfg, foundDotEnv, cfg.Validate()
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate reports every missing or out of range setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.MongoURI == "" {
		errs = append(errs, errors.New("MONGO_URI is required"))
	}
	if c.MongoDatabase == "" {
		errs = append(errs, errors.New("MONGO_DATABASE is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL_HOURS must be positive"))
	}
	if c.SlotMinutes <= 0 {
		errs = append(errs, errors.New("SLOT_MINUTES must be positive"))
	}
	if c.VerifyConcurrency <= 0 {
		errs = append(errs, errors.New("VERIFY_CONCURRENCY must be positive"))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func splitList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
