// Package config provides configuration management for the ledger tools.
// It loads settings from environment variables and .env files, and the
// partition layout from a YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	LedgerConfig  string
	DataRoot      string
	RulesPath     string
	Redis         RedisConfig
	PastDuePolicy string
	ERP           ERPConfig
	HTTPAddr      string
	Debug         bool
}

// RedisConfig represents the balance cache configuration. An empty Addr
// disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// ERPConfig represents the ERP API configuration.
type ERPConfig struct {
	APIURL       string
	AccessToken  string
	ClientID     string
	ClientSecret string
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	redisDB, err := parseIntEnv("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	ttl, err := parseDurationEnv("BALANCE_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	config := &Config{
		LedgerConfig: getEnvOrDefault("LEDGER_CONFIG", "./config/ledger.yaml"),
		DataRoot:     getEnvOrDefault("LEDGER_DATA_ROOT", "./data"),
		RulesPath:    os.Getenv("RULES_DB_PATH"),
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			TTL:      ttl,
		},
		PastDuePolicy: getEnvOrDefault("PAST_DUE_POLICY", "drop"),
		ERP: ERPConfig{
			APIURL:       getEnvOrDefault("ERP_API_URL", "http://localhost:8080"),
			AccessToken:  os.Getenv("ERP_ACCESS_TOKEN"),
			ClientID:     os.Getenv("ERP_CLIENT_ID"),
			ClientSecret: os.Getenv("ERP_CLIENT_SECRET"),
		},
		HTTPAddr: getEnvOrDefault("HTTP_ADDR", ":8081"),
		Debug:    os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Validate validates the configuration.
// It checks that every required dotted path (e.g. []string{"erp", "accessToken"})
// is set.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) == 0 {
			continue
		}

		var value string
		switch path[0] {
		case "ledgerConfig":
			value = c.LedgerConfig
		case "dataRoot":
			value = c.DataRoot
		case "httpAddr":
			value = c.HTTPAddr
		case "redis":
			if len(path) < 2 {
				continue
			}
			switch path[1] {
			case "addr":
				value = c.Redis.Addr
			case "password":
				value = c.Redis.Password
			}
		case "erp":
			if len(path) < 2 {
				continue
			}
			switch path[1] {
			case "apiUrl":
				value = c.ERP.APIURL
			case "accessToken":
				value = c.ERP.AccessToken
				if value == "" && c.ERP.ClientID != "" {
					value = "client-credentials"
				}
			case "clientId":
				value = c.ERP.ClientID
			case "clientSecret":
				value = c.ERP.ClientSecret
			}
		}

		if value == "" {
			missing = append(missing, strings.Join(path, "."))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an int from an environment variable.
// Returns defaultValue if the environment variable is not set.
func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}

	return parsed, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("invalid duration value for %s: %s", key, value)
	}

	return parsed, nil
}
