package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "SPENDSENSE"

// Load reads configuration from path, or from config.yaml in ./configs or
// the working directory when path is empty. A missing file is not an error.
// SPENDSENSE_* environment variables override file values.
func Load(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	for _, path := range []string{".env", "../.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "spendsense")
	v.SetDefault("app.environment", "development")

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 15000)
	v.SetDefault("server.write_timeout", 15000)
	v.SetDefault("server.idle_timeout", 60000)
	v.SetDefault("server.shutdown_timeout", 10000)

	v.SetDefault("explanation.api_key", "")
	v.SetDefault("explanation.base_url", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("explanation.model", "gpt-4o-mini")
	v.SetDefault("explanation.timeout", 10000)
	v.SetDefault("explanation.max_retries", 1)
	v.SetDefault("explanation.max_tokens", 500)

	v.SetDefault("session.store", "memory")
	v.SetDefault("session.ttl", 1800000)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rate_limit.capacity", 5)
	v.SetDefault("rate_limit.refill", 60000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func overrideEmptyConfig(cfg *Config) {
	if cfg.Explanation.APIKey == "" {
		if val := os.Getenv("OPENAI_API_KEY"); val != "" {
			cfg.Explanation.APIKey = val
		}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Address == "" {
		return errors.New("server.address is required")
	}
	if cfg.Explanation.Timeout <= 0 {
		return fmt.Errorf("explanation.timeout must be positive, got %d", cfg.Explanation.Timeout)
	}
	if cfg.Explanation.MaxRetries < 0 || cfg.Explanation.MaxRetries > 1 {
		return fmt.Errorf("explanation.max_retries must be 0 or 1, got %d", cfg.Explanation.MaxRetries)
	}
	switch cfg.Session.Store {
	case "memory":
	case "redis":
		if cfg.Redis.Address == "" {
			return errors.New("redis.address is required when session.store is redis")
		}
	default:
		return fmt.Errorf("unknown session.store %q", cfg.Session.Store)
	}
	if cfg.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive, got %d", cfg.Session.TTL)
	}
	if cfg.RateLimit.Capacity <= 0 || cfg.RateLimit.Refill <= 0 {
		return errors.New("rate_limit.capacity and rate_limit.refill must be positive")
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", cfg.Logging.Level)
	}
	return nil
}
