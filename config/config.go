package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the server.
// Tags use mapstructure for Viper unmarshalling and env for environment variable binding.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	// RedisAddr, when set, switches attribute change events from the
	// in-process bus to Redis pub/sub.
	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	RedisPassword   string `mapstructure:"REDIS_PASSWORD"`
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	LogPretty       bool   `mapstructure:"LOG_PRETTY"`
	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	JWTSecretKey     string `mapstructure:"JWT_SECRET_KEY"`
	SessionTTLMin    int    `mapstructure:"SESSION_TTL_MIN"`
	BcryptCost       int    `mapstructure:"BCRYPT_COST"`
	UsernamesEnabled bool   `mapstructure:"USERNAMES_ENABLED"`

	// RecoveryTokenWindowHours bounds how long a timestamped recovery
	// token stays valid. Tokens written without a timestamp never expire.
	RecoveryTokenWindowHours int `mapstructure:"RECOVERY_TOKEN_WINDOW_HOURS"`
	DefinitionCacheTTLSec    int `mapstructure:"DEFINITION_CACHE_TTL_SEC"`
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	// Set configuration file name and type
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Set search paths for the configuration file
	v.AddConfigPath("/etc/pwchange/")
	v.AddConfigPath("$HOME/.pwchange")
	v.AddConfigPath(".")

	// Read environment variables
	v.AutomaticEnv()
	// For nested env vars like PARENT.CHILD -> PARENT_CHILD
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/pwchange_dev")
	v.SetDefault("MONGO_DB_NAME", "pwchange_dev")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "pwchange-server")
	v.SetDefault("JWT_SECRET_KEY", "a_very_secret_jwt_key_change_me") // CHANGE IN PRODUCTION
	v.SetDefault("SESSION_TTL_MIN", 60)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("USERNAMES_ENABLED", false)
	v.SetDefault("RECOVERY_TOKEN_WINDOW_HOURS", 24)
	v.SetDefault("DEFINITION_CACHE_TTL_SEC", 60)

	// Attempt to read the config file
	if err := v.ReadInConfig(); err != nil {
		// ConfigFileNotFoundError is acceptable, means we use defaults/env vars.
		// Other errors (e.g., permission issues, malformed config) should be returned.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal the configuration into the ServerConfig struct
	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
