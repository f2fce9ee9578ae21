package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. TASKAPI_SERVER_PORT.
const EnvPrefix = "TASKAPI"

// DefaultDatabaseName is used when neither database.name nor the URI path names one.
const DefaultDatabaseName = "tasks"

// legacyEnv maps config keys to the plain variable names the service has
// always honoured. Prefixed variables win over these.
var legacyEnv = map[string]string{
	"server.port":        "PORT",
	"server.environment": "NODE_ENV",
	"database.uri":       "MONGO_URI",
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Database.Name == "" {
		cfg.Database.Name = DatabaseNameFromURI(cfg.Database.URI)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.environment", EnvProduction)
	v.SetDefault("server.static_dir", "build")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.body_limit_bytes", 10<<20)

	v.SetDefault("database.uri", "mongodb://localhost:27017/tasks")
	v.SetDefault("database.name", "")
	v.SetDefault("database.collection", "tasks")
	v.SetDefault("database.max_attempts", 8)
	v.SetDefault("database.initial_delay", "1s")
	v.SetDefault("database.max_delay", "30s")
	v.SetDefault("database.connect_timeout", "10s")
}

// DatabaseNameFromURI returns the database named in the URI path, or
// DefaultDatabaseName when the URI has none or cannot be parsed.
func DatabaseNameFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return DefaultDatabaseName
	}
	name := strings.Trim(u.Path, "/")
	if name == "" {
		return DefaultDatabaseName
	}
	return name
}
