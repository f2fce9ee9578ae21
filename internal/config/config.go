package config

import "time"

// Environment names accepted in server.environment.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	Environment     string        `mapstructure:"environment"      validate:"required,oneof=development production test"`
	StaticDir       string        `mapstructure:"static_dir"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	BodyLimitBytes  int64         `mapstructure:"body_limit_bytes" validate:"gt=0"`
}

// IsDevelopment reports whether internal error details may be shown to clients.
func (s ServerConfig) IsDevelopment() bool {
	return s.Environment == EnvDevelopment
}

// DatabaseConfig contains the document store connection and retry settings.
type DatabaseConfig struct {
	URI            string        `mapstructure:"uri"             validate:"required,startswith=mongodb"`
	Name           string        `mapstructure:"name"`
	Collection     string        `mapstructure:"collection"      validate:"required"`
	MaxAttempts    int           `mapstructure:"max_attempts"    validate:"gte=1"`
	InitialDelay   time.Duration `mapstructure:"initial_delay"   validate:"gt=0"`
	MaxDelay       time.Duration `mapstructure:"max_delay"       validate:"gtefield=InitialDelay"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"gt=0"`
}
