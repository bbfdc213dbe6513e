// Package config loads process configuration from the environment.
//
// A .env file in the working directory is loaded first when present; values
// already set in the environment win over the file. Struct fields are filled
// with github.com/caarlos0/env using `env` and `envDefault` tags:
//
//	type ServerConfig struct {
//		Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Load reads .env files (if any) and parses the environment into cfg,
// which must be a pointer to a struct.
func Load(cfg any, files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: load env file: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: parse environment: %w", err)
	}
	return nil
}

// MustLoad is like Load but panics on failure. Useful at startup.
func MustLoad(cfg any, files ...string) {
	if err := Load(cfg, files...); err != nil {
		panic(err)
	}
}

// ServerConfig is the configuration of a ree HTTP server.
type ServerConfig struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	MaxBodySize     int64         `env:"MAX_BODY_SIZE" envDefault:"1048576"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CleanPath       bool          `env:"CLEAN_PATH" envDefault:"true"`
	AuthToken       string        `env:"AUTH_TOKEN"`
	JWTSecret       string        `env:"JWT_SECRET"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	RateLimit       int           `env:"RATE_LIMIT" envDefault:"100"`
	RateWindow      time.Duration `env:"RATE_WINDOW" envDefault:"1m"`
}

// LoadServerConfig loads a ServerConfig from the environment.
func LoadServerConfig(files ...string) (ServerConfig, error) {
	var cfg ServerConfig
	if err := Load(&cfg, files...); err != nil {
		return cfg, err
	}
	if cfg.RateLimit < 0 {
		return cfg, fmt.Errorf("config: RATE_LIMIT must not be negative, got %d", cfg.RateLimit)
	}
	return cfg, nil
}

// Logger builds a production zap logger at the configured level.
func (c ServerConfig) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("config: invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
