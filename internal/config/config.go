package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Identity IdentityConfig
}

type AppConfig struct {
	AppName        string
	Environment    string
	HTTPPort       string
	BootstrapAdmin string
}

type DatabaseConfig struct {
	Host           string
	Port           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	MaxConns       int32
	ConnectTimeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

type IdentityConfig struct {
	Secret string
}

var errMissingRequiredEnv = errors.New("missing required environment variables")

func Load() (Config, error) {
	cfg := Config{}

	var missing []string
	req := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key string) string {
		return strings.TrimSpace(os.Getenv(key))
	}

	cfg.App = AppConfig{
		AppName:        req("APP_NAME"),
		Environment:    req("APP_ENV"),
		HTTPPort:       req("HTTP_PORT"),
		BootstrapAdmin: opt("BOOTSTRAP_ADMIN"),
	}

	cfg.Database = DatabaseConfig{
		Host:     opt("DB_HOST"),
		Port:     opt("DB_PORT"),
		Name:     opt("DB_NAME"),
		User:     opt("DB_USER"),
		Password: opt("DB_PASSWORD"),
		SSLMode:  opt("DB_SSL_MODE"),
	}
	if v := opt("DB_MAX_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DB_MAX_CONNS: %q", v)
		}
		cfg.Database.MaxConns = int32(n)
	}
	if v := opt("DB_CONNECT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DB_CONNECT_TIMEOUT: %q", v)
		}
		cfg.Database.ConnectTimeout = d
	}

	cfg.Redis = RedisConfig{
		Host:     opt("REDIS_HOST"),
		Port:     opt("REDIS_PORT"),
		Password: opt("REDIS_PASSWORD"),
	}

	cfg.Identity = IdentityConfig{
		Secret: req("IDENTITY_SECRET"),
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}

	return cfg, nil
}
