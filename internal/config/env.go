package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvDBHost         = "TYPEDASH_DB_HOST"
	EnvDBPort         = "TYPEDASH_DB_PORT"
	EnvDBUser         = "TYPEDASH_DB_USER"
	EnvDBPassword     = "TYPEDASH_DB_PASSWORD"
	EnvDBName         = "TYPEDASH_DB_NAME"
	EnvDBSSLMode      = "TYPEDASH_DB_SSLMODE"
	EnvUploadPassword = "TYPEDASH_UPLOAD_PASSWORD"
	EnvLogMode        = "TYPEDASH_LOG_MODE"
)

// EnvConfig holds settings supplied through the environment.
type EnvConfig struct {
	DB             PostgresConfig
	UploadPassword string
	LogMode        string
}

// PostgresConfig describes a Postgres connection.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Configured reports whether a host was supplied.
func (c PostgresConfig) Configured() bool {
	return c.Host != ""
}

// DSN renders a lib/pq connection URL.
func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Name,
	}
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// UploadEnabled reports whether the upload flow is available.
func (c EnvConfig) UploadEnabled() bool {
	return c.UploadPassword != ""
}

// LoadDotEnv loads a .env file into the process environment. A missing file
// is not an error; variables already set are kept.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadEnv reads the environment into an EnvConfig.
func LoadEnv() (EnvConfig, error) {
	port := 5432
	if raw := strings.TrimSpace(os.Getenv(EnvDBPort)); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return EnvConfig{}, fmt.Errorf("invalid %s value %q", EnvDBPort, raw)
		}
		port = parsed
	}
	cfg := EnvConfig{
		DB: PostgresConfig{
			Host:     strings.TrimSpace(os.Getenv(EnvDBHost)),
			Port:     port,
			User:     envOr(EnvDBUser, "postgres"),
			Password: os.Getenv(EnvDBPassword),
			Name:     envOr(EnvDBName, appName),
			SSLMode:  envOr(EnvDBSSLMode, "disable"),
		},
		UploadPassword: os.Getenv(EnvUploadPassword),
		LogMode:        envOr(EnvLogMode, "development"),
	}
	return cfg, nil
}

func envOr(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}
