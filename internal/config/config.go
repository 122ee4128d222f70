package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultSecret only signs tokens while the admin guard is off.
const defaultSecret = "dev_secret"

// Config holds application configuration values.
type Config struct {
	AppEnv      string   `yaml:"app_env"`
	HTTPPort    string   `yaml:"http_port"`
	APIPrefix   string   `yaml:"api_prefix"`
	CORSOrigins []string `yaml:"cors_origins"`

	DatabasePath string `yaml:"database_path"`
	BackupDir    string `yaml:"backup_dir"`
	BackupPrefix string `yaml:"backup_prefix"`
	MaxUploadMB  int    `yaml:"max_upload_mb"`

	AllowNegativeStock bool   `yaml:"allow_negative_stock"`
	SeedCatalog        string `yaml:"seed_catalog"`

	Logger LoggerConfig `yaml:"logger"`

	// Admin guard is disabled while AdminPasswordHash is empty.
	AdminPasswordHash string `yaml:"admin_password_hash"`
	Secret            string `yaml:"secret"`
}

type LoggerConfig struct {
	Level             string `yaml:"level"`
	Encoding          string `yaml:"encoding"`
	DisableCaller     bool   `yaml:"disable_caller"`
	DisableStacktrace bool   `yaml:"disable_stacktrace"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		AppEnv:             "production",
		HTTPPort:           "8080",
		APIPrefix:          "/api",
		CORSOrigins:        []string{"*"},
		DatabasePath:       "inventory.db",
		BackupDir:          "backups",
		BackupPrefix:       "inventory-backup",
		MaxUploadMB:        200,
		AllowNegativeStock: true,
		Logger: LoggerConfig{
			Level:             "info",
			Encoding:          "json",
			DisableStacktrace: true,
		},
		Secret: defaultSecret,
	}
}

// Load reads configuration from an optional YAML file (CONFIG_FILE) and then
// environment variables, which take precedence.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.APIPrefix = getEnv("API_PREFIX", cfg.APIPrefix)
	cfg.CORSOrigins = getEnvSlice("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.DatabasePath = getEnv("DATABASE_PATH", cfg.DatabasePath)
	cfg.BackupDir = getEnv("BACKUP_DIR", cfg.BackupDir)
	cfg.BackupPrefix = getEnv("BACKUP_PREFIX", cfg.BackupPrefix)
	cfg.MaxUploadMB = getEnvInt("MAX_UPLOAD_MB", cfg.MaxUploadMB)
	cfg.AllowNegativeStock = getEnvBool("ALLOW_NEGATIVE_STOCK", cfg.AllowNegativeStock)
	cfg.SeedCatalog = getEnv("SEED_CATALOG", cfg.SeedCatalog)
	cfg.AdminPasswordHash = getEnv("ADMIN_PASSWORD_HASH", cfg.AdminPasswordHash)
	cfg.Secret = getEnv("SECRET", cfg.Secret)

	if cfg.AppEnv == "development" {
		cfg.Logger.Level = "debug"
		cfg.Logger.Encoding = "console"
	}
	cfg.Logger.Level = getEnv("LOG_LEVEL", cfg.Logger.Level)
	cfg.Logger.Encoding = getEnv("LOG_ENCODING", cfg.Logger.Encoding)
	cfg.Logger.DisableCaller = getEnvBool("LOG_DISABLE_CALLER", cfg.Logger.DisableCaller)
	cfg.Logger.DisableStacktrace = getEnvBool("LOG_DISABLE_STACKTRACE", cfg.Logger.DisableStacktrace)

	// Validate that port is numeric.
	if _, err := strconv.Atoi(cfg.HTTPPort); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", cfg.HTTPPort)
		cfg.HTTPPort = "8080"
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 200
	}
	if cfg.APIPrefix != "" && !strings.HasPrefix(cfg.APIPrefix, "/") {
		cfg.APIPrefix = "/" + cfg.APIPrefix
	}
	cfg.APIPrefix = strings.TrimSuffix(cfg.APIPrefix, "/")

	if cfg.AuthEnabled() && (strings.TrimSpace(cfg.Secret) == "" || cfg.Secret == defaultSecret) {
		return Config{}, errors.New("ADMIN_PASSWORD_HASH is set: SECRET must be set to a private value")
	}

	return cfg, nil
}

// MaxUploadBytes is the request body limit for imports and restores.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// AuthEnabled reports whether the admin guard is active.
func (c Config) AuthEnabled() bool {
	return c.AdminPasswordHash != ""
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		log.Printf("invalid integer for %s: %q", key, value)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Printf("invalid boolean for %s: %q", key, value)
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
