package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxUploadBytes caps multipart uploads at 16 MiB
const DefaultMaxUploadBytes int64 = 16 << 20

// Config holds all application configuration
type Config struct {
	Server struct {
		Port            string   `json:"port"`
		StaticDir       string   `json:"static_dir"`
		UploadDir       string   `json:"upload_dir"`
		MaxUploadBytes  int64    `json:"max_upload_bytes"`
		AllowedOrigins  []string `json:"allowed_origins"`
		ShutdownTimeout Duration `json:"shutdown_timeout"`
	} `json:"server"`

	Image struct {
		// MaxPixels bounds width*height of uploads; zero uses the built-in limit
		MaxPixels int `json:"max_pixels"`
	} `json:"image"`

	Catalog struct {
		// Path to a SQLite catalog; empty uses the built-in profiles
		Path string `json:"path"`
	} `json:"catalog"`

	ML struct {
		Type       string `json:"type"` // "onnx", "google" or "stub"
		ConfigPath string `json:"config_path"`
		ModelPath  string `json:"model_path"`
	} `json:"ml"`

	Log struct {
		Level  string `json:"level"`
		Format string `json:"format"` // "text", "json" or "cli"
	} `json:"log"`
}

// Duration is a time.Duration that decodes from a string such as "30s"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// LoadConfig loads configuration from a JSON file. A missing file is not an
// error: defaults and environment variables are used instead.
func LoadConfig(configPath string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()

	if _, err := strconv.Atoi(config.Server.Port); err != nil {
		return nil, fmt.Errorf("invalid server port %q", config.Server.Port)
	}
	if config.Server.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("max upload bytes must be positive")
	}
	if config.Image.MaxPixels < 0 {
		return nil, fmt.Errorf("max image pixels must not be negative")
	}

	return &config, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.StaticDir = getEnv("STATIC_DIR", c.Server.StaticDir)
	c.Server.UploadDir = getEnv("UPLOAD_DIR", c.Server.UploadDir)
	c.Server.MaxUploadBytes = getInt64Env("MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes)
	c.Server.AllowedOrigins = getStringSliceEnv("ALLOWED_ORIGINS", c.Server.AllowedOrigins)
	c.Server.ShutdownTimeout.Duration = getDurationEnv("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout.Duration)
	c.Image.MaxPixels = int(getInt64Env("MAX_IMAGE_PIXELS", int64(c.Image.MaxPixels)))
	c.Catalog.Path = getEnv("CATALOG_DB_PATH", c.Catalog.Path)
	c.ML.Type = getEnv("ML_TYPE", c.ML.Type)
	c.ML.ConfigPath = getEnv("ML_CONFIG_PATH", c.ML.ConfigPath)
	c.ML.ModelPath = getEnv("MODEL_PATH", c.ML.ModelPath)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.UploadDir == "" {
		c.Server.UploadDir = filepath.Join(os.TempDir(), "freshness-uploads")
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Server.ShutdownTimeout.Duration == 0 {
		c.Server.ShutdownTimeout.Duration = 30 * time.Second
	}
	if c.ML.Type == "" {
		c.ML.Type = "onnx"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// GetConfigPath returns the path to the configuration file
func GetConfigPath() string {
	// First try environment variable
	if path := os.Getenv("FRESHNESS_CONFIG"); path != "" {
		return path
	}

	// Then try config directory
	configDir := "config"
	if _, err := os.Stat(configDir); err == nil {
		return filepath.Join(configDir, "config.json")
	}

	// Finally, try current directory
	return "config.json"
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getStringSliceEnv reads a comma-separated list
func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
