// Package config provides application configuration management with support
// for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Server    ServerConfig
	Data      DataConfig
	Tagger    TaggerConfig
	Transcode TranscodeConfig
	Upload    UploadConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DataConfig holds filesystem and database layout configuration.
// Everything lives under BasePath:
//
//	{base}/db          badger record store
//	{base}/uploads     transient upload files
//	{base}/images      canonical assets
//	{base}/thumbnails  derived previews
type DataConfig struct {
	BasePath string
}

// TaggerConfig holds auto-tagger (Ollama) configuration.
type TaggerConfig struct {
	Enabled bool
	Host    string
	Model   string
	Timeout time.Duration
}

// TranscodeConfig holds external media tool configuration.
type TranscodeConfig struct {
	FFmpegPath string
}

// UploadConfig bounds ingestion load.
type UploadConfig struct {
	// MaxConcurrent caps simultaneous ingestion pipelines (transcoder processes).
	MaxConcurrent int
	// RatePerMinute limits uploads per user; Burst is the token bucket size.
	RatePerMinute float64
	Burst         int
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for data storage")
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 0, streaming uploads)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	taggerEnabled := flag.String("tagger-enabled", "", "Enable auto-tagging (default: true)")
	taggerHost := flag.String("tagger-host", "", "Ollama host (default: http://localhost:11434)")
	taggerModel := flag.String("tagger-model", "", "Ollama vision model (default: moondream)")
	taggerTimeout := flag.String("tagger-timeout", "", "Auto-tagger call timeout (default: 2m)")
	ffmpegPath := flag.String("ffmpeg-path", "", "Path to ffmpeg binary (default: auto-detect)")
	uploadMaxConcurrent := flag.String("upload-max-concurrent", "", "Max concurrent ingestions (default: 4)")
	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Tagger: TaggerConfig{
			Enabled: getBoolConfigValue(*taggerEnabled, "TAGGER_ENABLED", true),
			Host:    getConfigValue(*taggerHost, "TAGGER_HOST", "http://localhost:11434"),
			Model:   getConfigValue(*taggerModel, "TAGGER_MODEL", "moondream"),
		},
		Transcode: TranscodeConfig{
			FFmpegPath: getConfigValue(*ffmpegPath, "FFMPEG_PATH", ""),
		},
		Upload: UploadConfig{
			MaxConcurrent: getIntConfigValue(*uploadMaxConcurrent, "UPLOAD_MAX_CONCURRENT", 4),
			RatePerMinute: 10,
			Burst:         5,
		},
	}

	var err error
	cfg.Tagger.Timeout, err = parseDurationValue(*taggerTimeout, "TAGGER_TIMEOUT", "2m")
	if err != nil {
		return nil, err
	}
	cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	// Uploads stream progress for the lifetime of a transcode, so the write
	// timeout defaults to unlimited; the SSE writer sets per-write deadlines.
	cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "0s")
	if err != nil {
		return nil, err
	}
	cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("DATA_PATH is required")
	}

	if c.Upload.MaxConcurrent < 1 {
		return fmt.Errorf("invalid upload max concurrent: %d (must be >= 1)", c.Upload.MaxConcurrent)
	}

	return nil
}

// DatabasePath returns the badger database directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Data.BasePath, "db")
}

// UploadsPath returns the transient upload directory.
func (c *Config) UploadsPath() string {
	return filepath.Join(c.Data.BasePath, "uploads")
}

// ImagesPath returns the canonical asset directory.
func (c *Config) ImagesPath() string {
	return filepath.Join(c.Data.BasePath, "images")
}

// ThumbnailsPath returns the derived preview directory.
func (c *Config) ThumbnailsPath() string {
	return filepath.Join(c.Data.BasePath, "thumbnails")
}

// expandDataPath expands ~ in the data path and makes it absolute.
func (c *Config) expandDataPath() error {
	if c.Data.BasePath == "" {
		return nil
	}

	path := c.Data.BasePath
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot expand ~: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("cannot resolve path %q: %w", path, err)
	}

	c.Data.BasePath = abs
	return nil
}

// loadEnvFile loads KEY=VALUE pairs from a file into the process environment.
// Existing environment variables are not overwritten.
func loadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close() //nolint:errcheck // Read-only file

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}

	return scanner.Err()
}

// getConfigValue returns the first non-empty of: flag value, env var, default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue parses a boolean with flag > env > default precedence.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getIntConfigValue parses an integer with flag > env > default precedence.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseDurationValue parses a duration with flag > env > default precedence.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	raw := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, raw, err)
	}
	return d, nil
}
