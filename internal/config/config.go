package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

var ErrMissingAPIKey = errors.New("gemini api key is not set")

type Config struct {
	App       AppConfig       `toml:"app"`
	Gemini    GeminiConfig    `toml:"gemini"`
	Reference ReferenceConfig `toml:"reference"`
	Readiness ReadinessConfig `toml:"readiness"`
	Classify  ClassifyConfig  `toml:"classify"`
	Redis     RedisConfig     `toml:"redis"`
	RabbitMQ  RabbitMQConfig  `toml:"rabbitmq"`
	Cleanup   CleanupConfig   `toml:"cleanup"`
}

type AppConfig struct {
	Name    string `toml:"name"`
	Env     string `toml:"env"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	GinMode string `toml:"gin_mode"`
}

type GeminiConfig struct {
	APIKey          string  `toml:"api_key"`
	Model           string  `toml:"model"`
	Temperature     float64 `toml:"temperature"`
	TopP            float64 `toml:"top_p"`
	TopK            int     `toml:"top_k"`
	MaxOutputTokens int     `toml:"max_output_tokens"`
}

type ReferenceConfig struct {
	Path     string `toml:"path"`
	MIMEType string `toml:"mime_type"`
}

// ReadinessConfig bounds the remote file status polling. Startup and request
// waits share the interval but have their own attempt budgets.
type ReadinessConfig struct {
	IntervalSeconds    int `toml:"interval_seconds"`
	StartupMaxAttempts int `toml:"startup_max_attempts"`
	RequestMaxAttempts int `toml:"request_max_attempts"`
}

type ClassifyConfig struct {
	TempDir        string `toml:"temp_dir"`
	MaxImageBytes  int64  `toml:"max_image_bytes"`
	MaxImageSide   int    `toml:"max_image_side"`
	MaxImagePixels int    `toml:"max_image_pixels"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type RedisConfig struct {
	Addr             string `toml:"addr"`
	Password         string `toml:"password"`
	DB               int    `toml:"db"`
	ResultTTLSeconds int    `toml:"result_ttl_seconds"`
}

type RabbitMQConfig struct {
	URL          string `toml:"url"`
	CleanupQueue string `toml:"cleanup_queue"`
}

type CleanupConfig struct {
	DeleteRemoteImages bool `toml:"delete_remote_images"`
}

func Load() (*Config, error) {
	cfg := Default()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Reference.Path == "" {
		return errors.New("reference path is empty")
	}
	if c.Readiness.IntervalSeconds < 0 {
		return fmt.Errorf("invalid readiness interval: %d", c.Readiness.IntervalSeconds)
	}
	return nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Readiness.IntervalSeconds) * time.Second
}

func (c *Config) ClassifyTimeout() time.Duration {
	return time.Duration(c.Classify.TimeoutSeconds) * time.Second
}

func (c *Config) ResultTTL() time.Duration {
	return time.Duration(c.Redis.ResultTTLSeconds) * time.Second
}

func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

func (c *Config) RabbitMQEnabled() bool {
	return c.RabbitMQ.URL != ""
}

// Default returns the built-in configuration before file and env overrides.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:    "product-lens",
			Env:     "dev",
			Host:    "0.0.0.0",
			Port:    5000,
			GinMode: "debug",
		},
		Gemini: GeminiConfig{
			Model:           "gemini-2.0-flash-exp",
			Temperature:     1,
			TopP:            0.95,
			TopK:            40,
			MaxOutputTokens: 8192,
		},
		Reference: ReferenceConfig{
			Path:     "samples.tsv",
			MIMEType: "text/tab-separated-values",
		},
		Readiness: ReadinessConfig{
			IntervalSeconds:    10,
			StartupMaxAttempts: 60,
			RequestMaxAttempts: 12,
		},
		Classify: ClassifyConfig{
			TempDir:        os.TempDir(),
			MaxImageBytes:  10 << 20,
			MaxImageSide:   3072,
			MaxImagePixels: 40_000_000,
			TimeoutSeconds: 120,
		},
		Redis: RedisConfig{
			Addr:             "",
			DB:               0,
			ResultTTLSeconds: 3600,
		},
		RabbitMQ: RabbitMQConfig{
			URL:          "",
			CleanupQueue: "classify.remote_file.cleanup",
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)

	cfg.Gemini.APIKey = getEnv("GEMINI_API_KEY", cfg.Gemini.APIKey)
	cfg.Gemini.Model = getEnv("GEMINI_MODEL", cfg.Gemini.Model)
	cfg.Gemini.Temperature = getEnvAsFloat("GEMINI_TEMPERATURE", cfg.Gemini.Temperature)
	cfg.Gemini.TopP = getEnvAsFloat("GEMINI_TOP_P", cfg.Gemini.TopP)
	cfg.Gemini.TopK = getEnvAsInt("GEMINI_TOP_K", cfg.Gemini.TopK)
	cfg.Gemini.MaxOutputTokens = getEnvAsInt("GEMINI_MAX_OUTPUT_TOKENS", cfg.Gemini.MaxOutputTokens)

	cfg.Reference.Path = getEnv("REFERENCE_PATH", cfg.Reference.Path)
	cfg.Reference.MIMEType = getEnv("REFERENCE_MIME_TYPE", cfg.Reference.MIMEType)

	cfg.Readiness.IntervalSeconds = getEnvAsInt("READINESS_INTERVAL_SECONDS", cfg.Readiness.IntervalSeconds)
	cfg.Readiness.StartupMaxAttempts = getEnvAsInt("READINESS_STARTUP_MAX_ATTEMPTS", cfg.Readiness.StartupMaxAttempts)
	cfg.Readiness.RequestMaxAttempts = getEnvAsInt("READINESS_REQUEST_MAX_ATTEMPTS", cfg.Readiness.RequestMaxAttempts)

	cfg.Classify.TempDir = getEnv("CLASSIFY_TEMP_DIR", cfg.Classify.TempDir)
	cfg.Classify.MaxImageBytes = int64(getEnvAsInt("CLASSIFY_MAX_IMAGE_BYTES", int(cfg.Classify.MaxImageBytes)))
	cfg.Classify.MaxImageSide = getEnvAsInt("CLASSIFY_MAX_IMAGE_SIDE", cfg.Classify.MaxImageSide)
	cfg.Classify.MaxImagePixels = getEnvAsInt("CLASSIFY_MAX_IMAGE_PIXELS", cfg.Classify.MaxImagePixels)
	cfg.Classify.TimeoutSeconds = getEnvAsInt("CLASSIFY_TIMEOUT_SECONDS", cfg.Classify.TimeoutSeconds)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.ResultTTLSeconds = getEnvAsInt("REDIS_RESULT_TTL_SECONDS", cfg.Redis.ResultTTLSeconds)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.CleanupQueue = getEnv("RABBITMQ_CLEANUP_QUEUE", cfg.RabbitMQ.CleanupQueue)

	cfg.Cleanup.DeleteRemoteImages = getEnvAsBool("CLEANUP_DELETE_REMOTE_IMAGES", cfg.Cleanup.DeleteRemoteImages)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
