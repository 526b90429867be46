package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Vigia VigiaConfig `yaml:"vigia"`
}

// VigiaConfig is the project configuration.
type VigiaConfig struct {
	Redis     RedisConfig     `yaml:"redis"`
	Processor ProcessorConfig `yaml:"processor"`
	Server    ServerConfig    `yaml:"server"`
	Retention RetentionConfig `yaml:"retention"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// RedisConfig controls the durable queues.
type RedisConfig struct {
	Addr            string `yaml:"addr"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	DetectionsQueue string `yaml:"detections_queue"`
	BufferQueue     string `yaml:"buffer_queue"`
}

// ProcessorConfig controls the consumer/validator side.
type ProcessorConfig struct {
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	MarkersDir          string        `yaml:"markers_dir"`
	MarkerTTL           time.Duration `yaml:"marker_ttl"`
	ServerURL           string        `yaml:"server_url"`
	DialTimeout         time.Duration `yaml:"dial_timeout"`
	SystemName          string        `yaml:"system_name"`
}

// ServerConfig controls the alert server side.
type ServerConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	StoragePath       string `yaml:"storage_path"`
	LogsPath          string `yaml:"logs_path"`
	DisplayQueueDepth int    `yaml:"display_queue_depth"`
}

// RetentionConfig controls the daily storage cleanup.
type RetentionConfig struct {
	DeleteDays       int `yaml:"delete_days"`
	LogDeleteDays    int `yaml:"log_delete_days"`
	EraseHour        int `yaml:"erase_hour"`
	EraseMinute      int `yaml:"erase_minute"`
	EraseSecond      int `yaml:"erase_second"`
	EraseMillisecond int `yaml:"erase_millisecond"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// Load reads the YAML config file (optional) and applies environment
// overrides on top. A .env file in the working directory is honored.
func Load(path string) (*Config, error) {
	// Missing .env is the normal case outside container deployments.
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)
	return &cfg, nil
}

// applyEnv maps the deployment's environment variables onto the config.
// Environment values win over the YAML file.
func applyEnv(cfg *Config) {
	if host := os.Getenv("REDIS_HOST"); host != "" {
		port := envInt("REDIS_PORT", 6379)
		cfg.Vigia.Redis.Addr = fmt.Sprintf("%s:%d", host, port)
	}
	setString(&cfg.Vigia.Redis.DetectionsQueue, "DETECTIONS_QUEUE")
	setString(&cfg.Vigia.Redis.BufferQueue, "BUFFER_QUEUE")
	setString(&cfg.Vigia.Processor.ServerURL, "WEBSOCKET_SERVER")
	setString(&cfg.Vigia.Server.Host, "WS_HOST")
	setInt(&cfg.Vigia.Server.Port, "WS_PORT")
	setString(&cfg.Vigia.Server.StoragePath, "PATH_STORAGE")
	setString(&cfg.Vigia.Server.LogsPath, "PATH_LOGS")
	setInt(&cfg.Vigia.Retention.DeleteDays, "DELETE_DAYS")
	setInt(&cfg.Vigia.Retention.LogDeleteDays, "LOG_DELETE_DAYS")
	setInt(&cfg.Vigia.Retention.EraseHour, "ERASE_HOUR")
	setInt(&cfg.Vigia.Retention.EraseMinute, "ERASE_MINUTE")
	setInt(&cfg.Vigia.Retention.EraseSecond, "ERASE_SECOND")
	setInt(&cfg.Vigia.Retention.EraseMillisecond, "ERASE_MSECOND")

	if raw := os.Getenv("CONFIDENCE_THRESHOLD"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			cfg.Vigia.Processor.ConfidenceThreshold = v
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			*dst = v
		}
	}
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}
