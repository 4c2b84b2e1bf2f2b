package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"5000"`
	AppURL    string `env:"APP_URL" default:"http://localhost:5000"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
	LogFile   string `env:"LOG_FILE"`

	TickInterval time.Duration `env:"TICK_INTERVAL" default:"16.7ms"`
	ChartKinds   string        `env:"CHART_KINDS" default:"frame_time,chunk_loaded"`

	ProducerClient          string        `env:"PRODUCER_CLIENT"`
	ProducerRedisURL        string        `env:"PRODUCER_REDIS_URL"`
	ProducerKeyPrefix       string        `env:"PRODUCER_KEY_PREFIX" default:"producer"`
	ProducerOpTimeout       time.Duration `env:"PRODUCER_OP_TIMEOUT" default:"1s"`
	ProducerConnectAttempts int           `env:"PRODUCER_CONNECT_ATTEMPTS" default:"3"`

	ShutdownNotifyURL string `env:"SHUTDOWN_NOTIFY_URL"`

	MaxViewers         int     `env:"MAX_VIEWERS" default:"100"`
	MaxViewersPerIP    int     `env:"MAX_VIEWERS_PER_IP" default:"10"`
	ViewerConnectRate  float64 `env:"VIEWER_CONNECT_RATE" default:"10"`
	ViewerConnectBurst int     `env:"VIEWER_CONNECT_BURST" default:"10"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	if cfg.ShutdownNotifyURL == "" {
		cfg.ShutdownNotifyURL = "http://127.0.0.1:" + cfg.Port + "/internal/shutdown"
	}

	return &cfg, nil
}

// ChartKindList returns the recognized chart keys in configured order.
// Order matters: the first recognized key in a message wins.
func (c *Config) ChartKindList() []string {
	return splitList(c.ChartKinds)
}

// HasProducer reports whether any producer connector is configured.
func (c *Config) HasProducer() bool {
	return c.ProducerClient != "" || c.ProducerRedisURL != ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func validate(cfg *Config) error {
	if cfg.Port == "" {
		return errors.New("PORT is required")
	}
	if cfg.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive, got %s", cfg.TickInterval)
	}
	if len(splitList(cfg.ChartKinds)) == 0 {
		return errors.New("CHART_KINDS must name at least one key")
	}
	if cfg.ProducerOpTimeout <= 0 {
		return fmt.Errorf("PRODUCER_OP_TIMEOUT must be positive, got %s", cfg.ProducerOpTimeout)
	}
	if cfg.ProducerConnectAttempts < 1 {
		return fmt.Errorf("PRODUCER_CONNECT_ATTEMPTS must be at least 1, got %d", cfg.ProducerConnectAttempts)
	}
	if cfg.MaxViewers < 1 {
		return fmt.Errorf("MAX_VIEWERS must be at least 1, got %d", cfg.MaxViewers)
	}
	if cfg.MaxViewersPerIP < 1 {
		return fmt.Errorf("MAX_VIEWERS_PER_IP must be at least 1, got %d", cfg.MaxViewersPerIP)
	}
	if cfg.ViewerConnectRate <= 0 || cfg.ViewerConnectBurst < 1 {
		return errors.New("VIEWER_CONNECT_RATE and VIEWER_CONNECT_BURST must be positive")
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
