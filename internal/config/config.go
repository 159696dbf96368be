package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the worker configuration. Every field maps to a SPIDER_* env var.
type Config struct {
	Spider SpiderConfig
	HTTP   HTTPConfig
	Server ServerConfig
	Log    LogConfig
}

// SpiderConfig controls the fetch race and batch crawling.
type SpiderConfig struct {
	Name         string        `envconfig:"SPIDER_NAME" default:"html-spider"`
	FetchTimeout time.Duration `envconfig:"SPIDER_FETCH_TIMEOUT" default:"60s"`
	Concurrency  int           `envconfig:"SPIDER_CONCURRENCY" default:"10"`
}

// HTTPConfig tunes the HTTP client.
type HTTPConfig struct {
	Timeout     time.Duration `envconfig:"SPIDER_HTTP_TIMEOUT" default:"90s"`
	DialTimeout time.Duration `envconfig:"SPIDER_DIAL_TIMEOUT" default:"5s"`
	SizeCap     int64         `envconfig:"SPIDER_SIZE_CAP" default:"5242880"`
	UserAgent   string        `envconfig:"SPIDER_USER_AGENT" default:"htmlspider/1.0"`
}

type ServerConfig struct {
	Addr string `envconfig:"SPIDER_ADDR" default:":8080"`
}

type LogConfig struct {
	Level       string `envconfig:"SPIDER_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"SPIDER_LOG_DEV" default:"false"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the worker cannot run with.
func (c *Config) Validate() error {
	if c.Spider.FetchTimeout <= 0 {
		return fmt.Errorf("invalid config: fetch timeout must be positive, got %s", c.Spider.FetchTimeout)
	}
	if c.Spider.Concurrency <= 0 {
		return fmt.Errorf("invalid config: concurrency must be positive, got %d", c.Spider.Concurrency)
	}
	if c.HTTP.SizeCap <= 0 {
		return fmt.Errorf("invalid config: size cap must be positive, got %d", c.HTTP.SizeCap)
	}
	return nil
}

// Default returns the configuration Load yields with an empty environment.
func Default() *Config {
	return &Config{
		Spider: SpiderConfig{
			Name:         "html-spider",
			FetchTimeout: 60 * time.Second,
			Concurrency:  10,
		},
		HTTP: HTTPConfig{
			Timeout:     90 * time.Second,
			DialTimeout: 5 * time.Second,
			SizeCap:     5 * 1024 * 1024,
			UserAgent:   "htmlspider/1.0",
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info"},
	}
}
