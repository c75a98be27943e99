// Package config defines the tablecast configuration, its defaults and its validation.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/tablecast/pkg/imagecheck"
	"github.com/aretw0/tablecast/pkg/strategy/browser"
	"github.com/aretw0/tablecast/pkg/strategy/httpprobe"
)

// Strategy types.
const (
	TypeHTTP    = "http"
	TypeBrowser = "browser"
)

// Limiter backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Drivers lists the known browser driver names.
var Drivers = []string{"rod", "chromedp", "playwright"}

// Config is read once at startup and read-only afterwards.
type Config struct {
	LogLevel     string             `mapstructure:"log_level"`
	LogFormat    string             `mapstructure:"log_format"`
	MaxInputSize int                `mapstructure:"max_input_size"`
	Image        imagecheck.Checker `mapstructure:"image"`
	Limiter      LimiterConfig      `mapstructure:"limiter"`
	Strategies   []StrategyConfig   `mapstructure:"strategies"`
	Chat         ChatConfig         `mapstructure:"chat"`
	HTTP         HTTPConfig         `mapstructure:"http"`
}

// LimiterConfig bounds concurrent browser sessions.
type LimiterConfig struct {
	Backend     string      `mapstructure:"backend"`
	MaxSessions int         `mapstructure:"max_sessions"`
	Redis       RedisConfig `mapstructure:"redis"`
}

// RedisConfig configures the distributed limiter.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// StrategyConfig is one registry entry. Only the section matching Type is used.
type StrategyConfig struct {
	Name    string           `mapstructure:"name"`
	Type    string           `mapstructure:"type"`
	Timeout time.Duration    `mapstructure:"timeout"`
	Driver  string           `mapstructure:"driver"`
	HTTP    httpprobe.Config `mapstructure:"http"`
	Browser browser.Config   `mapstructure:"browser"`
}

// ChatConfig drives the chat command pipeline.
type ChatConfig struct {
	Trigger         string `mapstructure:"trigger"`
	Filename        string `mapstructure:"filename"`
	ProgressMessage string `mapstructure:"progress_message"`
	Caption         string `mapstructure:"caption"`
}

// HTTPConfig configures the HTTP API server.
type HTTPConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

// Default returns the built-in configuration: an HTTP probe against gb2.hlorenzi.com,
// then browser automation against both observed hosts.
func Default() Config {
	return Config{
		LogLevel:     "info",
		LogFormat:    "text",
		MaxInputSize: 8192,
		Image:        imagecheck.Default(),
		Limiter: LimiterConfig{
			Backend:     BackendMemory,
			MaxSessions: 2,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "tablecast:",
				TTL:    5 * time.Minute,
			},
		},
		Strategies: DefaultStrategies(),
		Chat: ChatConfig{
			Trigger:         "maketable",
			Filename:        "tableau.png",
			ProgressMessage: "Rendering your table, this takes 10-15 seconds...",
			Caption:         "Table for %s",
		},
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      3 * time.Minute,
		},
	}
}

// DefaultStrategies returns the default registry, in attempt order.
func DefaultStrategies() []StrategyConfig {
	return []StrategyConfig{
		{
			Name:    "http-api",
			Type:    TypeHTTP,
			Timeout: 20 * time.Second,
			HTTP: httpprobe.Config{
				BaseURL:     "https://gb2.hlorenzi.com",
				CallTimeout: 8 * time.Second,
				Candidates:  httpprobe.DefaultCandidates(),
			},
		},
		{
			Name:    "browser-gb2",
			Type:    TypeBrowser,
			Timeout: 60 * time.Second,
			Driver:  "rod",
			Browser: browser.DefaultConfig("https://gb2.hlorenzi.com/table"),
		},
		{
			Name:    "browser-gb",
			Type:    TypeBrowser,
			Timeout: 60 * time.Second,
			Driver:  "rod",
			Browser: browser.DefaultConfig("https://gb.hlorenzi.com/table"),
		},
	}
}

// defaultStrategy is the base a configured strategy entry is decoded onto.
func defaultStrategy(typ string) StrategyConfig {
	s := StrategyConfig{Type: typ, Timeout: 60 * time.Second}
	switch typ {
	case TypeHTTP:
		s.Timeout = 20 * time.Second
		s.HTTP = httpprobe.Config{CallTimeout: httpprobe.DefaultCallTimeout, Candidates: httpprobe.DefaultCandidates()}
	case TypeBrowser:
		s.Driver = "rod"
		s.Browser = browser.DefaultConfig("")
	}
	return s
}

// Validate checks the configuration as a whole.
func (c Config) Validate() error {
	var errs []error

	if c.Image.MinBytes > 0 && c.Image.MaxBytes > 0 && c.Image.MinBytes > c.Image.MaxBytes {
		errs = append(errs, fmt.Errorf("image: min_bytes %d > max_bytes %d", c.Image.MinBytes, c.Image.MaxBytes))
	}

	switch c.Limiter.Backend {
	case BackendMemory, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("limiter: unknown backend %q", c.Limiter.Backend))
	}
	if c.Limiter.MaxSessions <= 0 {
		errs = append(errs, errors.New("limiter: max_sessions must be positive"))
	}

	if len(c.Strategies) == 0 {
		errs = append(errs, errors.New("strategies: at least one is required"))
	}
	seen := make(map[string]bool)
	for i, s := range c.Strategies {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("strategies[%d]: name is required", i))
			continue
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("strategies[%d]: duplicate name %q", i, s.Name))
		}
		seen[s.Name] = true
		if s.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("strategy %q: timeout must be positive", s.Name))
		}

		switch s.Type {
		case TypeHTTP:
			if err := s.HTTP.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("strategy %q: %w", s.Name, err))
			}
		case TypeBrowser:
			if !knownDriver(s.Driver) {
				errs = append(errs, fmt.Errorf("strategy %q: unknown driver %q", s.Name, s.Driver))
			}
			if err := s.Browser.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("strategy %q: %w", s.Name, err))
			}
			if c.Limiter.Backend == BackendRedis && c.Limiter.Redis.TTL <= s.Timeout {
				errs = append(errs, fmt.Errorf("strategy %q: timeout %s must be below limiter.redis.ttl %s", s.Name, s.Timeout, c.Limiter.Redis.TTL))
			}
		default:
			errs = append(errs, fmt.Errorf("strategy %q: unknown type %q", s.Name, s.Type))
		}
	}

	return errors.Join(errs...)
}

func knownDriver(name string) bool {
	for _, d := range Drivers {
		if d == name {
			return true
		}
	}
	return false
}
