package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/tablecast"
	"github.com/aretw0/tablecast/internal/logging"
	"github.com/aretw0/tablecast/pkg/config"
	"github.com/aretw0/tablecast/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
)

// Setting keys shared by flags, environment (TABLECAST_ prefix, dots as
// underscores) and the configuration file.
const (
	KeyConfig         = "config"
	KeyLogLevel       = "log_level"
	KeyLogFormat      = "log_format"
	KeyTrace          = "trace"
	KeyHTTPAddr       = "http.addr"
	KeyLimiterBackend = "limiter.backend"
	KeyMaxSessions    = "limiter.max_sessions"
	KeyRedisAddr      = "limiter.redis.addr"
	KeyRedisPassword  = "limiter.redis.password"
	KeyDriver         = "driver"
	KeyDiscordToken   = "discord.token"
	KeyTelegramToken  = "telegram.token"
)

// NewViper returns a viper instance reading TABLECAST_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("TABLECAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads the configuration file named by the config setting and applies
// flag and environment overrides on top of it.
func LoadConfig(v *viper.Viper) (config.Config, error) {
	cfg, err := config.Load(v.GetString(KeyConfig))
	if err != nil {
		return config.Config{}, err
	}

	if s := v.GetString(KeyLogLevel); s != "" {
		cfg.LogLevel = s
	}
	if s := v.GetString(KeyLogFormat); s != "" {
		cfg.LogFormat = s
	}
	if s := v.GetString(KeyHTTPAddr); s != "" {
		cfg.HTTP.Addr = s
	}
	if s := v.GetString(KeyLimiterBackend); s != "" {
		cfg.Limiter.Backend = s
	}
	if n := v.GetInt(KeyMaxSessions); n > 0 {
		cfg.Limiter.MaxSessions = n
	}
	if s := v.GetString(KeyRedisAddr); s != "" {
		cfg.Limiter.Redis.Addr = s
	}
	if s := v.GetString(KeyRedisPassword); s != "" {
		cfg.Limiter.Redis.Password = s
	}
	if d := v.GetString(KeyDriver); d != "" {
		for i := range cfg.Strategies {
			if cfg.Strategies[i].Type == config.TypeBrowser {
				cfg.Strategies[i].Driver = d
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid settings: %w", err)
	}
	return cfg, nil
}

// NewLogger builds the application logger from cfg.
func NewLogger(cfg config.Config) (*slog.Logger, error) {
	return logging.New(cfg.LogLevel, cfg.LogFormat)
}

// NewRenderer builds the Renderer with CLI conventions: the shared logger, metrics
// on reg when non-nil, and one record per lifecycle event when trace is set.
func NewRenderer(cfg config.Config, logger *slog.Logger, reg prometheus.Registerer, trace bool) (*tablecast.Renderer, error) {
	opts := []tablecast.Option{tablecast.WithLogger(logger)}
	if reg != nil {
		opts = append(opts, tablecast.WithRegisterer(reg))
	}
	if trace {
		opts = append(opts, tablecast.WithLifecycleHooks(observability.LogHooks(logger)))
	}
	r, err := tablecast.New(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing renderer: %w", err)
	}
	return r, nil
}
