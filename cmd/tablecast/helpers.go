package main

import (
	"log/slog"

	"github.com/aretw0/tablecast"
	"github.com/aretw0/tablecast/internal/cli"
	"github.com/aretw0/tablecast/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
)

func bind(flag *pflag.Flag, key string) {
	if err := settings.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// setup loads settings and builds the logger and renderer shared by every command.
func setup(reg prometheus.Registerer) (config.Config, *slog.Logger, *tablecast.Renderer, error) {
	cfg, err := cli.LoadConfig(settings)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	logger, err := cli.NewLogger(cfg)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	r, err := cli.NewRenderer(cfg, logger, reg, settings.GetBool(cli.KeyTrace))
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	return cfg, logger, r, nil
}
