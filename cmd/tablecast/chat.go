package main

import (
	"log/slog"

	"github.com/aretw0/tablecast"
	"github.com/aretw0/tablecast/pkg/chat"
	"github.com/aretw0/tablecast/pkg/config"
)

func chatHandler(cfg config.Config, r *tablecast.Renderer, m chat.Messenger, logger *slog.Logger) *chat.Handler {
	return chat.NewHandler(r, m,
		chat.WithNormalizer(r.Normalizer()),
		chat.WithConfig(chat.Config{
			Filename:        cfg.Chat.Filename,
			ProgressMessage: cfg.Chat.ProgressMessage,
			Caption:         cfg.Chat.Caption,
		}),
		chat.WithLogger(logger),
	)
}
