// Package chat implements the chat command pipeline: recognize the trigger word,
// validate the table text, post a progress message, render, and reply with the
// image or an error report.
//
// Platform adapters (Discord, Telegram) translate their events into Message values
// and implement Messenger. They own the connection handles; the pipeline never
// touches them.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/aretw0/tablecast/pkg/normalize"
	"github.com/aretw0/tablecast/pkg/ports"
)

// Message is an inbound chat message.
type Message struct {
	ChannelID string
	MessageID string
	// Author is how replies address the sender, already in platform syntax
	// (a Discord mention, a Telegram @username).
	Author string
	Text   string
}

// Messenger delivers replies to a chat platform.
type Messenger interface {
	// SendText posts text and returns the platform ID of the new message.
	SendText(ctx context.Context, channelID, text string) (string, error)
	SendImage(ctx context.Context, channelID, filename string, image []byte, caption string) error
	Delete(ctx context.Context, channelID, messageID string) error
}

// Defaults for Config.
const (
	DefaultFilename        = "tableau.png"
	DefaultProgressMessage = "Rendering your table, this takes 10-15 seconds..."
	DefaultCaption         = "Table for %s"
)

// Config holds the user-facing texts of the pipeline.
type Config struct {
	Filename        string
	ProgressMessage string
	// Caption is a format string receiving the author.
	Caption string
}

// Handler runs the pipeline for every message it is given. Safe for concurrent use;
// adapters call Handle from one goroutine per message.
type Handler struct {
	renderer   ports.Renderer
	messenger  Messenger
	normalizer *normalize.Normalizer
	cfg        Config
	logger     *slog.Logger
}

// Option configures the Handler.
type Option func(*Handler)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithConfig overrides the reply texts. Empty fields keep their default.
func WithConfig(cfg Config) Option {
	return func(h *Handler) {
		if cfg.Filename != "" {
			h.cfg.Filename = cfg.Filename
		}
		if cfg.ProgressMessage != "" {
			h.cfg.ProgressMessage = cfg.ProgressMessage
		}
		if cfg.Caption != "" {
			h.cfg.Caption = cfg.Caption
		}
	}
}

// WithNormalizer sets the normalizer holding the trigger word and input limit.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(h *Handler) {
		h.normalizer = n
	}
}

// NewHandler creates a Handler replying through messenger.
func NewHandler(renderer ports.Renderer, messenger Messenger, opts ...Option) *Handler {
	h := &Handler{
		renderer:   renderer,
		messenger:  messenger,
		normalizer: normalize.New(),
		cfg: Config{
			Filename:        DefaultFilename,
			ProgressMessage: DefaultProgressMessage,
			Caption:         DefaultCaption,
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle runs the pipeline for msg. It reports false, without replying, when msg is
// not a trigger command. Errors are delivery failures; rendering failures are replied
// to the user and are not returned.
func (h *Handler) Handle(ctx context.Context, msg Message) (bool, error) {
	if _, ok := h.normalizer.Match(msg.Text); !ok {
		return false, nil
	}
	log := h.logger.With("channel", msg.ChannelID, "message", msg.MessageID)

	payload, err := h.normalizer.Normalize(msg.Text)
	if err == nil {
		err = normalize.ValidateShape(payload)
	}
	if err != nil {
		log.Debug("command rejected", "err", err)
		_, sendErr := h.messenger.SendText(ctx, msg.ChannelID, h.usage(err))
		return true, sendErr
	}

	progressID, err := h.messenger.SendText(ctx, msg.ChannelID, h.cfg.ProgressMessage)
	if err != nil {
		log.Warn("progress message failed", "err", err)
	}
	defer func() {
		if progressID == "" {
			return
		}
		if err := h.messenger.Delete(context.WithoutCancel(ctx), msg.ChannelID, progressID); err != nil {
			log.Debug("progress message delete failed", "err", err)
		}
	}()

	res, err := h.renderer.Render(ctx, payload)
	if err != nil {
		log.Info("render failed", "err", err)
		_, sendErr := h.messenger.SendText(ctx, msg.ChannelID, h.failureReply(err, payload))
		return true, sendErr
	}

	log.Info("render delivered", "strategy", res.Strategy, "bytes", len(res.Image))
	caption := h.cfg.Caption
	if strings.Contains(caption, "%s") {
		caption = fmt.Sprintf(caption, msg.Author)
	}
	return true, h.messenger.SendImage(ctx, msg.ChannelID, h.cfg.Filename, res.Image, caption)
}

func (h *Handler) usage(err error) string {
	var b strings.Builder
	switch {
	case errors.Is(err, domain.ErrEmptyPayload):
		b.WriteString("Please add your table after the command.")
	default:
		fmt.Fprintf(&b, "That does not look like a table: %s.", err)
	}
	fmt.Fprintf(&b, "\n\nExample:\n```\n%s\nA - Red\nAlice 1500\nBob 1400\nB - Blue\nCarol 1300\nDan 1200\n```",
		h.normalizer.Trigger())
	return b.String()
}

// failureReply echoes the user's table so it is not lost when rendering fails.
func (h *Handler) failureReply(err error, payload string) string {
	var b strings.Builder
	var failure *domain.Failure
	if errors.As(err, &failure) {
		b.WriteString(failure.Summary())
	} else {
		fmt.Fprintf(&b, "**Rendering failed:** %s\n", err)
	}
	fmt.Fprintf(&b, "\nYour table:\n```\n%s\n```", payload)
	return b.String()
}
