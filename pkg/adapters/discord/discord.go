// Package discord connects the chat pipeline to Discord through discordgo.
package discord

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/aretw0/tablecast/pkg/chat"
	"github.com/bwmarrin/discordgo"
	"github.com/gabriel-vasile/mimetype"
)

// MaxMessageLength is the Discord limit for message content.
const MaxMessageLength = 2000

// Intents are the gateway intents the bot needs to read commands.
const Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent

// API is the subset of *discordgo.Session used for delivery.
type API interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// Messenger implements chat.Messenger over a Discord session.
type Messenger struct {
	api API
}

var _ chat.Messenger = (*Messenger)(nil)

// NewMessenger wraps api.
func NewMessenger(api API) *Messenger {
	return &Messenger{api: api}
}

func (m *Messenger) SendText(ctx context.Context, channelID, text string) (string, error) {
	msg, err := m.api.ChannelMessageSend(channelID, truncate(text, MaxMessageLength), discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("discord send: %w", err)
	}
	return msg.ID, nil
}

func (m *Messenger) SendImage(ctx context.Context, channelID, filename string, image []byte, caption string) error {
	_, err := m.api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: truncate(caption, MaxMessageLength),
		Files: []*discordgo.File{{
			Name:        filename,
			ContentType: mimetype.Detect(image).String(),
			Reader:      bytes.NewReader(image),
		}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord send image: %w", err)
	}
	return nil
}

func (m *Messenger) Delete(ctx context.Context, channelID, messageID string) error {
	if err := m.api.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord delete: %w", err)
	}
	return nil
}

// truncate cuts s to at most n bytes on a rune boundary, keeping a closing code fence
// balanced.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	const tail = "\n...\n```"
	cut := n - len(tail)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + tail
}

// Bot receives message events and runs the chat pipeline for each.
type Bot struct {
	session *discordgo.Session
	handler *chat.Handler
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	remove func()

	// mu orders wg.Add in onMessage against wg.Wait in Close.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Option configures the Bot.
type Option func(*Bot)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = logger
	}
}

// NewSession creates a discordgo session for a bot token with the required intents.
// The session is not opened.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = Intents
	return s, nil
}

// NewBot wires handler to session. The handler must reply through a Messenger built
// on the same session.
func NewBot(session *discordgo.Session, handler *chat.Handler, opts ...Option) *Bot {
	b := &Bot{
		session: session,
		handler: handler,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open registers the message handler and connects to the gateway.
// Messages are handled until ctx is done or Close is called.
func (b *Bot) Open(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.remove = b.session.AddHandler(b.onMessage)
	if err := b.session.Open(); err != nil {
		b.remove()
		b.cancel()
		return fmt.Errorf("discord open: %w", err)
	}
	b.logger.Info("discord bot connected")
	return nil
}

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		handled, err := b.handler.Handle(b.ctx, chat.Message{
			ChannelID: m.ChannelID,
			MessageID: m.ID,
			Author:    m.Author.Mention(),
			Text:      m.Content,
		})
		if err != nil {
			b.logger.Warn("discord reply failed", "channel", m.ChannelID, "err", err)
		} else if handled {
			b.logger.Debug("discord command handled", "channel", m.ChannelID)
		}
	}()
}

// Close stops accepting messages, waits for in-flight commands and disconnects.
func (b *Bot) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	if b.remove != nil {
		b.remove()
	}
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	return b.session.Close()
}
