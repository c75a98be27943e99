// Package telegram connects the chat pipeline to Telegram through the Bot API.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/aretw0/tablecast/pkg/chat"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MaxMessageLength is the Telegram limit for message text.
const MaxMessageLength = 4096

// API is the subset of *tgbotapi.BotAPI used for delivery.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Messenger implements chat.Messenger over the Bot API. Channel IDs are chat IDs
// and message IDs are decimal strings.
type Messenger struct {
	api API
}

var _ chat.Messenger = (*Messenger)(nil)

// NewMessenger wraps api.
func NewMessenger(api API) *Messenger {
	return &Messenger{api: api}
}

func (m *Messenger) SendText(ctx context.Context, channelID, text string) (string, error) {
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("telegram chat id %q: %w", channelID, err)
	}
	if len(text) > MaxMessageLength {
		cut := MaxMessageLength
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	msg, err := m.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return "", fmt.Errorf("telegram send: %w", err)
	}
	return strconv.Itoa(msg.MessageID), nil
}

// SendImage sends the image as a document so Telegram does not recompress it.
func (m *Messenger) SendImage(ctx context.Context, channelID, filename string, image []byte, caption string) error {
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram chat id %q: %w", channelID, err)
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: image})
	doc.Caption = caption
	if _, err := m.api.Send(doc); err != nil {
		return fmt.Errorf("telegram send image: %w", err)
	}
	return nil
}

func (m *Messenger) Delete(ctx context.Context, channelID, messageID string) error {
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram chat id %q: %w", channelID, err)
	}
	id, err := strconv.Atoi(messageID)
	if err != nil {
		return fmt.Errorf("telegram message id %q: %w", messageID, err)
	}
	if _, err := m.api.Request(tgbotapi.NewDeleteMessage(chatID, id)); err != nil {
		return fmt.Errorf("telegram delete: %w", err)
	}
	return nil
}

// ToMessage converts an update into a pipeline message. Commands addressed to a bot
// in group chats ("/maketable@MyBot") lose the bot suffix. It returns false for
// updates without text.
func ToMessage(u tgbotapi.Update, botName string) (chat.Message, bool) {
	msg := u.Message
	if msg == nil || msg.Text == "" || msg.Chat == nil {
		return chat.Message{}, false
	}
	text := msg.Text
	if botName != "" {
		text = strings.Replace(text, "@"+botName, "", 1)
	}
	author := ""
	if msg.From != nil {
		if msg.From.UserName != "" {
			author = "@" + msg.From.UserName
		} else {
			author = msg.From.FirstName
		}
	}
	return chat.Message{
		ChannelID: strconv.FormatInt(msg.Chat.ID, 10),
		MessageID: strconv.Itoa(msg.MessageID),
		Author:    author,
		Text:      text,
	}, true
}

// Bot long-polls updates and runs the chat pipeline for each message.
type Bot struct {
	api     *tgbotapi.BotAPI
	handler *chat.Handler
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// Option configures the Bot.
type Option func(*Bot)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = logger
	}
}

// NewAPI authenticates token against the Bot API.
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	return api, nil
}

// NewBot wires handler to api. The handler must reply through a Messenger built on
// the same api.
func NewBot(api *tgbotapi.BotAPI, handler *chat.Handler, opts ...Option) *Bot {
	b := &Bot{
		api:     api,
		handler: handler,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run polls updates until ctx is done, then waits for in-flight commands.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	updates := b.api.GetUpdatesChan(cfg)
	b.logger.Info("telegram bot polling", "bot", b.api.Self.UserName)

	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			msg, ok := ToMessage(u, b.api.Self.UserName)
			if !ok {
				continue
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				if _, err := b.handler.Handle(ctx, msg); err != nil {
					b.logger.Warn("telegram reply failed", "chat", msg.ChannelID, "err", err)
				}
			}()
		}
	}
}
