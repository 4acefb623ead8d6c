// Package telegram delivers signal events through the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/newthinker/pulse/internal/core"
	"github.com/newthinker/pulse/internal/notifier"
)

// MaxMessageLength is the Bot API limit for one text message.
const MaxMessageLength = 4096

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	channel        string
	maxRetries     int
	retryDelayBase time.Duration
}

// Option configures a Telegram notifier.
type Option func(*options)

type options struct {
	endpoint       string
	client         *http.Client
	maxRetries     int
	retryDelayBase time.Duration
}

// WithEndpoint overrides the Bot API endpoint format (token, method).
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithHTTPClient sets the HTTP client used for Bot API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithRetry sets the attempt count and the linear backoff base.
func WithRetry(maxRetries int, base time.Duration) Option {
	return func(o *options) {
		o.maxRetries = maxRetries
		o.retryDelayBase = base
	}
}

// New creates a Telegram notifier. chatID is a numeric chat ID or an
// @channel username.
func New(botToken, chatID string, opts ...Option) (*Telegram, error) {
	o := &options{
		endpoint:       tgbotapi.APIEndpoint,
		client:         &http.Client{Timeout: 30 * time.Second},
		maxRetries:     3,
		retryDelayBase: time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	if botToken == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("telegram: bot_token is required"))
	}
	if chatID == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("telegram: chat_id is required"))
	}
	if o.maxRetries <= 0 {
		o.maxRetries = 3
	}

	t := &Telegram{maxRetries: o.maxRetries, retryDelayBase: o.retryDelayBase}
	if strings.HasPrefix(chatID, "@") {
		t.channel = chatID
	} else {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("telegram: invalid chat_id: %w", err))
		}
		t.chatID = id
	}

	bot, err := tgbotapi.NewBotAPIWithClient(botToken, o.endpoint, o.client)
	if err != nil {
		return nil, fmt.Errorf("telegram: failed to create bot: %w", err)
	}
	t.bot = bot
	return t, nil
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Send(ctx context.Context, event core.SignalEvent) error {
	return t.sendMarkdownV2(ctx, formatEvent(event))
}

// SendBatch sends one digest, split into several messages when it would
// exceed the Bot API length limit.
func (t *Telegram) SendBatch(ctx context.Context, events []core.SignalEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, msg := range digestMessages(events) {
		if err := t.sendMarkdownV2(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func digestMessages(events []core.SignalEvent) []string {
	header := "🚨 *" + escapeMarkdownV2(strings.TrimPrefix(notifier.DigestHeader, "🚨 ")) + "*"

	var msgs []string
	var sb strings.Builder
	sb.WriteString(header)
	for _, e := range events {
		block := "\n\n" + formatEvent(e)
		if sb.Len()+len(block) > MaxMessageLength && sb.Len() > len(header) {
			msgs = append(msgs, sb.String())
			sb.Reset()
			sb.WriteString(header)
		}
		sb.WriteString(block)
	}
	return append(msgs, sb.String())
}

func formatEvent(e core.SignalEvent) string {
	return escapeMarkdownV2(notifier.FormatEvent(e))
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (t *Telegram) sendMarkdownV2(ctx context.Context, text string) error {
	var msg tgbotapi.MessageConfig
	if t.channel != "" {
		msg = tgbotapi.NewMessageToChannel(t.channel, text)
	} else {
		msg = tgbotapi.NewMessage(t.chatID, text)
	}
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < t.maxRetries; i++ {
		if _, err := t.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if i == t.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("telegram: %w", ctx.Err())
		case <-time.After(t.retryDelayBase * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("telegram: failed after %d attempts: %w", t.maxRetries, lastErr)
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
