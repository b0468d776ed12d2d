package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/poiesic/khabar/core"
)

// DefaultDateFormat renders the published time in messages.
const DefaultDateFormat = "2006-01-02 15:04 MST"

// Sender is the part of *tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts items to a Telegram chat as MarkdownV2 messages.
type TelegramNotifier struct {
	sender     Sender
	chatID     int64
	dateFormat string
	logger     *slog.Logger
}

var _ Notifier = (*TelegramNotifier)(nil)

// Option configures a TelegramNotifier.
type Option func(*TelegramNotifier) error

// WithDateFormat sets the Go time layout used for the date line.
// Default is DefaultDateFormat.
func WithDateFormat(layout string) Option {
	return func(n *TelegramNotifier) error {
		if layout != "" {
			n.dateFormat = layout
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(n *TelegramNotifier) error {
		if logger == nil {
			logger = slog.Default()
		}
		n.logger = logger
		return nil
	}
}

// NewTelegramNotifier connects to the Bot API with token.
func NewTelegramNotifier(token string, chatID int64, opts ...Option) (*TelegramNotifier, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrTokenRequired
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	return NewTelegramNotifierWithSender(api, chatID, opts...)
}

// NewTelegramNotifierWithSender creates a notifier around an existing sender.
func NewTelegramNotifierWithSender(sender Sender, chatID int64, opts ...Option) (*TelegramNotifier, error) {
	if sender == nil {
		return nil, ErrSenderRequired
	}
	if chatID == 0 {
		return nil, ErrChatIDRequired
	}

	n := &TelegramNotifier{
		sender:     sender,
		chatID:     chatID,
		dateFormat: DefaultDateFormat,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, err
		}
	}
	n.logger = n.logger.With("component", "telegram-notifier")
	return n, nil
}

// Notify sends one message for item.
func (n *TelegramNotifier) Notify(ctx context.Context, item *core.Item) error {
	if item == nil {
		return ErrNilItem
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatMessage(item, n.dateFormat))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	resp, err := n.sender.Send(msg)
	if err != nil {
		return fmt.Errorf("sending item %s: %w", item.ID, err)
	}

	n.logger.Info("sent news", "id", item.ID, "title", item.Title, "message_id", resp.MessageID)
	return nil
}

// FormatMessage renders item as a MarkdownV2 message: bold title, date,
// summary, source and a link line. Missing fields get placeholders.
func FormatMessage(item *core.Item, dateFormat string) string {
	if dateFormat == "" {
		dateFormat = DefaultDateFormat
	}

	title := orDefault(item.Title, "No Title")
	summary := orDefault(item.Summary, "No summary provided.")
	source := orDefault(item.Source, "Source unknown")
	date := "Unknown date"
	if !item.Published.IsZero() {
		date = item.Published.Format(dateFormat)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", escape(title))
	fmt.Fprintf(&b, "📅 %s\n\n", escape(date))
	fmt.Fprintf(&b, "%s\n\n", escape(summary))
	fmt.Fprintf(&b, "Source: %s", escape(source))
	if item.URL != "" {
		fmt.Fprintf(&b, "\n[Read more](%s)", escapeLink(item.URL))
	}
	return b.String()
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s)
}

// escapeLink escapes the two characters MarkdownV2 reserves inside (...).
func escapeLink(url string) string {
	return strings.NewReplacer(`\`, `\\`, `)`, `\)`).Replace(url)
}

func orDefault(s, fallback string) string {
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}
