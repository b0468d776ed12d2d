package notify

import "errors"

var (
	// ErrSenderRequired is returned when no Telegram sender is provided.
	ErrSenderRequired = errors.New("telegram sender required")

	// ErrTokenRequired is returned when the bot token is empty.
	ErrTokenRequired = errors.New("telegram bot token required")

	// ErrChatIDRequired is returned when the chat id is zero.
	ErrChatIDRequired = errors.New("telegram chat id required")

	// ErrNilItem is returned when asked to deliver a nil item.
	ErrNilItem = errors.New("nil item")
)
