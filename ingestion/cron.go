package ingestion

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// cronLoggerAdapter adapts slog.Logger to the cron.Logger interface.
// Cron's routine messages are demoted to debug.
type cronLoggerAdapter struct {
	logger *slog.Logger
}

var _ cron.Logger = (*cronLoggerAdapter)(nil)

func (cl *cronLoggerAdapter) Info(msg string, keysAndValues ...any) {
	cl.logger.Debug(msg, keysAndValues...)
}

func (cl *cronLoggerAdapter) Error(err error, msg string, keysAndValues ...any) {
	cl.logger.Error(msg, append(keysAndValues, "err", err)...)
}
