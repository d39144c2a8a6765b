package logger

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// cronLogger forwards cron library events to slog.
type cronLogger struct {
	log *slog.Logger
}

var _ cron.Logger = cronLogger{}

// Cron adapts a slog logger to the cron.Logger interface. Routine cron events
// such as schedule and wake are logged at debug level.
func Cron(log *slog.Logger) cron.Logger {
	if log == nil {
		log = slog.Default()
	}
	return cronLogger{log: log.With("component", "cron")}
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
