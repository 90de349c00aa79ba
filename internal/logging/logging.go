// Package logging builds the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rickgao/topicrelay/internal/config"
)

// New builds a logger from cfg, writing to stdout, and sets it as the default.
func New(cfg config.LoggingConfig) *slog.Logger {
	logger := NewWithWriter(cfg, os.Stdout)
	slog.SetDefault(logger)
	return logger
}

// NewWithWriter builds a logger from cfg that writes to w.
// Format "json" is meant for production; anything else gets the text handler.
func NewWithWriter(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	level := ParseLevel(cfg.Level)

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		})
	}

	return slog.New(handler)
}

// ParseLevel maps a config level name to a slog level. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// botLogger routes the Telegram library's Printf-style logging into slog.
type botLogger struct {
	logger *slog.Logger
}

// BotLogger adapts logger to the tgbotapi.BotLogger interface.
// Library output is logged at debug level.
func BotLogger(logger *slog.Logger) tgbotapi.BotLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &botLogger{logger: logger.With("component", "tgbotapi")}
}

func (l *botLogger) Println(v ...interface{}) {
	l.logger.Debug(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (l *botLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"))
}
