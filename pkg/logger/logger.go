package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/guild-helper-bot-go/internal/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the bot logger from the logging section of the config.
// Both gateways and the completion client share it, so every line from one
// invocation can be joined on request_id.
func NewLogger(cfg *config.LoggingConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}

	out, err := output(cfg)
	if err != nil {
		return nil, fmt.Errorf("logging.output: %w", err)
	}

	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(formatter(cfg.Format))
	log.SetOutput(out)
	return log, nil
}

// formatter picks json for log shippers and text for a terminal
func formatter(format string) logrus.Formatter {
	if format == "json" {
		return &logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		}
	}
	return &logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	}
}

// output resolves logging.output. "file" rotates through lumberjack using the
// logging.file limits; anything unrecognized goes to stdout.
func output(cfg *config.LoggingConfig) (io.Writer, error) {
	switch cfg.Output {
	case "stderr":
		return os.Stderr, nil
	case "file":
		if err := os.MkdirAll(filepath.Dir(cfg.File.Path), 0755); err != nil {
			return nil, err
		}
		return &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSize,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAge,
			Compress:   true,
		}, nil
	default:
		return os.Stdout, nil
	}
}

// WithInvocation tags an entry with the invocation it belongs to. guild_id is
// the Discord guild or the Telegram chat.
func WithInvocation(logger logrus.FieldLogger, requestID, platform, guildID, userID, command string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"platform":   platform,
		"guild_id":   guildID,
		"user_id":    userID,
		"command":    command,
	})
}
