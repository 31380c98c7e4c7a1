// Package logging builds the logrus logger shared by the services.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config selects level, formatter and destination
type Config struct {
	Level  string
	Format string
	Output io.Writer
}

// Setup creates a logger. Unknown levels fall back to info; any format
// other than "json" uses the text formatter.
func Setup(cfg Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	if cfg.Output != nil {
		logger.SetOutput(cfg.Output)
	} else {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

// Discard returns a logger that writes nothing
func Discard() *logrus.Logger {
	return Setup(Config{Level: "panic", Output: io.Discard})
}

// WithComponent tags every entry with the emitting component
func WithComponent(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("component", name)
}
