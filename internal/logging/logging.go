// Package logging builds the structured loggers shared by the server, the
// resolution pipeline and the CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string    // debug, info, warn, error
	Format string    // text, json, logfmt
	Writer io.Writer // defaults to stderr
}

// New constructs a logger using the provided options.
func New(opts Options) (*log.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	formatter, err := parseFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
	return logger, nil
}

// Nop returns a logger that discards everything.
func Nop() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// Component returns a sub-logger tagged with the component name.
func Component(logger *log.Logger, name string) *log.Logger {
	if logger == nil {
		logger = Nop()
	}
	return logger.WithPrefix(name)
}

// ParseLevel maps a textual level onto a log level. Empty means info.
func ParseLevel(value string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "info":
		return log.InfoLevel, nil
	case "debug":
		return log.DebugLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("log level: unsupported value %q", value)
	}
}

func parseFormat(value string) (log.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "text", "console":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	default:
		return log.TextFormatter, fmt.Errorf("log format: unsupported value %q", value)
	}
}
