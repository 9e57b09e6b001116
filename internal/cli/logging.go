// Package cli holds the plumbing shared by the hatrpc launchers: console
// logging and protocol capture setup.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"

	"github.com/hatrpc/hatrpc-go/pkg/log"
)

// Log formats accepted by NewLogger.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// CaptureStderr routes protocol capture into the operational log.
const CaptureStderr = "-"

// LogOptions configures the operational and protocol loggers.
type LogOptions struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Protocol string `yaml:"protocol"`
}

// DefaultLogOptions returns info level text logging without capture.
func DefaultLogOptions() LogOptions {
	return LogOptions{Level: "info", Format: FormatText}
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", s)
}

// NewLogger builds the operational logger writing to w.
func NewLogger(w io.Writer, prefix string, opts LogOptions) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(opts.Format) {
	case "", FormatText:
		h := charmlog.NewWithOptions(w, charmlog.Options{
			Prefix:          prefix,
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
			Level:           charmLevel(level),
		})
		return slog.New(h), nil
	case FormatJSON:
		h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
		return slog.New(h).With(slog.String("app", prefix)), nil
	}
	return nil, fmt.Errorf("invalid log format: %s (must be text or json)", opts.Format)
}

func charmLevel(l slog.Level) charmlog.Level {
	switch {
	case l <= slog.LevelDebug:
		return charmlog.DebugLevel
	case l <= slog.LevelInfo:
		return charmlog.InfoLevel
	case l <= slog.LevelWarn:
		return charmlog.WarnLevel
	}
	return charmlog.ErrorLevel
}

// Capture is an open protocol capture.
type Capture struct {
	Logger log.Logger
	file   *log.FileLogger
}

// OpenCapture opens the protocol capture named by target. An empty target
// disables capture, CaptureStderr writes events to logger at debug level
// and anything else is a capture file path.
func OpenCapture(target string, logger *slog.Logger) (*Capture, error) {
	switch target {
	case "":
		return &Capture{}, nil
	case CaptureStderr:
		return &Capture{Logger: log.NewSlogAdapter(logger)}, nil
	}
	f, err := log.NewFileLogger(target)
	if err != nil {
		return nil, err
	}
	return &Capture{Logger: f, file: f}, nil
}

// Close flushes and closes the capture file, if any.
func (c *Capture) Close() error {
	if c == nil || c.file == nil {
		return nil
	}
	return c.file.Close()
}
