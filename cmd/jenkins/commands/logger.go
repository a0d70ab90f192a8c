package commands

import (
	"context"
	"io"
	"log/slog"
	"sort"

	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
)

// SlogLogger adapts log/slog to jenkins.Logger.
type SlogLogger struct {
	logger *slog.Logger
}

var _ jenkins.Logger = (*SlogLogger)(nil)

// NewSlogLogger writes text records to w. Without verbose only warnings and
// errors are written.
func NewSlogLogger(w io.Writer, verbose bool) *SlogLogger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})

	return &SlogLogger{logger: slog.New(handler)}
}

func (l *SlogLogger) Debug(msg string, fields map[string]interface{}) {
	l.log(slog.LevelDebug, msg, fields)
}

func (l *SlogLogger) Info(msg string, fields map[string]interface{}) {
	l.log(slog.LevelInfo, msg, fields)
}

func (l *SlogLogger) Warn(msg string, fields map[string]interface{}) {
	l.log(slog.LevelWarn, msg, fields)
}

func (l *SlogLogger) Error(msg string, fields map[string]interface{}) {
	l.log(slog.LevelError, msg, fields)
}

func (l *SlogLogger) log(level slog.Level, msg string, fields map[string]interface{}) {
	ctx := context.Background()
	if !l.logger.Enabled(ctx, level) {
		return
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}

	l.logger.LogAttrs(ctx, level, msg, attrs...)
}
