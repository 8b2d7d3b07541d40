package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/alexisbeaulieu97/tunebatch/internal/ports"
)

// JSONLogger implements ports.Logger with zerolog, one JSON object per line.
// It backs --log-file, where a machine-readable record of the batch is wanted
// regardless of the console format.
type JSONLogger struct {
	base   zerolog.Logger
	closer io.Closer
}

// NewJSONLogger writes JSON lines to w at the given level.
func NewJSONLogger(w io.Writer, level string) (*JSONLogger, error) {
	lvl := zerolog.DebugLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		lvl = parsed
	}
	base := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &JSONLogger{base: base}, nil
}

// OpenJSONFile appends JSON lines to path, creating it when missing.
func OpenJSONFile(path, level string) (*JSONLogger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logger, err := NewJSONLogger(file, level)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	logger.closer = file
	return logger, nil
}

// Close releases the underlying file, if any.
func (l *JSONLogger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Debug implements ports.Logger.
func (l *JSONLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.write(ctx, l.base.Debug(), msg, fields)
}

// Info implements ports.Logger.
func (l *JSONLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.write(ctx, l.base.Info(), msg, fields)
}

// Warn implements ports.Logger.
func (l *JSONLogger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.write(ctx, l.base.Warn(), msg, fields)
}

// Error implements ports.Logger.
func (l *JSONLogger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.write(ctx, l.base.Error(), msg, fields)
}

// With returns a derived logger that always writes the supplied fields.
func (l *JSONLogger) With(fields ...interface{}) ports.Logger {
	if l == nil {
		return NewNoOpLogger()
	}
	builder := l.base.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok || key == "" {
			continue
		}
		builder = builder.Interface(key, fields[i+1])
	}
	return &JSONLogger{base: builder.Logger(), closer: l.closer}
}

func (l *JSONLogger) write(ctx context.Context, event *zerolog.Event, msg string, fields []interface{}) {
	if l == nil || event == nil {
		return
	}
	if id := ports.GetCorrelationID(ctx); id != "" {
		event = event.Str("correlation_id", id)
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok || key == "" {
			continue
		}
		if err, isErr := fields[i+1].(error); isErr {
			event = event.AnErr(key, err)
			continue
		}
		event = event.Interface(key, fields[i+1])
	}
	event.Msg(msg)
}

var _ ports.Logger = (*JSONLogger)(nil)
