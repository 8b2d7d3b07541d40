package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	cblog "github.com/charmbracelet/log"

	"github.com/alexisbeaulieu97/tunebatch/internal/ports"
)

// Format selects the console encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

const defaultLayer = "infrastructure"

// ParseFormat validates a --log-format value.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported log format %q (want text or json)", value)
	}
}

// Options configures the console logger.
type Options struct {
	Writer     io.Writer
	Level      string
	Format     Format
	TimeFormat string
	Layer      string
	Component  string
}

// Logger is the console ports.Logger, backed by charmbracelet/log. Every
// entry carries a layer field; component and correlation_id are added when
// known.
type Logger struct {
	out    *cblog.Logger
	layer  string
	fields keyvals
}

// New creates a console Logger. Output defaults to stderr so the progress
// view and summaries on stdout stay clean.
func New(opts Options) (*Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}
	formatter := cblog.TextFormatter
	if opts.Format == FormatJSON {
		formatter = cblog.JSONFormatter
	}

	out := cblog.NewWithOptions(writer, cblog.Options{
		Level:           level,
		TimeFormat:      opts.TimeFormat,
		ReportTimestamp: true,
		Formatter:       formatter,
	})

	layer := opts.Layer
	if layer == "" {
		layer = defaultLayer
	}
	var fields keyvals
	if opts.Component != "" {
		fields = newKeyvals("component", opts.Component)
	}
	return &Logger{out: out, layer: layer, fields: fields}, nil
}

func parseLevel(value string) (cblog.Level, error) {
	if value == "" {
		return cblog.InfoLevel, nil
	}
	level, err := cblog.ParseLevel(strings.ToLower(value))
	if err != nil {
		return 0, fmt.Errorf("parse log level: %w", err)
	}
	return level, nil
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.emit(ctx, cblog.DebugLevel, msg, fields)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.emit(ctx, cblog.InfoLevel, msg, fields)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.emit(ctx, cblog.WarnLevel, msg, fields)
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.emit(ctx, cblog.ErrorLevel, msg, fields)
}

// With derives a logger with persistent fields. A "layer" key moves the
// logger to that layer instead of adding a second layer field.
func (l *Logger) With(fields ...interface{}) ports.Logger {
	if l == nil {
		return NewNoOpLogger()
	}
	next, value, ok := l.fields.with(fields...).take("layer")
	layer := l.layer
	if s, isString := value.(string); ok && isString && s != "" {
		layer = s
	}
	return &Logger{out: l.out, layer: layer, fields: next}
}

// SetLevel adjusts the minimum level at runtime. Derived loggers share it.
func (l *Logger) SetLevel(level string) error {
	parsed, err := parseLevel(level)
	if err != nil {
		return err
	}
	l.out.SetLevel(parsed)
	return nil
}

// emit writes persistent fields, then call-site fields, then layer and
// correlation_id. A call-site key overrides a persistent one.
func (l *Logger) emit(ctx context.Context, level cblog.Level, msg string, fields []interface{}) {
	if l == nil || l.out == nil {
		return
	}
	entry := l.fields.with(fields...).with("layer", l.layer)
	if id := ports.GetCorrelationID(ctx); id != "" {
		entry = entry.with("correlation_id", id)
	}
	l.out.Log(level, msg, entry.flat()...)
}

var _ ports.Logger = (*Logger)(nil)
