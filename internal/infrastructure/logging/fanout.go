package logging

import (
	"context"

	"github.com/alexisbeaulieu97/tunebatch/internal/ports"
)

// Fanout writes every entry to each delegate in order.
type Fanout struct {
	delegates []ports.Logger
}

// NewFanout combines loggers; nil entries are ignored. A single delegate is
// returned unwrapped and an empty fanout discards everything.
func NewFanout(loggers ...ports.Logger) ports.Logger {
	delegates := make([]ports.Logger, 0, len(loggers))
	for _, logger := range loggers {
		if logger != nil {
			delegates = append(delegates, logger)
		}
	}
	switch len(delegates) {
	case 0:
		return NewNoOpLogger()
	case 1:
		return delegates[0]
	}
	return &Fanout{delegates: delegates}
}

// Debug implements ports.Logger.
func (f *Fanout) Debug(ctx context.Context, msg string, fields ...interface{}) {
	for _, d := range f.delegates {
		d.Debug(ctx, msg, fields...)
	}
}

// Info implements ports.Logger.
func (f *Fanout) Info(ctx context.Context, msg string, fields ...interface{}) {
	for _, d := range f.delegates {
		d.Info(ctx, msg, fields...)
	}
}

// Warn implements ports.Logger.
func (f *Fanout) Warn(ctx context.Context, msg string, fields ...interface{}) {
	for _, d := range f.delegates {
		d.Warn(ctx, msg, fields...)
	}
}

// Error implements ports.Logger.
func (f *Fanout) Error(ctx context.Context, msg string, fields ...interface{}) {
	for _, d := range f.delegates {
		d.Error(ctx, msg, fields...)
	}
}

// With implements ports.Logger.
func (f *Fanout) With(fields ...interface{}) ports.Logger {
	if len(f.delegates) == 0 {
		return f
	}
	next := make([]ports.Logger, len(f.delegates))
	for i, d := range f.delegates {
		next[i] = d.With(fields...)
	}
	return &Fanout{delegates: next}
}

// NewNoOpLogger returns a ports.Logger that discards all entries.
func NewNoOpLogger() ports.Logger {
	return &Fanout{}
}
