package logging

import (
	"context"
	"sync"
	"time"

	cblog "github.com/charmbracelet/log"

	"github.com/alexisbeaulieu97/tunebatch/internal/ports"
)

const defaultStartupLimit = 256

// StartupLog collects entries written while the CLI is still loading .env and
// parsing flags, before the configured logger exists. Replay hands them to the
// real logger in order. Once limit entries are held the oldest are dropped.
type StartupLog struct {
	mu      sync.Mutex
	limit   int
	entries []startupEntry
	dropped int
}

type startupEntry struct {
	ctx    context.Context
	level  cblog.Level
	at     time.Time
	msg    string
	fields []interface{}
}

// NewStartupLog creates a log holding at most limit entries (256 when limit
// is not positive).
func NewStartupLog(limit int) *StartupLog {
	if limit <= 0 {
		limit = defaultStartupLimit
	}
	return &StartupLog{limit: limit}
}

// Logger returns a ports.Logger that records into s.
func (s *StartupLog) Logger() ports.Logger {
	return &startupLogger{log: s}
}

// Len reports how many entries are waiting to be replayed.
func (s *StartupLog) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Replay writes every held entry to delegate and empties the log. Each entry
// carries a startup_at field with its original time.
func (s *StartupLog) Replay(delegate ports.Logger) {
	if s == nil || delegate == nil {
		return
	}
	s.mu.Lock()
	entries := s.entries
	dropped := s.dropped
	s.entries, s.dropped = nil, 0
	s.mu.Unlock()

	if dropped > 0 {
		delegate.Warn(context.Background(), "startup log overflowed", "dropped", dropped)
	}
	for _, e := range entries {
		fields := append(e.fields, "startup_at", e.at.Format(time.RFC3339Nano))
		switch e.level {
		case cblog.DebugLevel:
			delegate.Debug(e.ctx, e.msg, fields...)
		case cblog.WarnLevel:
			delegate.Warn(e.ctx, e.msg, fields...)
		case cblog.ErrorLevel:
			delegate.Error(e.ctx, e.msg, fields...)
		default:
			delegate.Info(e.ctx, e.msg, fields...)
		}
	}
}

func (s *StartupLog) record(e startupEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == s.limit {
		s.entries = append(s.entries[:0:0], s.entries[1:]...)
		s.dropped++
	}
	s.entries = append(s.entries, e)
}

type startupLogger struct {
	log    *StartupLog
	fields keyvals
}

func (l *startupLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.record(ctx, cblog.DebugLevel, msg, fields)
}

func (l *startupLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.record(ctx, cblog.InfoLevel, msg, fields)
}

func (l *startupLogger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.record(ctx, cblog.WarnLevel, msg, fields)
}

func (l *startupLogger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.record(ctx, cblog.ErrorLevel, msg, fields)
}

func (l *startupLogger) With(fields ...interface{}) ports.Logger {
	return &startupLogger{log: l.log, fields: l.fields.with(fields...)}
}

func (l *startupLogger) record(ctx context.Context, level cblog.Level, msg string, fields []interface{}) {
	if l.log == nil {
		return
	}
	l.log.record(startupEntry{
		ctx:    ctx,
		level:  level,
		at:     time.Now(),
		msg:    msg,
		fields: l.fields.with(fields...).flat(),
	})
}
