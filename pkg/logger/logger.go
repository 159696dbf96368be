
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	s *zap.SugaredLogger
}

// New returns an info-level production logger.
func New() *Logger { return NewWithLevel("info", false) }

// NewWithLevel builds a logger for the given level name. Unknown levels fall
// back to info; dev switches to the console encoder.
func NewWithLevel(level string, dev bool) *Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	z, err := cfg.Build()
	if err != nil {
		return Nop()
	}
	return &Logger{s: z.Sugar()}
}

// Nop discards everything. Used by tests and as the zero-config default.
func Nop() *Logger { return &Logger{s: zap.NewNop().Sugar()} }

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{s: l.s.With(kv...)}
}

func (l *Logger) Debugf(format string, args ...any) { l.s.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any) { l.s.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any) { l.s.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.s.Errorf(format, args...) }

// Sync flushes buffered entries.
func (l *Logger) Sync() { _ = l.s.Sync() }
