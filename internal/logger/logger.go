// Package logger wraps zap so callers log through a small call-site shape
// (Info/Error/Debug/Warn) without holding a *zap.Logger. A nil receiver or
// a nil underlying *zap.Logger is always safe to call.
package logger

import "go.uber.org/zap"

// Logger is the logging handle cmd/hlc passes to its subcommands; the core
// engine packages do not log. A nil *zap.Logger is
// never passed down; New(nil) returns a no-op logger instead so packages
// never need a nil check at each call site.
type Logger struct {
	z *zap.Logger
}

// New wraps z. If z is nil, logging calls are no-ops.
func New(z *zap.Logger) *Logger {
	if z == nil {
		return Nop()
	}
	return &Logger{z: z}
}

// Nop returns a logger that discards everything, used as the default when
// no logger is configured.
func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	if l == nil || l.z == nil {
		return
	}
	l.z.Info(msg, fields...)
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	if l == nil || l.z == nil {
		return
	}
	l.z.Error(msg, fields...)
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	if l == nil || l.z == nil {
		return
	}
	l.z.Debug(msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	if l == nil || l.z == nil {
		return
	}
	l.z.Warn(msg, fields...)
}

// With returns a child logger with the given structured fields attached to
// every subsequent call, mirroring zap.Logger.With.
func (l *Logger) With(fields ...zap.Field) *Logger {
	if l == nil || l.z == nil {
		return Nop()
	}
	return &Logger{z: l.z.With(fields...)}
}
