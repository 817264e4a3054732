package logger

import (
	"context"
	"log/slog"
)

// SlogLogger adapts a *slog.Logger to the Logger interface.
type SlogLogger struct {
	logger *slog.Logger
	level  LogLevel
}

// NewSlogLogger wraps l. A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger, level LogLevel) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l, level: level}
}

// LogMode sets the log level and returns a new logger instance.
func (s *SlogLogger) LogMode(level LogLevel) Logger {
	return &SlogLogger{logger: s.logger, level: level}
}

// Info logs an informational message.
func (s *SlogLogger) Info(msg string, args ...any) { s.log(Info, slog.LevelInfo, msg, args...) }

// Warn logs a warning message.
func (s *SlogLogger) Warn(msg string, args ...any) { s.log(Warn, slog.LevelWarn, msg, args...) }

// Error logs an error message.
func (s *SlogLogger) Error(msg string, args ...any) { s.log(Error, slog.LevelError, msg, args...) }

// Debug logs a debug message.
func (s *SlogLogger) Debug(msg string, args ...any) { s.log(Debug, slog.LevelDebug, msg, args...) }

func (s *SlogLogger) log(level LogLevel, sl slog.Level, msg string, args ...any) {
	if s.level < level {
		return
	}
	s.logger.Log(context.Background(), sl, msg, args...)
}
