package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/stepwisehq/stepwise/pkg/config"
)

// Logger wraps a zerolog logger with an optional component field.
type Logger struct {
	zl zerolog.Logger
}

var (
	defaultLogger *Logger
	logFile       *os.File
)

// Init initializes the default logger from the global config.
// Safe to call more than once; later calls are no-ops.
func Init() error {
	if defaultLogger != nil {
		return nil
	}

	settings := config.Get()
	l, file, err := New(settings.Logging.Level, settings.Logging.LogFile, settings.Logging.Preserve)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defaultLogger = l
	logFile = file
	return nil
}

// New creates a Logger writing human-readable output to the given file path.
// When preserve is false the file is truncated on open.
func New(level string, path string, preserve bool) (*Logger, *os.File, error) {
	path = config.ResolveSettingsPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if !preserve {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	writer := zerolog.ConsoleWriter{Out: file, TimeFormat: "15:04:05", NoColor: true}
	zl := zerolog.New(writer).Level(parseLevel(level)).With().Timestamp().Logger()

	return &Logger{zl: zl}, file, nil
}

// WithComponent returns a logger that tags every entry with the component name.
func WithComponent(name string) *Logger {
	if defaultLogger == nil {
		// Logging before Init is a no-op rather than a crash.
		return &Logger{zl: zerolog.Nop()}
	}
	return &Logger{zl: defaultLogger.zl.With().Str("component", name).Logger()}
}

func parseLevel(levelStr string) zerolog.Level {
	switch levelStr {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// log emits one entry with alternating key/value pairs appended as fields.
func (l *Logger) log(ev *zerolog.Event, msg string, keysAndValues []interface{}) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		ev = ev.Interface(key, keysAndValues[i+1])
	}
	if len(keysAndValues)%2 != 0 {
		ev = ev.Interface("arg", keysAndValues[len(keysAndValues)-1])
	}
	ev.Msg(msg)
}

// Debug logs a debug message with optional key/value pairs.
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.log(l.zl.Debug(), msg, keysAndValues)
}

// Info logs an info message with optional key/value pairs.
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.log(l.zl.Info(), msg, keysAndValues)
}

// Warn logs a warning message with optional key/value pairs.
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.log(l.zl.Warn(), msg, keysAndValues)
}

// Error logs an error message with optional key/value pairs.
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.log(l.zl.Error(), msg, keysAndValues)
}

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.log(l.zl.Fatal(), msg, keysAndValues)
}

// Package-level convenience functions using the default logger.

// Debug logs a debug message using the default logger.
func Debug(msg string, keysAndValues ...interface{}) {
	if defaultLogger == nil {
		return
	}
	defaultLogger.Debug(msg, keysAndValues...)
}

// Info logs an info message using the default logger.
func Info(msg string, keysAndValues ...interface{}) {
	if defaultLogger == nil {
		return
	}
	defaultLogger.Info(msg, keysAndValues...)
}

// Warn logs a warning message using the default logger.
func Warn(msg string, keysAndValues ...interface{}) {
	if defaultLogger == nil {
		return
	}
	defaultLogger.Warn(msg, keysAndValues...)
}

// Error logs an error message using the default logger.
func Error(msg string, keysAndValues ...interface{}) {
	if defaultLogger == nil {
		return
	}
	defaultLogger.Error(msg, keysAndValues...)
}

// Fatal logs a fatal message and exits using the default logger.
func Fatal(msg string, keysAndValues ...interface{}) {
	if defaultLogger == nil {
		fmt.Fprintf(os.Stderr, "[FATAL] %s\n", msg)
		os.Exit(1)
	}
	defaultLogger.Fatal(msg, keysAndValues...)
}

// SetOutput redirects the default logger (useful for testing).
func SetOutput(w io.Writer) {
	writer := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: true}
	zl := zerolog.New(writer).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	if defaultLogger == nil {
		defaultLogger = &Logger{zl: zl}
		return
	}
	defaultLogger.zl = zl
}

// Close closes the default logger's file, if any.
func Close() error {
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

// Reset discards the default logger so tests can re-Init with fresh config.
func Reset() {
	_ = Close()
	defaultLogger = nil
}
