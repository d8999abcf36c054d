// Package logger provides file-based logging for drydock.
//
// The protocol layer runs underneath a UI shell, so diagnostics go to a log
// file rather than stderr. Logging is backed by log/slog with a dynamic
// level; callers use printf-style helpers.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// DefaultLogPath is the default log file for the drydock process.
const DefaultLogPath = "/tmp/drydock-debug.log"

var (
	mu         sync.Mutex
	slogLogger *slog.Logger
	levelVar   = new(slog.LevelVar)
	logFile    *os.File
	once       sync.Once
	initDone   bool
)

// SetLevel sets the minimum level to output.
func SetLevel(level slog.Level) {
	levelVar.Set(level)
}

// SetDebug toggles between debug and info level logging.
func SetDebug(enabled bool) {
	if enabled {
		SetLevel(slog.LevelDebug)
	} else {
		SetLevel(slog.LevelInfo)
	}
}

// Init initializes the logger with a custom path. If not called, the default
// path is used on the first log call.
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if initDone {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	logFile = f
	slogLogger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: levelVar}))
	initDone = true

	slogLogger.Info("logger initialized", "path", path)
	return nil
}

func ensureInit() {
	if !initDone {
		once.Do(func() {
			f, err := os.OpenFile(DefaultLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to open log file %s: %v\n", DefaultLogPath, err)
				return
			}
			logFile = f
			slogLogger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: levelVar}))
			initDone = true
		})
	}
}

func logWithLevel(level slog.Level, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	ensureInit()
	if slogLogger == nil {
		return
	}
	// Check before formatting to skip the Sprintf for suppressed levels.
	if !slogLogger.Enabled(context.Background(), level) {
		return
	}
	slogLogger.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

// Debug writes a debug message to the log file.
func Debug(format string, args ...interface{}) {
	logWithLevel(slog.LevelDebug, format, args...)
}

// Info writes an info message to the log file.
func Info(format string, args ...interface{}) {
	logWithLevel(slog.LevelInfo, format, args...)
}

// Warn writes a warning message to the log file.
func Warn(format string, args ...interface{}) {
	logWithLevel(slog.LevelWarn, format, args...)
}

// Error writes an error message to the log file.
func Error(format string, args ...interface{}) {
	logWithLevel(slog.LevelError, format, args...)
}

// Close closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	slogLogger = nil
}

// Reset resets the logger state, allowing reinitialization. Primarily for
// tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	initDone = false
	once = sync.Once{}
	slogLogger = nil
	levelVar = new(slog.LevelVar)
}
