// Package logging provides the key/value logger used across the server.
//
// Output goes to stderr by default. Stdout carries the MCP protocol and
// must never receive log lines.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Logger provides structured logging with a runtime debug switch.
type Logger struct {
	prefix string
	logger *log.Logger
	debug  atomic.Bool
}

// NewLogger creates a new logger with a prefix, writing to stderr.
func NewLogger(prefix string) *Logger {
	return New(prefix, os.Stderr)
}

// New creates a logger with a prefix writing to w.
func New(prefix string, w io.Writer) *Logger {
	return &Logger{
		prefix: prefix,
		logger: log.New(w, fmt.Sprintf("[%s] ", prefix), log.LstdFlags),
	}
}

// Named returns a logger writing to the same destination under the prefix
// "parent/name". Its debug switch starts as a copy of l's and is
// independent afterwards.
func (l *Logger) Named(name string) *Logger {
	child := New(l.prefix+"/"+name, l.logger.Writer())
	child.SetDebug(l.DebugEnabled())
	return child
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New("discard", io.Discard)
}

// SetDebug enables or disables Debug output.
func (l *Logger) SetDebug(enabled bool) {
	l.debug.Store(enabled)
}

// DebugEnabled reports whether Debug output is enabled.
func (l *Logger) DebugEnabled() bool {
	return l.debug.Load()
}

// Info logs an informational message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.logWithKV("INFO", msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.logWithKV("WARN", msg, keysAndValues...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.logWithKV("ERROR", msg, keysAndValues...)
}

// Debug logs a debug message with key-value pairs when debug is enabled
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	if !l.debug.Load() {
		return
	}
	l.logWithKV("DEBUG", msg, keysAndValues...)
}

func (l *Logger) logWithKV(level, msg string, keysAndValues ...interface{}) {
	var kv strings.Builder
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			fmt.Fprintf(&kv, " %v=%v", keysAndValues[i], keysAndValues[i+1])
		} else {
			fmt.Fprintf(&kv, " %v=<missing>", keysAndValues[i])
		}
	}
	l.logger.Printf("[%s] %s%s", level, msg, kv.String())
}

// IsDebugLevel reports whether a log level string such as the value of
// PLATE_LOG_LEVEL selects debug output.
func IsDebugLevel(level string) bool {
	return strings.EqualFold(strings.TrimSpace(level), "debug")
}
