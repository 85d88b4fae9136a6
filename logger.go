package unsplash

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/halo-sigs/plugin-unsplash/interfaces"
)

// levelRank orders log levels from most to least verbose.
var levelRank = map[interfaces.LogLevel]int{
	interfaces.LogLevelDebug: 0,
	interfaces.LogLevelInfo:  1,
	interfaces.LogLevelWarn:  2,
	interfaces.LogLevelError: 3,
}

// DefaultLogger implements the Logger interface with stdout/stderr printing.
// It is used whenever no logger is provided in the EngineConfig or to the
// configuration resolver and selector.
type DefaultLogger struct {
	mu     sync.Mutex
	level  interfaces.LogLevel // Current logging level
	out    io.Writer
	errOut io.Writer
}

// NewDefaultLogger creates a new DefaultLogger instance with the specified log level.
func NewDefaultLogger(level interfaces.LogLevel) *DefaultLogger {
	return &DefaultLogger{
		level:  level,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

// SetOutput redirects the logger. Errors go to errOut, everything else to out.
func (logger *DefaultLogger) SetOutput(out, errOut io.Writer) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	logger.out = out
	logger.errOut = errOut
}

// formatMessage creates a consistent log format: [UNSPLASH-TIMESTAMP] LEVEL: message (error: err)
func (logger *DefaultLogger) formatMessage(level interfaces.LogLevel, msg string, err error) string {
	timestamp := time.Now().Format(time.RFC3339)
	baseMsg := fmt.Sprintf("[UNSPLASH-%s] %s: %s", timestamp, level, msg)
	if err != nil {
		return fmt.Sprintf("%s (error: %v)", baseMsg, err)
	}
	return baseMsg
}

func (logger *DefaultLogger) enabled(level interfaces.LogLevel) bool {
	return levelRank[level] >= levelRank[logger.level]
}

func (logger *DefaultLogger) write(level interfaces.LogLevel, msg string) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if !logger.enabled(level) {
		return
	}
	fmt.Fprintln(logger.out, logger.formatMessage(level, msg, nil))
}

// Debug logs a debug level message to stdout.
func (logger *DefaultLogger) Debug(msg string) {
	logger.write(interfaces.LogLevelDebug, msg)
}

// Info logs an info level message to stdout.
func (logger *DefaultLogger) Info(msg string) {
	logger.write(interfaces.LogLevelInfo, msg)
}

// Warn logs a warning level message to stdout.
func (logger *DefaultLogger) Warn(msg string) {
	logger.write(interfaces.LogLevelWarn, msg)
}

// Error logs an error level message to stderr.
// Error messages are always output regardless of the logger's level.
func (logger *DefaultLogger) Error(err error) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	fmt.Fprintln(logger.errOut, logger.formatMessage(interfaces.LogLevelError, "", err))
}

// SetLevel sets the logging level for the logger.
func (logger *DefaultLogger) SetLevel(level interfaces.LogLevel) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	logger.level = level
}
