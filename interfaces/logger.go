package interfaces

import "strings"

// LogLevel represents the severity level of a log message
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ParseLogLevel maps a user supplied level name to a LogLevel.
// Unknown names resolve to LogLevelInfo.
func ParseLogLevel(name string) LogLevel {
	switch LogLevel(strings.ToLower(strings.TrimSpace(name))) {
	case LogLevelDebug:
		return LogLevelDebug
	case LogLevelWarn:
		return LogLevelWarn
	case LogLevelError:
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Logger is the logging sink shared by the engine, the providers, the
// configuration resolver and the selector.
type Logger interface {
	// Debug logs a debug level message
	Debug(msg string)

	// Info logs an info level message
	Info(msg string)

	// Warn logs a warning level message
	Warn(msg string)

	// Error logs an error level message
	Error(err error)
}
