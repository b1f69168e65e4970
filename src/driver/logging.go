package driver

import (
	"fmt"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	// LogLevelDebug logs everything including protocol-level detail.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo logs general information about driver operations.
	LogLevelInfo
	// LogLevelWarn logs warnings that don't stop execution.
	LogLevelWarn
	// LogLevelError logs only error conditions.
	LogLevelError
	// LogLevelOff disables all logging.
	LogLevelOff
)

// String returns the string representation of a log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a string into a LogLevel, defaulting to info.
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return LogLevelDebug
	case "INFO":
		return LogLevelInfo
	case "WARN", "WARNING":
		return LogLevelWarn
	case "ERROR":
		return LogLevelError
	case "OFF", "NONE":
		return LogLevelOff
	default:
		return LogLevelInfo
	}
}

// Logger is the pluggable logging interface used throughout the driver.
// Messages carry alternating key-value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// NoOpLogger discards all log messages. It is the default.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...interface{}) {}
func (NoOpLogger) Info(string, ...interface{})  {}
func (NoOpLogger) Warn(string, ...interface{})  {}
func (NoOpLogger) Error(string, ...interface{}) {}

// ConsoleLogger writes leveled messages to standard error.
type ConsoleLogger struct {
	Level LogLevel
	out   *log.Logger
}

// NewConsoleLogger creates a ConsoleLogger at the given level.
func NewConsoleLogger(level LogLevel) *ConsoleLogger {
	return &ConsoleLogger{Level: level, out: log.New(os.Stderr, "", log.LstdFlags)}
}

func (l *ConsoleLogger) log(level LogLevel, msg string, kv []interface{}) {
	if level < l.Level {
		return
	}
	var sb strings.Builder
	sb.WriteString(level.String())
	sb.WriteByte(' ')
	sb.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", kv[i], kv[i+1])
	}
	l.out.Print(sb.String())
}

func (l *ConsoleLogger) Debug(msg string, kv ...interface{}) { l.log(LogLevelDebug, msg, kv) }
func (l *ConsoleLogger) Info(msg string, kv ...interface{})  { l.log(LogLevelInfo, msg, kv) }
func (l *ConsoleLogger) Warn(msg string, kv ...interface{})  { l.log(LogLevelWarn, msg, kv) }
func (l *ConsoleLogger) Error(msg string, kv ...interface{}) { l.log(LogLevelError, msg, kv) }

// ZapLogger adapts a zap.SugaredLogger to the driver's Logger interface.
type ZapLogger struct {
	S *zap.SugaredLogger
}

// NewZapLogger wraps a zap logger for use as the driver's Logger.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	return &ZapLogger{S: l.Sugar()}
}

func (l *ZapLogger) Debug(msg string, kv ...interface{}) { l.S.Debugw(msg, kv...) }
func (l *ZapLogger) Info(msg string, kv ...interface{})  { l.S.Infow(msg, kv...) }
func (l *ZapLogger) Warn(msg string, kv ...interface{})  { l.S.Warnw(msg, kv...) }
func (l *ZapLogger) Error(msg string, kv ...interface{}) { l.S.Errorw(msg, kv...) }
