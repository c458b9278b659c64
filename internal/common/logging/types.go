// Package logging is the relay's structured logger. Every component logs
// through the Logger interface; the zap backend lives in zap_adapter.go.
package logging

import (
	"context"
	"io"
	"strings"
	"sync"
)

// LogLevel orders messages by severity. The relay uses them as follows:
// debug for delivery detail, info for benign skips, warn for provider
// rejections and unsupported kinds, error for local failures.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < DebugLevel || l > ErrorLevel {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps LOG_LEVEL values to a level; unknown input means InfoLevel
func ParseLevel(levelStr string) LogLevel {
	s := strings.ToUpper(strings.TrimSpace(levelStr))
	if s == "WARNING" {
		return WarnLevel
	}
	for i, name := range levelNames {
		if s == name {
			return LogLevel(i)
		}
	}
	return InfoLevel
}

// Format selects the line encoding
type Format string

const (
	ConsoleFormat Format = "console"
	JSONFormat    Format = "json"
)

// ParseFormat maps LOG_FORMAT values to a Format; anything but json is console
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(JSONFormat)) {
		return JSONFormat
	}
	return ConsoleFormat
}

// Field is one structured key/value pair
type Field struct {
	Key   string
	Value interface{}
}

// Logger is implemented by ZapAdapter and by the recording logger in tests
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
	WithFields(fields ...Field) Logger
	// WithContext adds the event and adapter ids carried by ctx
	WithContext(ctx context.Context) Logger
}

// LogConfig configures NewZapLogger. A nil Output means stdout.
type LogConfig struct {
	Level  LogLevel
	Format Format
	Output io.Writer
	// Name is prefixed to every line, e.g. "alarm-relay"
	Name string
}

var (
	globalMu     sync.RWMutex
	globalLogger Logger
)

// SetGlobalLogger replaces the process-wide logger
func SetGlobalLogger(logger Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// GetGlobalLogger returns the process-wide logger, creating an info-level
// console logger on first use if InitGlobalLogger was never called
func GetGlobalLogger() Logger {
	globalMu.RLock()
	logger := globalLogger
	globalMu.RUnlock()
	if logger != nil {
		return logger
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewDefaultLogger()
	}
	return globalLogger
}

func Debug(msg string, fields ...Field) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...Field)  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...Field)  { GetGlobalLogger().Warn(msg, fields...) }

func Error(msg string, err error, fields ...Field) {
	GetGlobalLogger().Error(msg, err, fields...)
}
