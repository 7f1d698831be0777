package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// envLogger implements the ILogger interface with custom formatting
type envLogger struct {
	name   string
	level  logger.LogLevel
	logger *log.Logger
}

func (l *envLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *envLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *envLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.log("INFO", format, args...)
	}
}

func (l *envLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *envLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.log("ERROR", format, args...)
	}
}

// Panicf logs the message regardless of the level and panics
func (l *envLogger) Panicf(format string, args ...interface{}) {
	l.log("PANIC", format, args...)
	panic(l.name + ": " + fmt.Sprintf(format, args...))
}

func (l *envLogger) log(levelStr string, format string, args ...interface{}) {
	l.logger.Printf("%-5s | %-7s | %s", levelStr, l.name, fmt.Sprintf(format, args...))
}

// --------------------------------------------------------------------------
// Location Logger
// --------------------------------------------------------------------------

// locationLogger prefixes every message with the location (and copy) it is
// about, e.g. "flash/B: checksum mismatch"
type locationLogger struct {
	logger.ILogger
	prefix string
}

// WithLocation returns a logger writing to l that prefixes every message with
// the location and, if given, the copy slot.
func WithLocation(l logger.ILogger, location string, slot ...string) logger.ILogger {
	prefix := location
	if len(slot) > 0 && slot[0] != "" {
		prefix += "/" + slot[0]
	}
	if inner, ok := l.(*locationLogger); ok {
		l = inner.ILogger
	}
	return &locationLogger{ILogger: l, prefix: prefix}
}

func (l *locationLogger) Debugf(format string, args ...interface{}) {
	l.ILogger.Debugf("%s: %s", l.prefix, fmt.Sprintf(format, args...))
}

func (l *locationLogger) Infof(format string, args ...interface{}) {
	l.ILogger.Infof("%s: %s", l.prefix, fmt.Sprintf(format, args...))
}

func (l *locationLogger) Warningf(format string, args ...interface{}) {
	l.ILogger.Warningf("%s: %s", l.prefix, fmt.Sprintf(format, args...))
}

func (l *locationLogger) Errorf(format string, args ...interface{}) {
	l.ILogger.Errorf("%s: %s", l.prefix, fmt.Sprintf(format, args...))
}

func (l *locationLogger) Panicf(format string, args ...interface{}) {
	l.ILogger.Panicf("%s: %s", l.prefix, fmt.Sprintf(format, args...))
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// logOutput is where all loggers created by CreateLogger write to.
// Warnings about the environment go to stderr so that the output of
// commands like print stays machine readable.
var logOutput io.Writer = os.Stderr

// CreateLogger implements the dragonboat logger.Factory
func CreateLogger(pkgName string) logger.ILogger {
	return newEnvLogger(pkgName, logOutput, log.Ltime|log.Lmicroseconds)
}

func newEnvLogger(name string, w io.Writer, flags int) *envLogger {
	return &envLogger{
		name:   name,
		level:  logger.INFO,
		logger: log.New(w, "", flags),
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// LoggerNames lists the named loggers used by the environment store
var LoggerNames = []string{"env", "redund", "backend", "cli"}

var factoryOnce sync.Once

// InitLoggers initializes all loggers with the custom format.
// It may be called more than once, only the levels change after the first call.
func InitLoggers(config EnvConfig) error {
	level, err := ParseLogLevel(config.LogLevel)
	if err != nil {
		return err
	}

	// Set as the global logger factory
	factoryOnce.Do(func() {
		logger.SetLoggerFactory(CreateLogger)
	})

	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(level)
	}
	return nil
}
