package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"log"
	"os"
	"strings"
	"sync"
)

// --------------------------------------------------------------------------
// Custom Logger (implements dragenboats logger.ILogger)
// --------------------------------------------------------------------------

// cacheLogger implements the ILogger interface with custom formatting
type cacheLogger struct {
	name   string
	level  logger.LogLevel
	logger *log.Logger
}

func (l *cacheLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *cacheLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *cacheLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.log("INFO", format, args...)
	}
}

func (l *cacheLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *cacheLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *cacheLogger) Panicf(format string, args ...interface{}) {
	if l.level >= logger.CRITICAL {
		panic(fmt.Sprintf(format, args...))
	}
}

// log formats and writes a log message. this internal helper is used by the public methods
func (l *cacheLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger implements the Factory interface - note the error return value
func CreateLogger(pkgName string) logger.ILogger {
	// Create standard logger with custom flags
	stdLogger := log.New(os.Stdout, "", log.Ldate|log.Ltime)

	return &cacheLogger{
		name:   pkgName,
		level:  logger.INFO,
		logger: stdLogger,
	}
}

// SetLogLevel sets the level of the client side loggers.
// It panics if the level is not one of debug, info, warn, error.
func SetLogLevel(level string) {
	lvl := parseLogLevel(level)
	for _, name := range clientLoggers {
		logger.GetLogger(name).SetLevel(lvl)
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// parseLogLevel converts a string level to logger.LogLevel
func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG
	case "info":
		return logger.INFO
	case "warning", "warn":
		return logger.WARNING
	case "error":
		return logger.ERROR
	default:
		panic(fmt.Sprintf("invalid log level: %s. must be one of debug, info, warn, error", level))
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// clientLoggers are the named loggers used by the client packages
var clientLoggers = []string{"rpc", "transport/rpc", "query"}

var factoryOnce sync.Once

// InitLoggers initializes all loggers with the custom format
func InitLoggers(config ServerConfig) {
	// Set as the global logger factory for Dragonboat
	factoryOnce.Do(func() { logger.SetLoggerFactory(CreateLogger) })

	level := parseLogLevel(config.LogLevel)

	// configure the loggers shared with the client
	for _, name := range clientLoggers {
		logger.GetLogger(name).SetLevel(level)
	}

	// configure server loggers
	logger.GetLogger("server").SetLevel(level)
	logger.GetLogger("cache").SetLevel(level)
}
