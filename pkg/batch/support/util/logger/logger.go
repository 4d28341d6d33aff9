// Package logger provides the leveled logging facade used across querymetrics.
// It keeps a small printf-style API (Debugf, Infof, ...) on top of a zap
// SugaredLogger, and can optionally rotate its output file through lumberjack.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel is a type representing the logging level.
type LogLevel int

const (
	// LevelDebug is used for detailed debugging information.
	LevelDebug LogLevel = iota
	// LevelInfo is used for general informational messages.
	LevelInfo
	// LevelWarn is used for potential issues.
	LevelWarn
	// LevelError is used for error messages.
	LevelError
	// LevelFatal is used for errors that terminate the process.
	LevelFatal
)

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Options configures the global logger.
type Options struct {
	// Level is one of DEBUG, INFO, WARN, ERROR, FATAL (case-insensitive).
	Level string
	// Format is "console" (default) or "json".
	Format string
	// FilePath, when set, sends output to a rotated file instead of stderr.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var (
	mu          sync.RWMutex
	atomicLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar       = newSugar(zapcore.Lock(os.Stderr), "console")
)

func newSugar(ws zapcore.WriteSyncer, format string) *zap.SugaredLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var enc zapcore.Encoder
	if strings.EqualFold(format, "json") {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	return zap.New(zapcore.NewCore(enc, ws, atomicLevel)).Sugar()
}

// Configure replaces the global logger according to opts.
func Configure(opts Options) {
	var ws zapcore.WriteSyncer
	if opts.FilePath != "" {
		ws = zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		})
	} else {
		ws = zapcore.Lock(os.Stderr)
	}

	mu.Lock()
	sugar = newSugar(ws, opts.Format)
	mu.Unlock()

	if opts.Level != "" {
		SetLogLevel(opts.Level)
	}
}

// SetOutput redirects the global logger to w using the console encoder.
// Mostly useful in tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	sugar = newSugar(zapcore.AddSync(w), "console")
}

// ParseLevel converts a level name to a LogLevel. Unknown names yield LevelInfo and false.
func ParseLevel(level string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// SetLogLevel sets the global log level.
// If an invalid value is specified, INFO is used and a warning is written.
func SetLogLevel(level string) {
	lvl, ok := ParseLevel(level)
	atomicLevel.SetLevel(lvl.zapLevel())
	if !ok {
		Warnf("Unknown log level '%s' specified. Defaulting to INFO level.", level)
	}
}

// Enabled reports whether messages at level would be written.
func Enabled(level LogLevel) bool {
	return atomicLevel.Enabled(level.zapLevel())
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	current().Debugf(format, v...)
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	current().Infof(format, v...)
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	current().Warnf(format, v...)
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	current().Errorf(format, v...)
}

// Fatalf logs at FATAL level and terminates the process with exit code 1.
func Fatalf(format string, v ...interface{}) {
	current().Fatalf(format, v...)
}

// Sync flushes any buffered log entries.
func Sync() error {
	if err := current().Sync(); err != nil {
		// stderr cannot be fsynced on most platforms.
		if strings.Contains(err.Error(), "invalid argument") || strings.Contains(err.Error(), "inappropriate ioctl") {
			return nil
		}
		return fmt.Errorf("logger sync: %w", err)
	}
	return nil
}
