// Package logger wires the global zap logger: a console core split across
// stdout (progress) and stderr (errors), plus a rotated JSON file core.
// Progress output honors the silent/verbose CLI flags; errors always reach
// stderr with full detail.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/syncflux-collector/config"
)

var (
	baseLogger        *zap.Logger
	loggerInitOnce    sync.Once
	loggerInitialized bool
)

// Init builds the global logger once. silent drops everything below error
// from the console; verbose lowers the console to debug. The file core
// always follows cfg.Level and cfg.Format.
func Init(cfg config.LogConfig, silent, verbose bool) error {
	var err error
	loggerInitOnce.Do(func() {
		fileLevel := parseLevel(cfg.Level)
		if verbose {
			fileLevel = zapcore.DebugLevel
		}

		consoleLevel := zapcore.InfoLevel
		if verbose {
			consoleLevel = zapcore.DebugLevel
		}

		if err = os.MkdirAll(cfg.Path, 0755); err != nil {
			return
		}
		writer, wErr := rotatelogs.New(
			filepath.Join(cfg.Path, "syncflux-%Y%m%d.log"),
			rotatelogs.WithMaxAge(time.Duration(cfg.MaxAgeDays)*24*time.Hour),
			rotatelogs.WithRotationTime(24*time.Hour),
			rotatelogs.WithRotationSize(int64(cfg.MaxSizeMB)*1024*1024),
		)
		if wErr != nil {
			err = wErr
			return
		}

		consoleEncoder := zapcore.NewConsoleEncoder(newConsoleEncoderConfig())

		var fileEncoder zapcore.Encoder
		if cfg.Format == "console" {
			fileEncoder = zapcore.NewConsoleEncoder(newConsoleEncoderConfig())
		} else {
			jsonCfg := zap.NewProductionEncoderConfig()
			jsonCfg.TimeKey = "timestamp"
			jsonCfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
				enc.AppendString(t.Format("2006-01-02 15:04:05.000 -07:00"))
			}
			jsonCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
			fileEncoder = zapcore.NewJSONEncoder(jsonCfg)
		}

		// Progress below error goes to stdout and vanishes under --silent;
		// error and above always go to stderr.
		statusEnabler := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return !silent && l >= consoleLevel && l < zapcore.ErrorLevel
		})
		errorEnabler := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= zapcore.ErrorLevel
		})

		core := zapcore.NewTee(
			zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), statusEnabler),
			zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stderr), errorEnabler),
			zapcore.NewCore(fileEncoder, zapcore.AddSync(writer), fileLevel),
		)

		baseLogger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.FatalLevel))
		loggerInitialized = true
	})
	return err
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func newConsoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.ConsoleSeparator = " "
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(fmt.Sprintf("\033[34m%s\033[0m", t.Format("2006-01-02 15:04:05.000")))
	}
	cfg.EncodeLevel = coloredLevelEncoder
	// Caller trimmed to package/file.go:line.
	cfg.EncodeCaller = func(c zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		rel := filepath.Join(filepath.Base(filepath.Dir(c.File)), filepath.Base(c.File))
		enc.AppendString(fmt.Sprintf("%s:%d", rel, c.Line))
	}
	return cfg
}

func coloredLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var levelStr string
	switch level {
	case zapcore.DebugLevel:
		levelStr = "\033[36mDEBUG\033[0m"
	case zapcore.InfoLevel:
		levelStr = "\033[32mINFO \033[0m"
	case zapcore.WarnLevel:
		levelStr = "\033[33mWARN \033[0m"
	case zapcore.ErrorLevel:
		levelStr = "\033[31mERROR\033[0m"
	case zapcore.FatalLevel:
		levelStr = "\033[35mFATAL\033[0m"
	default:
		levelStr = "UNK  "
	}
	enc.AppendString(levelStr)
}

func Debug(msg string, fields ...zapcore.Field) {
	current().Debug(msg, fields...)
}

func Info(msg string, fields ...zapcore.Field) {
	current().Info(msg, fields...)
}

func Warn(msg string, fields ...zapcore.Field) {
	current().Warn(msg, fields...)
}

func Error(msg string, fields ...zapcore.Field) {
	current().Error(msg, fields...)
}

func Fatal(msg string, fields ...zapcore.Field) {
	current().Fatal(msg, fields...)
}

// Sync flushes buffered log entries. Safe to call before Init.
func Sync() error {
	if !loggerInitialized {
		return nil
	}
	return baseLogger.Sync()
}

// GetLogger exposes the underlying zap.Logger for collaborators that need
// one (promhttp error logging).
func GetLogger() *zap.Logger {
	return current()
}

// current falls back to a nop logger before Init, mirroring zap.L().
func current() *zap.Logger {
	if !loggerInitialized {
		return zap.NewNop()
	}
	return baseLogger
}
