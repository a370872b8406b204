package logger

import (
	"fmt"
	"os"

	"github.com/go-kratos/kratos/v2/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"nominatim-indexer/internal/conf"
)

var _ log.Logger = (*Logger)(nil)

// Logger 将 zap 适配为 kratos log.Logger。
type Logger struct {
	zl *zap.Logger
}

// NewLogger 创建进程 logger
// level: "debug", "info", "warn", "error" (默认: "info")
// format: "json" 或 "console" (默认: "json")
func NewLogger(c *conf.Log, name, version string) (*Logger, func(), error) {
	var cfg zap.Config
	if c.Format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stderr"}
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(c.Level))
	// caller 由 kratos 的 valuer 提供
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true

	zl, err := cfg.Build()
	if err != nil {
		return nil, nil, err
	}
	if name != "" {
		zl = zl.With(zap.String("service_name", name), zap.String("service_version", version))
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		zl = zl.With(zap.String("hostname", hostname))
	}
	return &Logger{zl: zl}, func() { _ = zl.Sync() }, nil
}

// NewZapLogger wraps an existing zap logger.
func NewZapLogger(zl *zap.Logger) *Logger {
	return &Logger{zl: zl}
}

func zapLevel(level string) zapcore.Level {
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

// Log implements log.Logger.
func (l *Logger) Log(level log.Level, keyvals ...any) error {
	if len(keyvals) == 0 {
		return nil
	}
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "KEYVALS UNPAIRED")
	}

	var msg string
	fields := make([]zap.Field, 0, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if key == log.DefaultMessageKey {
			msg = fmt.Sprint(keyvals[i+1])
			continue
		}
		fields = append(fields, zap.Any(key, keyvals[i+1]))
	}

	switch level {
	case log.LevelDebug:
		l.zl.Debug(msg, fields...)
	case log.LevelWarn:
		l.zl.Warn(msg, fields...)
	case log.LevelError:
		l.zl.Error(msg, fields...)
	case log.LevelFatal:
		l.zl.Fatal(msg, fields...)
	default:
		l.zl.Info(msg, fields...)
	}
	return nil
}

func (l *Logger) Sync() error {
	return l.zl.Sync()
}
