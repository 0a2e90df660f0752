/*
Package logger provides the process-wide structured logger. Every entry
carries the service name; helpers enrich entries with the request and
organization identity travelling on the context.
*/
package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"paycore/config"
	"paycore/infrastructure/persistence"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "paycore"

var (
	log       *zap.Logger
	atomLevel zap.AtomicLevel
)

// Init builds the process logger from configuration. Console encoding in
// development, JSON elsewhere; file output rotates through lumberjack.
func Init(cfg *config.LogConfig, env string) error {
	atomLevel = zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	core := zapcore.NewCore(buildEncoder(cfg, env), buildSyncer(cfg), atomLevel)
	log = zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service", serviceName)),
	)
	return nil
}

func buildEncoder(cfg *config.LogConfig, env string) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	console := cfg.Format == "console" ||
		(cfg.Format == "" && (env == "dev" || env == "development"))
	if parseLevel(cfg.Level) == zapcore.DebugLevel && cfg.Format != "json" {
		console = true
	}
	if console {
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

func buildSyncer(cfg *config.LogConfig) zapcore.WriteSyncer {
	if cfg.Output != "file" {
		return zapcore.AddSync(os.Stdout)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "log directory unavailable, falling back to stdout: %v\n", err)
		return zapcore.AddSync(os.Stdout)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    orDefault(cfg.MaxSizeMB, 10),
		MaxBackups: orDefault(cfg.MaxBackups, 5),
		MaxAge:     orDefault(cfg.MaxAgeDays, 7),
		Compress:   true,
	})
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func Get() *zap.Logger { return log }

// UpdateLevel changes the minimum level of the running logger.
func UpdateLevel(level string) {
	atomLevel.SetLevel(parseLevel(level))
}

// Sync flushes buffered entries. Errors from syncing a terminal are
// swallowed; they are an artifact of stdout, not a lost entry.
func Sync() error {
	if log == nil {
		return nil
	}
	if err := log.Sync(); err != nil && !isTerminalSyncError(err) {
		return err
	}
	return nil
}

func isTerminalSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "inappropriate ioctl for device") ||
		strings.Contains(msg, "invalid argument") ||
		strings.Contains(msg, "bad file descriptor")
}

func With(fields ...zap.Field) *zap.Logger {
	if log != nil {
		return log.With(fields...)
	}
	return zap.NewNop()
}

func WithRequestID(requestID string) *zap.Logger {
	return With(zap.String("request_id", requestID))
}

func WithOrganization(organizationID string) *zap.Logger {
	return With(zap.String("organization_id", organizationID))
}

// FromContext returns a logger enriched with the request id and
// organization id carried on the context, when present.
func FromContext(ctx context.Context) *zap.Logger {
	return With(ContextFields(ctx)...)
}

// ContextFields extracts the identity fields the context carries.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if requestID := persistence.RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if orgID := persistence.OrganizationFromContext(ctx); orgID != "" {
		fields = append(fields, zap.String("organization_id", orgID))
	}
	return fields
}

// WithContext builds a logger from a loose field map. Errors map to the
// standard error field; everything else keeps its key.
func WithContext(fields map[string]any) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		if err, ok := v.(error); ok {
			zapFields = append(zapFields, zap.Error(err))
			continue
		}
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return log.With(zapFields...)
}

func Debug(msg string, fields ...zap.Field) {
	if log != nil {
		log.Debug(msg, fields...)
	}
}

func Info(msg string, fields ...zap.Field) {
	if log != nil {
		log.Info(msg, fields...)
	}
}

func Warn(msg string, fields ...zap.Field) {
	if log != nil {
		log.Warn(msg, fields...)
	}
}

func Error(msg string, fields ...zap.Field) {
	if log != nil {
		log.Error(msg, fields...)
	}
}

func Fatal(msg string, fields ...zap.Field) {
	if log != nil {
		log.Fatal(msg, fields...)
	}
}
