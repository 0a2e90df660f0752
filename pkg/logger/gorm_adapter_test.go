package logger

import (
	"context"
	"testing"
	"time"

	"paycore/infrastructure/persistence"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm/logger"
)

func TestGormLoggerAdapter(t *testing.T) {
	originalLogger := log
	defer func() { log = originalLogger }()

	testCases := []struct {
		name        string
		logLevel    logger.LogLevel
		wantsTraces bool
	}{
		{"Warn Level", logger.Warn, false},
		{"Info Level", logger.Info, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			log = zap.New(core)

			adapter := NewGormLoggerAdapter(tc.logLevel)
			if adapter.LogMode(logger.Info) == nil {
				t.Fatal("LogMode should return a new adapter")
			}

			adapter.Info(context.Background(), "test info message")
			adapter.Warn(context.Background(), "test warn message")
			adapter.Error(context.Background(), "test error message")
			adapter.Trace(context.Background(), time.Now(), func() (string, int64) {
				return "SELECT * FROM payment_orders", 1
			}, nil)

			foundInfo := false
			foundWarn := false
			foundError := false
			foundTrace := false
			for _, entry := range logs.All() {
				switch entry.Message {
				case "test info message":
					foundInfo = true
				case "test warn message":
					foundWarn = true
				case "test error message":
					foundError = true
				case "SQL query executed":
					foundTrace = true
					hasSQL := false
					for _, field := range entry.Context {
						if field.Key == "sql" {
							hasSQL = true
							break
						}
					}
					if !hasSQL {
						t.Error("SQL statement not found in trace log fields")
					}
				}
			}

			if tc.logLevel <= logger.Info && !foundInfo {
				t.Error("Info message not found in logs")
			}
			if tc.logLevel > logger.Info && foundInfo {
				t.Error("Info message should be filtered out at Warn level")
			}
			if tc.logLevel <= logger.Warn && !foundWarn {
				t.Error("Warn message not found in logs")
			}
			if tc.logLevel <= logger.Error && !foundError {
				t.Error("Error message not found in logs")
			}
			if tc.wantsTraces != foundTrace {
				t.Errorf("trace logged = %v, want %v", foundTrace, tc.wantsTraces)
			}
		})
	}
}

func TestGormLoggerAdapterWithConfig(t *testing.T) {
	originalLogger := log
	defer func() { log = originalLogger }()

	core, logs := observer.New(zapcore.DebugLevel)
	log = zap.New(core)

	customConfig := &GormLoggerConfig{
		SlowThreshold:             10 * time.Millisecond,
		IgnoreRecordNotFoundError: true,
		AddCaller:                 true,
	}
	adapter := NewGormLoggerAdapterWithConfig(logger.Info, customConfig)

	ctx := persistence.ContextWithRequestID(context.Background(), "test-request-123")
	ctx = persistence.ContextWithOrganization(ctx, "org-42")

	adapter.Trace(ctx, time.Now(), func() (string, int64) {
		time.Sleep(15 * time.Millisecond)
		return "SELECT * FROM payment_orders WHERE organization_id = ?", 1
	}, nil)

	adapter.Trace(ctx, time.Now(), func() (string, int64) {
		return "SELECT * FROM payment_orders WHERE id = ?", 0
	}, logger.ErrRecordNotFound)

	foundSlowQuery := false
	foundRequestID := false
	foundOrganization := false
	for _, entry := range logs.All() {
		if entry.Message == "Slow SQL query" {
			foundSlowQuery = true
			for _, field := range entry.Context {
				if field.Key == "request_id" && field.String == "test-request-123" {
					foundRequestID = true
				}
				if field.Key == "organization_id" && field.String == "org-42" {
					foundOrganization = true
				}
			}
		}
		if entry.Message == "Database operation failed" {
			t.Error("record-not-found error should be ignored with custom config")
		}
	}

	if !foundSlowQuery {
		t.Error("slow query should be logged at warn level")
	}
	if !foundRequestID {
		t.Error("request id should be propagated from context")
	}
	if !foundOrganization {
		t.Error("organization id should be propagated from context")
	}
}
