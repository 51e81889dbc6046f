// Package logger holds the process-wide structured logger.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Structured field names shared by every caller.
const (
	FieldRunID     = "run_id"
	FieldProject   = "project"
	FieldArtifact  = "artifact"
	FieldRule      = "rule"
	FieldEntity    = "entity"
	FieldCount     = "count"
	FieldGaps      = "gaps"
	FieldErrors    = "errors"
	FieldDuration  = "duration_ms"
	FieldPath      = "path"
	FieldAddr      = "addr"
	FieldEventType = "event_type"
)

var (
	// Logger is the global logger. It is a no-op until Initialize runs.
	Logger *zap.SugaredLogger
	// JSONOutput records whether Initialize selected JSON output.
	JSONOutput bool
)

func init() {
	Logger = zap.NewNop().Sugar()
}

// Initialize sets up the global logger. JSON output is meant for machines,
// the console encoder for terminals.
func Initialize(jsonOutput bool, level string) error {
	JSONOutput = jsonOutput

	lvl := zap.NewAtomicLevelAt(parseLevel(level))

	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = lvl
		zapLogger, err := config.Build()
		if err != nil {
			return err
		}
		Logger = zapLogger.Sugar()
		return nil
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	encCfg.EncodeCaller = nil

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(os.Stderr),
		lvl,
	)
	Logger = zap.New(core).Sugar()
	return nil
}

// Named returns a child logger tagged with a component name.
func Named(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// Sync flushes buffered log entries. Errors from syncing stderr are ignored.
func Sync() {
	_ = Logger.Sync()
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
