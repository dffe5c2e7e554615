// Package log provides diskprep's structured logger: a package-level
// zap.SugaredLogger, with an optional rotating-file sink for the CLI
// entrypoint. Library code (planner, cleanup, applier, …) only ever logs
// through Logger — it never configures a sink itself (spec §1: log-sink
// fan-out is a caller concern).
package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the package-level logger used throughout diskprep. It
// defaults to zap's development console logger (debug level and up);
// cmd/diskprep calls
// SetLogger (typically with CreateLogger) once at startup.
var Logger *zap.SugaredLogger = zap.NewNop().Sugar()

func init() {
	if l, err := zap.NewDevelopment(); err == nil {
		Logger = l.Sugar()
	}
}

// SetLogger replaces the package-level Logger.
func SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		Logger = l
	}
}

// ParseLogLevel maps a log-level string ("debug", "info", "warn",
// "error"; "" defaults to info) to a zap.AtomicLevel.
func ParseLogLevel(level string) (zap.AtomicLevel, error) {
	if level == "" {
		level = "info"
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("log: invalid level %q: %w", level, err)
	}
	return zap.NewAtomicLevelAt(l), nil
}

// CreateLogger builds a SugaredLogger at the given level. When logFile is
// non-empty it also rotates through lumberjack (see
// CreateLoggerWithLumberjack); when empty it logs JSON to stderr.
func CreateLogger(level zap.AtomicLevel, logFile string) *zap.SugaredLogger {
	if logFile != "" {
		return CreateLoggerWithLumberjack(logFile, 100, level.Level())
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

// CreateLoggerWithLumberjack builds a SugaredLogger that writes JSON lines
// to logFile, rotating once the file exceeds maxSizeMB.
func CreateLoggerWithLumberjack(logFile string, maxSizeMB int, level zapcore.Level) *zap.SugaredLogger {
	writer := &lumberjack.Logger{
		Filename: logFile,
		MaxSize:  maxSizeMB,
		Compress: false,
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(writer),
		level,
	)

	return zap.New(core).Sugar()
}
