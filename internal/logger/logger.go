package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation policy for the on-disk log file.
const (
	maxSize    = 50 // megabytes per file
	maxBackups = 30 // rotated files to keep
	maxAge     = 28 // days to keep rotated files
)

// Setup builds the process logger. Release mode logs JSON at info level with
// caller/stacktrace noise disabled; any other mode logs at debug level with
// the development console encoder. Both tee into a size-rotated file.
func Setup(logFile, mode string) (*zap.Logger, error) {
	var (
		cfg   zap.Config
		level zapcore.Level
	)

	if mode == "release" {
		cfg = zap.NewProductionConfig()
		cfg.DisableCaller = true
		cfg.DisableStacktrace = true
		level = zap.InfoLevel
	} else {
		cfg = zap.NewDevelopmentConfig()
		level = zap.DebugLevel
	}

	fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())

	return cfg.Build(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		fileCore := zapcore.NewCore(fileEncoder, rotateWriteSyncer(logFile), level)
		return zapcore.NewTee(core, fileCore)
	}))
}

func rotateWriteSyncer(logFile string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
	})
}
