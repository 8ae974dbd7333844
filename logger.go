package postbook

import (
	"fmt"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the program logger: info and debug go to stdout, errors
// to stderr, and everything at the file level to the optional log file.
// The returned func flushes and closes the file.
func NewLogger(cfg LoggingConfig) (*zap.Logger, func() error, error) {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	console := zapcore.NewConsoleEncoder(ec)

	highPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})

	var cores []zapcore.Core
	switch cfg.Level {
	case "normal", "debug":
		floor := zapcore.InfoLevel
		if cfg.Level == "debug" {
			floor = zapcore.DebugLevel
		}
		cores = append(cores,
			zapcore.NewCore(console, zapcore.Lock(os.Stdout), zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return floor <= lvl && lvl < zapcore.ErrorLevel
			})),
			zapcore.NewCore(console, zapcore.Lock(os.Stderr), highPriority),
		)
	}

	var file *os.File
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
		level := zap.NewAtomicLevelAt(zap.InfoLevel)
		if cfg.FileLevel == "debug" {
			level.SetLevel(zap.DebugLevel)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.Lock(f), level))
	}

	log := zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Named("postbook")
	closeFn := func() error {
		// syncing a terminal fails on some platforms, only the file matters
		_ = log.Sync()
		if file == nil {
			return nil
		}
		return multierr.Append(file.Sync(), file.Close())
	}
	return log, closeFn, nil
}
