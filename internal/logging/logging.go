package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level  string
	Format string // json or console
	File   string // optional; rotated by lumberjack
	// Stderr sends console output to stderr, leaving stdout to commands
	// that print results.
	Stderr bool
}

// New builds the process logger. Console format uses the development encoder
// with colored levels; json uses the production encoder.
func New(opts Options) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if opts.Level != "" {
		l, err := zap.ParseAtomicLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		level = l
	}

	var enc zapcore.Encoder
	if opts.Format == "console" {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	} else {
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(ec)
	}

	out := os.Stdout
	if opts.Stderr {
		out = os.Stderr
	}
	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(out), level)}
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		// files always get json, regardless of the console encoder
		fileEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEnc, zapcore.AddSync(rotator), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
