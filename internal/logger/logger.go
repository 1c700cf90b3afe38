// Package logger is the structured logger shared by the daemon, the
// background jobs and the CLI. Other packages log through Logger and the
// field helpers below and never import zap themselves.
package logger

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a structured log field.
type Field = zap.Field

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Infof(template string, args ...any)
	Sync() error
}

type zapLogger struct {
	*zap.Logger
}

// New builds a Logger writing to stderr, so stdout stays free for command
// output. pretty selects the colored console encoder; otherwise one JSON
// object is written per line. Unknown levels fall back to info.
func New(level string, pretty bool) (Logger, error) {
	cfg := zap.NewProductionConfig()
	if pretty {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.OutputPaths = []string{"stderr"}

	base, err := cfg.Build(zap.AddStacktrace(zapcore.FatalLevel))
	if err != nil {
		return nil, err
	}
	return zapLogger{base}, nil
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return zapLogger{zap.NewNop()}
}

func parseLevel(lvl string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(lvl)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

func (l zapLogger) Infof(template string, args ...any) {
	l.Sugar().Infof(template, args...)
}

func String(key, val string) Field                 { return zap.String(key, val) }
func Int(key string, val int) Field                { return zap.Int(key, val) }
func Duration(key string, val time.Duration) Field { return zap.Duration(key, val) }
func Time(key string, val time.Time) Field         { return zap.Time(key, val) }
func Error(err error) Field                        { return zap.Error(err) }
