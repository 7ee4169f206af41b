// Package logger wraps zerolog for the safe command line tool.
//
// Diagnostics go to stderr so that stdout stays reserved for envelopes and
// decrypted text. Callers must never log passphrases, key material or
// plaintext; log names, sizes and stages instead.
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a thin wrapper around zerolog.Logger.
type Logger struct {
	zerolog.Logger
}

// New builds a human-readable logger writing to w at the given level.
func New(w io.Writer, level zerolog.Level) *Logger {
	console := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
	}
	logger := zerolog.New(console).Level(level).With().
		Timestamp().
		Logger()

	return &Logger{logger}
}

// NewCLI builds the stderr logger used by the safe binary.
func NewCLI(level zerolog.Level) *Logger {
	return New(os.Stderr, level)
}

// Nop returns a *Logger that discards all log output.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// With returns a child logger carrying an extra string field.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{l.Logger.With().Str(key, value).Logger()}
}

// WithContext attaches l to ctx.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return l.Logger.WithContext(ctx)
}

// FromContext returns the logger attached to ctx, or a disabled logger.
func FromContext(ctx context.Context) *Logger {
	return &Logger{*zerolog.Ctx(ctx)}
}
