// Package logging writes JSON log lines through a shared zap logger.
package logging

import (
	"io"
	"os"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Fields are extra key/value pairs attached to a log line.
type Fields map[string]interface{}

var (
	logger atomic.Pointer[zap.Logger]
	// exit is swapped out in tests.
	exit = os.Exit
)

func init() {
	SetOutput(os.Stderr)
}

// exitHook runs after a fatal entry is written.
type exitHook struct{}

func (exitHook) OnWrite(*zapcore.CheckedEntry, []zapcore.Field) { exit(1) }

func newLogger(w io.Writer) *zap.Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.Lock(zapcore.AddSync(w)), zapcore.DebugLevel)
	return zap.New(core, zap.WithFatalHook(exitHook{}))
}

// SetOutput redirects log lines, mostly for tests and the arena client.
func SetOutput(w io.Writer) {
	logger.Store(newLogger(w))
}

// L returns the underlying zap logger.
func L() *zap.Logger {
	return logger.Load()
}

func zapFields(fields Fields, err error) []zap.Field {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(keys)+1)
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	if err != nil {
		out = append(out, zap.Error(err))
	}
	return out
}

// Info logs an informational message with optional fields.
func Info(msg string, fields Fields) {
	L().Info(msg, zapFields(fields, nil)...)
}

// Warn logs a recoverable problem.
func Warn(msg string, fields Fields) {
	L().Warn(msg, zapFields(fields, nil)...)
}

// Error logs an error message and includes the error text in the fields.
func Error(msg string, err error, fields Fields) {
	L().Error(msg, zapFields(fields, err)...)
}

// Fatal logs a fatal error and exits the process.
func Fatal(msg string, err error, fields Fields) {
	L().Fatal(msg, zapFields(fields, err)...)
}
