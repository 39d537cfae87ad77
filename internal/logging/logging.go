package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap's sugared logger
type Logger struct {
	*zap.SugaredLogger
}

// console logger at info level, or debug when verbose
func NewLogger(verbose bool) *Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	return New(level)
}

// NewWithLevel parses a level name ("debug", "info", "warn", "error"),
// falling back to info.
func NewWithLevel(name string) *Logger {
	level, err := zapcore.ParseLevel(strings.TrimSpace(name))
	if err != nil {
		level = zapcore.InfoLevel
	}
	return New(level)
}

func New(level zapcore.Level) *Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		level,
	)

	return &Logger{SugaredLogger: zap.New(core).Sugar()}
}

// discards everything; used by tests and library callers
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(args...)}
}
