package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLoggerLevel(t *testing.T) {
	if NewLogger(false).Desugar().Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug should be disabled without verbose")
	}
	if !NewLogger(true).Desugar().Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug should be enabled with verbose")
	}
}

func TestNewWithLevel(t *testing.T) {
	tests := []struct {
		name string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"loud", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core := NewWithLevel(tt.name).Desugar().Core()
			if !core.Enabled(tt.want) {
				t.Errorf("level %s should be enabled", tt.want)
			}
			if tt.want > zapcore.DebugLevel && core.Enabled(tt.want-1) {
				t.Errorf("level %s should be disabled", tt.want-1)
			}
		})
	}
}

func TestWithKeepsWrapper(t *testing.T) {
	l := NewNop().With("run_id", "abc")
	if l == nil || l.SugaredLogger == nil {
		t.Fatal("expected a wrapped logger")
	}
	l.Infow("message", "key", "value")
}
