package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
		{"fatal", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNamedAddsComponent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Named(wrap(zap.New(core)), "catalog")

	l.Info("refreshed", Int("records", 3))
	l.Debugf("took %s", "1ms")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["component"] != "catalog" || ctx["records"] != int64(3) {
		t.Errorf("context = %v", ctx)
	}
	if entries[1].Message != "took 1ms" {
		t.Errorf("message = %q", entries[1].Message)
	}
}

func TestNamedForeignLogger(t *testing.T) {
	var l Logger = fakeLogger{Logger: Nop()}
	if Named(l, "x") != l {
		t.Error("Named should return non-zap loggers unchanged")
	}
}

type fakeLogger struct{ Logger }
