package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker"} {
		if _, err := New(env, Options{}); err != nil {
			t.Errorf("New(%q): %v", env, err)
		}
	}
	if _, err := New("staging", Options{}); err == nil {
		t.Error("expected error for unknown environment")
	}
}

func TestNew_Options(t *testing.T) {
	l, err := New("prod", Options{Level: "debug", Format: "console"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug level enabled")
	}

	l, err = New("local", Options{Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info disabled at warn")
	}

	if _, err := New("prod", Options{Level: "loud"}); err == nil {
		t.Error("expected error for invalid level")
	}
	if _, err := New("prod", Options{Format: "xml"}); err == nil {
		t.Error("expected error for invalid format")
	}
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	scoped := zap.New(core)
	fallback := zap.NewExample()

	if got := FromContext(ContextWithLogger(context.Background(), scoped), fallback); got != scoped {
		t.Error("expected context logger to win over fallback")
	}
	if got := FromContext(context.Background(), nil, fallback); got != fallback {
		t.Error("expected first non-nil fallback")
	}

	FromContext(context.Background()).Info("dropped")
	scoped.Info("kept")
	if logs.Len() != 1 {
		t.Errorf("expected 1 observed entry, got %d", logs.Len())
	}
}
