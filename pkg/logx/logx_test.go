package logx

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetDebugConfig(false)
		SetDebugDomains(nil)
	})
	return &buf
}

// TestLoggerTagsComponent verifies every line carries the component name.
func TestLoggerTagsComponent(t *testing.T) {
	buf := captureOutput(t)

	NewLogger("router").Info("turn %d complete", 3)

	out := buf.String()
	if !strings.Contains(out, "turn 3 complete") {
		t.Errorf("expected formatted message, got %q", out)
	}
	if !strings.Contains(out, `"component": "router"`) {
		t.Errorf("expected component field, got %q", out)
	}
	if !strings.Contains(out, "INFO") {
		t.Errorf("expected INFO level, got %q", out)
	}
}

// TestDebugToggle verifies debug lines respect SetDebugConfig.
func TestDebugToggle(t *testing.T) {
	buf := captureOutput(t)
	logger := NewLogger("intent")

	SetDebugConfig(false)
	logger.Debug("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug line written while debug disabled")
	}

	SetDebugConfig(true)
	logger.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("debug line missing while debug enabled")
	}
}

// TestDebugDomainFiltering verifies domain filters on the context-aware Debug.
func TestDebugDomainFiltering(t *testing.T) {
	buf := captureOutput(t)
	SetDebugConfig(true)
	SetDebugDomains([]string{"intent", "dispatch"})

	ctx := WithTurnID(context.Background(), "turn-1")
	Debug(ctx, "intent", "intent message")
	Debug(ctx, "summary", "summary message")

	out := buf.String()
	if !strings.Contains(out, "intent message") {
		t.Error("expected intent domain to be logged")
	}
	if strings.Contains(out, "summary message") {
		t.Error("expected summary domain to be filtered")
	}
	if !strings.Contains(out, `"turn": "turn-1"`) {
		t.Errorf("expected turn id field, got %q", out)
	}
}

// TestEnvironmentVariableConfiguration verifies DEBUG and DEBUG_DOMAINS.
func TestEnvironmentVariableConfiguration(t *testing.T) {
	t.Setenv("DEBUG", "1")
	t.Setenv("DEBUG_DOMAINS", "intent, responder")
	initDebugFromEnv()
	t.Cleanup(func() {
		os.Unsetenv("DEBUG")
		os.Unsetenv("DEBUG_DOMAINS")
		initDebugFromEnv()
	})

	if !IsDebugEnabled() {
		t.Fatal("expected debug enabled via DEBUG=1")
	}
	if !IsDebugEnabledForDomain("responder") {
		t.Error("expected responder domain enabled")
	}
	if IsDebugEnabledForDomain("dispatch") {
		t.Error("expected dispatch domain disabled")
	}
}

// TestConfigureRejectsBadInput checks level and format validation.
func TestConfigureRejectsBadInput(t *testing.T) {
	if err := Configure(Config{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if err := Configure(Config{Level: LevelInfo, Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
	t.Cleanup(func() {
		_ = Configure(Config{Level: LevelInfo})
		SetOutput(os.Stderr)
	})
	if err := Configure(Config{Level: LevelWarn, Format: "json"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestWrap verifies Wrap preserves the cause.
func TestWrap(t *testing.T) {
	captureOutput(t)
	if Wrap(nil, "noop") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	cause := os.ErrNotExist
	err := Wrap(cause, "open config")
	if err == nil || !strings.Contains(err.Error(), "open config") {
		t.Fatalf("unexpected wrapped error: %v", err)
	}
	if !strings.Contains(err.Error(), cause.Error()) {
		t.Errorf("wrapped error lost cause: %v", err)
	}
}
