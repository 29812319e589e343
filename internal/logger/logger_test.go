package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: WarnLevel, Pretty: false, Output: &buf})

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below warn leaked through: %q", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("warn/error messages missing: %q", out)
	}
}

func TestNew_ComponentField(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: InfoLevel, Pretty: false, Output: &buf, Component: "transport"})

	l.Info("hello")

	if !strings.Contains(buf.String(), `"component":"transport"`) {
		t.Errorf("component field missing: %q", buf.String())
	}
}

func TestCritical_DoesNotExit(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: InfoLevel, Pretty: false, Output: &buf})

	// Must log at fatal level and return.
	l.Critical("unrecoverable")
	l.Criticalf("unrecoverable: %s", "details")

	out := buf.String()
	if !strings.Contains(out, `"level":"fatal"`) {
		t.Errorf("critical should log at fatal level: %q", out)
	}
	if !strings.Contains(out, "details") {
		t.Errorf("formatted critical message missing: %q", out)
	}
}

func TestWithField(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: InfoLevel, Pretty: false, Output: &buf})

	l.WithField("attempt", 2).Info("retrying")

	if !strings.Contains(buf.String(), `"attempt":2`) {
		t.Errorf("field missing: %q", buf.String())
	}
}

func TestNop_Discards(t *testing.T) {
	// Must not panic and must satisfy Sink.
	var sink Sink = Nop()
	sink.Info("dropped")
	sink.Warnf("dropped %d", 1)
	sink.Critical("dropped")
}

func TestLoggerImplementsSink(t *testing.T) {
	var _ Sink = NewDefault()
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	if err != nil {
		t.Fatalf("ParseLevel() error = %v", err)
	}
	if level != DebugLevel {
		t.Errorf("ParseLevel(debug) = %v, want %v", level, DebugLevel)
	}

	if _, err := ParseLevel("nope"); err == nil {
		t.Error("ParseLevel(nope) expected error")
	}
}
