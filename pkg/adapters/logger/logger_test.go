package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/user/maskfx/pkg/ports"
)

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewConsoleWriter(ports.LevelInfo, &out, &errOut)

	l.Debug("hidden %d", 1)
	l.Info("shown %d", 2)
	l.Warn("warned %d", 3)

	if strings.Contains(out.String(), "hidden") {
		t.Error("debug message should be filtered at info level")
	}
	if !strings.Contains(out.String(), "shown 2") {
		t.Errorf("expected info message on out, got %q", out.String())
	}
	if !strings.Contains(errOut.String(), "warned 3") {
		t.Errorf("expected warning on errOut, got %q", errOut.String())
	}
}

func TestConsoleLogger_WithComponent(t *testing.T) {
	var out bytes.Buffer
	l := NewConsoleWriter(ports.LevelDebug, &out, &out)

	l.WithComponent("scheduler").Info("Scheduler stopped")

	if got := strings.TrimSpace(out.String()); !strings.HasPrefix(got, "[scheduler] ") {
		t.Errorf("expected component prefix, got %q", got)
	}
}

func TestConsoleLogger_Quiet(t *testing.T) {
	var out bytes.Buffer
	l := NewConsoleWriter(ports.LevelQuiet, &out, &out)
	l.Error("boom")
	if out.Len() != 0 {
		t.Errorf("expected no output in quiet mode, got %q", out.String())
	}
}

func TestLogrusLogger_JSON(t *testing.T) {
	var out bytes.Buffer
	l := NewLogrus(ports.LevelDebug, "json", &out)

	l.WithComponent("session").Warn("Segmentation failed for frame %d: %s", 7, "timeout")

	var entry map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", out.String(), err)
	}
	if entry["component"] != "session" {
		t.Errorf("expected component field, got %v", entry["component"])
	}
	if entry["level"] != "warning" {
		t.Errorf("expected level warning, got %v", entry["level"])
	}
	if entry["msg"] != "Segmentation failed for frame 7: timeout" {
		t.Errorf("unexpected msg %v", entry["msg"])
	}
}

func TestLogrusLogger_Level(t *testing.T) {
	var out bytes.Buffer
	l := NewLogrus(ports.LevelWarn, "text", &out)

	l.Info("not shown")
	if out.Len() != 0 {
		t.Errorf("expected info to be filtered, got %q", out.String())
	}
	l.Error("shown")
	if !strings.Contains(out.String(), "shown") {
		t.Errorf("expected error message, got %q", out.String())
	}
}

func TestNoopLogger(t *testing.T) {
	var l ports.Logger = NewNoop()
	if l.WithComponent("x") != l {
		t.Error("expected WithComponent to return the same logger")
	}
}
