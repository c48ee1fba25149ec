package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCLIModeFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelWarn, &buf)

	Debug("Test", "dropped debug")
	Info("Test", "dropped info")
	Warn("Test", "kept warning %d", 1)
	Error("Test", errors.New("boom"), "kept error")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("entries below the filter level leaked: %q", out)
	}
	if !strings.Contains(out, "kept warning 1") {
		t.Errorf("warning missing from output: %q", out)
	}
	if !strings.Contains(out, "boom") {
		t.Errorf("error detail missing from output: %q", out)
	}
	if !strings.Contains(out, "subsystem=Test") {
		t.Errorf("subsystem attribute missing from output: %q", out)
	}
}

func TestChannelModeDeliversEntries(t *testing.T) {
	ch := InitWithChannel(LevelInfo)
	defer CloseChannel()

	Info("Test", "hello %s", "world")

	select {
	case entry := <-ch:
		if entry.Subsystem != "Test" || entry.Message != "hello world" || entry.Level != LevelInfo {
			t.Errorf("unexpected entry: %+v", entry)
		}
	default:
		t.Fatal("expected an entry on the sink channel")
	}
}
