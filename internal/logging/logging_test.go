package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelWarn)
	defer func() {
		SetOutput(os.Stdout)
		SetLevel(LevelInfo)
	}()

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below warn level leaked through: %q", out)
	}
	if !strings.Contains(out, "[WARN] warn message") {
		t.Errorf("missing warn entry: %q", out)
	}
	if !strings.Contains(out, "[ERROR] error message") {
		t.Errorf("missing error entry: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"bogus", LevelInfo, true},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFileSink(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelInfo)
	defer func() {
		SetOutput(os.Stdout)
	}()

	path := filepath.Join(t.TempDir(), "migration.log")
	if err := SetFile(path); err != nil {
		t.Fatalf("SetFile: %v", err)
	}

	Info("first entry")
	CloseFile()

	// Re-attach: the sink must append, not truncate
	if err := SetFile(path); err != nil {
		t.Fatalf("SetFile again: %v", err)
	}
	Info("second entry")
	CloseFile()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "[INFO] first entry") || !strings.Contains(content, "[INFO] second entry") {
		t.Errorf("log file missing entries: %q", content)
	}
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 2 {
		t.Errorf("expected 2 lines, got %d", len(lines))
	}
	// Each line carries timestamp, level, message
	for _, line := range lines {
		if !strings.Contains(line, "[INFO]") {
			t.Errorf("line missing level tag: %q", line)
		}
	}
}
