package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := LevelFromString(tt.in); got != tt.want {
			t.Errorf("LevelFromString(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInit_StdoutOnly(t *testing.T) {
	defer slog.SetDefault(slog.Default())
	var buf bytes.Buffer
	logger, closer := InitWriter(&buf, Config{LogLevel: "warn"})
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("shown", slog.Int("n", 3))
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"n":3`) {
		t.Errorf("want JSON warn record, got %s", out)
	}
}

func TestInit_File(t *testing.T) {
	defer slog.SetDefault(slog.Default())
	path := filepath.Join(t.TempDir(), "quad.log")
	var buf bytes.Buffer
	_, closer := InitWriter(&buf, Config{LogToFile: true, Filename: path, MaxSize: 1, LogLevel: "info"})

	slog.Info("integration done")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file: %v", err)
	}
	if !strings.Contains(string(data), "integration done") {
		t.Errorf("log file should contain the record, got %s", data)
	}
	if !strings.Contains(buf.String(), "integration done") {
		t.Errorf("stdout should mirror the record, got %s", buf.String())
	}
}
