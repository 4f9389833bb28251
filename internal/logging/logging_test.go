package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, FormatJSON)
	logger.Info("hello", slog.String("source", "/a.mp3"))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "hello" || rec["source"] != "/a.mp3" {
		t.Errorf("record = %v", rec)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn, FormatText)
	logger.Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
	logger.Warn("loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Errorf("warn missing from %q", buf.String())
	}
}

func TestNewPretty(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelDebug, FormatPretty)
	logger.Info("unlocked", slog.String("session", "abc"))
	out := buf.String()
	if !strings.Contains(out, "unlocked") || !strings.Contains(out, "abc") {
		t.Errorf("pretty output = %q", out)
	}
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tui.log")
	logger, closer, err := NewFile(path, slog.LevelInfo, FormatText)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	logger.Info("written")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "written") {
		t.Errorf("log file = %q", data)
	}
}

func TestNewFileCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "nested", "tui.log")
	logger, closer, err := NewFile(path, slog.LevelInfo, FormatJSON)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	defer closer.Close()
	logger.Info("ok")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file missing: %v", err)
	}
}

func TestAutoFormatOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, slog.LevelInfo, FormatAuto).Info("piped")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("auto format off a terminal should be JSON: %q", buf.String())
	}
}
