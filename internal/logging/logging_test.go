package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewTextLogger(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Output = "file"
	cfg.FilePath = filepath.Join(dir, "expandd.log")

	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer l.Close()

	l.Info("expansion fired", "trigger", ":sig", "delete", 4)
	if err := l.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	data, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "expansion fired") {
		t.Errorf("log missing message: %s", out)
	}
	if !strings.Contains(out, ":sig") {
		t.Errorf("log missing attribute: %s", out)
	}
	if !strings.Contains(out, "component=expandd") {
		t.Errorf("log missing component: %s", out)
	}
}

func TestJSONFormat(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Output = "file"
	cfg.Format = FormatJSON
	cfg.FilePath = filepath.Join(dir, "expandd.log")

	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer l.Close()

	l.Warn("command failed", "cmd", "false")
	l.Sync()

	data, _ := os.ReadFile(cfg.FilePath)
	if !strings.Contains(string(data), `"msg":"command failed"`) {
		t.Errorf("expected JSON output, got: %s", data)
	}
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Output = "file"
	cfg.Level = LevelWarn
	cfg.FilePath = filepath.Join(dir, "expandd.log")

	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer l.Close()

	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("visible")
	l.Sync()

	data, _ := os.ReadFile(cfg.FilePath)
	out := string(data)
	if strings.Contains(out, "hidden") {
		t.Errorf("low-level entries should be filtered: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn entry missing: %s", out)
	}
}

func TestWithComponent(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Output = "file"
	cfg.Component = ""
	cfg.FilePath = filepath.Join(dir, "expandd.log")

	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer l.Close()

	l.WithComponent("matcher").Info("buffer reset")
	l.Sync()

	data, _ := os.ReadFile(cfg.FilePath)
	if !strings.Contains(string(data), "component=matcher") {
		t.Errorf("child component missing: %s", data)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"ERROR", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRotationBySize(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.FilePath = filepath.Join(dir, "expandd.log")
	cfg.MaxSize = 0 // every write rotates
	cfg.Compress = false
	cfg.MaxBackups = 10

	r, err := NewFileRotator(cfg)
	if err != nil {
		t.Fatalf("NewFileRotator failed: %v", err)
	}
	defer r.Close()

	if _, err := r.Write([]byte("first\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := r.Write([]byte("second\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "expandd-*.log*"))
	if len(matches) == 0 {
		t.Error("expected at least one rotated file")
	}
}
