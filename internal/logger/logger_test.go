package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"
	if _, err := NewLogger(cfg); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestNewLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "imagetools.log")
	cfg := DefaultConfig()
	cfg.Format = "json"
	cfg.FilePath = path
	cfg.Console = false

	log, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	WithFileOperation(log, "photo.jpg", "reduce").Info("Image photo.jpg now has a file size of 312 KB.")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	for _, want := range []string{`"message":"Image photo.jpg now has a file size of 312 KB."`, `"file":"photo.jpg"`, `"operation":"reduce"`} {
		if !strings.Contains(line, want) {
			t.Errorf("Log line missing %s: %s", want, line)
		}
	}
}

func TestNewLoggerLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	cfg.Console = false

	log, err := NewLogger(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if log.GetLevel() != logrus.DebugLevel {
		t.Errorf("Expected debug level, got %v", log.GetLevel())
	}
}
