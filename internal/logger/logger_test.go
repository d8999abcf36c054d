package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitAndLog(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	path := filepath.Join(t.TempDir(), "drydock-test.log")
	if err := Init(path); err != nil {
		t.Fatalf("Init error: %v", err)
	}

	Info("hello %s", "world")
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if !strings.Contains(string(data), "hello world") {
		t.Errorf("log file missing message, got: %s", data)
	}
}

func TestDebugSuppressedByDefault(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	path := filepath.Join(t.TempDir(), "drydock-test.log")
	if err := Init(path); err != nil {
		t.Fatalf("Init error: %v", err)
	}

	SetDebug(false)
	Debug("should not appear")
	SetDebug(true)
	Debug("should appear")
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if strings.Contains(string(data), "should not appear") {
		t.Errorf("suppressed debug message was written")
	}
	if !strings.Contains(string(data), "should appear") {
		t.Errorf("enabled debug message was not written")
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	path := filepath.Join(t.TempDir(), "drydock-test.log")
	if err := Init(path); err != nil {
		t.Fatalf("first Init error: %v", err)
	}
	if err := Init(filepath.Join(t.TempDir(), "other.log")); err != nil {
		t.Fatalf("second Init error: %v", err)
	}
}
