package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelWarn, Output: &buf})

	logger.Debugf("debug message")
	logger.Infof("info message")
	logger.Warnf("warn message")
	logger.Errorf("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") {
		t.Error("debug message should be filtered at warn level")
	}
	if strings.Contains(out, "info message") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "warn message") {
		t.Error("warn message missing")
	}
	if !strings.Contains(out, "error message") {
		t.Error("error message missing")
	}
}

func TestPrintfIsInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelInfo, Output: &buf})

	logger.Printf("hello %d", 42)
	if !strings.Contains(buf.String(), "hello 42") {
		t.Errorf("Printf output missing, got %q", buf.String())
	}
}

func TestDefaultLogger(t *testing.T) {
	logger := Default()
	if logger == nil {
		t.Fatal("Default() returned nil")
	}
	if Default() != logger {
		t.Error("Default() should return the same instance")
	}
}

func TestDumpBytes(t *testing.T) {
	got := DumpBytes([]byte("AT+CSQ\r\nOK"))
	want := `AT+CSQ\r\nOK`
	if got != want {
		t.Errorf("DumpBytes = %q, want %q", got, want)
	}

	got = DumpBytes([]byte{0x01, 'A'})
	want = `\x1A`
	if got != want {
		t.Errorf("DumpBytes = %q, want %q", got, want)
	}
}
