package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestDefaultLogPath(t *testing.T) {
	path := DefaultLogPath()
	if filepath.Base(path) != "doctext.log" {
		t.Errorf("DefaultLogPath should end with doctext.log, got: %s", path)
	}
	if !strings.Contains(path, ".doctext") {
		t.Errorf("DefaultLogPath should live under .doctext, got: %s", path)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.FilePath != "" {
		t.Errorf("default config should not log to a file, got: %s", cfg.FilePath)
	}
	if !cfg.WriteToStderr {
		t.Error("expected WriteToStderr to be true")
	}
	if DebugConfig().Level != "debug" {
		t.Error("expected debug level in DebugConfig")
	}
}

func TestStdioSafeConfig_NeverWritesToStderr(t *testing.T) {
	cfg := StdioSafeConfig("info")
	if cfg.WriteToStderr {
		t.Error("stdio-safe config must not write to stderr")
	}
	if cfg.FilePath == "" {
		t.Error("stdio-safe config must log to a file")
	}
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "test.log")

	logger, cleanup, err := Setup(Config{Level: "debug", FilePath: logPath, MaxSizeMB: 1, MaxFiles: 2})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Info("document_indexed", slog.String("doc_id", "a.txt"))
	cleanup()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !bytes.Contains(data, []byte(`"msg":"document_indexed"`)) {
		t.Errorf("log file missing event, got: %s", data)
	}
	if !bytes.Contains(data, []byte(`"doc_id":"a.txt"`)) {
		t.Errorf("log file missing attribute, got: %s", data)
	}
}

func TestSetup_NoOutputsDiscards(t *testing.T) {
	logger, cleanup, err := Setup(Config{Level: "info"})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	defer cleanup()
	logger.Info("dropped")
}

func TestLevelFromString(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := LevelFromString(in); got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRotatingWriter_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rot.log")
	w, err := NewRotatingWriter(path, 1, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer func() { _ = w.Close() }()

	chunk := bytes.Repeat([]byte("x"), 700*1024)
	for i := 0; i < 4; i++ {
		if _, err := w.Write(chunk); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	for _, p := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Errorf("expected %s.3 to be pruned", path)
	}
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	w, err := NewRotatingWriter(filepath.Join(t.TempDir(), "c.log"), 1, 1)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := w.Write([]byte("late")); err == nil {
		t.Error("expected error writing to closed writer")
	}
	if err := w.Sync(); err != nil {
		t.Errorf("Sync on closed writer should be a no-op, got %v", err)
	}
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conc.log")
	w, err := NewRotatingWriter(path, 1, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = w.Write([]byte("line\n"))
			}
		}()
	}
	wg.Wait()
	_ = w.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := strings.Count(string(data), "line\n"); got != 400 {
		t.Errorf("expected 400 lines, got %d", got)
	}
}
