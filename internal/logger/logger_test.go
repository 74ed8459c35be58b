package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInit(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	if err := Init(Config{ConfigDir: configDir}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	logDir := filepath.Join(configDir, "logs")
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		t.Errorf("Log directory was not created: %s", logDir)
	}

	if Logger == nil {
		t.Fatal("Logger is nil after initialization")
	}

	Debug("Test debug message")
	Info("Test info message")
	Warn("Test warning message")
	Error("Test error message")
}

func TestInitForegroundRaisesLevel(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	if err := Init(Config{ConfigDir: configDir, Foreground: true}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	if got := Logger.GetLevel().String(); got != "info" {
		t.Errorf("expected info level in foreground mode, got %s", got)
	}

	if err := Init(Config{ConfigDir: configDir, Foreground: true, Debug: true}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	if got := Logger.GetLevel().String(); got != "debug" {
		t.Errorf("expected debug level, got %s", got)
	}
}

func TestLogFunctionsWithoutInit(t *testing.T) {
	Logger = nil

	// These should not panic when Logger is nil
	Debug("Test debug message")
	Info("Test info message")
	Warn("Test warning message")
	Error("Test error message")
}
