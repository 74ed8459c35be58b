// Package autostart registers the daemon to start at login.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/emersion/go-autostart"

	"github.com/julianstephens/medalert/internal/constants"
	"github.com/julianstephens/medalert/internal/logger"
)

var executableFunc = os.Executable

// App is the login item for `medalert serve`.
type App interface {
	IsEnabled() bool
	Enable() error
	Disable() error
}

// New builds the login item. configPath is passed through so the daemon
// opens the same store as the CLI that registered it.
func New(configPath string) (*autostart.App, error) {
	execPath, err := executableFunc()
	if err != nil {
		return nil, err
	}

	// Resolve symlinks if any
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	args := []string{execPath, "serve"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}

	return &autostart.App{
		Name:        constants.AppName,
		DisplayName: "Medication reminders",
		Exec:        args,
	}, nil
}

// Set enables or disables app. It is a no-op when already in that state.
func Set(app App, enable bool) error {
	if enable == app.IsEnabled() {
		return nil
	}

	if enable {
		if err := app.Enable(); err != nil {
			logger.Error("Failed to enable autostart", "error", err)
			return fmt.Errorf("failed to enable autostart: %w", err)
		}
		logger.Info("Autostart enabled")
		return nil
	}

	if err := app.Disable(); err != nil {
		logger.Error("Failed to disable autostart", "error", err)
		return fmt.Errorf("failed to disable autostart: %w", err)
	}
	logger.Info("Autostart disabled")
	return nil
}
