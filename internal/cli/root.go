package cli

import (
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/julianstephens/medalert/internal/backup"
	"github.com/julianstephens/medalert/internal/control"
	"github.com/julianstephens/medalert/internal/logger"
	"github.com/julianstephens/medalert/internal/models"
	"github.com/julianstephens/medalert/internal/storage"
	"github.com/julianstephens/medalert/internal/tray"
)

type Context struct {
	Store storage.Provider
	// Alerts overrides where scheduler rows live. Nil means Store.
	Alerts    storage.AlertStore
	ConfigDir string
	Clock     clockwork.Clock
	// Dial connects to the running daemon. Nil means lockfile discovery.
	Dial func() (*control.Client, error)
}

// AlertStore returns the store holding scheduler rows.
func (c *Context) AlertStore() storage.AlertStore {
	if c.Alerts != nil {
		return c.Alerts
	}
	return c.Store
}

// Registry returns an unstarted tray over the alert store. Rows written
// through it are armed by the daemon on its next resync.
func (c *Context) Registry() *tray.Tray {
	return tray.New(c.AlertStore(), tray.WithClock(c.GetClock()))
}

// Daemon returns a control client for the running daemon.
func (c *Context) Daemon() (*control.Client, error) {
	if c.Dial != nil {
		return c.Dial()
	}
	return control.Discover(c.ConfigDir)
}

// Now reads the context clock.
func (c *Context) Now() time.Time {
	return c.GetClock().Now()
}

// GetClock returns the context clock, the real one unless a test set it.
func (c *Context) GetClock() clockwork.Clock {
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return c.Clock
}

// Settings loads the stored policy values, falling back to defaults.
func (c *Context) Settings() models.Settings {
	settings, err := c.Store.GetSettings()
	if err != nil {
		logger.Warn("Failed to load settings, using defaults", "error", err)
		return models.DefaultSettings()
	}
	return settings
}

// PerformAutomaticBackup snapshots a file-backed store and silently handles errors
func (c *Context) PerformAutomaticBackup(reason string) {
	path := c.Store.GetConfigPath()
	if _, err := os.Stat(path); err != nil {
		return
	}
	mgr := backup.NewManager(path)
	if _, err := mgr.Snapshot(reason); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "error", err)
	}
}
