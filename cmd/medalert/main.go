package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/julianstephens/medalert/internal/cli"
	"github.com/julianstephens/medalert/internal/cli/actions"
	"github.com/julianstephens/medalert/internal/cli/alerts"
	"github.com/julianstephens/medalert/internal/cli/backups"
	"github.com/julianstephens/medalert/internal/cli/meds"
	"github.com/julianstephens/medalert/internal/cli/settings"
	"github.com/julianstephens/medalert/internal/cli/system"
	"github.com/julianstephens/medalert/internal/constants"
	apperrors "github.com/julianstephens/medalert/internal/errors"
	"github.com/julianstephens/medalert/internal/keyring"
	"github.com/julianstephens/medalert/internal/logger"
	"github.com/julianstephens/medalert/internal/storage"
	"github.com/julianstephens/medalert/internal/storage/postgres"
	"github.com/julianstephens/medalert/internal/storage/redis"
	"github.com/julianstephens/medalert/internal/storage/sqlite"
)

// keyringConfig selects the postgres connection string stored in the keyring
// or in MEDALERT_DB_CONNECTION.
const keyringConfig = "postgresql"

var CLI struct {
	Version    kong.VersionFlag
	Config     string `help:"SQLite file path, PostgreSQL connection string, or 'postgresql' to use the keyring. Credentials must NOT be embedded in the connection string." env:"MEDALERT_CONFIG" default:"${config}"`
	AlertStore string `help:"redis:// URL to keep scheduled alerts in Redis instead of the main store." env:"MEDALERT_ALERT_STORE"`
	Debug      bool   `help:"Enable debug logging to stderr." env:"MEDALERT_DEBUG"`

	Init      system.InitCmd      `cmd:"" help:"Initialize medalert storage."`
	Migrate   system.MigrateCmd   `cmd:"" help:"Run database migrations."`
	Doctor    system.DoctorCmd    `cmd:"" help:"Run health checks and diagnostics."`
	Serve     system.ServeCmd     `cmd:"" help:"Run the reminder daemon."`
	Autostart system.AutostartCmd `cmd:"" help:"Start the daemon at login."`
	Keyring   struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store a PostgreSQL connection string."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
	} `cmd:"" help:"Manage database credentials in the OS keyring."`
	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
	Med struct {
		Add    meds.MedAddCmd    `cmd:"" help:"Register a medication and schedule its alerts."`
		List   meds.MedListCmd   `cmd:"" help:"List medications."`
		Delete meds.MedDeleteCmd `cmd:"" help:"Delete a medication and cancel its alerts."`
	} `cmd:"" help:"Manage medications."`
	Alerts struct {
		List   alerts.AlertListCmd   `cmd:"" help:"List scheduled alerts." default:"1"`
		Export alerts.AlertExportCmd `cmd:"" help:"Export scheduled alerts as an iCalendar file."`
		Test   alerts.AlertTestCmd   `cmd:"" help:"Ring a short test alarm."`
	} `cmd:"" help:"Inspect scheduled alerts."`
	Action struct {
		Stop    actions.StopCmd    `cmd:"" help:"Stop a ringing alarm and take the dose."`
		Snooze  actions.SnoozeCmd  `cmd:"" help:"Snooze a ringing alarm."`
		Dismiss actions.DismissCmd `cmd:"" help:"Dismiss a snoozed reminder."`
		Open    actions.OpenCmd    `cmd:"" help:"Open an alert as if its notification was tapped."`
		Clear   actions.ClearCmd   `cmd:"" help:"Swipe a presented alert away."`
		StopAll actions.StopAllCmd `cmd:"" name:"stop-all" help:"Silence every ringing alarm."`
	} `cmd:"" help:"Respond to presented alerts."`
	Settings settings.SettingsCmd `cmd:"" help:"Manage alarm settings."`
}

// commands that open the store themselves or never touch it
var selfLoading = map[string]bool{
	"init":      true,
	"migrate":   true,
	"doctor":    true,
	"autostart": true,
	"keyring":   true,
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Medication reminders with alarms that ring until you respond"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": constants.Version,
			"config":  constants.DefaultConfigPath,
		},
	)

	store, err := openStore(CLI.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, apperrors.Format(err))
		os.Exit(1)
	}

	configDir := configDirFor(store)
	if err := logger.Init(logger.Config{
		Debug:      CLI.Debug,
		ConfigDir:  configDir,
		Foreground: ctx.Command() == "serve",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	appCtx := &cli.Context{
		Store:     store,
		ConfigDir: configDir,
		Clock:     clockwork.NewRealClock(),
	}

	if CLI.AlertStore != "" {
		alertStore, err := redis.New(CLI.AlertStore)
		if err != nil {
			apperrors.Fatal(err)
		}
		defer alertStore.Close()
		appCtx.Alerts = alertStore
	}

	if !selfLoading[strings.Fields(ctx.Command())[0]] {
		if err := store.Load(); err != nil {
			apperrors.Fatal(err)
		}
	}

	err = ctx.Run(appCtx)
	if cerr := store.Close(); cerr != nil {
		logger.Warn("Failed to close store", "error", cerr)
	}
	apperrors.Fatal(err)
}

func openStore(config string) (storage.Provider, error) {
	if config == keyringConfig {
		connStr, err := keyring.ResolveConnectionString()
		if err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				return nil, fmt.Errorf("no connection string found. Use 'medalert keyring set' or set %s", constants.EnvDBConnection)
			}
			return nil, err
		}
		// credentials from the keyring or environment may be embedded
		return postgres.New(connStr), nil
	}

	if postgres.IsConnString(config) {
		if valid, err := postgres.ValidateConnString(config); !valid {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, fmt.Errorf("PostgreSQL connection strings with embedded credentials are NOT allowed on the command line. Use 'medalert keyring set' with --config=%s, %s, or a .pgpass file", keyringConfig, constants.EnvDBConnection)
			}
			return nil, err
		}
		return postgres.New(config), nil
	}

	return sqlite.NewStore(expandHome(config)), nil
}

// configDirFor picks where logs and the daemon lockfile live.
func configDirFor(store storage.Provider) string {
	if s, ok := store.(*sqlite.Store); ok {
		return filepath.Dir(s.GetConfigPath())
	}
	return filepath.Dir(expandHome(constants.DefaultConfigPath))
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
