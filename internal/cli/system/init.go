package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/medalert/internal/cli"
	"github.com/julianstephens/medalert/internal/storage"
	"github.com/julianstephens/medalert/internal/storage/postgres"
	"github.com/julianstephens/medalert/internal/storage/sqlite"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting existing database before initialization."`
	Source string `help:"Source database path or connection string to copy data from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		dbPath := ctx.Store.GetConfigPath()
		// Don't delete if it's the source (user error protection)
		if c.Source != "" {
			absDbPath, err := filepath.Abs(dbPath)
			if err == nil {
				dbPath = absDbPath
			}
			absSource, err := filepath.Abs(c.Source)
			if err == nil && absSource == dbPath {
				return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
			}
		}
		if _, err := os.Stat(dbPath); err == nil {
			ctx.PerformAutomaticBackup("init-force")
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := removeDatabase(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			fmt.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized medalert storage at: %s\n", ctx.Store.GetConfigPath())

	if c.Source != "" {
		fmt.Printf("Copying data from: %s\n", c.Source)
		if err := c.copyData(ctx, c.Source); err != nil {
			return fmt.Errorf("copy failed: %w", err)
		}
		fmt.Println("Copy completed successfully!")
	}

	return nil
}

// removeDatabase deletes a sqlite file together with its WAL sidecars.
func removeDatabase(path string) error {
	if err := os.Remove(path); err != nil {
		return err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func openSource(source string) (storage.Provider, error) {
	if postgres.IsConnString(source) {
		if valid, err := postgres.ValidateConnString(source); !valid {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, fmt.Errorf("PostgreSQL source connection string contains embedded credentials. Use environment variables or .pgpass instead")
			}
			return nil, err
		}
		return postgres.New(source), nil
	}
	return sqlite.NewStore(source), nil
}

func (c *InitCmd) copyData(ctx *cli.Context, source string) error {
	sourceStore, err := openSource(source)
	if err != nil {
		return err
	}
	if err := sourceStore.Load(); err != nil {
		return fmt.Errorf("failed to load source database: %w", err)
	}
	defer sourceStore.Close()

	fmt.Println("  Copying settings...")
	settings, err := sourceStore.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings from source: %w", err)
	}
	if err := ctx.Store.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings to destination: %w", err)
	}

	fmt.Println("  Copying medications...")
	meds, err := sourceStore.GetAllMedications()
	if err != nil {
		return fmt.Errorf("failed to get medications from source: %w", err)
	}
	for _, med := range meds {
		if err := ctx.Store.AddMedication(med); err != nil {
			return fmt.Errorf("failed to add medication %s: %w", med.ID, err)
		}
	}
	fmt.Printf("    Copied %d medications\n", len(meds))

	fmt.Println("  Copying scheduled alerts...")
	bg := context.Background()
	entries, err := sourceStore.ListAlerts(bg)
	if err != nil {
		return fmt.Errorf("failed to get alerts from source: %w", err)
	}
	for _, entry := range entries {
		if err := ctx.AlertStore().UpsertAlert(bg, entry); err != nil {
			return fmt.Errorf("failed to add alert %s: %w", entry.ID, err)
		}
	}
	fmt.Printf("    Copied %d alerts\n", len(entries))

	return nil
}
