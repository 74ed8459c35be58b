package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/medalert/internal/audio"
	"github.com/julianstephens/medalert/internal/backup"
	"github.com/julianstephens/medalert/internal/cli"
	"github.com/julianstephens/medalert/internal/control"
	"github.com/julianstephens/medalert/internal/keyring"
	"github.com/julianstephens/medalert/internal/storage/sqlite"
	"github.com/julianstephens/medalert/internal/validation"
)

type schemaVersioner interface {
	SchemaVersion() (current, latest int, err error)
}

type DoctorCmd struct{}

type doctorReport struct {
	hasError bool
}

func (r *doctorReport) check(name string, err error) bool {
	if err != nil {
		fmt.Printf("❌ %s: FAIL\n", name)
		fmt.Printf("   Error: %v\n", err)
		r.hasError = true
		return false
	}
	fmt.Printf("✓ %s: OK\n", name)
	return true
}

func (r *doctorReport) warn(name string, err error) {
	if err != nil {
		fmt.Printf("⚠ %s: WARNING\n", name)
		fmt.Printf("   %v\n", err)
		return
	}
	fmt.Printf("✓ %s: OK\n", name)
}

func (r *doctorReport) skip(name, reason string) {
	fmt.Printf("⊘ %s: SKIPPED (%s)\n", name, reason)
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	r := &doctorReport{}

	dbReachable := r.check("Database reachable", checkDBReachable(ctx))
	if dbReachable {
		r.check("Schema version", checkSchemaVersion(ctx))
	} else {
		r.skip("Schema version", "database not reachable")
	}

	if dbReachable {
		r.warn("Medications valid", checkMedications(ctx))
	}

	settingsOK := false
	if dbReachable {
		settingsOK = r.check("Settings valid", checkSettings(ctx))
	} else {
		r.skip("Settings valid", "database not reachable")
	}

	if settingsOK {
		r.check("Alarm sound", audio.CheckSound(ctx.Settings().SoundURI))
		r.check("Clock/timezone", checkClockTimezone(ctx))
	} else {
		r.skip("Alarm sound", "settings unavailable")
		r.skip("Clock/timezone", "settings unavailable")
	}

	if _, ok := ctx.Store.(*sqlite.Store); ok {
		r.warn("Backups present", checkBackupsPresent(ctx))
	}
	r.warn("OS keyring", checkKeyring())
	r.warn("Daemon running", checkDaemon(ctx))

	fmt.Println()
	if r.hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	fmt.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	if _, err := ctx.Store.GetSettings(); err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	store, ok := ctx.Store.(schemaVersioner)
	if !ok {
		return nil
	}
	current, latest, err := store.SchemaVersion()
	if err != nil {
		return err
	}
	if current < latest {
		return fmt.Errorf("schema version %d is behind %d, run 'medalert migrate'", current, latest)
	}
	if current > latest {
		return fmt.Errorf("schema version %d is newer than this binary supports (%d)", current, latest)
	}
	return nil
}

func checkMedications(ctx *cli.Context) error {
	meds, err := ctx.Store.GetAllMedications()
	if err != nil {
		return err
	}
	result := validation.New().ValidateMedications(meds)
	return result.Err()
}

func checkSettings(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return err
	}
	return settings.Validate()
}

func checkClockTimezone(ctx *cli.Context) error {
	loc, err := ctx.Settings().Location()
	if err != nil {
		return err
	}
	now := ctx.Now().In(loc)
	if now.Year() < 2020 {
		return fmt.Errorf("system clock looks wrong: %s", now.Format(time.RFC3339))
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	snapshots, err := backup.NewManager(ctx.Store.GetConfigPath()).List()
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		return errors.New("no snapshots yet; one is taken before every migrate")
	}
	return nil
}

func checkKeyring() error {
	if !keyring.IsAvailable() {
		return errors.New("OS keyring is not available; postgres credentials must come from the environment")
	}
	return nil
}

func checkDaemon(ctx *cli.Context) error {
	client, err := ctx.Daemon()
	if err != nil {
		if errors.Is(err, control.ErrDaemonNotRunning) {
			return errors.New("daemon is not running; alarms will not sound until 'medalert serve' starts")
		}
		return err
	}
	reqCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Health(reqCtx); err != nil {
		return fmt.Errorf("daemon did not answer: %w", err)
	}
	return nil
}
