package system

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/julianstephens/medalert/internal/backup"
	"github.com/julianstephens/medalert/internal/cli"
	"github.com/julianstephens/medalert/internal/cli/clitest"
	"github.com/julianstephens/medalert/internal/models"
	"github.com/julianstephens/medalert/internal/schedule"
	"github.com/julianstephens/medalert/internal/storage/sqlite"
)

func testMedication() models.Medication {
	return models.Medication{
		ID:           "med-1",
		Name:         "Aspirin",
		Dose:         "1 tablet",
		Times:        []string{"08:00 AM", "8:00 PM"},
		DurationDays: 2,
		StartDate:    clitest.Now,
		CreatedAt:    clitest.Now,
	}
}

func TestInitCmd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "medalert.db")
	store := sqlite.NewStore(dbPath)
	defer store.Close()

	if err := (&InitCmd{}).Run(&cli.Context{Store: store}); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected database file: %v", err)
	}

	settings, err := store.GetSettings()
	if err != nil {
		t.Fatal(err)
	}
	if settings != models.DefaultSettings() {
		t.Errorf("expected default settings, got %+v", settings)
	}
}

func TestInitCmd_ForceSnapshotsAndResets(t *testing.T) {
	ctx, _ := clitest.NewContext(t)
	if err := ctx.Store.AddMedication(testMedication()); err != nil {
		t.Fatal(err)
	}

	if err := (&InitCmd{Force: true}).Run(ctx); err != nil {
		t.Fatalf("init --force failed: %v", err)
	}

	meds, err := ctx.Store.GetAllMedications()
	if err != nil {
		t.Fatal(err)
	}
	if len(meds) != 0 {
		t.Errorf("expected an empty store after reset, got %d medications", len(meds))
	}

	snapshots, err := backup.NewManager(ctx.Store.GetConfigPath()).List()
	if err != nil {
		t.Fatal(err)
	}
	if len(snapshots) != 1 || snapshots[0].Reason != "init-force" {
		t.Errorf("expected one init-force snapshot, got %+v", snapshots)
	}
}

func TestInitCmd_ForceRejectsSameSource(t *testing.T) {
	ctx, _ := clitest.NewContext(t)
	cmd := &InitCmd{Force: true, Source: ctx.Store.GetConfigPath()}
	if err := cmd.Run(ctx); err == nil {
		t.Error("expected error when source and destination match")
	}
}

func TestInitCmd_CopiesSource(t *testing.T) {
	srcPath := filepath.Join(t.TempDir(), "source.db")
	src := sqlite.NewStore(srcPath)
	if err := src.Init(); err != nil {
		t.Fatal(err)
	}
	med := testMedication()
	if err := src.AddMedication(med); err != nil {
		t.Fatal(err)
	}
	seq, err := schedule.Expand(med, clitest.Now, nil)
	if err != nil {
		t.Fatal(err)
	}
	for entry := range seq {
		if err := src.UpsertAlert(context.Background(), entry); err != nil {
			t.Fatal(err)
		}
	}
	settings := models.DefaultSettings()
	settings.MaxSnoozes = 2
	if err := src.SaveSettings(settings); err != nil {
		t.Fatal(err)
	}
	src.Close()

	dst := sqlite.NewStore(filepath.Join(t.TempDir(), "medalert.db"))
	defer dst.Close()
	if err := (&InitCmd{Source: srcPath}).Run(&cli.Context{Store: dst}); err != nil {
		t.Fatalf("init --source failed: %v", err)
	}

	if _, err := dst.GetMedication(med.ID); err != nil {
		t.Errorf("expected medication to be copied: %v", err)
	}
	entries, _ := dst.ListAlerts(context.Background())
	if len(entries) != 4 {
		t.Errorf("expected 4 alerts copied, got %d", len(entries))
	}
	got, _ := dst.GetSettings()
	if got.MaxSnoozes != 2 {
		t.Errorf("expected settings copied, got max snoozes %d", got.MaxSnoozes)
	}
}

func TestMigrateCmd(t *testing.T) {
	ctx, _ := clitest.NewContext(t)
	if err := (&MigrateCmd{}).Run(ctx); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	snapshots, _ := backup.NewManager(ctx.Store.GetConfigPath()).List()
	if len(snapshots) != 1 || snapshots[0].Reason != "migrate" {
		t.Errorf("expected a migrate snapshot, got %+v", snapshots)
	}
}
