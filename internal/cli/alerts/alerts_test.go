package alerts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/medalert/internal/cli"
	"github.com/julianstephens/medalert/internal/cli/clitest"
	"github.com/julianstephens/medalert/internal/constants"
	"github.com/julianstephens/medalert/internal/models"
)

func seedAlert(t *testing.T, ctx *cli.Context, id string, at time.Time) models.AlertEntry {
	t.Helper()
	entry := models.AlertEntry{
		ID:     id,
		FireAt: at,
		Payload: models.AlertPayload{
			MedicationID:    "med-1",
			MedicationName:  "Aspirin",
			Dose:            "1 tablet",
			ScheduledTime:   at.Format(constants.ClockFormat),
			SnoozeLineageID: id,
			ShouldPlayAlarm: true,
		},
		Sound:    true,
		Priority: constants.PriorityMax,
		Category: constants.CategoryReminder,
	}
	if err := ctx.Registry().Schedule(context.Background(), entry); err != nil {
		t.Fatalf("failed to schedule: %v", err)
	}
	return entry
}

func TestAlertListCmd(t *testing.T) {
	ctx, _ := clitest.NewContext(t)

	if err := (&AlertListCmd{}).Run(ctx); err != nil {
		t.Errorf("alert list failed on empty store: %v", err)
	}

	seedAlert(t, ctx, "med-1-d0-0800", clitest.Now.Add(time.Hour))
	if err := (&AlertListCmd{}).Run(ctx); err != nil {
		t.Errorf("alert list failed: %v", err)
	}
}

func TestAlertListCmd_Presented(t *testing.T) {
	ctx, _ := clitest.NewContext(t)

	if err := (&AlertListCmd{Presented: true}).Run(ctx); err == nil {
		t.Error("expected error without a daemon")
	}

	entry := seedAlert(t, ctx, "med-1-d0-0800", clitest.Now.Add(time.Hour))
	clitest.ServeDaemon(t, ctx, &clitest.Dispatcher{}, clitest.NewTray(entry))
	if err := (&AlertListCmd{Presented: true}).Run(ctx); err != nil {
		t.Errorf("alert list --presented failed: %v", err)
	}
}

func TestAlertExportCmd(t *testing.T) {
	ctx, _ := clitest.NewContext(t)
	seedAlert(t, ctx, "med-1-d0-0800", clitest.Now.Add(time.Hour))
	seedAlert(t, ctx, "med-1-d0-2000", clitest.Now.Add(13*time.Hour))

	out := filepath.Join(t.TempDir(), "alerts.ics")
	if err := (&AlertExportCmd{Output: out}).Run(ctx); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "BEGIN:VEVENT"); n != 2 {
		t.Errorf("expected 2 events, got %d", n)
	}
	if !strings.Contains(string(data), "med-1-d0-0800@medalert") {
		t.Error("expected event uid derived from the alert id")
	}
}

func TestAlertExportCmd_Empty(t *testing.T) {
	ctx, _ := clitest.NewContext(t)
	out := filepath.Join(t.TempDir(), "alerts.ics")
	if err := (&AlertExportCmd{Output: out}).Run(ctx); err == nil {
		t.Error("expected error exporting no alerts")
	}
}

func TestAlertTestCmd(t *testing.T) {
	ctx, _ := clitest.NewContext(t)
	if err := (&AlertTestCmd{}).Run(ctx); err == nil {
		t.Error("expected error without a daemon")
	}

	clitest.ServeDaemon(t, ctx, &clitest.Dispatcher{}, clitest.NewTray())
	if err := (&AlertTestCmd{}).Run(ctx); err != nil {
		t.Errorf("alert test failed: %v", err)
	}
}
