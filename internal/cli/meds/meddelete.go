package meds

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/medalert/internal/cli"
	"github.com/julianstephens/medalert/internal/control"
	"github.com/julianstephens/medalert/internal/logger"
	"github.com/julianstephens/medalert/internal/registry"
)

type MedDeleteCmd struct {
	ID  string `arg:"" help:"Medication ID to delete."`
	Yes bool   `short:"y" help:"Delete without asking for confirmation."`
}

func (c *MedDeleteCmd) Run(ctx *cli.Context) error {
	med, err := ctx.Store.GetMedication(c.ID)
	if err != nil {
		return fmt.Errorf("failed to find medication with ID %s: %w", c.ID, err)
	}

	ok, err := cli.Confirm(c.Yes,
		fmt.Sprintf("Delete %s?", med.Name),
		"Every scheduled alert for this medication is cancelled.")
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Delete cancelled.")
		return nil
	}

	// the daemon first, so a snooze re-arm cannot write a row after the cancel
	forgetInDaemon(ctx, med.ID)

	n, err := registry.CancelMedication(context.Background(), ctx.Registry(), med.ID)
	if err != nil {
		return fmt.Errorf("failed to cancel alerts: %w", err)
	}
	if err := ctx.Store.DeleteMedication(med.ID); err != nil {
		return fmt.Errorf("failed to delete medication: %w", err)
	}

	fmt.Printf("Deleted medication: %s (ID: %s), cancelled %d alert(s)\n", med.Name, med.ID, n)
	return nil
}

// forgetInDaemon drops snoozes the running daemon holds in memory for
// medicationID. Without a daemon there is nothing pending.
func forgetInDaemon(ctx *cli.Context, medicationID string) {
	client, err := ctx.Daemon()
	if err != nil {
		if !errors.Is(err, control.ErrDaemonNotRunning) {
			logger.Warn("Could not reach daemon", "error", err)
		}
		return
	}
	n, err := client.ForgetMedication(context.Background(), medicationID)
	if err != nil {
		logger.Warn("Failed to silence medication alerts in daemon", "medication", medicationID, "error", err)
		fmt.Println(cli.WarningStyle.Render("Warning: the daemon could not drop pending snoozes; restart it with 'medalert serve'."))
		return
	}
	if n > 0 {
		fmt.Printf("Silenced %d active alert(s) in the daemon\n", n)
	}
}
