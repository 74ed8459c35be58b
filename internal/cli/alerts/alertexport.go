package alerts

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/medalert/internal/cli"
	"github.com/julianstephens/medalert/internal/ical"
)

type AlertExportCmd struct {
	Output string `short:"o" help:"File to write the calendar to. Defaults to stdout." type:"path"`
}

func (c *AlertExportCmd) Run(ctx *cli.Context) error {
	entries, err := ctx.Registry().ListScheduled(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get alerts: %w", err)
	}
	if len(entries) == 0 {
		return ical.ErrNothingToExport
	}

	var w io.Writer = os.Stdout
	if c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", c.Output, err)
		}
		defer f.Close()
		w = f
	}

	if err := ical.Export(w, entries, ctx.Now()); err != nil {
		return err
	}
	if c.Output != "" {
		fmt.Printf("Exported %d alert(s) to %s\n", len(entries), c.Output)
	}
	return nil
}
