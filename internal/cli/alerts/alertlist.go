package alerts

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/medalert/internal/cli"
)

type AlertListCmd struct {
	Presented bool `short:"p" help:"Also list alerts currently presented by the daemon."`
}

func (c *AlertListCmd) Run(ctx *cli.Context) error {
	entries, err := ctx.Registry().ListScheduled(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get alerts: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No alerts scheduled.")
	} else {
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{
				e.ID,
				e.FireAt.In(ctx.Now().Location()).Format("2006-01-02 15:04"),
				cli.Truncate(e.Payload.MedicationName, 24),
				string(e.Category),
				soundLabel(e.Sound),
			})
		}
		cli.PrintTable([]string{"ID", "Fires", "Medication", "Category", "Sound"}, rows)
	}

	if c.Presented {
		return c.listPresented(ctx)
	}
	return nil
}

func (c *AlertListCmd) listPresented(ctx *cli.Context) error {
	client, err := ctx.Daemon()
	if err != nil {
		return err
	}
	presented, err := client.Presented(context.Background())
	if err != nil {
		return err
	}

	fmt.Println()
	if len(presented) == 0 {
		fmt.Println("No alerts presented.")
		return nil
	}
	rows := make([][]string, 0, len(presented))
	for _, p := range presented {
		rows = append(rows, []string{p.ID, cli.Truncate(p.Title, 30), string(p.State), strings.Join(p.Actions, ",")})
	}
	cli.PrintTable([]string{"ID", "Title", "State", "Actions"}, rows)
	return nil
}

func soundLabel(sound bool) string {
	if sound {
		return "alarm"
	}
	return "silent"
}
