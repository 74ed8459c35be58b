package alerts

import (
	"context"
	"fmt"

	"github.com/julianstephens/medalert/internal/cli"
)

// AlertTestCmd rings a short demo alarm through the running daemon.
type AlertTestCmd struct{}

func (c *AlertTestCmd) Run(ctx *cli.Context) error {
	client, err := ctx.Daemon()
	if err != nil {
		return err
	}
	outcome, err := client.TestAlarm(context.Background())
	if err != nil {
		return fmt.Errorf("failed to start test alarm: %w", err)
	}

	fmt.Printf("Test alarm %s is %s\n", outcome.AlertID, outcome.State)
	if outcome.Notice != "" {
		fmt.Println(outcome.Notice)
	}
	fmt.Println(cli.MutedStyle.Render("Stop it with: medalert action stop " + outcome.AlertID))
	return nil
}
