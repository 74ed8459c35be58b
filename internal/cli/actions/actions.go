// Package actions sends user responses for presented alerts to the daemon.
package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/medalert/internal/cli"
	"github.com/julianstephens/medalert/internal/constants"
	"github.com/julianstephens/medalert/internal/dispatcher"
)

type StopCmd struct {
	ID string `arg:"" help:"Alert ID."`
}

func (c *StopCmd) Run(ctx *cli.Context) error {
	return act(ctx, constants.ActionStop, c.ID)
}

type SnoozeCmd struct {
	ID string `arg:"" help:"Alert ID."`
}

func (c *SnoozeCmd) Run(ctx *cli.Context) error {
	return act(ctx, constants.ActionSnooze, c.ID)
}

type DismissCmd struct {
	ID string `arg:"" help:"Alert ID."`
}

func (c *DismissCmd) Run(ctx *cli.Context) error {
	return act(ctx, constants.ActionDismiss, c.ID)
}

// OpenCmd is the same as tapping the notification body.
type OpenCmd struct {
	ID string `arg:"" help:"Alert ID."`
}

func (c *OpenCmd) Run(ctx *cli.Context) error {
	return act(ctx, constants.ActionDefault, c.ID)
}

// ClearCmd swipes a presented alert away without acting on it.
type ClearCmd struct {
	ID string `arg:"" help:"Alert ID."`
}

func (c *ClearCmd) Run(ctx *cli.Context) error {
	client, err := ctx.Daemon()
	if err != nil {
		return err
	}
	if err := client.Clear(context.Background(), c.ID); err != nil {
		return err
	}
	fmt.Printf("Cleared alert %s\n", c.ID)
	return nil
}

// StopAllCmd silences every ringing alarm.
type StopAllCmd struct{}

func (c *StopAllCmd) Run(ctx *cli.Context) error {
	client, err := ctx.Daemon()
	if err != nil {
		return err
	}
	n, err := client.StopAll(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Stopped %d alarm(s)\n", n)
	return nil
}

func act(ctx *cli.Context, action, id string) error {
	client, err := ctx.Daemon()
	if err != nil {
		return err
	}

	outcome, err := client.Act(context.Background(), action, id)
	if errors.Is(err, dispatcher.ErrMaxSnoozes) {
		fmt.Println(cli.WarningStyle.Render(outcome.Notice))
		return err
	}
	if err != nil {
		return err
	}

	fmt.Printf("Alert %s: %s\n", outcome.AlertID, outcome.State)
	if outcome.Notice != "" {
		fmt.Println(outcome.Notice)
	}
	return nil
}
