package system

import (
	"fmt"

	"github.com/julianstephens/medalert/internal/autostart"
	"github.com/julianstephens/medalert/internal/cli"
)

type AutostartCmd struct {
	Enable  bool `help:"Start the daemon at login." xor:"mode"`
	Disable bool `help:"Stop starting the daemon at login." xor:"mode"`
}

func (c *AutostartCmd) Run(ctx *cli.Context) error {
	app, err := autostart.New(ctx.Store.GetConfigPath())
	if err != nil {
		return fmt.Errorf("failed to resolve executable: %w", err)
	}
	return c.apply(app)
}

func (c *AutostartCmd) apply(app autostart.App) error {
	switch {
	case c.Enable:
		if err := autostart.Set(app, true); err != nil {
			return err
		}
		fmt.Println("✓ medalert serve will start at login")
	case c.Disable:
		if err := autostart.Set(app, false); err != nil {
			return err
		}
		fmt.Println("✓ Autostart disabled")
	default:
		if app.IsEnabled() {
			fmt.Println("Autostart: enabled")
		} else {
			fmt.Println("Autostart: disabled")
		}
	}
	return nil
}
