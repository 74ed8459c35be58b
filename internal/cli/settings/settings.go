package settings

import (
	"fmt"
	"time"

	"github.com/julianstephens/medalert/internal/cli"
)

type SettingsCmd struct {
	List bool `help:"List current settings."`

	SnoozeDelay          *time.Duration `help:"Wait between a snooze and the re-armed alarm."`
	MaxSnoozes           *int           `help:"Snoozes allowed per dose."`
	AlarmCeiling         *time.Duration `help:"Auto-stop a ringing alarm after this long."`
	TestAlarmCeiling     *time.Duration `help:"Auto-stop the test alarm after this long."`
	WatchdogInterval     *time.Duration `help:"How often a presented alarm is checked for dismissal."`
	WatchdogTimeout      *time.Duration `help:"How long a presented alarm is checked for dismissal."`
	Sound                *string        `help:"Alarm sound: a WAV file path or builtin:beep."`
	ResyncInterval       *time.Duration `help:"How often the daemon re-reads scheduled alerts and settings."`
	NotificationsEnabled *bool          `help:"Enable or disable desktop notifications."`
	Timezone             *string        `help:"IANA timezone used to schedule doses, or Local."`
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if c.List {
		fmt.Println("Alarm Settings:")
		fmt.Printf("  Snooze Delay:          %s\n", settings.SnoozeDelay)
		fmt.Printf("  Max Snoozes:           %d\n", settings.MaxSnoozes)
		fmt.Printf("  Alarm Ceiling:         %s\n", settings.AlarmCeiling)
		fmt.Printf("  Test Alarm Ceiling:    %s\n", settings.TestAlarmCeiling)
		fmt.Printf("  Sound:                 %s\n", settings.SoundURI)
		fmt.Println("\nDaemon Settings:")
		fmt.Printf("  Watchdog Interval:     %s\n", settings.WatchdogInterval)
		fmt.Printf("  Watchdog Timeout:      %s\n", settings.WatchdogTimeout)
		fmt.Printf("  Resync Interval:       %s\n", settings.ResyncInterval)
		fmt.Printf("  Notifications Enabled: %v\n", settings.NotificationsEnabled)
		fmt.Printf("  Timezone:              %s\n", settings.Timezone)
		return nil
	}

	updated := false
	set := func(apply func()) {
		apply()
		updated = true
	}
	if c.SnoozeDelay != nil {
		set(func() { settings.SnoozeDelay = *c.SnoozeDelay })
	}
	if c.MaxSnoozes != nil {
		set(func() { settings.MaxSnoozes = *c.MaxSnoozes })
	}
	if c.AlarmCeiling != nil {
		set(func() { settings.AlarmCeiling = *c.AlarmCeiling })
	}
	if c.TestAlarmCeiling != nil {
		set(func() { settings.TestAlarmCeiling = *c.TestAlarmCeiling })
	}
	if c.WatchdogInterval != nil {
		set(func() { settings.WatchdogInterval = *c.WatchdogInterval })
	}
	if c.WatchdogTimeout != nil {
		set(func() { settings.WatchdogTimeout = *c.WatchdogTimeout })
	}
	if c.Sound != nil {
		set(func() { settings.SoundURI = *c.Sound })
	}
	if c.ResyncInterval != nil {
		set(func() { settings.ResyncInterval = *c.ResyncInterval })
	}
	if c.NotificationsEnabled != nil {
		set(func() { settings.NotificationsEnabled = *c.NotificationsEnabled })
	}
	if c.Timezone != nil {
		set(func() { settings.Timezone = *c.Timezone })
	}

	if !updated {
		fmt.Println("No settings changed. Use --list to see current settings.")
		return nil
	}

	if err := ctx.Store.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	fmt.Println("Settings updated successfully.")
	fmt.Println("A running daemon picks up the change on its next resync.")
	return nil
}
