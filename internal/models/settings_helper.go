package models

import (
	"fmt"
	"time"

	"github.com/julianstephens/medalert/internal/constants"
)

// DefaultSettings returns the stock policy values.
func DefaultSettings() Settings {
	return Settings{
		SnoozeDelay:          constants.DefaultSnoozeDelay,
		MaxSnoozes:           constants.DefaultMaxSnoozes,
		AlarmCeiling:         constants.DefaultAlarmCeiling,
		TestAlarmCeiling:     constants.DefaultTestAlarmCeiling,
		WatchdogInterval:     constants.DefaultWatchdogInterval,
		WatchdogTimeout:      constants.DefaultWatchdogTimeout,
		SoundURI:             constants.DefaultSoundURI,
		ResyncInterval:       constants.DefaultResyncInterval,
		NotificationsEnabled: constants.DefaultNotificationsEnabled,
		Timezone:             constants.DefaultTimezone,
	}
}

// Validate checks that the policy values are usable.
func (s Settings) Validate() error {
	if s.SnoozeDelay <= 0 {
		return fmt.Errorf("snooze delay must be positive")
	}
	if s.MaxSnoozes < 0 {
		return fmt.Errorf("max snoozes cannot be negative")
	}
	if s.AlarmCeiling <= 0 || s.TestAlarmCeiling <= 0 {
		return fmt.Errorf("alarm ceilings must be positive")
	}
	if s.WatchdogInterval <= 0 {
		return fmt.Errorf("watchdog interval must be positive")
	}
	if s.WatchdogTimeout < s.WatchdogInterval {
		return fmt.Errorf("watchdog timeout (%s) must be at least the poll interval (%s)", s.WatchdogTimeout, s.WatchdogInterval)
	}
	if s.ResyncInterval < time.Second {
		return fmt.Errorf("resync interval must be at least 1s")
	}
	if s.SoundURI == "" {
		return fmt.Errorf("sound uri cannot be empty")
	}
	if _, err := s.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone.
func (s Settings) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}
