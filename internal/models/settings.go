package models

import "time"

// Settings holds the alarm policy values, persisted in the store.
type Settings struct {
	SnoozeDelay          time.Duration `json:"snooze_delay"`          // wait between snooze and the re-armed alarm
	MaxSnoozes           int           `json:"max_snoozes"`           // snooze cap per lineage
	AlarmCeiling         time.Duration `json:"alarm_ceiling"`         // auto-stop for real alarms
	TestAlarmCeiling     time.Duration `json:"test_alarm_ceiling"`    // auto-stop for the test alarm
	WatchdogInterval     time.Duration `json:"watchdog_interval"`     // presented-set poll cadence
	WatchdogTimeout      time.Duration `json:"watchdog_timeout"`      // total poll window
	SoundURI             string        `json:"sound_uri"`             // WAV path or builtin:beep
	ResyncInterval       time.Duration `json:"resync_interval"`       // daemon re-reads scheduled entries
	NotificationsEnabled bool          `json:"notifications_enabled"` // desktop notifications
	Timezone             string        `json:"timezone"`              // IANA name or "Local"
}
