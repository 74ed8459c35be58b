package constants

import "time"

const (
	SettingSnoozeDelay          = "snooze_delay"
	SettingMaxSnoozes           = "max_snoozes"
	SettingAlarmCeiling         = "alarm_ceiling"
	SettingTestAlarmCeiling     = "test_alarm_ceiling"
	SettingWatchdogInterval     = "watchdog_interval"
	SettingWatchdogTimeout      = "watchdog_timeout"
	SettingSoundURI             = "sound_uri"
	SettingResyncInterval       = "resync_interval"
	SettingNotificationsEnabled = "notifications_enabled"
	SettingTimezone             = "timezone"

	// Default Settings Values
	DefaultSnoozeDelay          = 2 * time.Minute
	DefaultMaxSnoozes           = 7
	DefaultAlarmCeiling         = 60 * time.Second
	DefaultTestAlarmCeiling     = 30 * time.Second
	DefaultWatchdogInterval     = 500 * time.Millisecond
	DefaultWatchdogTimeout      = 20 * time.Second
	DefaultSoundURI             = BuiltinSoundURI
	DefaultResyncInterval       = 15 * time.Second
	DefaultNotificationsEnabled = true
	DefaultTimezone             = "Local" // Use system local timezone by default

	// SnoozeWaitOffset is the symbolic "immediate" unit the silent snoozed entry fires after.
	SnoozeWaitOffset = time.Second
)
