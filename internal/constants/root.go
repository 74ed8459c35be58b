package constants

import "time"

// Priority is the delivery priority requested from the notification layer.
type Priority string

// Category is the notification category an alert is presented under.
type Category string

const (
	AppName            = "medalert"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/medalert/medalert.db"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the 24h wall-clock format used for normalized times (HH:MM)
	TimeFormat = "15:04"

	// ClockFormat is the 12h wall-clock format users enter times in (H:MM AM)
	ClockFormat = "3:04 PM"

	// Categories
	CategoryReminder Category = "MEDICATION_REMINDER"
	CategorySnoozed  Category = "MEDICATION_SNOOZED"

	// Action identifiers surfaced by the delivery callback
	ActionStop    = "STOP_ACTION"
	ActionSnooze  = "SNOOZE_ACTION"
	ActionDismiss = "DISMISS_ACTION"
	ActionDefault = "DEFAULT_ACTION"

	// Priorities
	PriorityMax  Priority = "max"
	PriorityHigh Priority = "high"

	// Builtin alarm sound, synthesized at runtime
	BuiltinSoundURI = "builtin:beep"

	// Control API constants
	ControlLockfileName = "medalert-daemon.lock"
	ControlSecretHeader = "X-Medalert-Secret"
	DaemonExecutable    = "medalert"
	ControlMaxRetries   = 3
	ControlRetryDelay   = 100 * time.Millisecond
	ControlTimeout      = 5 * time.Second

	// Environment variables
	EnvConfig       = "MEDALERT_CONFIG"
	EnvAlertStore   = "MEDALERT_ALERT_STORE"
	EnvDebug        = "MEDALERT_DEBUG"
	EnvDBConnection = "MEDALERT_DB_CONNECTION"
)

// CategoryActions lists the buttons each category registers, in display order.
var CategoryActions = map[Category][]string{
	CategoryReminder: {ActionStop, ActionSnooze},
	CategorySnoozed:  {ActionDismiss},
}
