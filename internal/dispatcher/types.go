package dispatcher

import (
	"errors"

	"github.com/julianstephens/medalert/internal/models"
)

var (
	// ErrMaxSnoozes is returned when a lineage has used every snooze.
	ErrMaxSnoozes = errors.New("maximum snoozes reached")
	// ErrUnknownAction is returned for an action identifier no category registers.
	ErrUnknownAction = errors.New("unknown action")
	// ErrUnknownAlert is returned for an action on an alert this dispatcher never delivered.
	ErrUnknownAlert = errors.New("unknown alert")
)

// State is the lifecycle position of one alert instance.
type State string

const (
	StateUnknown          State = ""
	StateScheduled        State = "scheduled"
	StatePresented        State = "presented"
	StatePlaying          State = "playing"
	StateSilentSnoozeWait State = "silent-snooze-wait"
	StateAcknowledged     State = "acknowledged"
	StateExpired          State = "expired"
)

// Response is what the delivery callback surfaces when the user acts on an alert.
type Response struct {
	ActionIdentifier string              `json:"action_identifier"`
	AlertID          string              `json:"alert_id" binding:"required"`
	Payload          models.AlertPayload `json:"payload"`
}

// Outcome reports the state an alert moved to and the message shown to the user.
type Outcome struct {
	AlertID string `json:"alert_id"`
	State   State  `json:"state"`
	Notice  string `json:"notice,omitempty"`
}

// Notifier surfaces notices to the user.
type Notifier interface {
	Notify(title, message string) error
}
