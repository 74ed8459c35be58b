package models

import (
	"encoding/json"
	"time"

	"github.com/julianstephens/medalert/internal/constants"
)

// AlertPayload is the data carried by every registry entry.
type AlertPayload struct {
	MedicationID    string `json:"medication_id"`
	MedicationName  string `json:"medication_name"`
	Dose            string `json:"dose"`
	ScheduledTime   string `json:"scheduled_time"` // as entered by the user
	DayIndex        int    `json:"day_index"`
	TotalDuration   int    `json:"total_duration"`
	IsSnooze        bool   `json:"is_snooze"`
	SnoozeCount     int    `json:"snooze_count"`
	SnoozeLineageID string `json:"snooze_lineage_id"`
	ParentAlertID   string `json:"parent_alert_id,omitempty"`
	ShouldPlayAlarm bool   `json:"should_play_alarm"`
	IsTest          bool   `json:"is_test,omitempty"`
}

// AlertEntry is one durable scheduler entry (one alert instance).
type AlertEntry struct {
	ID        string             `json:"id"`
	FireAt    time.Time          `json:"fire_at"`
	Payload   AlertPayload       `json:"payload"`
	Sound     bool               `json:"sound"`
	Priority  constants.Priority `json:"priority"`
	Category  constants.Category `json:"category"`
	CreatedAt time.Time          `json:"created_at"`
}

// Title is the notification headline for the entry
func (e *AlertEntry) Title() string {
	if e.Category == constants.CategorySnoozed {
		return "Snoozed: " + e.Payload.MedicationName
	}
	return "Time for " + e.Payload.MedicationName
}

// Body is the notification body text for the entry
func (e *AlertEntry) Body() string {
	if e.Payload.IsTest {
		return "This is a test alarm."
	}
	if e.Category == constants.CategorySnoozed {
		return "Reminder snoozed. The alarm will ring again shortly."
	}
	return "Take " + e.Payload.Dose + " (" + e.Payload.ScheduledTime + ")"
}

// Actions returns the button identifiers registered for the entry's category.
func (e *AlertEntry) Actions() []string {
	return constants.CategoryActions[e.Category]
}

// MarshalPayload encodes the payload for storage.
func (e *AlertEntry) MarshalPayload() (string, error) {
	b, err := json.Marshal(e.Payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalPayload decodes a stored payload into the entry.
func (e *AlertEntry) UnmarshalPayload(raw string) error {
	return json.Unmarshal([]byte(raw), &e.Payload)
}

// AlertRef identifies a presented alert.
type AlertRef struct {
	ID string `json:"id"`
}
