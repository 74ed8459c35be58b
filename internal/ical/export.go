// Package ical exports scheduled alerts as an iCalendar feed.
package ical

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/julianstephens/medalert/internal/constants"
	"github.com/julianstephens/medalert/internal/models"
)

// ErrNothingToExport is returned for an empty schedule; a calendar must hold
// at least one component.
var ErrNothingToExport = errors.New("no scheduled alerts to export")

const eventLength = 5 * time.Minute

// Export writes one VEVENT per entry. Entries that ring get a display alarm.
func Export(w io.Writer, entries []models.AlertEntry, now time.Time) error {
	if len(entries) == 0 {
		return ErrNothingToExport
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//"+constants.AppName+"//"+constants.Version+"//EN")

	for _, entry := range entries {
		cal.Children = append(cal.Children, newEvent(entry, now).Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

func newEvent(entry models.AlertEntry, now time.Time) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, entry.ID+"@"+constants.AppName)
	event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, entry.FireAt.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, entry.FireAt.Add(eventLength).UTC())
	event.Props.SetText(ical.PropSummary, entry.Title())
	event.Props.SetText(ical.PropDescription, entry.Body())
	event.Props.SetText(ical.PropCategories, string(entry.Category))

	if entry.Sound {
		alarm := ical.NewComponent(ical.CompAlarm)
		alarm.Props.SetText(ical.PropAction, "DISPLAY")
		alarm.Props.SetText(ical.PropDescription, entry.Title())
		trigger := ical.NewProp(ical.PropTrigger)
		trigger.Value = "PT0S"
		alarm.Props.Set(trigger)
		event.Children = append(event.Children, alarm)
	}
	return event
}
