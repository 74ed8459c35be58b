package schedule

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/medalert/internal/constants"
	"github.com/julianstephens/medalert/internal/models"
)

type clock struct {
	raw    string
	hour   int
	minute int
}

// AlertID is the deterministic identifier of one (medication, day, time) alert.
func AlertID(medID string, day, hour, minute int) string {
	return fmt.Sprintf("%s-d%d-%02d%02d", medID, day, hour, minute)
}

// NewAdHocID returns a random identifier for alerts with no schedule slot.
func NewAdHocID() string {
	return "adhoc-" + uuid.NewString()
}

// Expand validates the medication's schedule and returns the future alerts it produces.
//
// Alerts are yielded days-outer, times-inner, preserving the order the times were entered.
// Instants anchored at the start of med.StartDate's day in loc that are not strictly after
// now are skipped. Validation covers the whole batch before anything is yielded.
func Expand(med models.Medication, now time.Time, loc *time.Location) (iter.Seq[models.AlertEntry], error) {
	if loc == nil {
		loc = time.Local
	}
	if strings.TrimSpace(med.ID) == "" {
		return nil, fmt.Errorf("medication id is required")
	}
	if med.DurationDays < 1 {
		return nil, fmt.Errorf("duration must be at least 1 day, got %d", med.DurationDays)
	}
	if err := ValidateTimes(med.Times); err != nil {
		return nil, err
	}

	clocks := make([]clock, 0, len(med.Times))
	for _, raw := range med.Times {
		h, m, _ := ParseClock(raw)
		clocks = append(clocks, clock{raw: strings.TrimSpace(raw), hour: h, minute: m})
	}

	start := med.StartDate
	if start.IsZero() {
		start = now
	}
	start = start.In(loc)

	return func(yield func(models.AlertEntry) bool) {
		for day := 0; day < med.DurationDays; day++ {
			for _, c := range clocks {
				at := time.Date(start.Year(), start.Month(), start.Day()+day, c.hour, c.minute, 0, 0, loc)
				if !at.After(now) {
					continue
				}
				id := AlertID(med.ID, day, c.hour, c.minute)
				entry := models.AlertEntry{
					ID:     id,
					FireAt: at,
					Payload: models.AlertPayload{
						MedicationID:    med.ID,
						MedicationName:  med.Name,
						Dose:            med.Dose,
						ScheduledTime:   c.raw,
						DayIndex:        day,
						TotalDuration:   med.DurationDays,
						SnoozeLineageID: id,
						ShouldPlayAlarm: true,
					},
					Sound:     true,
					Priority:  constants.PriorityMax,
					Category:  constants.CategoryReminder,
					CreatedAt: now,
				}
				if !yield(entry) {
					return
				}
			}
		}
	}, nil
}
