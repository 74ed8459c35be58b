// Package registry is the facade over the scheduler that holds alert entries.
package registry

import (
	"context"
	"iter"

	"github.com/julianstephens/medalert/internal/logger"
	"github.com/julianstephens/medalert/internal/models"
)

// Registry is the durable scheduler of alert entries plus the set of alerts
// currently presented to the user.
type Registry interface {
	// Schedule inserts entry. An existing entry with the same id is replaced.
	Schedule(ctx context.Context, entry models.AlertEntry) error
	// Cancel removes a scheduled entry. Unknown ids are ignored.
	Cancel(ctx context.Context, id string) error
	ListScheduled(ctx context.Context) ([]models.AlertEntry, error)
	// ListPresented returns the ids currently visible to the user.
	ListPresented(ctx context.Context) ([]string, error)
	// Dismiss withdraws a presented alert without treating it as a user action.
	Dismiss(ctx context.Context, id string) error
}

// ScheduleAll inserts every entry produced by seq and returns how many were scheduled.
// It stops at the first failure.
func ScheduleAll(ctx context.Context, r Registry, seq iter.Seq[models.AlertEntry]) (int, error) {
	n := 0
	for entry := range seq {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := r.Schedule(ctx, entry); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// CancelLineage cancels every scheduled entry of lineageID except exceptID.
// Individual cancel failures are logged and skipped.
func CancelLineage(ctx context.Context, r Registry, lineageID, exceptID string) (int, error) {
	return cancelMatching(ctx, r, func(e models.AlertEntry) bool {
		return e.ID != exceptID && e.Payload.SnoozeLineageID == lineageID
	})
}

// CancelMedication cancels every scheduled entry whose payload references medID.
func CancelMedication(ctx context.Context, r Registry, medID string) (int, error) {
	return cancelMatching(ctx, r, func(e models.AlertEntry) bool {
		return e.Payload.MedicationID == medID
	})
}

// IsPresented reports whether id is in the presented set.
func IsPresented(ctx context.Context, r Registry, id string) (bool, error) {
	ids, err := r.ListPresented(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range ids {
		if p == id {
			return true, nil
		}
	}
	return false, nil
}

func cancelMatching(ctx context.Context, r Registry, match func(models.AlertEntry) bool) (int, error) {
	entries, err := r.ListScheduled(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !match(e) {
			continue
		}
		if err := r.Cancel(ctx, e.ID); err != nil {
			logger.Warn("Failed to cancel alert", "id", e.ID, "error", err)
			continue
		}
		n++
	}
	return n, nil
}
