package registry

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/julianstephens/medalert/internal/constants"
	"github.com/julianstephens/medalert/internal/models"
	"github.com/julianstephens/medalert/internal/schedule"
)

func entry(id, medID, lineage string, at time.Time) models.AlertEntry {
	return models.AlertEntry{
		ID:     id,
		FireAt: at,
		Payload: models.AlertPayload{
			MedicationID:    medID,
			MedicationName:  "Aspirin",
			SnoozeLineageID: lineage,
		},
		Category: constants.CategoryReminder,
	}
}

func TestMemory_ScheduleReplaces(t *testing.T) {
	ctx := context.Background()
	r := NewMemory()
	t1 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	first := entry("a1", "med-1", "a1", t1)
	if err := r.Schedule(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := entry("a1", "med-1", "a1", t1.Add(2*time.Minute))
	second.Payload.SnoozeCount = 1
	second.Payload.IsSnooze = true
	if err := r.Schedule(ctx, second); err != nil {
		t.Fatal(err)
	}

	entries, err := r.ListScheduled(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one entry, got %d", len(entries))
	}
	if entries[0].Payload != second.Payload || !entries[0].FireAt.Equal(second.FireAt) {
		t.Errorf("expected replacement entry, got %+v", entries[0])
	}
}

func TestMemory_PresentAndClear(t *testing.T) {
	ctx := context.Background()
	r := NewMemory()
	_ = r.Schedule(ctx, entry("a1", "med-1", "a1", time.Now()))

	if _, ok := r.Present("missing"); ok {
		t.Error("presenting an unknown id should fail")
	}
	if _, ok := r.Present("a1"); !ok {
		t.Fatal("expected a1 to be presented")
	}

	presented, _ := IsPresented(ctx, r, "a1")
	if !presented {
		t.Error("a1 should be presented")
	}
	scheduled, _ := r.ListScheduled(ctx)
	if len(scheduled) != 0 {
		t.Error("presented entry should leave the scheduled set")
	}

	r.Clear("a1")
	presented, _ = IsPresented(ctx, r, "a1")
	if presented {
		t.Error("a1 should be cleared")
	}
}

func TestMemory_ScheduleWithdrawsPresentedCopy(t *testing.T) {
	ctx := context.Background()
	r := NewMemory()
	_ = r.Schedule(ctx, entry("a1", "med-1", "a1", time.Now()))
	r.Present("a1")

	_ = r.Schedule(ctx, entry("a1", "med-1", "a1", time.Now().Add(time.Second)))
	ids, _ := r.ListPresented(ctx)
	if len(ids) != 0 {
		t.Errorf("replacing an id should withdraw the presented copy, got %v", ids)
	}
}

func TestMemory_Due(t *testing.T) {
	ctx := context.Background()
	r := NewMemory()
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	_ = r.Schedule(ctx, entry("past", "med-1", "past", now.Add(-time.Minute)))
	_ = r.Schedule(ctx, entry("now", "med-1", "now", now))
	_ = r.Schedule(ctx, entry("later", "med-1", "later", now.Add(time.Hour)))

	due := r.Due(now)
	if len(due) != 2 || due[0].ID != "past" || due[1].ID != "now" {
		t.Fatalf("unexpected due set %+v", due)
	}
	ids, _ := r.ListPresented(ctx)
	if !slices.Equal(ids, []string{"now", "past"}) {
		t.Errorf("unexpected presented ids %v", ids)
	}
}

func TestCancelLineage(t *testing.T) {
	ctx := context.Background()
	r := NewMemory()
	at := time.Now().Add(time.Hour)
	_ = r.Schedule(ctx, entry("a1", "med-1", "L1", at))
	_ = r.Schedule(ctx, entry("a2", "med-1", "L1", at))
	_ = r.Schedule(ctx, entry("b1", "med-1", "L2", at))

	n, err := CancelLineage(ctx, r, "L1", "a1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 cancellation, got %d", n)
	}
	if _, ok := r.Get("a1"); !ok {
		t.Error("excepted id should survive")
	}
	if _, ok := r.Get("a2"); ok {
		t.Error("a2 should be cancelled")
	}
	if _, ok := r.Get("b1"); !ok {
		t.Error("other lineage should survive")
	}
}

func TestCancelMedication_MatchesOnID(t *testing.T) {
	ctx := context.Background()
	r := NewMemory()
	at := time.Now().Add(time.Hour)

	aspirin := entry("a1", "med-1", "a1", at)
	// A different medication whose name contains the first one's.
	babyAspirin := entry("b1", "med-2", "b1", at)
	babyAspirin.Payload.MedicationName = "Baby Aspirin"
	_ = r.Schedule(ctx, aspirin)
	_ = r.Schedule(ctx, babyAspirin)

	n, err := CancelMedication(ctx, r, "med-1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 cancellation, got %d", n)
	}
	if _, ok := r.Get("b1"); !ok {
		t.Error("similarly named medication must not be cancelled")
	}
}

func TestScheduleAll_FromExpander(t *testing.T) {
	ctx := context.Background()
	r := NewMemory()
	now := time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)
	med := models.Medication{
		ID: "med-1", Name: "Aspirin", Dose: "1 tablet",
		Times: []string{"08:00 AM"}, DurationDays: 2, StartDate: now,
	}

	seq, err := schedule.Expand(med, now, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	n, err := ScheduleAll(ctx, r, seq)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 scheduled, got %d", n)
	}
}

type failingRegistry struct {
	*Memory
	failCancel string
}

func (f *failingRegistry) Cancel(ctx context.Context, id string) error {
	if id == f.failCancel {
		return errors.New("platform denied")
	}
	return f.Memory.Cancel(ctx, id)
}

func TestCancelLineage_ContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	r := &failingRegistry{Memory: NewMemory(), failCancel: "a2"}
	at := time.Now().Add(time.Hour)
	_ = r.Schedule(ctx, entry("a2", "med-1", "L1", at))
	_ = r.Schedule(ctx, entry("a3", "med-1", "L1", at))

	n, err := CancelLineage(ctx, r, "L1", "")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 successful cancellation, got %d", n)
	}
	if _, ok := r.Get("a3"); ok {
		t.Error("a3 should still be cancelled after a2 failed")
	}
}
