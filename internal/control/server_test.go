package control

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/julianstephens/medalert/internal/audio"
	"github.com/julianstephens/medalert/internal/constants"
	"github.com/julianstephens/medalert/internal/dispatcher"
	"github.com/julianstephens/medalert/internal/models"
	"github.com/julianstephens/medalert/internal/registry"
	"github.com/julianstephens/medalert/internal/watchdog"
)

const testSecret = "s3cret"

type fakeDispatcher struct {
	mu        sync.Mutex
	responses []dispatcher.Response
	err       error
	stopped   int
	forgotten map[string][]string
}

func (f *fakeDispatcher) Respond(_ context.Context, resp dispatcher.Response) (dispatcher.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	outcome := dispatcher.Outcome{AlertID: resp.AlertID, State: dispatcher.StateAcknowledged, Notice: "ok"}
	if f.err != nil {
		outcome.State = dispatcher.StateExpired
	}
	return outcome, f.err
}

func (f *fakeDispatcher) StartTestAlarm(context.Context) (dispatcher.Outcome, error) {
	return dispatcher.Outcome{AlertID: "adhoc-1", State: dispatcher.StatePlaying}, nil
}

func (f *fakeDispatcher) StopAll() int { return f.stopped }

func (f *fakeDispatcher) State(string) dispatcher.State { return dispatcher.StatePlaying }

func (f *fakeDispatcher) ForgetMedication(medicationID string) []string {
	return f.forgotten[medicationID]
}

func (f *fakeDispatcher) last() dispatcher.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.responses[len(f.responses)-1]
}

type fakeTray struct {
	mu        sync.Mutex
	presented map[string]models.AlertEntry
}

func newFakeTray(entries ...models.AlertEntry) *fakeTray {
	tr := &fakeTray{presented: make(map[string]models.AlertEntry)}
	for _, e := range entries {
		tr.presented[e.ID] = e
	}
	return tr
}

func (f *fakeTray) ListPresented(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id := range f.presented {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeTray) Presented(id string) (models.AlertEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.presented[id]
	return e, ok
}

func (f *fakeTray) Clear(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.presented[id]
	delete(f.presented, id)
	return ok
}

func presentedAspirin() models.AlertEntry {
	return models.AlertEntry{
		ID: "med-1-d0-0800",
		Payload: models.AlertPayload{
			MedicationID:    "med-1",
			MedicationName:  "Aspirin",
			Dose:            "1 tablet",
			ScheduledTime:   "08:00 AM",
			SnoozeLineageID: "med-1-d0-0800",
			SnoozeCount:     2,
		},
		Category: constants.CategoryReminder,
		Priority: constants.PriorityMax,
	}
}

func doRequest(t *testing.T, h http.Handler, method, path, body, secret string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(constants.ControlSecretHeader, secret)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequireSecret(t *testing.T) {
	s := NewServer(&fakeDispatcher{}, newFakeTray(), testSecret)

	tests := []struct {
		name   string
		secret string
		want   int
	}{
		{"missing secret", "", http.StatusUnauthorized},
		{"wrong secret", "nope", http.StatusUnauthorized},
		{"valid secret", testSecret, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s.Handler(), http.MethodGet, "/health", "", tt.secret)
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestActFillsPayloadFromPresented(t *testing.T) {
	d := &fakeDispatcher{}
	s := NewServer(d, newFakeTray(presentedAspirin()), testSecret)

	rec := doRequest(t, s.Handler(), http.MethodPost, "/actions",
		`{"action_identifier":"STOP_ACTION","alert_id":"med-1-d0-0800"}`, testSecret)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got := d.last()
	if got.ActionIdentifier != constants.ActionStop {
		t.Errorf("expected STOP_ACTION, got %q", got.ActionIdentifier)
	}
	if got.Payload.MedicationName != "Aspirin" || got.Payload.SnoozeCount != 2 {
		t.Errorf("expected payload from presented alert, got %+v", got.Payload)
	}

	var outcome dispatcher.Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("failed to decode outcome: %v", err)
	}
	if outcome.State != dispatcher.StateAcknowledged {
		t.Errorf("expected acknowledged, got %s", outcome.State)
	}
}

func TestActStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"missing alert id", `{"action_identifier":"STOP_ACTION"}`, nil, http.StatusBadRequest},
		{"malformed json", `{`, nil, http.StatusBadRequest},
		{"max snoozes", `{"action_identifier":"SNOOZE_ACTION","alert_id":"a"}`, dispatcher.ErrMaxSnoozes, http.StatusConflict},
		{"unknown action", `{"action_identifier":"NOPE","alert_id":"a"}`, dispatcher.ErrUnknownAction, http.StatusBadRequest},
		{"unknown alert", `{"action_identifier":"SNOOZE_ACTION","alert_id":"bogus"}`, dispatcher.ErrUnknownAlert, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(&fakeDispatcher{err: tt.err}, newFakeTray(), testSecret)
			rec := doRequest(t, s.Handler(), http.MethodPost, "/actions", tt.body, testSecret)
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestListAndClearPresented(t *testing.T) {
	tr := newFakeTray(presentedAspirin())
	s := NewServer(&fakeDispatcher{}, tr, testSecret)

	rec := doRequest(t, s.Handler(), http.MethodGet, "/presented", "", testSecret)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var alerts []PresentedAlert
	if err := json.Unmarshal(rec.Body.Bytes(), &alerts); err != nil {
		t.Fatalf("failed to decode alerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Title != "Time for Aspirin" {
		t.Fatalf("unexpected alerts %+v", alerts)
	}
	if len(alerts[0].Actions) != 2 || alerts[0].Actions[0] != constants.ActionStop {
		t.Errorf("expected reminder actions, got %v", alerts[0].Actions)
	}

	rec = doRequest(t, s.Handler(), http.MethodDelete, "/presented/med-1-d0-0800", "", testSecret)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	rec = doRequest(t, s.Handler(), http.MethodDelete, "/presented/med-1-d0-0800", "", testSecret)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second clear, got %d", rec.Code)
	}
}

func TestAlarmRoutes(t *testing.T) {
	s := NewServer(&fakeDispatcher{stopped: 2}, newFakeTray(), testSecret)

	rec := doRequest(t, s.Handler(), http.MethodPost, "/alarms/test", "", testSecret)
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	rec = doRequest(t, s.Handler(), http.MethodPost, "/alarms/stop-all", "", testSecret)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"stopped":2`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestForgetMedicationClearsTray(t *testing.T) {
	d := &fakeDispatcher{forgotten: map[string][]string{"med-1": {"med-1-d0-0800"}}}
	tr := newFakeTray(presentedAspirin())
	s := NewServer(d, tr, testSecret)

	rec := doRequest(t, s.Handler(), http.MethodDelete, "/medications/med-1/alerts", "", testSecret)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"forgotten":1`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if _, ok := tr.Presented("med-1-d0-0800"); ok {
		t.Error("forgotten alert should be withdrawn from the tray")
	}
}

// daemon wires a real dispatcher to the in-memory registry, which doubles as the tray.
type daemon struct {
	reg    *registry.Memory
	player *audio.SilentPlayer
	d      *dispatcher.Dispatcher
	server *Server
}

func newDaemon(t *testing.T) *daemon {
	t.Helper()
	dm := &daemon{reg: registry.NewMemory(), player: audio.NewSilentPlayer()}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	dm.d = dispatcher.New(dm.reg, dm.player, nil, models.DefaultSettings(),
		dispatcher.WithClock(clock),
		dispatcher.WithWatchdogOptions(watchdog.WithInterval(10*time.Millisecond), watchdog.WithTimeout(time.Second)),
	)
	t.Cleanup(dm.d.Shutdown)
	dm.server = NewServer(dm.d, dm.reg, testSecret)
	return dm
}

// deliver schedules entry, presents it and hands it to the dispatcher.
func (dm *daemon) deliver(t *testing.T, entry models.AlertEntry) {
	t.Helper()
	if err := dm.reg.Schedule(context.Background(), entry); err != nil {
		t.Fatal(err)
	}
	presented, ok := dm.reg.Present(entry.ID)
	if !ok {
		t.Fatalf("alert %s was not scheduled", entry.ID)
	}
	dm.d.Received(context.Background(), presented)
}

func TestSnoozeAfterSwipeKeepsCount(t *testing.T) {
	dm := newDaemon(t)
	entry := presentedAspirin()
	entry.Payload.SnoozeCount = 7
	entry.Payload.ShouldPlayAlarm = true
	dm.deliver(t, entry)

	// swiped away: the tray no longer has the payload
	if !dm.reg.Clear(entry.ID) {
		t.Fatal("alert should have been presented")
	}

	rec := doRequest(t, dm.server.Handler(), http.MethodPost, "/actions",
		`{"action_identifier":"SNOOZE_ACTION","alert_id":"med-1-d0-0800"}`, testSecret)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := dm.reg.Get(entry.ID); ok {
		t.Error("a snooze past the cap must not schedule anything")
	}
	if p, _ := dm.d.Payload(entry.ID); p.SnoozeCount != 7 {
		t.Errorf("snooze count should stay at 7, got %d", p.SnoozeCount)
	}
}

func TestSnoozeUnknownAlertSchedulesNothing(t *testing.T) {
	dm := newDaemon(t)

	rec := doRequest(t, dm.server.Handler(), http.MethodPost, "/actions",
		`{"action_identifier":"SNOOZE_ACTION","alert_id":"bogus-id"}`, testSecret)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}

	scheduled, _ := dm.reg.ListScheduled(context.Background())
	if len(scheduled) != 0 {
		t.Errorf("expected no entries, got %+v", scheduled)
	}
	if dm.player.Created() != 0 {
		t.Error("no alarm may start for an unknown alert")
	}
	if dm.d.State("bogus-id") != dispatcher.StateUnknown {
		t.Errorf("unexpected state %s", dm.d.State("bogus-id"))
	}
}
