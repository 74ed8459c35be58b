// Package clitest builds command contexts backed by a temporary store and a
// fake daemon for command tests.
package clitest

import (
	"context"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/julianstephens/medalert/internal/cli"
	"github.com/julianstephens/medalert/internal/constants"
	"github.com/julianstephens/medalert/internal/control"
	"github.com/julianstephens/medalert/internal/dispatcher"
	"github.com/julianstephens/medalert/internal/models"
	"github.com/julianstephens/medalert/internal/storage/sqlite"
)

const Secret = "test-secret"

// Now is the fake clock's starting instant.
var Now = time.Date(2026, 3, 10, 7, 0, 0, 0, time.Local)

// NewContext returns a context over an initialized sqlite store in a temp dir.
// Dial reports that no daemon is running.
func NewContext(t *testing.T) (*cli.Context, *clockwork.FakeClock) {
	t.Helper()
	dir := t.TempDir()

	store := sqlite.NewStore(filepath.Join(dir, "medalert.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})

	clock := clockwork.NewFakeClockAt(Now)
	ctx := &cli.Context{
		Store:     store,
		ConfigDir: dir,
		Clock:     clock,
		Dial: func() (*control.Client, error) {
			return nil, control.ErrDaemonNotRunning
		},
	}
	return ctx, clock
}

// ServeDaemon points ctx.Dial at a control API backed by d and tr.
func ServeDaemon(t *testing.T, ctx *cli.Context, d control.Dispatcher, tr control.Tray) {
	t.Helper()
	srv := httptest.NewServer(control.NewServer(d, tr, Secret).Handler())
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	ctx.Dial = func() (*control.Client, error) {
		return control.NewClient(u.Port(), Secret), nil
	}
}

// Dispatcher records responses and answers with canned outcomes.
type Dispatcher struct {
	mu        sync.Mutex
	Responses []dispatcher.Response
	// SnoozesLeft is how many snoozes succeed before ErrMaxSnoozes.
	SnoozesLeft int
	Stopped     int
	// Forgotten lists the medication ids passed to ForgetMedication.
	Forgotten []string
}

func (f *Dispatcher) Respond(_ context.Context, resp dispatcher.Response) (dispatcher.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses = append(f.Responses, resp)

	out := dispatcher.Outcome{AlertID: resp.AlertID}
	switch resp.ActionIdentifier {
	case constants.ActionStop:
		out.State = dispatcher.StateAcknowledged
	case constants.ActionSnooze:
		if f.SnoozesLeft == 0 {
			out.State = dispatcher.StateAcknowledged
			out.Notice = "Maximum snoozes reached"
			return out, dispatcher.ErrMaxSnoozes
		}
		f.SnoozesLeft--
		out.State = dispatcher.StateSilentSnoozeWait
		out.Notice = "Snoozed for 2 minutes"
	case constants.ActionDismiss, constants.ActionDefault:
		out.State = dispatcher.StateAcknowledged
	default:
		return dispatcher.Outcome{}, dispatcher.ErrUnknownAction
	}
	return out, nil
}

func (f *Dispatcher) StartTestAlarm(context.Context) (dispatcher.Outcome, error) {
	return dispatcher.Outcome{AlertID: "adhoc-test", State: dispatcher.StatePlaying}, nil
}

func (f *Dispatcher) StopAll() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Stopped
}

func (f *Dispatcher) State(string) dispatcher.State { return dispatcher.StatePlaying }

func (f *Dispatcher) ForgetMedication(medicationID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Forgotten = append(f.Forgotten, medicationID)
	return nil
}

// ForgottenMedications returns the medication ids the daemon was told about.
func (f *Dispatcher) ForgottenMedications() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Forgotten)
}

// Last returns the most recent response.
func (f *Dispatcher) Last() dispatcher.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Responses) == 0 {
		return dispatcher.Response{}
	}
	return f.Responses[len(f.Responses)-1]
}

// Tray is an in-memory presented set.
type Tray struct {
	mu        sync.Mutex
	presented map[string]models.AlertEntry
}

func NewTray(entries ...models.AlertEntry) *Tray {
	tr := &Tray{presented: make(map[string]models.AlertEntry)}
	for _, e := range entries {
		tr.presented[e.ID] = e
	}
	return tr
}

func (f *Tray) ListPresented(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.presented))
	for id := range f.presented {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (f *Tray) Presented(id string) (models.AlertEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.presented[id]
	return e, ok
}

func (f *Tray) Clear(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.presented[id]
	delete(f.presented, id)
	return ok
}
