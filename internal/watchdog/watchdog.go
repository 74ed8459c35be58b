// Package watchdog detects alerts that left the presented set without an
// in-app action, i.e. were swiped away in the tray.
package watchdog

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/julianstephens/medalert/internal/constants"
	"github.com/julianstephens/medalert/internal/logger"
)

// Lister returns the ids currently presented to the user.
type Lister interface {
	ListPresented(ctx context.Context) ([]string, error)
}

// Watcher runs one polling task per armed alert id.
type Watcher struct {
	lister      Lister
	onDismissed func(id string)
	clock       clockwork.Clock
	interval    time.Duration
	timeout     time.Duration
	requireSeen bool

	mu      sync.Mutex
	watches map[string]*watch
	wg      sync.WaitGroup
}

type watch struct {
	cancel context.CancelFunc
}

// Option configures a Watcher.
type Option func(*Watcher)

func WithClock(c clockwork.Clock) Option {
	return func(w *Watcher) { w.clock = c }
}

// WithInterval sets the poll cadence.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) { w.interval = d }
}

// WithTimeout sets how long an armed id is polled before giving up.
func WithTimeout(d time.Duration) Option {
	return func(w *Watcher) { w.timeout = d }
}

// WithRequireSeen controls whether an id must be observed presented before
// its absence counts as a dismissal. Delivery is asynchronous, so the daemon
// keeps this on.
func WithRequireSeen(v bool) Option {
	return func(w *Watcher) { w.requireSeen = v }
}

// New returns a Watcher calling onDismissed at most once per arming.
func New(lister Lister, onDismissed func(id string), opts ...Option) *Watcher {
	w := &Watcher{
		lister:      lister,
		onDismissed: onDismissed,
		clock:       clockwork.NewRealClock(),
		interval:    constants.DefaultWatchdogInterval,
		timeout:     constants.DefaultWatchdogTimeout,
		requireSeen: true,
		watches:     make(map[string]*watch),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Configure changes the poll cadence and timeout for ids armed from now on.
// Non-positive values keep the current setting.
func (w *Watcher) Configure(interval, timeout time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if interval > 0 {
		w.interval = interval
	}
	if timeout > 0 {
		w.timeout = timeout
	}
}

// Settings returns the poll cadence and timeout new armings use.
func (w *Watcher) Settings() (interval, timeout time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.interval, w.timeout
}

// Arm starts polling for id, replacing any earlier arming of the same id.
func (w *Watcher) Arm(ctx context.Context, id string) {
	ctx, cancel := context.WithCancel(ctx)
	wt := &watch{cancel: cancel}

	w.mu.Lock()
	if prev, ok := w.watches[id]; ok {
		prev.cancel()
	}
	w.watches[id] = wt
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx, id, wt)
	}()
}

// Disarm cancels polling for id. It reports whether id was armed.
func (w *Watcher) Disarm(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	wt, ok := w.watches[id]
	if !ok {
		return false
	}
	wt.cancel()
	delete(w.watches, id)
	return true
}

// DisarmAll cancels every polling task and waits for them to exit.
func (w *Watcher) DisarmAll() {
	w.mu.Lock()
	for id, wt := range w.watches {
		wt.cancel()
		delete(w.watches, id)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

// IsArmed reports whether id is being polled.
func (w *Watcher) IsArmed(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.watches[id]
	return ok
}

// Armed returns the ids being polled, sorted.
func (w *Watcher) Armed() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.watches))
	for id := range w.watches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (w *Watcher) run(ctx context.Context, id string, wt *watch) {
	defer w.release(id, wt)

	interval, timeout := w.Settings()
	ticker := w.clock.NewTicker(interval)
	defer ticker.Stop()

	deadline := w.clock.Now().Add(timeout)
	seen := !w.requireSeen

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}

		if w.clock.Now().After(deadline) {
			logger.Debug("Watchdog timed out", "id", id)
			return
		}

		presented, err := w.lister.ListPresented(ctx)
		if err != nil {
			logger.Debug("Watchdog poll failed", "id", id, "error", err)
			continue
		}
		if slices.Contains(presented, id) {
			seen = true
			continue
		}
		if !seen {
			continue
		}

		// Only the arming that still owns id may fire.
		if !w.release(id, wt) {
			return
		}
		logger.Info("Alert dismissed from tray", "id", id)
		w.onDismissed(id)
		return
	}
}

// release drops id's entry when it still belongs to wt.
func (w *Watcher) release(id string, wt *watch) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watches[id] != wt {
		return false
	}
	wt.cancel()
	delete(w.watches, id)
	return true
}
