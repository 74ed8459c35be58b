// Package dispatcher reacts to alert delivery and user actions, driving the
// registry and the alarm pool.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/julianstephens/medalert/internal/alarm"
	"github.com/julianstephens/medalert/internal/audio"
	"github.com/julianstephens/medalert/internal/constants"
	"github.com/julianstephens/medalert/internal/logger"
	"github.com/julianstephens/medalert/internal/models"
	"github.com/julianstephens/medalert/internal/registry"
	"github.com/julianstephens/medalert/internal/schedule"
	"github.com/julianstephens/medalert/internal/watchdog"
)

// Dispatcher is the single owner of alarm state. It owns the alarm pool and
// the dismissal watcher.
type Dispatcher struct {
	registry registry.Registry
	notifier Notifier
	clock    clockwork.Clock
	pool     *alarm.Pool
	watcher  *watchdog.Watcher

	baseCtx context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	settings models.Settings
	states   map[string]State
	payloads map[string]models.AlertPayload
	pending  map[string]*pendingSnooze
}

type pendingSnooze struct {
	timer   clockwork.Timer
	payload models.AlertPayload
}

// Option configures a Dispatcher.
type Option func(*options)

type options struct {
	clock        clockwork.Clock
	watchdogOpts []watchdog.Option
}

// WithClock sets the clock for snooze delays and alarm ceilings.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithWatchdogOptions passes extra options to the dismissal watcher.
func WithWatchdogOptions(opts ...watchdog.Option) Option {
	return func(o *options) { o.watchdogOpts = append(o.watchdogOpts, opts...) }
}

func New(reg registry.Registry, player audio.Player, notifier Notifier, settings models.Settings, opts ...Option) *Dispatcher {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		registry: reg,
		notifier: notifier,
		clock:    o.clock,
		baseCtx:  ctx,
		cancel:   cancel,
		settings: settings,
		states:   make(map[string]State),
		payloads: make(map[string]models.AlertPayload),
		pending:  make(map[string]*pendingSnooze),
	}
	d.pool = alarm.NewPool(player, alarm.WithClock(o.clock), alarm.WithExpireHook(d.expired))

	wopts := []watchdog.Option{
		watchdog.WithInterval(settings.WatchdogInterval),
		watchdog.WithTimeout(settings.WatchdogTimeout),
	}
	d.watcher = watchdog.New(reg, d.dismissedFromTray, append(wopts, o.watchdogOpts...)...)
	return d
}

// Pool exposes the alarm pool for inspection.
func (d *Dispatcher) Pool() *alarm.Pool { return d.pool }

// Watcher exposes the dismissal watcher for inspection.
func (d *Dispatcher) Watcher() *watchdog.Watcher { return d.watcher }

// UpdateSettings applies new policy values to alarms started from now on.
func (d *Dispatcher) UpdateSettings(s models.Settings) {
	d.mu.Lock()
	d.settings = s
	d.mu.Unlock()
	d.watcher.Configure(s.WatchdogInterval, s.WatchdogTimeout)
}

func (d *Dispatcher) currentSettings() models.Settings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings
}

// State returns the last known state of id.
func (d *Dispatcher) State(id string) State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.states[id]
}

func (d *Dispatcher) setState(id string, s State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.states[id] = s
}

// Payload returns the payload last delivered or scheduled under id.
func (d *Dispatcher) Payload(id string) (models.AlertPayload, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.payloads[id]
	return p, ok
}

func (d *Dispatcher) setPayload(id string, p models.AlertPayload) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payloads[id] = p
}

// forget drops what is known about id once the user has closed it out.
func (d *Dispatcher) forget(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.payloads, id)
}

// resolvePayload prefers the payload this dispatcher recorded for id, so a
// caller cannot reset a lineage's snooze count.
func (d *Dispatcher) resolvePayload(resp Response) (models.AlertPayload, bool) {
	if p, ok := d.Payload(resp.AlertID); ok {
		return p, true
	}
	if resp.Payload != (models.AlertPayload{}) {
		return resp.Payload, true
	}
	return models.AlertPayload{}, false
}

// Received handles an alert the OS layer has just presented.
func (d *Dispatcher) Received(ctx context.Context, entry models.AlertEntry) Outcome {
	d.setPayload(entry.ID, entry.Payload)

	if entry.Category == constants.CategorySnoozed || !entry.Payload.ShouldPlayAlarm {
		d.setState(entry.ID, StateSilentSnoozeWait)
		return Outcome{AlertID: entry.ID, State: StateSilentSnoozeWait}
	}

	if d.pool.IsPlaying(entry.ID) {
		// already started by the snooze re-arm
		d.setState(entry.ID, StatePlaying)
		return Outcome{AlertID: entry.ID, State: StatePlaying}
	}

	d.setState(entry.ID, StatePresented)
	return Outcome{AlertID: entry.ID, State: d.startAlarm(entry.ID, entry.Payload.IsTest)}
}

// Respond handles a user action on a presented alert.
func (d *Dispatcher) Respond(ctx context.Context, resp Response) (Outcome, error) {
	if resp.AlertID == "" {
		return Outcome{}, errors.New("alert id is required")
	}
	switch resp.ActionIdentifier {
	case constants.ActionStop, constants.ActionSnooze, constants.ActionDismiss, constants.ActionDefault, "":
	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownAction, resp.ActionIdentifier)
	}

	payload, ok := d.resolvePayload(resp)
	if !ok {
		return Outcome{AlertID: resp.AlertID}, fmt.Errorf("%w: %s", ErrUnknownAlert, resp.AlertID)
	}
	resp.Payload = payload
	if resp.Payload.SnoozeLineageID == "" {
		resp.Payload.SnoozeLineageID = resp.AlertID
	}

	logger.Info("Alert action", "id", resp.AlertID, "action", resp.ActionIdentifier)

	switch resp.ActionIdentifier {
	case constants.ActionStop:
		return d.stop(ctx, resp), nil
	case constants.ActionSnooze:
		return d.snooze(ctx, resp)
	case constants.ActionDismiss:
		return d.dismiss(ctx, resp), nil
	default:
		return d.open(resp), nil
	}
}

func (d *Dispatcher) stop(ctx context.Context, resp Response) Outcome {
	d.silence(resp.AlertID)
	d.cancelLineage(ctx, resp)
	d.dismissEntry(ctx, resp.AlertID)
	d.setState(resp.AlertID, StateAcknowledged)
	d.forget(resp.AlertID)

	notice := "Alarm stopped."
	if resp.Payload.MedicationName != "" && !resp.Payload.IsTest {
		notice = fmt.Sprintf("Alarm stopped. Remember to take %s of %s.", resp.Payload.Dose, resp.Payload.MedicationName)
	}
	d.notify(resp.Payload, notice)
	return Outcome{AlertID: resp.AlertID, State: StateAcknowledged, Notice: notice}
}

func (d *Dispatcher) snooze(ctx context.Context, resp Response) (Outcome, error) {
	settings := d.currentSettings()
	d.silence(resp.AlertID)

	if resp.Payload.SnoozeCount >= settings.MaxSnoozes {
		d.setState(resp.AlertID, StateExpired)
		notice := fmt.Sprintf("You have snoozed %s %d times. Please take it now.", displayName(resp.Payload), settings.MaxSnoozes)
		d.notify(resp.Payload, notice)
		return Outcome{AlertID: resp.AlertID, State: StateExpired, Notice: notice}, ErrMaxSnoozes
	}

	next := resp.Payload
	next.SnoozeCount++
	next.IsSnooze = true
	next.ParentAlertID = resp.AlertID
	next.ShouldPlayAlarm = false

	waiting := models.AlertEntry{
		ID:        resp.AlertID,
		FireAt:    d.clock.Now().Add(constants.SnoozeWaitOffset),
		Payload:   next,
		Sound:     false,
		Priority:  constants.PriorityHigh,
		Category:  constants.CategorySnoozed,
		CreatedAt: d.clock.Now(),
	}
	if err := d.registry.Schedule(ctx, waiting); err != nil {
		logger.Warn("Failed to schedule snooze wait entry", "id", resp.AlertID, "error", err)
	}

	ps := &pendingSnooze{payload: next}
	d.mu.Lock()
	d.states[resp.AlertID] = StateSilentSnoozeWait
	d.payloads[resp.AlertID] = next
	d.pending[resp.AlertID] = ps
	ps.timer = d.clock.AfterFunc(settings.SnoozeDelay, func() { d.rearm(resp.AlertID, ps) })
	d.mu.Unlock()

	notice := fmt.Sprintf("Snoozed %s for %s (snooze %d of %d).", displayName(next), formatDelay(settings.SnoozeDelay), next.SnoozeCount, settings.MaxSnoozes)
	return Outcome{AlertID: resp.AlertID, State: StateSilentSnoozeWait, Notice: notice}, nil
}

// rearm replaces the waiting entry with a full alarm once the snooze delay elapses.
func (d *Dispatcher) rearm(id string, ps *pendingSnooze) {
	d.mu.Lock()
	if d.pending[id] != ps {
		d.mu.Unlock()
		return
	}
	delete(d.pending, id)
	d.mu.Unlock()

	if d.baseCtx.Err() != nil {
		return
	}

	payload := ps.payload
	payload.ShouldPlayAlarm = true
	entry := models.AlertEntry{
		ID:        id,
		FireAt:    d.clock.Now(),
		Payload:   payload,
		Sound:     true,
		Priority:  constants.PriorityMax,
		Category:  constants.CategoryReminder,
		CreatedAt: d.clock.Now(),
	}
	// start first so the delivery of entry finds the alarm already playing
	d.setPayload(id, payload)
	d.setState(id, StatePresented)
	state := d.startAlarm(id, false)
	if err := d.registry.Schedule(d.baseCtx, entry); err != nil {
		logger.Warn("Failed to schedule snoozed alarm", "id", id, "error", err)
	}
	logger.Info("Snooze elapsed", "id", id, "snooze_count", payload.SnoozeCount, "state", state)
}

func (d *Dispatcher) dismiss(ctx context.Context, resp Response) Outcome {
	if s := d.State(resp.AlertID); s != StateSilentSnoozeWait && s != StateUnknown {
		logger.Debug("Dismiss on an alert that is not waiting on a snooze", "id", resp.AlertID, "state", s)
	}
	d.silence(resp.AlertID)
	d.cancelLineage(ctx, resp)
	d.dismissEntry(ctx, resp.AlertID)
	d.setState(resp.AlertID, StateAcknowledged)
	d.forget(resp.AlertID)

	notice := fmt.Sprintf("Snooze for %s dismissed.", displayName(resp.Payload))
	return Outcome{AlertID: resp.AlertID, State: StateAcknowledged, Notice: notice}
}

// open handles a plain tap. Scheduling is left untouched.
func (d *Dispatcher) open(resp Response) Outcome {
	d.watcher.Disarm(resp.AlertID)
	d.pool.Stop(resp.AlertID)

	state := d.State(resp.AlertID)
	waiting := state == StateSilentSnoozeWait || (resp.Payload.IsSnooze && !resp.Payload.ShouldPlayAlarm)
	if waiting {
		delay := formatDelay(d.currentSettings().SnoozeDelay)
		notice := fmt.Sprintf("%s is snoozed. The alarm will ring again within %s.", displayName(resp.Payload), delay)
		return Outcome{AlertID: resp.AlertID, State: StateSilentSnoozeWait, Notice: notice}
	}

	if state == StatePlaying {
		d.setState(resp.AlertID, StatePresented)
		state = StatePresented
	}
	notice := "Time to take your medication."
	if resp.Payload.MedicationName != "" {
		notice = fmt.Sprintf("Time to take %s of %s.", resp.Payload.Dose, resp.Payload.MedicationName)
	}
	return Outcome{AlertID: resp.AlertID, State: state, Notice: notice}
}

// StartTestAlarm presents and rings a demo alert with the shorter ceiling.
func (d *Dispatcher) StartTestAlarm(ctx context.Context) (Outcome, error) {
	id := schedule.NewAdHocID()
	entry := models.AlertEntry{
		ID:     id,
		FireAt: d.clock.Now(),
		Payload: models.AlertPayload{
			MedicationName:  "Test alarm",
			SnoozeLineageID: id,
			ShouldPlayAlarm: true,
			IsTest:          true,
		},
		Sound:     true,
		Priority:  constants.PriorityMax,
		Category:  constants.CategoryReminder,
		CreatedAt: d.clock.Now(),
	}
	if err := d.registry.Schedule(ctx, entry); err != nil {
		logger.Warn("Failed to schedule test alert", "id", id, "error", err)
	}

	d.setPayload(id, entry.Payload)
	d.setState(id, StatePresented)
	state := d.startAlarm(id, true)
	if state != StatePlaying {
		return Outcome{AlertID: id, State: state}, errors.New("test alarm could not start playback")
	}
	return Outcome{AlertID: id, State: state, Notice: "Test alarm started."}, nil
}

// StopAll silences every alarm without touching the registry.
func (d *Dispatcher) StopAll() int {
	d.mu.Lock()
	for id, s := range d.states {
		if s == StatePlaying {
			d.states[id] = StatePresented
		}
	}
	d.mu.Unlock()
	d.watcher.DisarmAll()
	return d.pool.StopAll()
}

// ForgetMedication silences every alert of medicationID, including snoozes
// still waiting on their delay, and returns the affected ids.
func (d *Dispatcher) ForgetMedication(medicationID string) []string {
	if medicationID == "" {
		return nil
	}

	d.mu.Lock()
	var ids []string
	for id, p := range d.payloads {
		if p.MedicationID == medicationID {
			ids = append(ids, id)
		}
	}
	d.mu.Unlock()
	slices.Sort(ids)

	for _, id := range ids {
		d.silence(id)
		d.mu.Lock()
		delete(d.payloads, id)
		d.states[id] = StateAcknowledged
		d.mu.Unlock()
	}
	if len(ids) > 0 {
		logger.Info("Medication alerts forgotten", "medication", medicationID, "count", len(ids))
	}
	return ids
}

// Shutdown cancels pending snoozes and silences everything.
func (d *Dispatcher) Shutdown() {
	d.cancel()
	d.mu.Lock()
	for id, ps := range d.pending {
		ps.timer.Stop()
		delete(d.pending, id)
	}
	d.mu.Unlock()
	d.watcher.DisarmAll()
	d.pool.StopAll()
}

func (d *Dispatcher) startAlarm(id string, test bool) State {
	settings := d.currentSettings()
	ceiling := settings.AlarmCeiling
	if test {
		ceiling = settings.TestAlarmCeiling
	}

	if err := d.pool.Start(d.baseCtx, id, settings.SoundURI, ceiling); err != nil {
		logger.Warn("Failed to start alarm", "id", id, "error", err)
		return d.State(id)
	}
	d.setState(id, StatePlaying)
	d.watcher.Arm(d.baseCtx, id)
	return StatePlaying
}

// silence cancels a pending snooze, the watch and the playback for id.
func (d *Dispatcher) silence(id string) {
	d.mu.Lock()
	if ps, ok := d.pending[id]; ok {
		ps.timer.Stop()
		delete(d.pending, id)
	}
	d.mu.Unlock()

	d.watcher.Disarm(id)
	d.pool.Stop(id)
}

func (d *Dispatcher) cancelLineage(ctx context.Context, resp Response) {
	n, err := registry.CancelLineage(ctx, d.registry, resp.Payload.SnoozeLineageID, "")
	if err != nil {
		logger.Warn("Failed to cancel lineage", "lineage", resp.Payload.SnoozeLineageID, "error", err)
		return
	}
	if n > 0 {
		logger.Debug("Cancelled lineage entries", "lineage", resp.Payload.SnoozeLineageID, "count", n)
	}
}

func (d *Dispatcher) dismissEntry(ctx context.Context, id string) {
	if err := d.registry.Dismiss(ctx, id); err != nil {
		logger.Warn("Failed to dismiss alert", "id", id, "error", err)
	}
}

// dismissedFromTray is the watchdog's implicit stop. Only audio is torn down.
func (d *Dispatcher) dismissedFromTray(id string) {
	d.pool.Stop(id)
	d.mu.Lock()
	if d.states[id] == StatePlaying {
		d.states[id] = StateAcknowledged
	}
	d.mu.Unlock()
}

// expired is the alarm pool's ceiling hook.
func (d *Dispatcher) expired(id string) {
	d.watcher.Disarm(id)
	d.mu.Lock()
	if d.states[id] == StatePlaying {
		d.states[id] = StateExpired
	}
	d.mu.Unlock()
}

func (d *Dispatcher) notify(payload models.AlertPayload, message string) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.Notify(displayName(payload), message); err != nil {
		logger.Warn("Failed to surface notice", "error", err)
	}
}

func displayName(p models.AlertPayload) string {
	if p.MedicationName == "" {
		return "your medication"
	}
	return p.MedicationName
}

func formatDelay(d time.Duration) string {
	if d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}
