// Package tray is the local notification layer: a durable scheduler of alert
// entries plus the set of alerts currently presented to the user.
package tray

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/julianstephens/medalert/internal/constants"
	"github.com/julianstephens/medalert/internal/logger"
	"github.com/julianstephens/medalert/internal/models"
	"github.com/julianstephens/medalert/internal/registry"
	"github.com/julianstephens/medalert/internal/storage"
)

// DeliveryFunc is called after an entry fires and has been presented.
type DeliveryFunc func(ctx context.Context, entry models.AlertEntry)

// Notifier raises a desktop notification.
type Notifier interface {
	Notify(title, message string) error
}

type Tray struct {
	store    storage.AlertStore
	clock    clockwork.Clock
	notifier Notifier
	resync   time.Duration

	mu            sync.Mutex
	presented     map[string]models.AlertEntry
	armed         map[string]time.Time
	scheduler     gocron.Scheduler
	resyncJob     uuid.UUID
	baseCtx       context.Context
	onDeliver     DeliveryFunc
	notifications bool

	advisory sync.Once
}

var _ registry.Registry = (*Tray)(nil)

type Option func(*Tray)

func WithClock(c clockwork.Clock) Option {
	return func(t *Tray) { t.clock = c }
}

func WithNotifier(n Notifier) Option {
	return func(t *Tray) { t.notifier = n }
}

// WithResyncInterval sets how often armed jobs are reconciled with the store.
func WithResyncInterval(d time.Duration) Option {
	return func(t *Tray) { t.resync = d }
}

func WithNotifications(enabled bool) Option {
	return func(t *Tray) { t.notifications = enabled }
}

func New(store storage.AlertStore, opts ...Option) *Tray {
	t := &Tray{
		store:         store,
		clock:         clockwork.NewRealClock(),
		resync:        constants.DefaultResyncInterval,
		presented:     make(map[string]models.AlertEntry),
		armed:         make(map[string]time.Time),
		notifications: constants.DefaultNotificationsEnabled,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OnDeliver sets the handler run for every fired entry. Set it before Start.
func (t *Tray) OnDeliver(fn DeliveryFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDeliver = fn
}

func (t *Tray) SetNotificationsEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notifications = enabled
}

// Start arms every stored entry and begins firing them. Without Start the
// tray only reads and writes rows, which is how the CLI uses it.
func (t *Tray) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.scheduler != nil {
		t.mu.Unlock()
		return errors.New("tray already started")
	}
	s, err := gocron.NewScheduler(gocron.WithClock(t.clock))
	if err != nil {
		t.mu.Unlock()
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	t.scheduler = s
	t.baseCtx = ctx
	resync := t.resync
	t.mu.Unlock()

	if err := t.Resync(ctx); err != nil {
		_ = s.Shutdown()
		return err
	}

	job, err := s.NewJob(gocron.DurationJob(resync), t.resyncTask(ctx), resyncJobOptions()...)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("failed to register resync job: %w", err)
	}
	t.mu.Lock()
	t.resyncJob = job.ID()
	t.mu.Unlock()

	s.Start()
	logger.Info("Tray started", "resync", resync)
	return nil
}

// SetResyncInterval changes how often armed jobs are reconciled with the
// store. A running tray reschedules its resync job.
func (t *Tray) SetResyncInterval(d time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d <= 0 || d == t.resync {
		return nil
	}
	t.resync = d
	if t.scheduler == nil {
		return nil
	}
	if _, err := t.scheduler.Update(t.resyncJob, gocron.DurationJob(d), t.resyncTask(t.baseCtx), resyncJobOptions()...); err != nil {
		return fmt.Errorf("failed to update resync job: %w", err)
	}
	logger.Info("Resync interval changed", "resync", d)
	return nil
}

func (t *Tray) resyncTask(ctx context.Context) gocron.Task {
	return gocron.NewTask(func() {
		if err := t.Resync(ctx); err != nil {
			logger.Warn("Failed to resync alert jobs", "error", err)
		}
	})
}

func resyncJobOptions() []gocron.JobOption {
	return []gocron.JobOption{
		gocron.WithName("resync"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
}

// Shutdown stops firing entries. Stored rows are kept.
func (t *Tray) Shutdown() error {
	t.mu.Lock()
	s := t.scheduler
	t.scheduler = nil
	clear(t.armed)
	t.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.Shutdown()
}

func (t *Tray) Schedule(ctx context.Context, entry models.AlertEntry) error {
	if entry.ID == "" {
		return errors.New("alert entry requires an id")
	}
	if err := t.store.UpsertAlert(ctx, entry); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// a replaced alert is no longer the one on screen
	delete(t.presented, entry.ID)
	if t.scheduler != nil {
		return t.armLocked(entry.ID, entry.FireAt)
	}
	return nil
}

func (t *Tray) Cancel(ctx context.Context, id string) error {
	err := t.store.DeleteAlert(ctx, id)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.disarmLocked(id)
	return nil
}

func (t *Tray) ListScheduled(ctx context.Context) ([]models.AlertEntry, error) {
	return t.store.ListAlerts(ctx)
}

func (t *Tray) ListPresented(_ context.Context) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.presented))
	for id := range t.presented {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (t *Tray) Dismiss(_ context.Context, id string) error {
	t.Clear(id)
	return nil
}

// Clear removes id from the presented set, as when the user swipes the
// notification away. It reports whether id was presented.
func (t *Tray) Clear(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.presented[id]
	delete(t.presented, id)
	return ok
}

// Presented returns the entry shown under id.
func (t *Tray) Presented(id string) (models.AlertEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.presented[id]
	return entry, ok
}

// Armed returns the ids that currently have a pending job.
func (t *Tray) Armed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.armed))
	for id := range t.armed {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Resync arms jobs for rows written by other processes and disarms jobs
// whose rows are gone.
func (t *Tray) Resync(ctx context.Context) error {
	entries, err := t.store.ListAlerts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list alerts: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.scheduler == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.ID] = struct{}{}
		if at, ok := t.armed[e.ID]; ok && at.Equal(e.FireAt) {
			continue
		}
		if err := t.armLocked(e.ID, e.FireAt); err != nil {
			logger.Warn("Failed to arm alert", "id", e.ID, "error", err)
		}
	}
	for id := range t.armed {
		if _, ok := seen[id]; !ok {
			t.disarmLocked(id)
		}
	}
	return nil
}

func (t *Tray) armLocked(id string, fireAt time.Time) error {
	t.scheduler.RemoveByTags(id)

	start := gocron.OneTimeJobStartImmediately()
	if fireAt.After(t.clock.Now()) {
		start = gocron.OneTimeJobStartDateTime(fireAt)
	}

	newJob := func(start gocron.OneTimeJobStartAtOption) error {
		_, err := t.scheduler.NewJob(
			gocron.OneTimeJob(start),
			gocron.NewTask(t.fire, id, fireAt),
			gocron.WithTags(id),
			gocron.WithName("alert "+id),
		)
		return err
	}

	err := newJob(start)
	if errors.Is(err, gocron.ErrOneTimeJobStartDateTimePast) {
		// fireAt passed while arming
		err = newJob(gocron.OneTimeJobStartImmediately())
	}
	if err != nil {
		delete(t.armed, id)
		return fmt.Errorf("failed to arm alert %s: %w", id, err)
	}
	t.armed[id] = fireAt
	logger.Debug("Alert armed", "id", id, "fire_at", fireAt)
	return nil
}

func (t *Tray) disarmLocked(id string) {
	if t.scheduler != nil {
		t.scheduler.RemoveByTags(id)
	}
	delete(t.armed, id)
}

// fire presents the entry stored under id if it still targets fireAt.
func (t *Tray) fire(id string, fireAt time.Time) {
	t.mu.Lock()
	ctx := t.baseCtx
	if at, ok := t.armed[id]; !ok || !at.Equal(fireAt) {
		t.mu.Unlock()
		return
	}
	delete(t.armed, id)
	t.mu.Unlock()

	if ctx == nil || ctx.Err() != nil {
		return
	}

	entry, err := t.store.GetAlert(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Error("Failed to load alert", "id", id, "error", err)
		}
		return
	}
	if !entry.FireAt.Equal(fireAt) {
		// replaced by another process; resync will arm the new instant
		return
	}
	if err := t.store.DeleteAlert(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.Warn("Failed to remove fired alert", "id", id, "error", err)
	}

	t.mu.Lock()
	t.presented[id] = entry
	deliver := t.onDeliver
	notify := t.notifications && t.notifier != nil
	t.mu.Unlock()

	logger.Info("Alert presented", "id", id, "category", entry.Category)

	if notify {
		t.raise(entry)
	}
	if deliver != nil {
		deliver(ctx, entry)
	}
}

func (t *Tray) raise(entry models.AlertEntry) {
	if err := t.notifier.Notify(entry.Title(), entry.Body()); err != nil {
		t.advisory.Do(func() {
			logger.Warn("Desktop notifications are unavailable; alarms will still sound", "error", err)
		})
		logger.Debug("Notification failed", "id", entry.ID, "error", err)
	}
}
