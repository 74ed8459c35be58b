package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/julianstephens/medalert/internal/models"
)

// Memory is an in-process Registry. Present and Clear stand in for the OS
// delivering an alert and the user swiping it away.
type Memory struct {
	mu        sync.Mutex
	scheduled map[string]models.AlertEntry
	presented map[string]models.AlertEntry
}

func NewMemory() *Memory {
	return &Memory{
		scheduled: make(map[string]models.AlertEntry),
		presented: make(map[string]models.AlertEntry),
	}
}

func (m *Memory) Schedule(_ context.Context, entry models.AlertEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.presented, entry.ID)
	m.scheduled[entry.ID] = entry
	return nil
}

func (m *Memory) Cancel(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scheduled, id)
	return nil
}

func (m *Memory) ListScheduled(_ context.Context) ([]models.AlertEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AlertEntry, 0, len(m.scheduled))
	for _, e := range m.scheduled {
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

func (m *Memory) ListPresented(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.presented))
	for id := range m.presented {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) Dismiss(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.presented, id)
	return nil
}

// Present moves a scheduled entry into the presented set.
func (m *Memory) Present(id string) (models.AlertEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.scheduled[id]
	if !ok {
		return models.AlertEntry{}, false
	}
	delete(m.scheduled, id)
	m.presented[id] = e
	return e, true
}

// Due presents every scheduled entry whose fire instant is not after now.
func (m *Memory) Due(now time.Time) []models.AlertEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []models.AlertEntry
	for id, e := range m.scheduled {
		if e.FireAt.After(now) {
			continue
		}
		delete(m.scheduled, id)
		m.presented[id] = e
		due = append(due, e)
	}
	sortEntries(due)
	return due
}

// Clear removes a presented alert, as a tray swipe would. It reports
// whether id was presented.
func (m *Memory) Clear(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.presented[id]
	delete(m.presented, id)
	return ok
}

// Presented returns the entry shown under id.
func (m *Memory) Presented(id string) (models.AlertEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.presented[id]
	return e, ok
}

// Get returns the scheduled entry for id.
func (m *Memory) Get(id string) (models.AlertEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.scheduled[id]
	return e, ok
}

func sortEntries(entries []models.AlertEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].FireAt.Equal(entries[j].FireAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].FireAt.Before(entries[j].FireAt)
	})
}
