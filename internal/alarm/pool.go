// Package alarm owns the live alarm playbacks, at most one per alert id.
package alarm

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/julianstephens/medalert/internal/audio"
	"github.com/julianstephens/medalert/internal/logger"
)

// Pool maps alert ids to their looping playback and auto-stops each one at
// its ceiling.
type Pool struct {
	player   audio.Player
	clock    clockwork.Clock
	onExpire func(id string)

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	id        string
	handle    audio.Handle
	timer     clockwork.Timer
	startedAt time.Time
}

// Option configures a Pool.
type Option func(*Pool)

// WithClock sets the clock used for ceiling timers.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pool) { p.clock = c }
}

// WithExpireHook registers fn to run after a playback is stopped by its ceiling.
func WithExpireHook(fn func(id string)) Option {
	return func(p *Pool) { p.onExpire = fn }
}

func NewPool(player audio.Player, opts ...Option) *Pool {
	p := &Pool{
		player: player,
		clock:  clockwork.NewRealClock(),
		slots:  make(map[string]*slot),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start tears down any playback for id, then starts a new one that stops
// itself after ceiling.
func (p *Pool) Start(ctx context.Context, id, uri string, ceiling time.Duration) error {
	p.Stop(id)

	handle, err := p.player.CreateLoopingPlayer(ctx, uri)
	if err != nil {
		return err
	}

	s := &slot{id: id, handle: handle, startedAt: p.clock.Now()}

	p.mu.Lock()
	// a concurrent Start for the same id may have registered in between
	prev := p.slots[id]
	p.slots[id] = s
	s.timer = p.clock.AfterFunc(ceiling, func() { p.expire(s) })
	p.mu.Unlock()

	if prev != nil {
		release(prev)
	}
	logger.Debug("Alarm started", "id", id, "ceiling", ceiling)
	return nil
}

// Stop tears down the playback for id. It reports whether one was live.
func (p *Pool) Stop(id string) bool {
	p.mu.Lock()
	s, ok := p.slots[id]
	if ok {
		delete(p.slots, id)
	}
	p.mu.Unlock()

	if !ok {
		return false
	}
	release(s)
	logger.Debug("Alarm stopped", "id", id, "played", p.clock.Since(s.startedAt))
	return true
}

// StopAll tears down every playback and returns how many were live.
func (p *Pool) StopAll() int {
	p.mu.Lock()
	slots := p.slots
	p.slots = make(map[string]*slot)
	p.mu.Unlock()

	for _, s := range slots {
		release(s)
	}
	return len(slots)
}

// IsPlaying reports whether a playback is registered for id.
func (p *Pool) IsPlaying(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.slots[id]
	return ok
}

// Active returns the ids with a live playback, sorted.
func (p *Pool) Active() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.slots))
	for id := range p.slots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// expire runs on the ceiling timer. A stale timer whose slot was replaced
// or stopped does nothing.
func (p *Pool) expire(s *slot) {
	p.mu.Lock()
	if p.slots[s.id] != s {
		p.mu.Unlock()
		return
	}
	delete(p.slots, s.id)
	p.mu.Unlock()

	release(s)
	logger.Info("Alarm reached its ceiling", "id", s.id)
	if p.onExpire != nil {
		p.onExpire(s.id)
	}
}

// release stops and unloads a playback. Failures are logged, never returned.
func release(s *slot) {
	if s.timer != nil {
		s.timer.Stop()
	}
	if !s.handle.IsLoaded() {
		return
	}
	if err := s.handle.Stop(); err != nil {
		logger.Debug("Failed to stop alarm", "id", s.id, "error", err)
	}
	if err := s.handle.Unload(); err != nil {
		logger.Debug("Failed to unload alarm", "id", s.id, "error", err)
	}
}
