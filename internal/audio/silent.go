package audio

import (
	"context"
	"sync"
	"sync/atomic"
)

// SilentPlayer tracks handles without producing sound. Used on hosts without
// an audio device and in tests.
type SilentPlayer struct {
	mu      sync.Mutex
	created atomic.Int64
	handles []*SilentHandle
	err     error
}

func NewSilentPlayer() *SilentPlayer {
	return &SilentPlayer{}
}

// FailWith makes subsequent CreateLoopingPlayer calls return err.
func (p *SilentPlayer) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *SilentPlayer) CreateLoopingPlayer(_ context.Context, uri string) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	h := &SilentHandle{URI: uri}
	h.playing.Store(true)
	h.loaded.Store(true)
	p.handles = append(p.handles, h)
	p.created.Add(1)
	return h, nil
}

// Created is the number of handles created so far.
func (p *SilentPlayer) Created() int {
	return int(p.created.Load())
}

// Handles returns every handle created so far, oldest first.
func (p *SilentPlayer) Handles() []*SilentHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*SilentHandle, len(p.handles))
	copy(out, p.handles)
	return out
}

// Playing counts handles that are still playing.
func (p *SilentPlayer) Playing() int {
	n := 0
	for _, h := range p.Handles() {
		if h.IsPlaying() {
			n++
		}
	}
	return n
}

// SilentHandle is the Handle returned by SilentPlayer.
type SilentHandle struct {
	URI     string
	playing atomic.Bool
	loaded  atomic.Bool
}

func (h *SilentHandle) Stop() error {
	if !h.loaded.Load() {
		return ErrUnloaded
	}
	h.playing.Store(false)
	return nil
}

func (h *SilentHandle) Unload() error {
	if !h.loaded.CompareAndSwap(true, false) {
		return ErrUnloaded
	}
	h.playing.Store(false)
	return nil
}

func (h *SilentHandle) IsLoaded() bool { return h.loaded.Load() }

func (h *SilentHandle) IsPlaying() bool { return h.playing.Load() }
