package audio

import (
	"context"
	"sync"

	"github.com/julianstephens/medalert/internal/logger"
)

// FallbackPlayer uses primary and switches to fallback for a playback that
// primary cannot start. The first failure is logged once.
type FallbackPlayer struct {
	primary  Player
	fallback Player
	warned   sync.Once
}

func NewFallbackPlayer(primary, fallback Player) *FallbackPlayer {
	return &FallbackPlayer{primary: primary, fallback: fallback}
}

// NewDefaultPlayer returns the system audio backend, silenced when no device is present.
func NewDefaultPlayer(silent bool) Player {
	if silent {
		return NewSilentPlayer()
	}
	return NewFallbackPlayer(NewOtoPlayer(), NewSilentPlayer())
}

func (p *FallbackPlayer) CreateLoopingPlayer(ctx context.Context, uri string) (Handle, error) {
	h, err := p.primary.CreateLoopingPlayer(ctx, uri)
	if err == nil {
		return h, nil
	}
	p.warned.Do(func() {
		logger.Warn("Audio playback unavailable, alarms will be silent", "error", err)
	})
	return p.fallback.CreateLoopingPlayer(ctx, uri)
}
