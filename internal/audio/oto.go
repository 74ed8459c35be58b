package audio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/julianstephens/medalert/internal/logger"
)

// Global audio context singleton. oto allows one context per process.
var (
	globalAudioCtx     *oto.Context
	globalAudioCtxOnce sync.Once
	globalAudioCtxErr  error
)

func initAudioContext(ctx context.Context) error {
	globalAudioCtxOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   outputSampleRate,
			ChannelCount: outputChannels,
			Format:       oto.FormatSignedInt16LE,
		}

		otoCtx, readyChan, err := oto.NewContext(op)
		if err != nil {
			globalAudioCtxErr = fmt.Errorf("failed to initialize audio context: %w", err)
			return
		}

		// Wait for the hardware audio devices to be ready
		select {
		case <-readyChan:
		case <-ctx.Done():
			globalAudioCtxErr = fmt.Errorf("audio device not ready: %w", ctx.Err())
			return
		}

		globalAudioCtx = otoCtx
		logger.Debug("Audio context initialized")
	})
	return globalAudioCtxErr
}

// OtoPlayer plays alarms through the system audio device.
type OtoPlayer struct {
	sounds *soundCache
}

func NewOtoPlayer() *OtoPlayer {
	return &OtoPlayer{sounds: newSoundCache()}
}

// CreateLoopingPlayer starts looping uri at full volume.
func (p *OtoPlayer) CreateLoopingPlayer(ctx context.Context, uri string) (Handle, error) {
	pcm, err := p.sounds.load(uri)
	if err != nil {
		return nil, err
	}
	if err := initAudioContext(ctx); err != nil {
		return nil, err
	}

	l := &otoLoop{
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		loaded:   true,
	}
	go l.playLoop(pcm)
	return l, nil
}

type otoLoop struct {
	stopChan chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	player  *oto.Player
	stopped bool
	loaded  bool
}

func (l *otoLoop) playLoop(pcm []byte) {
	defer close(l.done)
	for {
		l.mu.Lock()
		if l.stopped {
			l.mu.Unlock()
			return
		}
		player := globalAudioCtx.NewPlayer(bytes.NewReader(pcm))
		player.SetVolume(1.0)
		l.player = player
		l.mu.Unlock()

		player.Play()

		ticker := time.NewTicker(10 * time.Millisecond)
		for player.IsPlaying() {
			select {
			case <-l.stopChan:
				ticker.Stop()
				player.Pause()
				if err := player.Close(); err != nil {
					logger.Debug("Failed to close audio player", "error", err)
				}
				return
			case <-ticker.C:
			}
		}
		ticker.Stop()

		if err := player.Close(); err != nil {
			logger.Debug("Failed to close audio player", "error", err)
		}

		select {
		case <-l.stopChan:
			return
		default:
		}
	}
}

func (l *otoLoop) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.loaded {
		return ErrUnloaded
	}
	if l.stopped {
		return nil
	}
	l.stopped = true
	close(l.stopChan)
	if l.player != nil {
		l.player.Pause()
	}
	return nil
}

// Unload stops playback and waits for the loop goroutine to release the device.
func (l *otoLoop) Unload() error {
	l.mu.Lock()
	if !l.loaded {
		l.mu.Unlock()
		return ErrUnloaded
	}
	l.loaded = false
	if !l.stopped {
		l.stopped = true
		close(l.stopChan)
	}
	l.mu.Unlock()

	select {
	case <-l.done:
	case <-time.After(time.Second):
		return fmt.Errorf("audio loop did not exit")
	}
	return nil
}

func (l *otoLoop) IsLoaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}
