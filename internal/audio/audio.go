// Package audio provides looping alarm playback.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/julianstephens/medalert/internal/constants"
)

var (
	// ErrUnloaded is returned when a handle is used after Unload.
	ErrUnloaded = errors.New("audio handle already unloaded")
	// ErrUnsupportedFormat is returned for sounds the backend cannot play.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// Handle is one live looping playback.
type Handle interface {
	Stop() error
	Unload() error
	IsLoaded() bool
}

// Player creates looping playbacks. Playback starts immediately at full volume.
type Player interface {
	CreateLoopingPlayer(ctx context.Context, uri string) (Handle, error)
}

// soundCache keeps decoded PCM per sound uri.
type soundCache struct {
	mu     sync.Mutex
	sounds map[string][]byte
}

func newSoundCache() *soundCache {
	return &soundCache{sounds: make(map[string][]byte)}
}

// load returns interleaved 16-bit stereo PCM at the backend sample rate.
func (c *soundCache) load(uri string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pcm, ok := c.sounds[uri]; ok {
		return pcm, nil
	}

	var pcm []byte
	if uri == "" || uri == constants.BuiltinSoundURI {
		pcm = synthesizeBeep()
	} else {
		data, err := os.ReadFile(strings.TrimPrefix(uri, "file://"))
		if err != nil {
			return nil, fmt.Errorf("failed to read sound %s: %w", uri, err)
		}
		format, samples, err := parseWAV(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse sound %s: %w", uri, err)
		}
		pcm, err = toOutputFormat(format, samples)
		if err != nil {
			return nil, fmt.Errorf("sound %s: %w", uri, err)
		}
	}

	c.sounds[uri] = pcm
	return pcm, nil
}

// CheckSound verifies that uri can be decoded without starting playback.
func CheckSound(uri string) error {
	_, err := newSoundCache().load(uri)
	return err
}
