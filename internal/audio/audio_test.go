package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/julianstephens/medalert/internal/constants"
)

func buildWAV(t *testing.T, channels, sampleRate, bits int, samples []int16) []byte {
	t.Helper()
	var data bytes.Buffer
	for _, s := range samples {
		_ = binary.Write(&data, binary.LittleEndian, s)
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+data.Len()))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*channels*bits/8))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels*bits/8))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bits))
	// an unknown chunk with odd size must be skipped with padding
	buf.WriteString("LIST")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(3))
	buf.Write([]byte{1, 2, 3, 0})
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(data.Len()))
	buf.Write(data.Bytes())
	return buf.Bytes()
}

func TestParseWAV(t *testing.T) {
	wav := buildWAV(t, 1, outputSampleRate, 16, []int16{1, -1, 100})

	format, samples, err := parseWAV(wav)
	if err != nil {
		t.Fatalf("parseWAV() error = %v", err)
	}
	if format.Channels != 1 || format.SampleRate != outputSampleRate || format.BitDepth != 16 || format.AudioFormat != 1 {
		t.Errorf("unexpected format %+v", format)
	}
	if len(samples) != 6 {
		t.Errorf("expected 6 bytes of samples, got %d", len(samples))
	}
}

func TestParseWAV_Rejects(t *testing.T) {
	tests := map[string][]byte{
		"empty":    nil,
		"not riff": []byte("JUNKxxxxWAVEfmt "),
		"no data":  append([]byte("RIFF\x04\x00\x00\x00WAVE"), []byte{}...),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, _, err := parseWAV(data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestToOutputFormat(t *testing.T) {
	t.Run("mono is duplicated to stereo", func(t *testing.T) {
		format := &wavFormat{AudioFormat: 1, SampleRate: outputSampleRate, Channels: 1, BitDepth: 16}
		out, err := toOutputFormat(format, []byte{0x01, 0x02})
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(out, []byte{0x01, 0x02, 0x01, 0x02}) {
			t.Errorf("got %v", out)
		}
	})

	t.Run("wrong sample rate", func(t *testing.T) {
		format := &wavFormat{AudioFormat: 1, SampleRate: 8000, Channels: 1, BitDepth: 16}
		if _, err := toOutputFormat(format, nil); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
	})

	t.Run("8 bit", func(t *testing.T) {
		format := &wavFormat{AudioFormat: 1, SampleRate: outputSampleRate, Channels: 1, BitDepth: 8}
		if _, err := toOutputFormat(format, nil); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
	})
}

func TestSynthesizeBeep(t *testing.T) {
	pcm := synthesizeBeep()
	frames := len(pcm) / (outputChannels * bytesPerSample)
	want := int(0.25*outputSampleRate)*2 + int(0.15*outputSampleRate) + int(0.6*outputSampleRate)
	if frames != want {
		t.Errorf("expected %d frames, got %d", want, frames)
	}
	if bytes.Count(pcm, []byte{0}) == len(pcm) {
		t.Error("beep should not be silent")
	}
}

func TestCheckSound(t *testing.T) {
	if err := CheckSound(constants.BuiltinSoundURI); err != nil {
		t.Errorf("builtin sound should load: %v", err)
	}
	if err := CheckSound(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("missing file should fail")
	}

	path := filepath.Join(t.TempDir(), "alarm.wav")
	if err := os.WriteFile(path, buildWAV(t, 2, outputSampleRate, 16, []int16{1, 2, 3, 4}), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CheckSound("file://" + path); err != nil {
		t.Errorf("valid wav should load: %v", err)
	}
}

func TestSilentPlayer(t *testing.T) {
	p := NewSilentPlayer()
	h, err := p.CreateLoopingPlayer(context.Background(), "builtin:beep")
	if err != nil {
		t.Fatal(err)
	}
	if !h.IsLoaded() || p.Playing() != 1 {
		t.Fatal("new handle should be loaded and playing")
	}
	if err := h.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := h.Unload(); err != nil {
		t.Errorf("Unload() error = %v", err)
	}
	if err := h.Unload(); !errors.Is(err, ErrUnloaded) {
		t.Errorf("second Unload() should return ErrUnloaded, got %v", err)
	}
	if h.IsLoaded() {
		t.Error("handle should be unloaded")
	}
}

func TestFallbackPlayer(t *testing.T) {
	primary := NewSilentPlayer()
	primary.FailWith(errors.New("no audio device"))
	fallback := NewSilentPlayer()

	p := NewFallbackPlayer(primary, fallback)
	for i := 0; i < 2; i++ {
		h, err := p.CreateLoopingPlayer(context.Background(), "builtin:beep")
		if err != nil {
			t.Fatalf("fallback should absorb the failure: %v", err)
		}
		if h == nil {
			t.Fatal("expected handle")
		}
	}
	if fallback.Created() != 2 {
		t.Errorf("expected 2 fallback handles, got %d", fallback.Created())
	}
}
