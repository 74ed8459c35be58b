package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	outputSampleRate = 44100
	outputChannels   = 2
	bytesPerSample   = 2
)

// wavFormat holds WAV file format information
type wavFormat struct {
	AudioFormat int
	SampleRate  int
	Channels    int
	BitDepth    int
}

// parseWAV parses a RIFF/WAVE file and returns the format and raw sample data
func parseWAV(data []byte) (*wavFormat, []byte, error) {
	reader := bytes.NewReader(data)

	header := make([]byte, 12)
	if _, err := io.ReadFull(reader, header); err != nil {
		return nil, nil, fmt.Errorf("%w: short header", ErrUnsupportedFormat)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, nil, fmt.Errorf("%w: not a RIFF/WAVE file", ErrUnsupportedFormat)
	}

	var format *wavFormat
	for {
		chunkID := make([]byte, 4)
		if _, err := io.ReadFull(reader, chunkID); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, err
		}

		var chunkSize uint32
		if err := binary.Read(reader, binary.LittleEndian, &chunkSize); err != nil {
			return nil, nil, err
		}

		switch string(chunkID) {
		case "fmt ":
			if chunkSize < 16 {
				return nil, nil, fmt.Errorf("%w: fmt chunk too small", ErrUnsupportedFormat)
			}
			var raw struct {
				AudioFormat   uint16
				NumChannels   uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if err := binary.Read(reader, binary.LittleEndian, &raw); err != nil {
				return nil, nil, err
			}
			format = &wavFormat{
				AudioFormat: int(raw.AudioFormat),
				SampleRate:  int(raw.SampleRate),
				Channels:    int(raw.NumChannels),
				BitDepth:    int(raw.BitsPerSample),
			}
			if _, err := reader.Seek(int64(chunkSize-16), io.SeekCurrent); err != nil {
				return nil, nil, err
			}
		case "data":
			if format == nil {
				return nil, nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrUnsupportedFormat)
			}
			size := int64(chunkSize)
			if remaining := int64(reader.Len()); size > remaining {
				size = remaining
			}
			samples := make([]byte, size)
			if _, err := io.ReadFull(reader, samples); err != nil {
				return nil, nil, err
			}
			return format, samples, nil
		default:
			// chunks are word aligned
			skip := int64(chunkSize) + int64(chunkSize%2)
			if _, err := reader.Seek(skip, io.SeekCurrent); err != nil {
				return nil, nil, err
			}
		}
	}

	return nil, nil, fmt.Errorf("%w: no data chunk", ErrUnsupportedFormat)
}

// toOutputFormat converts 16-bit PCM to the stereo output layout.
func toOutputFormat(format *wavFormat, samples []byte) ([]byte, error) {
	if format.AudioFormat != 1 || format.BitDepth != 16 {
		return nil, fmt.Errorf("%w: only 16-bit PCM is supported (format %d, %d bits)", ErrUnsupportedFormat, format.AudioFormat, format.BitDepth)
	}
	if format.SampleRate != outputSampleRate {
		return nil, fmt.Errorf("%w: sample rate %d Hz (want %d Hz)", ErrUnsupportedFormat, format.SampleRate, outputSampleRate)
	}

	switch format.Channels {
	case 2:
		return samples[:len(samples)-len(samples)%4], nil
	case 1:
		n := len(samples) / bytesPerSample
		out := make([]byte, 0, n*outputChannels*bytesPerSample)
		for i := 0; i < n; i++ {
			s := samples[i*2 : i*2+2]
			out = append(out, s[0], s[1], s[0], s[1])
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, format.Channels)
	}
}

// synthesizeBeep renders the built-in alarm: two short 880 Hz tones then a pause.
func synthesizeBeep() []byte {
	const (
		freq      = 880.0
		amplitude = 0.8 * math.MaxInt16
	)
	segments := []struct {
		seconds float64
		tone    bool
	}{
		{0.25, true},
		{0.15, false},
		{0.25, true},
		{0.6, false},
	}

	var buf bytes.Buffer
	frame := make([]byte, outputChannels*bytesPerSample)
	n := 0
	for _, seg := range segments {
		frames := int(seg.seconds * outputSampleRate)
		for i := 0; i < frames; i++ {
			var v int16
			if seg.tone {
				v = int16(amplitude * math.Sin(2*math.Pi*freq*float64(n)/outputSampleRate))
			}
			binary.LittleEndian.PutUint16(frame[0:2], uint16(v))
			binary.LittleEndian.PutUint16(frame[2:4], uint16(v))
			buf.Write(frame)
			n++
		}
	}
	return buf.Bytes()
}
