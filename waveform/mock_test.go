// SPDX-License-Identifier: EPL-2.0

package waveform

import (
	"io"
	"time"

	"github.com/wavekit/wavekit/audio"
)

// fakeSource generates deterministic samples, optionally pausing between
// reads so tests can observe an extraction while it is still in flight.
type fakeSource struct {
	sampleRate int
	channels   int
	frames     int
	generated  int
	delay      time.Duration
	value      func(frame, channel int) float32
}

func (s *fakeSource) SampleRate() int { return s.sampleRate }
func (s *fakeSource) Channels() int   { return s.channels }
func (s *fakeSource) BufSize() int    { return 256 }
func (s *fakeSource) Close() error    { return nil }

func (s *fakeSource) ReadSamples(dst []float32) (int, error) {
	if s.generated >= s.frames {
		return 0, io.EOF
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	frames := len(dst) / s.channels
	if left := s.frames - s.generated; frames > left {
		frames = left
	}
	for f := range frames {
		for c := range s.channels {
			dst[f*s.channels+c] = s.value(s.generated+f, c)
		}
	}
	s.generated += frames

	if s.generated >= s.frames {
		return frames * s.channels, io.EOF
	}
	return frames * s.channels, nil
}

// fakeDecoder ignores the reader and produces a fresh fakeSource per call.
type fakeDecoder struct {
	sampleRate int
	channels   int
	frames     int
	delay      time.Duration
	value      func(frame, channel int) float32
}

func (d fakeDecoder) Decode(io.Reader) (audio.Source, error) {
	value := d.value
	if value == nil {
		value = func(frame, _ int) float32 { return float32(frame%100) / 100 }
	}
	return &fakeSource{
		sampleRate: d.sampleRate,
		channels:   d.channels,
		frames:     d.frames,
		delay:      d.delay,
		value:      value,
	}, nil
}

// failingDecoder simulates a recognized container that cannot be read.
type failingDecoder struct {
	err error
}

func (d failingDecoder) Decode(io.Reader) (audio.Source, error) {
	return nil, d.err
}
