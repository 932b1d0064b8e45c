// SPDX-License-Identifier: EPL-2.0

package player

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wavekit/wavekit/audio"
)

// Clip is a fully decoded audio resource: interleaved float32 PCM held in
// memory so seeking is an index move rather than a re-decode.
type Clip struct {
	data       []float32
	sampleRate int
	channels   int
}

// loadClip opens path, decodes it through the registry and collects the
// whole stream, resampling to targetRate when it differs from the file's
// native rate. maxSamples bounds the decode allocation (0 selects
// audio.DefaultMaxSamples).
func loadClip(decoders *audio.Registry, path string, targetRate, maxSamples int) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("player: %s: %w", path, audio.ErrFileNotFound)
		}
		return nil, fmt.Errorf("player: open %s: %w", path, err)
	}
	defer f.Close()

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	dec, ok := decoders.Get(format)
	if !ok {
		return nil, fmt.Errorf("player: format %q: %w", format, audio.ErrUnsupportedFormat)
	}

	src, err := dec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("player: decode %s: %w: %w", path, audio.ErrCorruptedFile, err)
	}
	defer src.Close()

	var s audio.Source = src
	if targetRate > 0 && targetRate != src.SampleRate() {
		s = audio.NewResampler(src, targetRate)
	}

	data, err := audio.ReadAll(s, maxSamples)
	if err != nil {
		if errors.Is(err, audio.ErrOutOfMemory) {
			return nil, err
		}
		return nil, fmt.Errorf("player: decode %s: %w: %w", path, audio.ErrCorruptedFile, err)
	}

	return &Clip{
		data:       data,
		sampleRate: s.SampleRate(),
		channels:   s.Channels(),
	}, nil
}

// SampleRate of the decoded PCM in Hz.
func (c *Clip) SampleRate() int { return c.sampleRate }

// Channels count of the decoded PCM.
func (c *Clip) Channels() int { return c.channels }

// Frames returns the number of sample frames in the clip.
func (c *Clip) Frames() int {
	if c.channels == 0 {
		return 0
	}
	return len(c.data) / c.channels
}

// Duration of the clip at its sample rate.
func (c *Clip) Duration() time.Duration {
	if c.sampleRate == 0 {
		return 0
	}
	return time.Duration(float64(c.Frames()) / float64(c.sampleRate) * float64(time.Second))
}

// DurationMs is Duration in whole milliseconds.
func (c *Clip) DurationMs() int64 { return c.Duration().Milliseconds() }

// frameToMs converts a fractional frame position to milliseconds.
func (c *Clip) frameToMs(frame float64) int64 {
	if c.sampleRate == 0 {
		return 0
	}
	return int64(frame / float64(c.sampleRate) * 1000)
}

// msToFrame converts a millisecond position to a frame index.
func (c *Clip) msToFrame(ms int64) float64 {
	return float64(ms) / 1000 * float64(c.sampleRate)
}
