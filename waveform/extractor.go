// SPDX-License-Identifier: EPL-2.0

package waveform

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/wavekit/wavekit/audio"
	"github.com/wavekit/wavekit/dispatch"
	"github.com/wavekit/wavekit/utils"
)

// Config describes one extraction job.
type Config struct {
	// Path of the audio file. The decoder is selected by extension from
	// the registry the extractor was built with.
	Path string

	// SamplesPerPixel is the window size: how many source frames reduce
	// to one output point. Must be >= 1.
	SamplesPerPixel int

	// Normalize rescales the output so the global peak maps to Scale.
	Normalize bool

	// Scale is the normalization target; 0 defaults to 1.0, other values
	// must be positive.
	Scale float32

	// Threshold in [0,1] zeroes output magnitudes below it, applied
	// after normalization.
	Threshold float32

	// Mono collapses multi-channel input to one averaged channel before
	// reduction, producing a single output channel.
	Mono bool

	// MaxSamples bounds the decode allocation; 0 selects
	// audio.DefaultMaxSamples.
	MaxSamples int
}

func (c Config) withDefaults() (Config, error) {
	if c.Scale == 0 {
		c.Scale = 1.0
	}

	switch {
	case c.Path == "":
		return c, fmt.Errorf("waveform: empty path: %w", audio.ErrInvalidArgument)
	case c.SamplesPerPixel < 1:
		return c, fmt.Errorf("waveform: samplesPerPixel %d: %w", c.SamplesPerPixel, audio.ErrInvalidArgument)
	case c.Scale <= 0:
		return c, fmt.Errorf("waveform: scale %v: %w", c.Scale, audio.ErrInvalidArgument)
	case c.Threshold < 0 || c.Threshold > 1:
		return c, fmt.Errorf("waveform: threshold %v: %w", c.Threshold, audio.ErrInvalidArgument)
	}
	return c, nil
}

// Extractor runs waveform extraction jobs for one registry instance.
//
// One job is active at a time; a second Extract while one is in flight
// fails with audio.ErrBusy. Progress and cancellation state are atomic,
// so Progress and Cancel never block on a running job.
type Extractor struct {
	key      string
	decoders *audio.Registry
	pool     *Pool

	active     atomic.Bool
	cancel     atomic.Bool
	progress   utils.AtomicFloat64
	onProgress dispatch.Handler[float64]
}

// NewExtractor returns an extractor using the given decoder registry and
// shared worker pool. A nil pool keeps every job single-threaded.
func NewExtractor(key string, decoders *audio.Registry, pool *Pool) *Extractor {
	return &Extractor{
		key:      key,
		decoders: decoders,
		pool:     pool,
	}
}

// Key returns the caller-chosen instance key.
func (e *Extractor) Key() string { return e.key }

// OnProgress registers the progress callback, replacing any previous one.
func (e *Extractor) OnProgress(fn func(float64)) { e.onProgress.Set(fn) }

// ClearOnProgress removes the progress callback.
func (e *Extractor) ClearOnProgress() { e.onProgress.Clear() }

// Progress returns the current fractional progress in [0,1].
// It is a lock-free read and never blocks a running job.
func (e *Extractor) Progress() float64 { return e.progress.Load() }

// Cancel requests cooperative cancellation of the in-flight extraction.
// It returns immediately; the job resolves to audio.ErrCancelled within
// one window-range poll. Calling Cancel with no job in flight is a no-op:
// the flag is reset when the next job starts.
func (e *Extractor) Cancel() { e.cancel.Store(true) }

// Busy reports whether an extraction is currently in flight.
func (e *Extractor) Busy() bool { return e.active.Load() }

// Extract decodes cfg.Path and reduces it to per-channel peak columns.
//
// Progress is reported through the OnProgress callback at bounded
// granularity and through Progress(); the final value on success is
// exactly 1.0. Cancelling via Cancel or ctx discards partial results and
// resolves the call to audio.ErrCancelled. Every failure leaves the
// extractor idle and ready for a fresh Extract.
func (e *Extractor) Extract(ctx context.Context, cfg Config) ([][]float32, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	if !e.active.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("waveform: extractor %q: %w", e.key, audio.ErrBusy)
	}
	defer e.active.Store(false)

	e.cancel.Store(false)
	e.progress.Store(0)

	stop := context.AfterFunc(ctx, func() { e.cancel.Store(true) })
	defer stop()

	src, cleanup, err := e.open(cfg.Path)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	var s audio.Source = src
	if cfg.Mono && src.Channels() > 1 {
		s = audio.NewMonoMixer(src)
	}
	channels := s.Channels()

	data, err := audio.ReadAll(s, cfg.MaxSamples)
	if err != nil {
		if errors.Is(err, audio.ErrOutOfMemory) {
			return nil, err
		}
		return nil, fmt.Errorf("waveform: decode %s: %w: %w", cfg.Path, audio.ErrCorruptedFile, err)
	}

	points, err := Process(data, channels, cfg.SamplesPerPixel, ProcessOptions{
		Pool:   e.pool,
		Cancel: &e.cancel,
		OnProgress: func(p float64) {
			e.progress.Store(p)
			e.onProgress.Invoke(p)
		},
	})
	if err != nil {
		return nil, err
	}

	if cfg.Normalize {
		Normalize(points, cfg.Scale, cfg.Threshold)
	} else {
		clampFloor(points, cfg.Threshold)
	}
	return points, nil
}

func (e *Extractor) open(path string) (audio.Source, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("waveform: %s: %w", path, audio.ErrFileNotFound)
		}
		return nil, nil, fmt.Errorf("waveform: open %s: %w", path, err)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	dec, ok := e.decoders.Get(format)
	if !ok {
		f.Close()
		return nil, nil, fmt.Errorf("waveform: format %q: %w", format, audio.ErrUnsupportedFormat)
	}

	src, err := dec.Decode(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("waveform: decode %s: %w: %w", path, audio.ErrCorruptedFile, err)
	}

	cleanup := func() {
		src.Close()
		f.Close()
	}
	return src, cleanup, nil
}
