// SPDX-License-Identifier: EPL-2.0

package waveform

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/wavekit/wavekit/audio"
)

const (
	// cancelCheckWindows is how many windows a worker reduces between
	// cancellation-flag polls. It bounds cancellation latency to one
	// poll interval of work per worker.
	cancelCheckWindows = 100

	// minParallelWindows is the input size below which processing stays
	// single-threaded; splitting tiny jobs costs more than it saves.
	minParallelWindows = 2048
)

// ProcessOptions carries the optional collaborators of Process.
type ProcessOptions struct {
	// Pool enables parallel reduction when the input is large enough.
	// Nil keeps processing on the calling goroutine.
	Pool *Pool

	// OnProgress, when set, receives fractional progress in [0,1] at a
	// bounded granularity (not per window). The final value on success
	// is exactly 1.0. Nothing is emitted after cancellation.
	OnProgress func(float64)

	// Cancel, when set, is polled at window-range granularity; once true
	// the reduction stops and Process returns audio.ErrCancelled.
	Cancel *atomic.Bool
}

// Process reduces interleaved PCM samples into per-channel peak columns.
//
// The stream is partitioned into contiguous windows of samplesPerPixel
// frames; each window yields one output point per channel: the maximum
// absolute sample value inside the window. The result has
// ceil(frames/samplesPerPixel) points per channel, so an input shorter
// than one window still produces exactly one point. Output ordering is by
// window index regardless of which worker reduced it, and a given input
// always reduces to the same output.
func Process(data []float32, channels, samplesPerPixel int, opts ProcessOptions) ([][]float32, error) {
	if channels < 1 {
		return nil, fmt.Errorf("waveform: %d channels: %w", channels, audio.ErrInvalidArgument)
	}
	if samplesPerPixel < 1 {
		return nil, fmt.Errorf("waveform: samplesPerPixel %d: %w", samplesPerPixel, audio.ErrInvalidArgument)
	}

	frames := len(data) / channels
	if len(data)%channels != 0 {
		// Tolerate a truncated trailing frame rather than dropping it.
		frames++
	}
	var windows int
	if frames > 0 {
		windows = (frames + samplesPerPixel - 1) / samplesPerPixel
	}

	out := make([][]float32, channels)
	for c := range out {
		out[c] = make([]float32, windows)
	}

	rep := &reporter{total: windows, cb: opts.OnProgress, cancel: opts.Cancel}
	if windows == 0 {
		rep.report(0)
		return out, nil
	}

	if isCancelled(opts.Cancel) {
		return nil, fmt.Errorf("waveform: %w", audio.ErrCancelled)
	}

	if opts.Pool == nil || windows < minParallelWindows {
		if err := reduceRange(data, channels, samplesPerPixel, out, 0, windows, opts.Cancel, nil, rep, windows/10); err != nil {
			return nil, err
		}
	} else {
		if err := reduceParallel(data, channels, samplesPerPixel, out, opts, rep, windows); err != nil {
			return nil, err
		}
	}

	if isCancelled(opts.Cancel) {
		return nil, fmt.Errorf("waveform: %w", audio.ErrCancelled)
	}

	rep.report(windows)
	return out, nil
}

func reduceParallel(data []float32, channels, samplesPerPixel int, out [][]float32, opts ProcessOptions, rep *reporter, windows int) error {
	ranges := opts.Pool.Workers()
	if ranges > windows {
		ranges = windows
	}
	perRange := (windows + ranges - 1) / ranges

	var wg sync.WaitGroup
	var done atomic.Int64
	step := windows / 20

	for r := range ranges {
		from := r * perRange
		to := min(from+perRange, windows)

		wg.Add(1)
		err := opts.Pool.Submit(func() {
			defer wg.Done()
			// Errors inside a range are impossible here: cancellation is
			// the only early exit and the caller re-checks the flag.
			_ = reduceRange(data, channels, samplesPerPixel, out, from, to, opts.Cancel, &done, rep, step)
		})
		if err != nil {
			wg.Done()
			// The pool closed under us: the job is being torn down. Flag
			// cancellation so queued ranges bail and no progress leaks
			// out, then wait for them before releasing the buffers.
			if opts.Cancel != nil {
				opts.Cancel.Store(true)
			}
			wg.Wait()
			return fmt.Errorf("waveform: pool closed: %w", audio.ErrCancelled)
		}
	}
	wg.Wait()
	return nil
}

// reduceRange reduces windows [from, to). With counter == nil it runs the
// single-threaded bookkeeping (local progress); otherwise the shared
// atomic counter accumulates completed windows across workers.
func reduceRange(data []float32, channels, samplesPerPixel int, out [][]float32, from, to int, cancel *atomic.Bool, counter *atomic.Int64, rep *reporter, step int) error {
	if step < 1 {
		step = 1
	}
	for w := from; w < to; w++ {
		if (w-from)%cancelCheckWindows == 0 && isCancelled(cancel) {
			return fmt.Errorf("waveform: %w", audio.ErrCancelled)
		}

		startFrame := w * samplesPerPixel
		limit := (startFrame + samplesPerPixel) * channels
		if limit > len(data) {
			limit = len(data)
		}
		for c := range channels {
			peak := float32(0)
			for i := startFrame*channels + c; i < limit; i += channels {
				v := data[i]
				if v < 0 {
					v = -v
				}
				if v > peak {
					peak = v
				}
			}
			out[c][w] = peak
		}

		var completed int
		if counter != nil {
			completed = int(counter.Add(1))
		} else {
			completed = w + 1
		}
		if completed%step == 0 {
			rep.report(completed)
		}
	}
	return nil
}

// Normalize rescales points in place so that the maximum magnitude across
// all channels maps to scale, preserving the channels' relative levels.
// Magnitudes below threshold are zeroed and excluded from the maximum.
// When nothing reaches the threshold the output is all zeros.
func Normalize(points [][]float32, scale, threshold float32) {
	var maxAmp float32
	for _, ch := range points {
		for _, v := range ch {
			if a := abs32(v); a >= threshold && a > maxAmp {
				maxAmp = a
			}
		}
	}

	for _, ch := range points {
		for i, v := range ch {
			if maxAmp == 0 || abs32(v) < threshold {
				ch[i] = 0
				continue
			}
			ch[i] = v / maxAmp * scale
		}
	}
}

// clampFloor clips raw reducer values to [-1,1] and zeroes magnitudes
// below threshold. Used when normalization is disabled.
func clampFloor(points [][]float32, threshold float32) {
	for _, ch := range points {
		for i, v := range ch {
			if abs32(v) < threshold {
				ch[i] = 0
				continue
			}
			if v > 1 {
				ch[i] = 1
			} else if v < -1 {
				ch[i] = -1
			}
		}
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func isCancelled(flag *atomic.Bool) bool {
	return flag != nil && flag.Load()
}

// reporter serializes progress callbacks and keeps them monotonically
// non-decreasing even when workers complete ranges out of order.
type reporter struct {
	total  int
	cb     func(float64)
	cancel *atomic.Bool

	mu  sync.Mutex
	max int
}

func (r *reporter) report(done int) {
	if r.cb == nil || isCancelled(r.cancel) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.total == 0 {
		r.cb(1.0)
		return
	}
	if done <= r.max {
		return
	}
	r.max = done
	r.cb(float64(done) / float64(r.total))
}
