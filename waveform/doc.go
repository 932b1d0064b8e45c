// SPDX-License-Identifier: EPL-2.0

// Package waveform turns decoded PCM streams into downsampled amplitude
// arrays suitable for rendering a waveform.
//
// # Reduction
//
// The input is split into contiguous windows of SamplesPerPixel frames.
// Each window reduces to one point per channel: the peak magnitude (the
// maximum absolute sample value) inside the window. The output therefore
// has ceil(frames/SamplesPerPixel) points per channel, and reducing the
// same input with the same config always yields the same output.
//
// # Normalization
//
// With Normalize set, all channels are rescaled together so the global
// peak maps to Scale (default 1.0); channels keep their relative levels.
// Threshold zeroes magnitudes below it after rescaling. Without
// Normalize, raw peaks are clipped to [-1,1] and the threshold still
// applies.
//
// # Concurrency
//
// Large inputs are reduced in parallel: contiguous window ranges are
// submitted to a fixed-size Pool shared by all jobs, and the merge is by
// window index, never by completion order. Progress accumulates in an
// atomic counter and the callback fires at coarse steps, so callback
// overhead stays flat regardless of worker count. Cancellation is a
// cooperative atomic flag polled at window-range granularity.
//
//	ext := waveform.NewExtractor("wave1", decoders, pool)
//	ext.OnProgress(func(p float64) { fmt.Printf("%.0f%%\n", p*100) })
//	points, err := ext.Extract(ctx, waveform.Config{
//		Path:            "track.wav",
//		SamplesPerPixel: 256,
//		Normalize:       true,
//	})
package waveform
