// SPDX-License-Identifier: EPL-2.0

// Package wavekit is an audio-processing and instance-concurrency engine:
// parallel waveform extraction with progress and cancellation, per-instance
// playback and recording state machines, and a registry that runs up to 30
// isolated instances of each kind side by side.
//
// The Manager is the entry point. It owns the shared extraction worker
// pool, the device collaborators and the per-kind instance maps:
//
//	m := wavekit.NewManager(wavekit.Options{})
//	defer m.Shutdown()
//
//	ext, err := m.CreateExtractor("wave1")
//	if err != nil {
//		return err
//	}
//	ext.OnProgress(func(p float64) { fmt.Printf("%.0f%%\n", p*100) })
//	points, err := ext.Extract(ctx, waveform.Config{
//		Path:            "track.mp3",
//		SamplesPerPixel: 256,
//		Normalize:       true,
//	})
//
// Engines are independent packages usable without the Manager:
//
//   - waveform: decode → window-reduce → normalize, parallel over a
//     shared pool, with monotonic progress and cooperative cancellation.
//   - player: prepared-clip playback with seek, volume, speed, loop and
//     finish callbacks.
//   - recorder: WAV capture with pause/resume and decibel metering.
//
// The device package is the boundary to the platform audio layer; the
// null implementations there make everything runnable headless, and
// device/malgo plugs in real hardware through miniaudio.
//
// Decoding is format-pluggable through audio.Registry; the formats
// subpackages cover WAV, MP3, Ogg Vorbis and AIFF.
package wavekit
