// SPDX-License-Identifier: EPL-2.0

// Package recorder implements per-instance audio capture with live level
// metering. The state machine is Idle → Recording ⇄ Paused → Idle.
//
// Captured buffers are appended to a 16-bit PCM WAV file through
// go-audio/wav. Pause gates the file writes, not the capture session:
// the metering loop keeps its cadence during pause and reports
// near-silent values, so a decibel-driven UI never freezes.
//
//	r := recorder.NewRecorder("r1", capturer, permissions, sessions)
//	r.OnDecibelUpdate(func(db float64) { meter.Set(db) })
//	if err := r.Start(ctx, recorder.Config{}); err != nil {
//		return err
//	}
//	// ...
//	path, err := r.Stop()
//
// Decibel readings use one of two normalization modes fixed at Start:
// peak (20*log10 of the last buffer's peak magnitude) or the legacy
// average (10*log10 of the mean square), both clamped to [-160, 0].
package recorder
