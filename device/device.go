// SPDX-License-Identifier: EPL-2.0

// Package device declares the boundary between the engines and the
// platform audio layer: output rendering, input capture, the recording
// permission subsystem, and the OS audio session manager.
//
// The engines only ever see these interfaces. Production code plugs in the
// miniaudio-backed implementations from device/malgo; tests and headless
// environments use the clock-driven null implementations in this package.
package device

import "context"

// PullFunc fills dst with interleaved float32 frames for rendering and
// returns the number of samples written. A short return means the source
// drained mid-buffer; the renderer zero-fills the remainder.
type PullFunc func(dst []float32) int

// DeliverFunc hands a buffer of captured interleaved float32 samples to
// the engine. The buffer is only valid for the duration of the call.
type DeliverFunc func(buf []float32)

// RenderSession is one open playback stream on an output device.
type RenderSession interface {
	// Start begins (or resumes) pulling audio from the engine.
	Start() error
	// Stop halts pulling without releasing the stream.
	Stop() error
	// Close releases the stream. The session must not be reused.
	Close() error
}

// Renderer opens playback sessions. One engine instance owns one session.
type Renderer interface {
	OpenPlayback(sampleRate, channels int, pull PullFunc) (RenderSession, error)
}

// CaptureSession is one open capture stream on an input device.
// Samples flow through the DeliverFunc passed at open time until Close.
type CaptureSession interface {
	Close() error
}

// Capturer opens capture sessions.
type Capturer interface {
	OpenCapture(sampleRate, channels int, deliver DeliverFunc) (CaptureSession, error)
}

// Permission is the state of the recording permission.
type Permission int

const (
	PermissionUndetermined Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "undetermined"
	}
}

// PermissionService exposes the OS recording-permission subsystem.
type PermissionService interface {
	// Status returns the current permission state without prompting.
	Status() Permission
	// Request runs the permission prompt flow and returns the outcome.
	Request(ctx context.Context) (Permission, error)
}

// StaticPermission is a PermissionService that always reports a fixed
// state. Useful for tests and for platforms without a permission model.
type StaticPermission Permission

func (s StaticPermission) Status() Permission { return Permission(s) }

func (s StaticPermission) Request(context.Context) (Permission, error) {
	return Permission(s), nil
}
