// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

// Engine error taxonomy. Every failure returned by an engine wraps one of
// these sentinels, so callers can classify errors with errors.Is without
// knowing which component produced them.
var (
	// ErrInvalidArgument reports an out-of-range or malformed input value.
	// It is always detected before any native resource is touched.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrFileNotFound reports that the referenced audio file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrUnsupportedFormat reports that no decoder accepts the input.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrCorruptedFile reports that a decoder recognized the container but
	// failed while reading it.
	ErrCorruptedFile = errors.New("corrupted file")

	// ErrOutOfMemory reports that decoding would exceed the sample budget.
	ErrOutOfMemory = errors.New("sample budget exceeded")

	// ErrCancelled reports that an operation was cancelled cooperatively.
	ErrCancelled = errors.New("operation cancelled")

	// ErrBusy reports that the instance already has an operation in flight.
	ErrBusy = errors.New("operation already in progress")

	// ErrNotPrepared reports a playback operation on an unprepared player.
	ErrNotPrepared = errors.New("player not prepared")

	// ErrNotPlaying reports a pause on a player that is not playing.
	ErrNotPlaying = errors.New("player not playing")

	// ErrPermissionDenied reports missing capture permission.
	ErrPermissionDenied = errors.New("recording permission denied")

	// ErrNoActiveRecording reports a recorder operation with no session.
	ErrNoActiveRecording = errors.New("no active recording")

	// ErrInvalidPath reports an output path that cannot be created.
	ErrInvalidPath = errors.New("invalid output path")

	// ErrSessionSetup reports a failure activating or opening a native
	// audio session.
	ErrSessionSetup = errors.New("audio session setup failed")

	// ErrDuplicateKey reports an instance key that is already live.
	ErrDuplicateKey = errors.New("duplicate instance key")

	// ErrResourceExhausted reports that the per-kind instance ceiling was
	// reached.
	ErrResourceExhausted = errors.New("instance limit reached")
)

var (
	ErrInvalidDstSize = errors.New("dst size must be multiple of channels")
)
