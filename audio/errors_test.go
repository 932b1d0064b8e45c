package audio

import (
	"errors"
	"fmt"
	"testing"
)

func TestEngineSentinels_Distinct(t *testing.T) {
	t.Parallel()

	sentinels := []error{
		ErrInvalidArgument,
		ErrFileNotFound,
		ErrUnsupportedFormat,
		ErrCorruptedFile,
		ErrOutOfMemory,
		ErrCancelled,
		ErrBusy,
		ErrNotPrepared,
		ErrNotPlaying,
		ErrPermissionDenied,
		ErrNoActiveRecording,
		ErrInvalidPath,
		ErrSessionSetup,
		ErrDuplicateKey,
		ErrResourceExhausted,
	}

	for i, a := range sentinels {
		if a == nil {
			t.Fatalf("sentinel %d is nil", i)
		}
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %q matches %q", a, b)
			}
		}
	}
}

func TestEngineSentinels_Wrapping(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("player %q: %w", "p1", ErrNotPrepared)
	if !errors.Is(wrapped, ErrNotPrepared) {
		t.Error("errors.Is() failed for wrapped ErrNotPrepared")
	}

	// Double wrapping, as decoders do when translating library errors.
	inner := errors.New("bad chunk size")
	double := fmt.Errorf("decode a.wav: %w: %w", ErrCorruptedFile, inner)
	if !errors.Is(double, ErrCorruptedFile) {
		t.Error("errors.Is() failed for ErrCorruptedFile")
	}
	if !errors.Is(double, inner) {
		t.Error("errors.Is() failed for the library error")
	}
}

func TestErrInvalidDstSize(t *testing.T) {
	t.Parallel()

	if ErrInvalidDstSize == nil {
		t.Fatal("ErrInvalidDstSize is nil")
	}

	expectedMsg := "dst size must be multiple of channels"
	if ErrInvalidDstSize.Error() != expectedMsg {
		t.Errorf("ErrInvalidDstSize.Error() = %q, want %q", ErrInvalidDstSize.Error(), expectedMsg)
	}
}

func TestErrInvalidDstSize_IsError(t *testing.T) {
	t.Parallel()

	// Verify it implements error interface
	var err error = ErrInvalidDstSize
	if err == nil {
		t.Error("ErrInvalidDstSize does not implement error interface")
	}
}

func TestErrInvalidDstSize_Comparison(t *testing.T) {
	t.Parallel()

	// Test errors.Is compatibility
	err := ErrInvalidDstSize
	if !errors.Is(err, ErrInvalidDstSize) {
		t.Error("errors.Is() failed for ErrInvalidDstSize")
	}

	// Test with a different error
	otherErr := errors.New("some other error")
	if errors.Is(otherErr, ErrInvalidDstSize) {
		t.Error("errors.Is() should return false for different error")
	}
}

func TestErrInvalidDstSize_Wrapping(t *testing.T) {
	t.Parallel()

	// Test that wrapped error can be unwrapped
	wrappedErr := errors.Join(ErrInvalidDstSize, errors.New("additional context"))
	if !errors.Is(wrappedErr, ErrInvalidDstSize) {
		t.Error("errors.Is() failed for wrapped ErrInvalidDstSize")
	}
}
