// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"testing"
)

func TestReadAll_CollectsWholeStream(t *testing.T) {
	t.Parallel()

	src := newCountingSource(2, 1000)

	got, err := ReadAll(src, 0)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != 2000 {
		t.Fatalf("ReadAll() returned %d samples, want 2000", len(got))
	}
	// Spot-check ordering is preserved across chunk boundaries.
	for _, idx := range []int{0, 1, 4095, 4096, 1999} {
		want := countingValue(idx)
		if got[idx] != want {
			t.Errorf("sample[%d] = %v, want %v", idx, got[idx], want)
		}
	}
}

func TestReadAll_EmptyStream(t *testing.T) {
	t.Parallel()

	got, err := ReadAll(newCountingSource(1, 0), 0)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ReadAll() returned %d samples, want 0", len(got))
	}
}

func TestReadAll_SampleBudget(t *testing.T) {
	t.Parallel()

	_, err := ReadAll(newCountingSource(2, 10000), 100)
	if !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("ReadAll() error = %v, want ErrOutOfMemory", err)
	}
}

// newCountingSource generates a deterministic ramp so tests can verify
// sample ordering across read-chunk boundaries.
func newCountingSource(channels, frames int) *mockSource {
	return newMockSource(8000, channels, frames, func(sample, channel int) float32 {
		return countingValue(sample*channels + channel)
	})
}

func countingValue(flatIndex int) float32 {
	return float32(flatIndex%2000) / 2000.0
}
