// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"os"

	"github.com/wavekit/wavekit/formats/wav"
)

// WriteWAVFile writes mono 16-bit PCM samples to path as a complete WAV
// file, for tests that need a real decodable fixture on disk.
func WriteWAVFile(path string, sampleRate int, samples []int16) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := wav.WriteWAV16(f, sampleRate, samples); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SquareWave returns frames samples of a full-scale-half square wave with
// the given half-period in samples.
func SquareWave(frames, halfPeriod int) []int16 {
	samples := make([]int16, frames)
	for i := range samples {
		if (i/halfPeriod)%2 == 0 {
			samples[i] = 16384
		} else {
			samples[i] = -16384
		}
	}
	return samples
}
