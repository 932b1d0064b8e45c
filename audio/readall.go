// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
)

// DefaultMaxSamples bounds ReadAll allocations to 1 GiB of float32 data.
const DefaultMaxSamples = 1 << 28

// ReadAll decodes src to completion into a single interleaved buffer.
//
// maxSamples caps the total number of float32 values collected; 0 selects
// DefaultMaxSamples. When the stream exceeds the cap, the partially read
// data is discarded and ErrOutOfMemory is returned, so a caller can retry
// with a larger budget without leaking the oversized buffer.
func ReadAll(src Source, maxSamples int) ([]float32, error) {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}

	bufSize := src.BufSize()
	if bufSize <= 0 {
		bufSize = 4096
	}

	var all []float32
	buf := make([]float32, bufSize)

	for {
		n, err := src.ReadSamples(buf)
		if n > 0 {
			if len(all)+n > maxSamples {
				return nil, fmt.Errorf("audio: stream exceeds %d samples: %w", maxSamples, ErrOutOfMemory)
			}
			all = append(all, buf[:n]...)
		}

		if err == io.EOF {
			return all, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w", err)
		}
		if n == 0 {
			// A well-behaved source never returns (0, nil) forever, but
			// guard against it rather than spin.
			return all, nil
		}
	}
}
