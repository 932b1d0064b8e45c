// SPDX-License-Identifier: EPL-2.0

// Package wav provides WAV audio file decoding and encoding.
//
// Decoding is built on github.com/go-audio/wav and supports uncompressed
// PCM at 8, 16, 24 and 32 bits, mono or multichannel, at any sample rate.
//
// # Decoding WAV Files
//
// Use the Decoder to read WAV files:
//
//	decoder := wav.Decoder{}
//	file, _ := os.Open("audio.wav")
//	source, err := decoder.Decode(file)
//	if err != nil {
//	    // Handle error
//	}
//
//	// Read samples
//	buf := make([]float32, 4096)
//	n, err := source.ReadSamples(buf)
//
// The decoder returns an audio.Source that provides samples as float32
// values in the range [-1.0, 1.0], normalized by the file's bit depth.
// The underlying parser needs an io.ReadSeeker; anything else is buffered
// into memory first, so pass an *os.File or bytes.Reader when you can.
//
// # Writing WAV Files
//
// Use WriteWAV16 to create mono 16-bit files:
//
//	samples := []int16{100, -100, 200, -200}
//	file, _ := os.Create("output.wav")
//	err := wav.WriteWAV16(file, 8000, samples)
//
// The function writes a complete WAV file with proper headers.
//
// # Error Handling
//
//   - ErrNotWavFile: the input is not a valid WAV container
//   - ErrUnsupportedWavLayout: non-PCM data (compressed or float)
//   - ErrUnsupportedBitDepth: PCM at a bit depth other than 8/16/24/32
//
// Example:
//
//	source, err := decoder.Decode(file)
//	if err == wav.ErrNotWavFile {
//	    fmt.Println("Not a WAV file")
//	}
package wav
