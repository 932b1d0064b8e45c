// SPDX-License-Identifier: EPL-2.0

// Package malgodev implements the device boundary on top of miniaudio via
// github.com/gen2brain/malgo. It is the production renderer/capturer used
// by the CLI; the engines themselves never import it.
package malgodev

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/wavekit/wavekit/device"
)

// Backend owns one miniaudio context shared by all sessions it opens.
// It implements both device.Renderer and device.Capturer.
type Backend struct {
	ctx *malgo.AllocatedContext

	mu     sync.Mutex
	closed bool
}

// New initializes a miniaudio context.
func New() (*Backend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgodev: init context: %w", err)
	}
	return &Backend{ctx: ctx}, nil
}

// Close releases the miniaudio context. All sessions must be closed first.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if err := b.ctx.Uninit(); err != nil {
		return fmt.Errorf("malgodev: uninit context: %w", err)
	}
	b.ctx.Free()
	return nil
}

// OpenPlayback opens a float32 playback device that pulls frames from the
// engine on the device callback.
func (b *Backend) OpenPlayback(sampleRate, channels int, pull device.PullFunc) (device.RenderSession, error) {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = uint32(channels)
	cfg.SampleRate = uint32(sampleRate)

	var scratch []float32
	callbacks := malgo.DeviceCallbacks{
		Data: func(output, _ []byte, frameCount uint32) {
			need := int(frameCount) * channels
			if cap(scratch) < need {
				scratch = make([]float32, need)
			}
			buf := scratch[:need]
			clear(buf)
			pull(buf)
			floatsToBytes(output, buf)
		},
	}

	dev, err := malgo.InitDevice(b.ctx.Context, cfg, callbacks)
	if err != nil {
		return nil, fmt.Errorf("malgodev: open playback: %w", err)
	}
	return &renderSession{dev: dev}, nil
}

// OpenCapture opens a float32 capture device delivering buffers to the
// engine on the device callback. The stream starts immediately.
func (b *Backend) OpenCapture(sampleRate, channels int, deliver device.DeliverFunc) (device.CaptureSession, error) {
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = uint32(channels)
	cfg.SampleRate = uint32(sampleRate)

	var scratch []float32
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			need := int(frameCount) * channels
			if cap(scratch) < need {
				scratch = make([]float32, need)
			}
			buf := scratch[:need]
			bytesToFloats(buf, input)
			deliver(buf)
		},
	}

	dev, err := malgo.InitDevice(b.ctx.Context, cfg, callbacks)
	if err != nil {
		return nil, fmt.Errorf("malgodev: open capture: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return nil, fmt.Errorf("malgodev: start capture: %w", err)
	}
	return &captureSession{dev: dev}, nil
}

type renderSession struct {
	mu  sync.Mutex
	dev *malgo.Device
}

func (s *renderSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev == nil {
		return fmt.Errorf("malgodev: session closed")
	}
	if s.dev.IsStarted() {
		return nil
	}
	if err := s.dev.Start(); err != nil {
		return fmt.Errorf("malgodev: start playback: %w", err)
	}
	return nil
}

func (s *renderSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev == nil || !s.dev.IsStarted() {
		return nil
	}
	if err := s.dev.Stop(); err != nil {
		return fmt.Errorf("malgodev: stop playback: %w", err)
	}
	return nil
}

func (s *renderSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev != nil {
		s.dev.Uninit()
		s.dev = nil
	}
	return nil
}

type captureSession struct {
	mu  sync.Mutex
	dev *malgo.Device
}

func (s *captureSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev != nil {
		s.dev.Uninit()
		s.dev = nil
	}
	return nil
}

func floatsToBytes(dst []byte, src []float32) {
	for i, v := range src {
		binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(v))
	}
}

func bytesToFloats(dst []float32, src []byte) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[4*i:]))
	}
}
