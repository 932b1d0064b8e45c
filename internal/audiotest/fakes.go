// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"sync"

	"github.com/wavekit/wavekit/device"
)

// FakeRenderer is a device.Renderer whose sessions render only when the
// test pumps them, so tests control exactly how many frames the engine
// produces and when.
type FakeRenderer struct {
	mu       sync.Mutex
	sessions []*FakeRenderSession

	// FailOpen, when set, makes OpenPlayback fail with it.
	FailOpen error
}

func (r *FakeRenderer) OpenPlayback(sampleRate, channels int, pull device.PullFunc) (device.RenderSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailOpen != nil {
		return nil, r.FailOpen
	}

	s := &FakeRenderSession{
		Rate:     sampleRate,
		Channels: channels,
		pull:     pull,
	}
	r.sessions = append(r.sessions, s)
	return s, nil
}

// Opened returns how many sessions were opened over the renderer's life.
func (r *FakeRenderer) Opened() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Last returns the most recently opened session, or nil.
func (r *FakeRenderer) Last() *FakeRenderSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions) == 0 {
		return nil
	}
	return r.sessions[len(r.sessions)-1]
}

// FakeRenderSession records its lifecycle and exposes Pump to drive the
// engine's pull callback manually.
type FakeRenderSession struct {
	Rate     int
	Channels int

	// FailStart, when set, makes Start fail with it.
	FailStart error

	mu      sync.Mutex
	pull    device.PullFunc
	started bool
	closed  bool
}

func (s *FakeRenderSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailStart != nil {
		return s.FailStart
	}
	s.started = true
	return nil
}

func (s *FakeRenderSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	return nil
}

func (s *FakeRenderSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	s.closed = true
	return nil
}

// Started reports whether the session is currently pulling.
func (s *FakeRenderSession) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Closed reports whether the session was released.
func (s *FakeRenderSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Pump asks the engine for frames sample frames, mirroring a real device
// callback: a short pull leaves the remainder zero-filled. It returns the
// rendered buffer. Pumping a stopped session returns silence.
func (s *FakeRenderSession) Pump(frames int) []float32 {
	s.mu.Lock()
	pull := s.pull
	active := s.started && !s.closed
	channels := s.Channels
	s.mu.Unlock()

	buf := make([]float32, frames*channels)
	if !active || pull == nil {
		return buf
	}
	n := pull(buf)
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	return buf
}

// FakeCapturer is a device.Capturer whose sessions deliver only the
// buffers the test feeds in.
type FakeCapturer struct {
	mu       sync.Mutex
	sessions []*FakeCaptureSession

	// FailOpen, when set, makes OpenCapture fail with it.
	FailOpen error
}

func (c *FakeCapturer) OpenCapture(sampleRate, channels int, deliver device.DeliverFunc) (device.CaptureSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FailOpen != nil {
		return nil, c.FailOpen
	}

	s := &FakeCaptureSession{
		Rate:     sampleRate,
		Channels: channels,
		deliver:  deliver,
	}
	c.sessions = append(c.sessions, s)
	return s, nil
}

// Opened returns how many sessions were opened over the capturer's life.
func (c *FakeCapturer) Opened() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Last returns the most recently opened session, or nil.
func (c *FakeCapturer) Last() *FakeCaptureSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sessions) == 0 {
		return nil
	}
	return c.sessions[len(c.sessions)-1]
}

// FakeCaptureSession feeds buffers into the engine on demand.
type FakeCaptureSession struct {
	Rate     int
	Channels int

	mu      sync.Mutex
	deliver device.DeliverFunc
	closed  bool
}

func (s *FakeCaptureSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether the session was released.
func (s *FakeCaptureSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Deliver hands buf to the engine as if the device captured it. Buffers
// delivered after Close are dropped, like a real stopped device.
func (s *FakeCaptureSession) Deliver(buf []float32) {
	s.mu.Lock()
	deliver := s.deliver
	closed := s.closed
	s.mu.Unlock()

	if closed || deliver == nil {
		return
	}
	deliver(buf)
}

// ScriptedSessions is a device.SessionManager that records activations
// and lets tests emit session events.
type ScriptedSessions struct {
	mu     sync.Mutex
	active map[device.Use]int
	events chan device.Event

	// FailActivate, when set, makes Activate fail with it.
	FailActivate error
}

func NewScriptedSessions() *ScriptedSessions {
	return &ScriptedSessions{
		active: make(map[device.Use]int),
		events: make(chan device.Event, 16),
	}
}

func (s *ScriptedSessions) Activate(use device.Use) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailActivate != nil {
		return s.FailActivate
	}
	s.active[use]++
	return nil
}

func (s *ScriptedSessions) Deactivate(use device.Use) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[use] > 0 {
		s.active[use]--
	}
}

func (s *ScriptedSessions) Events() <-chan device.Event { return s.events }

// Emit raises a session event as the OS would.
func (s *ScriptedSessions) Emit(kind device.EventKind) {
	s.events <- device.Event{Kind: kind}
}

// Active returns the current activation count for use.
func (s *ScriptedSessions) Active(use device.Use) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[use]
}
