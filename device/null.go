// SPDX-License-Identifier: EPL-2.0

package device

import (
	"sync"
	"time"
)

// nullTickInterval is how often the null devices exchange audio with the
// engine. 10ms matches the buffer cadence of typical hardware callbacks.
const nullTickInterval = 10 * time.Millisecond

// NullRenderer returns a Renderer without a sound card behind it: sessions
// pull frames from the engine in real time and discard them. Playback
// position, update callbacks and end-of-media behave exactly as with real
// hardware, which makes it the headless default and the test backbone.
func NullRenderer() Renderer {
	return nullRenderer{}
}

type nullRenderer struct{}

func (nullRenderer) OpenPlayback(sampleRate, channels int, pull PullFunc) (RenderSession, error) {
	return &nullRenderSession{
		sampleRate: sampleRate,
		channels:   channels,
		pull:       pull,
	}, nil
}

type nullRenderSession struct {
	sampleRate int
	channels   int
	pull       PullFunc

	mu   sync.Mutex
	stop chan struct{}
	buf  []float32
}

func (s *nullRenderSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return nil
	}
	s.stop = make(chan struct{})
	go s.run(s.stop)
	return nil
}

func (s *nullRenderSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	return nil
}

func (s *nullRenderSession) Close() error {
	return s.Stop()
}

func (s *nullRenderSession) run(stop chan struct{}) {
	ticker := time.NewTicker(nullTickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			frames := int(float64(s.sampleRate) * now.Sub(last).Seconds())
			last = now
			if frames <= 0 {
				continue
			}
			need := frames * s.channels
			if cap(s.buf) < need {
				s.buf = make([]float32, need)
			}
			s.pull(s.buf[:need])
		}
	}
}

// NullCapturer returns a Capturer that delivers silence in real time.
func NullCapturer() Capturer {
	return nullCapturer{}
}

type nullCapturer struct{}

func (nullCapturer) OpenCapture(sampleRate, channels int, deliver DeliverFunc) (CaptureSession, error) {
	s := &nullCaptureSession{stop: make(chan struct{})}
	go s.run(sampleRate, channels, deliver)
	return s, nil
}

type nullCaptureSession struct {
	once sync.Once
	stop chan struct{}
}

func (s *nullCaptureSession) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *nullCaptureSession) run(sampleRate, channels int, deliver DeliverFunc) {
	ticker := time.NewTicker(nullTickInterval)
	defer ticker.Stop()

	buf := make([]float32, sampleRate/100*channels)
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			deliver(buf)
		}
	}
}
