// SPDX-License-Identifier: EPL-2.0

package recorder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"

	"github.com/wavekit/wavekit/audio"
	"github.com/wavekit/wavekit/device"
	"github.com/wavekit/wavekit/dispatch"
	"github.com/wavekit/wavekit/utils"
)

// State of a Recorder.
type State int32

const (
	StateIdle State = iota
	StateRecording
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}

// Normalization selects how Decibel converts the signal level, fixed at
// recording start.
type Normalization int

const (
	// NormalizationPeak reports 20*log10 of the last buffer's peak
	// magnitude.
	NormalizationPeak Normalization = iota
	// NormalizationLegacyAverage reports 10*log10 of the last buffer's
	// mean square.
	NormalizationLegacyAverage
)

// MinDecibel is the metering floor; silence reports this value.
const MinDecibel = -160.0

// Config describes one recording session.
type Config struct {
	// Path of the output WAV file. Empty picks a uuid-named file in the
	// system temp directory.
	Path string

	// SampleRate of the capture in Hz; 0 defaults to 44100.
	SampleRate int

	// Channels of the capture; 0 defaults to 1.
	Channels int

	// Normalization mode for decibel readings.
	Normalization Normalization

	// MeterInterval is the decibel-callback cadence; 0 defaults to 100ms.
	MeterInterval time.Duration
}

func (c Config) withDefaults() (Config, error) {
	if c.SampleRate == 0 {
		c.SampleRate = 44100
	}
	if c.Channels == 0 {
		c.Channels = 1
	}
	if c.MeterInterval == 0 {
		c.MeterInterval = 100 * time.Millisecond
	}

	switch {
	case c.SampleRate < 0:
		return c, fmt.Errorf("recorder: sample rate %d: %w", c.SampleRate, audio.ErrInvalidArgument)
	case c.Channels < 0:
		return c, fmt.Errorf("recorder: channels %d: %w", c.Channels, audio.ErrInvalidArgument)
	case c.MeterInterval < 0:
		return c, fmt.Errorf("recorder: meter interval %v: %w", c.MeterInterval, audio.ErrInvalidArgument)
	}
	return c, nil
}

// Recorder captures one input stream to a 16-bit PCM WAV file and meters
// its level.
//
// State changes are serialized by an internal mutex. The device deliver
// callback updates level atomics and appends to the encoder without
// touching the state mutex, so Decibel stays a lock-free read.
type Recorder struct {
	key         string
	capturer    device.Capturer
	permissions device.PermissionService
	sessions    device.SessionManager

	mu        sync.Mutex
	capture   device.CaptureSession
	stopMeter chan struct{}
	path      string
	norm      Normalization
	channels  int
	rate      int

	encMu    sync.Mutex
	enc      *wav.Encoder
	file     *os.File
	writeErr error

	state  atomic.Int32
	paused atomic.Bool
	peak   utils.AtomicFloat64
	meanSq utils.AtomicFloat64

	onDecibel dispatch.Handler[float64]
}

// NewRecorder returns an idle recorder capturing through capturer.
// permissions gates Start; sessions is notified around start/stop.
func NewRecorder(key string, capturer device.Capturer, permissions device.PermissionService, sessions device.SessionManager) *Recorder {
	return &Recorder{
		key:         key,
		capturer:    capturer,
		permissions: permissions,
		sessions:    sessions,
	}
}

// Key returns the caller-chosen instance key.
func (r *Recorder) Key() string { return r.key }

// State returns the current recording state.
func (r *Recorder) State() State { return State(r.state.Load()) }

// Path returns the output file of the active or last session.
func (r *Recorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// OnDecibelUpdate registers the metering callback, invoked at the
// configured interval while a session is active (including paused).
func (r *Recorder) OnDecibelUpdate(fn func(db float64)) { r.onDecibel.Set(fn) }

// ClearOnDecibelUpdate removes the metering callback.
func (r *Recorder) ClearOnDecibelUpdate() { r.onDecibel.Clear() }

// Start opens a capture session writing to cfg.Path.
//
// Recording permission must already be granted; Start never prompts.
// On any failure the recorder stays Idle with no session or file left
// behind.
func (r *Recorder) Start(ctx context.Context, cfg Config) error {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("recorder: start: %w", audio.ErrCancelled)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.State() != StateIdle {
		return fmt.Errorf("recorder: start while %s: %w", r.State(), audio.ErrBusy)
	}

	if status := r.permissions.Status(); status != device.PermissionGranted {
		return fmt.Errorf("recorder: permission %s: %w", status, audio.ErrPermissionDenied)
	}

	path := cfg.Path
	if path == "" {
		path = filepath.Join(os.TempDir(), uuid.NewString()+".wav")
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("recorder: create %s: %w: %w", path, audio.ErrInvalidPath, err)
	}

	if err := r.sessions.Activate(device.UseCapture); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("recorder: activate session: %w: %w", audio.ErrSessionSetup, err)
	}

	// The encoder and session fields must be in place before the device
	// can deliver the first buffer.
	r.encMu.Lock()
	r.file = file
	r.enc = wav.NewEncoder(file, cfg.SampleRate, 16, cfg.Channels, 1)
	r.writeErr = nil
	r.encMu.Unlock()

	r.path = path
	r.norm = cfg.Normalization
	r.channels = cfg.Channels
	r.rate = cfg.SampleRate
	r.paused.Store(false)
	r.peak.Store(0)
	r.meanSq.Store(0)

	capture, err := r.capturer.OpenCapture(cfg.SampleRate, cfg.Channels, r.deliver)
	if err != nil {
		r.encMu.Lock()
		r.enc = nil
		r.file = nil
		r.encMu.Unlock()
		r.sessions.Deactivate(device.UseCapture)
		file.Close()
		os.Remove(path)
		return fmt.Errorf("recorder: open capture: %w: %w", audio.ErrSessionSetup, err)
	}

	r.capture = capture
	r.state.Store(int32(StateRecording))

	r.stopMeter = make(chan struct{})
	go r.meterLoop(r.stopMeter, cfg.MeterInterval)
	return nil
}

// Pause gates sample intake; the capture session and the metering loop
// keep running, reporting near-silent levels.
func (r *Recorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.State() != StateRecording {
		return fmt.Errorf("recorder: pause while %s: %w", r.State(), audio.ErrNoActiveRecording)
	}
	r.paused.Store(true)
	r.peak.Store(0)
	r.meanSq.Store(0)
	r.state.Store(int32(StatePaused))
	return nil
}

// Resume reopens sample intake after Pause.
func (r *Recorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.State() != StatePaused {
		return fmt.Errorf("recorder: resume while %s: %w", r.State(), audio.ErrNoActiveRecording)
	}
	r.paused.Store(false)
	r.state.Store(int32(StateRecording))
	return nil
}

// Stop finalizes the WAV file and returns its path. It requires an
// active or paused session.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.State() {
	case StateRecording, StatePaused:
	default:
		return "", fmt.Errorf("recorder: stop while idle: %w", audio.ErrNoActiveRecording)
	}

	close(r.stopMeter)
	r.stopMeter = nil
	r.capture.Close()
	r.capture = nil
	r.sessions.Deactivate(device.UseCapture)

	r.encMu.Lock()
	err := r.writeErr
	if closeErr := r.enc.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	if closeErr := r.file.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	r.enc = nil
	r.file = nil
	r.encMu.Unlock()

	r.paused.Store(false)
	r.state.Store(int32(StateIdle))

	if err != nil {
		return r.path, fmt.Errorf("recorder: finalize %s: %w", r.path, err)
	}
	return r.path, nil
}

// Decibel computes the current level on demand using the session's
// normalization mode. It is a lock-free read in [MinDecibel, 0].
func (r *Recorder) Decibel() (float64, error) {
	if r.State() == StateIdle {
		return 0, fmt.Errorf("recorder: decibel while idle: %w", audio.ErrNoActiveRecording)
	}
	return r.decibel(), nil
}

func (r *Recorder) decibel() float64 {
	var db float64
	switch r.norm {
	case NormalizationLegacyAverage:
		db = 10 * math.Log10(r.meanSq.Load())
	default:
		db = 20 * math.Log10(r.peak.Load())
	}

	if math.IsNaN(db) || db < MinDecibel {
		return MinDecibel
	}
	if db > 0 {
		return 0
	}
	return db
}

// deliver is the device callback. It runs on the capture thread: level
// atomics first, then the encoder append, skipped while paused.
func (r *Recorder) deliver(buf []float32) {
	if len(buf) == 0 {
		return
	}

	if r.paused.Load() {
		// Metering cadence continues on near-silent values.
		r.peak.Store(0)
		r.meanSq.Store(0)
		return
	}

	var peak, sum float64
	for _, v := range buf {
		a := math.Abs(float64(v))
		if a > peak {
			peak = a
		}
		sum += float64(v) * float64(v)
	}
	r.peak.Store(peak)
	r.meanSq.Store(sum / float64(len(buf)))

	r.encMu.Lock()
	defer r.encMu.Unlock()
	if r.enc == nil || r.writeErr != nil {
		return
	}

	ints := make([]int, len(buf))
	for i, v := range buf {
		ints[i] = int(utils.Float32ToInt16(v))
	}
	err := r.enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: r.channels, SampleRate: r.rate},
		Data:           ints,
		SourceBitDepth: 16,
	})
	if err != nil {
		r.writeErr = err
	}
}

// meterLoop pushes decibel readings at the configured interval until the
// session stops.
func (r *Recorder) meterLoop(stop chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.onDecibel.Invoke(r.decibel())
		}
	}
}
