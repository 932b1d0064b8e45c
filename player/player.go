// SPDX-License-Identifier: EPL-2.0

package player

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wavekit/wavekit/audio"
	"github.com/wavekit/wavekit/device"
	"github.com/wavekit/wavekit/dispatch"
	"github.com/wavekit/wavekit/utils"
)

// State of a Player. Every operation is a total function of
// (current state, operation): it either transitions the state or fails
// leaving the state unchanged.
type State int32

const (
	StateUnprepared State = iota
	StatePrepared
	StatePlaying
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StatePrepared:
		return "prepared"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unprepared"
	}
}

// FinishMode is the end-of-media policy passed to Start.
type FinishMode int32

const (
	// FinishModeStop stops at end-of-media, resets the position and fires
	// the finish callback exactly once.
	FinishModeStop FinishMode = iota
	// FinishModeLoop wraps to the beginning seamlessly; the finish
	// callback never fires.
	FinishModeLoop
)

// UpdateFrequency selects the position-callback tier. The zero value is
// the medium tier.
type UpdateFrequency int

const (
	UpdateMedium UpdateFrequency = iota // ~100ms
	UpdateCoarse                        // ~500ms
	UpdateFine                          // ~16ms
)

func (u UpdateFrequency) interval() time.Duration {
	switch u {
	case UpdateCoarse:
		return 500 * time.Millisecond
	case UpdateFine:
		return 16 * time.Millisecond
	default:
		return 100 * time.Millisecond
	}
}

// DurationType selects what Duration reports.
type DurationType int

const (
	// DurationCurrent is the current playback position.
	DurationCurrent DurationType = iota
	// DurationMax is the total length of the prepared clip.
	DurationMax
)

// Config describes one prepared playback session.
type Config struct {
	// Path of the audio file. The decoder is selected by extension from
	// the registry the player was built with.
	Path string

	// UpdateFrequency is the position-callback tier while playing.
	UpdateFrequency UpdateFrequency

	// Volume is the initial volume in [0,1]; 0 defaults to 1.0.
	Volume float64

	// SampleRate resamples the clip at load time when it differs from the
	// file's native rate; 0 keeps the file rate.
	SampleRate int

	// MaxSamples bounds the decode allocation; 0 selects
	// audio.DefaultMaxSamples.
	MaxSamples int
}

func (c Config) withDefaults() (Config, error) {
	if c.Volume == 0 {
		c.Volume = 1.0
	}

	switch {
	case c.Path == "":
		return c, fmt.Errorf("player: empty path: %w", audio.ErrInvalidArgument)
	case c.Volume < 0 || c.Volume > 1:
		return c, fmt.Errorf("player: volume %v: %w", c.Volume, audio.ErrInvalidArgument)
	case c.SampleRate < 0:
		return c, fmt.Errorf("player: sample rate %d: %w", c.SampleRate, audio.ErrInvalidArgument)
	}
	return c, nil
}

// Player renders one prepared clip through a device.RenderSession.
//
// State changes are serialized by an internal mutex so operations on the
// same player are observed in the order issued. Volume, speed and the
// playback position are atomics: the device pull callback and the
// position reads never take the mutex.
type Player struct {
	key      string
	decoders *audio.Registry
	renderer device.Renderer
	sessions device.SessionManager

	mu       sync.Mutex
	session  device.RenderSession
	stopLoop chan struct{}
	interval time.Duration

	state      atomic.Int32
	clip       atomic.Pointer[Clip]
	pos        utils.AtomicFloat64 // fractional frame index
	volume     utils.AtomicFloat64
	speed      utils.AtomicFloat64
	finishMode atomic.Int32
	ended      atomic.Bool

	onUpdate   dispatch.Handler[int64]
	onFinished dispatch.Handler[struct{}]
}

// NewPlayer returns an unprepared player rendering through renderer and
// notifying sessions around start/stop.
func NewPlayer(key string, decoders *audio.Registry, renderer device.Renderer, sessions device.SessionManager) *Player {
	p := &Player{
		key:      key,
		decoders: decoders,
		renderer: renderer,
		sessions: sessions,
		interval: UpdateMedium.interval(),
	}
	p.volume.Store(1.0)
	p.speed.Store(1.0)
	return p
}

// Key returns the caller-chosen instance key.
func (p *Player) Key() string { return p.key }

// State returns the current playback state.
func (p *Player) State() State { return State(p.state.Load()) }

// IsPlaying reports whether the player is in the Playing state. It is an
// atomic read and never blocks.
func (p *Player) IsPlaying() bool { return p.State() == StatePlaying }

// OnPlaybackUpdate registers the position callback, invoked with the
// current position in milliseconds at the configured tier while playing.
func (p *Player) OnPlaybackUpdate(fn func(positionMs int64)) { p.onUpdate.Set(fn) }

// ClearOnPlaybackUpdate removes the position callback.
func (p *Player) ClearOnPlaybackUpdate() { p.onUpdate.Clear() }

// OnPlaybackFinished registers the one-shot end-of-media callback. It
// fires only under FinishModeStop.
func (p *Player) OnPlaybackFinished(fn func()) {
	if fn == nil {
		p.onFinished.Clear()
		return
	}
	p.onFinished.Set(func(struct{}) { fn() })
}

// ClearOnPlaybackFinished removes the finish callback.
func (p *Player) ClearOnPlaybackFinished() { p.onFinished.Clear() }

// Prepare loads cfg.Path into memory and transitions to Prepared.
//
// It is valid from Unprepared, Prepared and Stopped; preparing while
// Playing or Paused fails with audio.ErrBusy. On failure the previous
// state is kept.
func (p *Player) Prepare(ctx context.Context, cfg Config) error {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("player: prepare: %w", audio.ErrCancelled)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.State() {
	case StatePlaying, StatePaused:
		return fmt.Errorf("player: prepare while %s: %w", p.State(), audio.ErrBusy)
	}

	clip, err := loadClip(p.decoders, cfg.Path, cfg.SampleRate, cfg.MaxSamples)
	if err != nil {
		return err
	}

	// A session opened for a previous clip may have the wrong rate.
	if p.session != nil {
		p.session.Close()
		p.session = nil
	}

	p.clip.Store(clip)
	p.interval = cfg.UpdateFrequency.interval()
	p.volume.Store(cfg.Volume)
	p.pos.Store(0)
	p.ended.Store(false)
	p.state.Store(int32(StatePrepared))
	return nil
}

// Start begins or resumes playback. It requires Prepared, Paused or
// Stopped, a positive speed, and an activatable audio session.
func (p *Player) Start(mode FinishMode, speed float64) error {
	if speed <= 0 {
		return fmt.Errorf("player: speed %v: %w", speed, audio.ErrInvalidArgument)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.State() {
	case StatePrepared, StatePaused, StateStopped:
	default:
		return fmt.Errorf("player: start while %s: %w", p.State(), audio.ErrNotPrepared)
	}

	if err := p.sessions.Activate(device.UsePlayback); err != nil {
		return fmt.Errorf("player: activate session: %w: %w", audio.ErrSessionSetup, err)
	}

	if p.session == nil {
		clip := p.clip.Load()
		session, err := p.renderer.OpenPlayback(clip.SampleRate(), clip.Channels(), p.pull)
		if err != nil {
			p.sessions.Deactivate(device.UsePlayback)
			return fmt.Errorf("player: open playback: %w: %w", audio.ErrSessionSetup, err)
		}
		p.session = session
	}

	p.finishMode.Store(int32(mode))
	p.speed.Store(speed)
	p.ended.Store(false)

	if err := p.session.Start(); err != nil {
		p.sessions.Deactivate(device.UsePlayback)
		return fmt.Errorf("player: start device: %w: %w", audio.ErrSessionSetup, err)
	}

	p.state.Store(int32(StatePlaying))
	p.stopLoop = make(chan struct{})
	go p.updateLoop(p.stopLoop, p.interval)
	return nil
}

// Pause halts rendering, keeping the position. It requires Playing.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.State() != StatePlaying {
		return fmt.Errorf("player: pause while %s: %w", p.State(), audio.ErrNotPlaying)
	}

	p.stopLoopLocked()
	p.session.Stop()
	p.state.Store(int32(StatePaused))
	return nil
}

// Stop halts rendering and resets the position to zero. It requires a
// prepared session (any state but Unprepared); the clip stays loaded so
// Start plays it again from the top.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.State() == StateUnprepared {
		return fmt.Errorf("player: stop while unprepared: %w", audio.ErrNotPrepared)
	}

	p.stopLoopLocked()
	if p.session != nil {
		p.session.Stop()
	}
	p.sessions.Deactivate(device.UsePlayback)
	p.pos.Store(0)
	p.ended.Store(false)
	p.state.Store(int32(StateStopped))
	return nil
}

// SeekTo moves the position to ms. It requires Prepared, Playing or
// Paused and 0 <= ms <= duration. The clip is already decoded, so the
// move is an index store.
func (p *Player) SeekTo(ms int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.State() {
	case StatePrepared, StatePlaying, StatePaused:
	default:
		return fmt.Errorf("player: seek while %s: %w", p.State(), audio.ErrNotPrepared)
	}

	clip := p.clip.Load()
	if ms < 0 || ms > clip.DurationMs() {
		return fmt.Errorf("player: seek to %dms of %dms: %w", ms, clip.DurationMs(), audio.ErrInvalidArgument)
	}

	p.pos.Store(clip.msToFrame(ms))
	// Seeking away from the end revokes a not-yet-handled end-of-media.
	p.ended.Store(false)
	return nil
}

// SetVolume sets the rendering gain. v must be in [0,1]; the new value
// applies from the next rendered buffer and persists across pause/resume
// and stop/start.
func (p *Player) SetVolume(v float64) error {
	if p.State() == StateUnprepared {
		return fmt.Errorf("player: set volume while unprepared: %w", audio.ErrNotPrepared)
	}
	if v < 0 || v > 1 {
		return fmt.Errorf("player: volume %v: %w", v, audio.ErrInvalidArgument)
	}
	p.volume.Store(v)
	return nil
}

// Volume returns the current rendering gain.
func (p *Player) Volume() float64 { return p.volume.Load() }

// SetPlaybackSpeed sets the rate multiplier. s must be positive; the new
// value applies from the next rendered buffer and persists across
// pause/resume and stop/start.
func (p *Player) SetPlaybackSpeed(s float64) error {
	if p.State() == StateUnprepared {
		return fmt.Errorf("player: set speed while unprepared: %w", audio.ErrNotPrepared)
	}
	if s <= 0 {
		return fmt.Errorf("player: speed %v: %w", s, audio.ErrInvalidArgument)
	}
	p.speed.Store(s)
	return nil
}

// PlaybackSpeed returns the current rate multiplier.
func (p *Player) PlaybackSpeed() float64 { return p.speed.Load() }

// Duration reports the current position (DurationCurrent) or the total
// clip length (DurationMax) in milliseconds.
func (p *Player) Duration(t DurationType) (int64, error) {
	clip := p.clip.Load()
	if clip == nil {
		return 0, fmt.Errorf("player: duration while unprepared: %w", audio.ErrNotPrepared)
	}
	if t == DurationMax {
		return clip.DurationMs(), nil
	}
	return clip.frameToMs(p.pos.Load()), nil
}

// CurrentPosition returns the playback position in milliseconds. It is a
// lock-free read.
func (p *Player) CurrentPosition() (int64, error) {
	return p.Duration(DurationCurrent)
}

// Release tears the player down: stops rendering, closes the device
// session and drops the clip. The player returns to Unprepared and can be
// prepared again.
func (p *Player) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLoopLocked()
	if p.session != nil {
		p.session.Stop()
		p.session.Close()
		p.session = nil
	}
	p.sessions.Deactivate(device.UsePlayback)
	p.clip.Store(nil)
	p.pos.Store(0)
	p.ended.Store(false)
	p.state.Store(int32(StateUnprepared))
}

func (p *Player) stopLoopLocked() {
	if p.stopLoop != nil {
		close(p.stopLoop)
		p.stopLoop = nil
	}
}

// pull is the device callback: it copies clip frames into dst with the
// current gain, advancing the position by the speed multiplier per output
// frame. A short return tells the renderer to zero-fill the remainder.
func (p *Player) pull(dst []float32) int {
	clip := p.clip.Load()
	if clip == nil || p.State() != StatePlaying {
		return 0
	}

	channels := clip.channels
	total := float64(clip.Frames())
	if channels == 0 || total == 0 {
		p.ended.Store(true)
		return 0
	}

	start := p.pos.Load()
	speed := p.speed.Load()
	vol := float32(p.volume.Load())
	loop := FinishMode(p.finishMode.Load()) == FinishModeLoop

	pos := start
	frames := len(dst) / channels
	written := 0
	for f := 0; f < frames; f++ {
		if pos >= total {
			if !loop {
				p.ended.Store(true)
				break
			}
			pos = math.Mod(pos, total)
		}
		src := int(pos) * channels
		for c := 0; c < channels; c++ {
			dst[f*channels+c] = clip.data[src+c] * vol
		}
		pos += speed
		written += channels
	}

	// Publish the advance only if the position is still the one this pull
	// started from. A seek (or stop/finish reset) landing mid-buffer wins;
	// the advance for this buffer is dropped rather than undoing it.
	p.pos.CompareAndSwap(start, pos)
	return written
}

// updateLoop drives the position callback while playing and resolves
// end-of-media. It exits when stop closes or after handling the finish.
func (p *Player) updateLoop(stop chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if p.ended.Load() {
				p.finish()
				return
			}
			clip := p.clip.Load()
			if clip != nil {
				p.onUpdate.Invoke(clip.frameToMs(p.pos.Load()))
			}
		}
	}
}

// finish handles end-of-media under FinishModeStop: state goes to
// Stopped, the position resets, and the finish callback fires once.
func (p *Player) finish() {
	p.mu.Lock()
	if p.State() != StatePlaying || !p.ended.Load() {
		p.mu.Unlock()
		return
	}
	if p.session != nil {
		p.session.Stop()
	}
	p.sessions.Deactivate(device.UsePlayback)
	p.stopLoop = nil
	p.pos.Store(0)
	p.ended.Store(false)
	p.state.Store(int32(StateStopped))
	p.mu.Unlock()

	p.onFinished.Invoke(struct{}{})
}
