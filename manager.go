// SPDX-License-Identifier: EPL-2.0

package wavekit

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wavekit/wavekit/audio"
	"github.com/wavekit/wavekit/device"
	"github.com/wavekit/wavekit/formats/aiff"
	"github.com/wavekit/wavekit/formats/mp3"
	"github.com/wavekit/wavekit/formats/vorbis"
	"github.com/wavekit/wavekit/formats/wav"
	"github.com/wavekit/wavekit/player"
	"github.com/wavekit/wavekit/recorder"
	"github.com/wavekit/wavekit/waveform"
)

// DefaultMaxInstances is the per-kind ceiling of live instances.
const DefaultMaxInstances = 30

// Options configures a Manager. The zero value is fully usable: default
// decoders, the null device, granted permissions and no-op sessions.
type Options struct {
	// Decoders maps file extensions to decoders; nil selects
	// DefaultDecoders.
	Decoders *audio.Registry

	// Renderer opens playback streams; nil selects device.NullRenderer.
	Renderer device.Renderer

	// Capturer opens capture streams; nil selects device.NullCapturer.
	Capturer device.Capturer

	// Permissions gates recording; nil grants unconditionally.
	Permissions device.PermissionService

	// Sessions is the OS audio session collaborator; nil selects
	// device.NopSessions.
	Sessions device.SessionManager

	// PoolSize is the extraction worker count; 0 selects NumCPU.
	PoolSize int

	// MaxInstances is the per-kind ceiling; 0 selects
	// DefaultMaxInstances.
	MaxInstances int
}

func (o Options) withDefaults() Options {
	if o.Decoders == nil {
		o.Decoders = DefaultDecoders()
	}
	if o.Renderer == nil {
		o.Renderer = device.NullRenderer()
	}
	if o.Capturer == nil {
		o.Capturer = device.NullCapturer()
	}
	if o.Permissions == nil {
		o.Permissions = device.StaticPermission(device.PermissionGranted)
	}
	if o.Sessions == nil {
		o.Sessions = device.NopSessions()
	}
	if o.MaxInstances == 0 {
		o.MaxInstances = DefaultMaxInstances
	}
	return o
}

// DefaultDecoders returns a registry with every built-in format
// registered under its usual extensions.
func DefaultDecoders() *audio.Registry {
	reg := audio.NewRegistry()
	reg.Register("wav", wav.Decoder{})
	reg.Register("wave", wav.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{})
	reg.Register("oga", vorbis.Decoder{})
	reg.Register("aiff", aiff.Decoder{})
	reg.Register("aif", aiff.Decoder{})
	return reg
}

// Manager owns the live Extractor, Player and Recorder instances, keyed
// by caller-chosen strings, unique per kind, at most MaxInstances each.
//
// All engines created by one Manager share its worker pool and device
// collaborators, but never any per-instance state: an error or control
// change on one instance is never observable on another.
type Manager struct {
	opts Options
	pool *waveform.Pool

	extractors *store[*waveform.Extractor]
	players    *store[*player.Player]
	recorders  *store[*recorder.Recorder]

	watcherStop chan struct{}
	closeOnce   sync.Once
}

// NewManager returns a Manager with opts' defaults filled in and the
// session-event watcher running.
func NewManager(opts Options) *Manager {
	opts = opts.withDefaults()

	m := &Manager{
		opts:        opts,
		pool:        waveform.NewPool(opts.PoolSize),
		extractors:  newStore[*waveform.Extractor](opts.MaxInstances),
		players:     newStore[*player.Player](opts.MaxInstances),
		recorders:   newStore[*recorder.Recorder](opts.MaxInstances),
		watcherStop: make(chan struct{}),
	}
	go m.watchSessions()
	return m
}

// CreateExtractor registers a new extractor under key.
// A duplicate key fails with audio.ErrDuplicateKey; exceeding the
// per-kind ceiling fails with audio.ErrResourceExhausted.
func (m *Manager) CreateExtractor(key string) (*waveform.Extractor, error) {
	return create(m.extractors, "extractor", key, func() *waveform.Extractor {
		return waveform.NewExtractor(key, m.opts.Decoders, m.pool)
	})
}

// Extractor returns the live extractor under key, if any.
func (m *Manager) Extractor(key string) (*waveform.Extractor, bool) {
	return m.extractors.get(key)
}

// DestroyExtractor cancels any in-flight extraction and releases the
// key. Cancellation is cooperative: the in-flight Extract call resolves
// to audio.ErrCancelled within one window-range poll of its workers and
// releases its buffers as it returns, which may be shortly after
// DestroyExtractor itself returns. Destroying an unknown key is a no-op.
func (m *Manager) DestroyExtractor(key string) {
	if ext, ok := m.extractors.remove(key); ok {
		ext.Cancel()
	}
}

// CreatePlayer registers a new player under key.
func (m *Manager) CreatePlayer(key string) (*player.Player, error) {
	return create(m.players, "player", key, func() *player.Player {
		return player.NewPlayer(key, m.opts.Decoders, m.opts.Renderer, m.opts.Sessions)
	})
}

// Player returns the live player under key, if any.
func (m *Manager) Player(key string) (*player.Player, bool) {
	return m.players.get(key)
}

// DestroyPlayer releases the player's device session and its key.
// Destroying an unknown key is a no-op.
func (m *Manager) DestroyPlayer(key string) {
	if p, ok := m.players.remove(key); ok {
		p.Release()
	}
}

// CreateRecorder registers a new recorder under key.
func (m *Manager) CreateRecorder(key string) (*recorder.Recorder, error) {
	return create(m.recorders, "recorder", key, func() *recorder.Recorder {
		return recorder.NewRecorder(key, m.opts.Capturer, m.opts.Permissions, m.opts.Sessions)
	})
}

// Recorder returns the live recorder under key, if any.
func (m *Manager) Recorder(key string) (*recorder.Recorder, bool) {
	return m.recorders.get(key)
}

// DestroyRecorder stops any active session and releases the key.
// Destroying an unknown key is a no-op.
func (m *Manager) DestroyRecorder(key string) error {
	r, ok := m.recorders.remove(key)
	if !ok || r.State() == recorder.StateIdle {
		return nil
	}
	_, err := r.Stop()
	return err
}

// StopAllExtractors cancels every in-flight extraction. Cancellation is
// cooperative; jobs resolve to audio.ErrCancelled shortly after.
func (m *Manager) StopAllExtractors() {
	for _, ext := range m.extractors.all() {
		ext.Cancel()
	}
}

// StopAllPlayers stops every prepared player, aggregating failures.
// Unprepared players have nothing to stop and are skipped.
func (m *Manager) StopAllPlayers() error {
	var errs []error
	for _, p := range m.players.all() {
		if p.State() == player.StateUnprepared {
			continue
		}
		if err := p.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("player %q: %w", p.Key(), err))
		}
	}
	return errors.Join(errs...)
}

// StopAllRecorders stops every active recording, aggregating failures.
// Idle recorders are skipped.
func (m *Manager) StopAllRecorders() error {
	var errs []error
	for _, r := range m.recorders.all() {
		if r.State() == recorder.StateIdle {
			continue
		}
		if _, err := r.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("recorder %q: %w", r.Key(), err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown stops all instances of every kind, destroys them and releases
// the worker pool. The Manager must not be used afterwards.
func (m *Manager) Shutdown() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.watcherStop)

		m.StopAllExtractors()
		err = errors.Join(m.StopAllPlayers(), m.StopAllRecorders())

		for _, p := range m.players.all() {
			p.Release()
		}
		m.extractors.clear()
		m.players.clear()
		m.recorders.clear()

		m.pool.Close()
	})
	return err
}

// watchSessions maps OS session events onto pause transitions: an
// interruption or a permanent focus loss pauses every playing player and
// every recording recorder. Resuming is the caller's decision.
func (m *Manager) watchSessions() {
	for {
		select {
		case <-m.watcherStop:
			return
		case ev, ok := <-m.opts.Sessions.Events():
			if !ok {
				return
			}
			if ev.Kind != device.EventInterruption && ev.Kind != device.EventFocusLoss {
				continue
			}
			for _, p := range m.players.all() {
				if p.IsPlaying() {
					if err := p.Pause(); err != nil {
						slog.Error("wavekit: pause on session event", "player", p.Key(), "err", err)
					}
				}
			}
			for _, r := range m.recorders.all() {
				if r.State() == recorder.StateRecording {
					if err := r.Pause(); err != nil {
						slog.Error("wavekit: pause on session event", "recorder", r.Key(), "err", err)
					}
				}
			}
		}
	}
}

// create adds a new instance to s, enforcing key and ceiling rules.
func create[T any](s *store[T], kind, key string, build func() T) (T, error) {
	var zero T
	if key == "" {
		return zero, fmt.Errorf("wavekit: %s: empty key: %w", kind, audio.ErrInvalidArgument)
	}
	return s.add(kind, key, build)
}

// store is the per-kind instance map: single-writer mutations, lock-held
// reads that never block writers indefinitely.
type store[T any] struct {
	mu    sync.RWMutex
	max   int
	items map[string]T
}

func newStore[T any](max int) *store[T] {
	return &store[T]{
		max:   max,
		items: make(map[string]T),
	}
}

func (s *store[T]) add(kind, key string, build func() T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if _, ok := s.items[key]; ok {
		return zero, fmt.Errorf("wavekit: %s %q: %w", kind, key, audio.ErrDuplicateKey)
	}
	if len(s.items) >= s.max {
		return zero, fmt.Errorf("wavekit: %s ceiling %d: %w", kind, s.max, audio.ErrResourceExhausted)
	}

	item := build()
	s.items[key] = item
	return item, nil
}

func (s *store[T]) get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[key]
	return item, ok
}

func (s *store[T]) remove(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	return item, ok
}

func (s *store[T]) all() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]T, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	return items
}

func (s *store[T]) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *store[T]) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
}
