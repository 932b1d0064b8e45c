// SPDX-License-Identifier: EPL-2.0

package player

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/wavekit/wavekit/audio"
	"github.com/wavekit/wavekit/formats/wav"
	"github.com/wavekit/wavekit/internal/audiotest"
)

// newTestPlayer builds a player over the fake device with a 1 second
// 8kHz mono fixture of constant amplitude 0.5.
func newTestPlayer(t *testing.T) (*Player, *audiotest.FakeRenderer, *audiotest.ScriptedSessions, string) {
	t.Helper()

	samples := make([]int16, 8000)
	for i := range samples {
		samples[i] = 16384 // 0.5 full scale
	}
	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := audiotest.WriteWAVFile(path, 8000, samples); err != nil {
		t.Fatal(err)
	}

	reg := audio.NewRegistry()
	reg.Register("wav", wav.Decoder{})

	renderer := &audiotest.FakeRenderer{}
	sessions := audiotest.NewScriptedSessions()
	return NewPlayer("test", reg, renderer, sessions), renderer, sessions, path
}

func prepare(t *testing.T, p *Player, path string) {
	t.Helper()
	if err := p.Prepare(context.Background(), Config{Path: path}); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
}

func TestPlayer_ControlsBeforePrepare(t *testing.T) {
	t.Parallel()

	p, _, _, _ := newTestPlayer(t)

	tests := []struct {
		name string
		op   func() error
		want error
	}{
		{"start", func() error { return p.Start(FinishModeStop, 1.0) }, audio.ErrNotPrepared},
		{"pause", p.Pause, audio.ErrNotPlaying},
		{"stop", p.Stop, audio.ErrNotPrepared},
		{"seek", func() error { return p.SeekTo(0) }, audio.ErrNotPrepared},
		{"set volume", func() error { return p.SetVolume(0.5) }, audio.ErrNotPrepared},
		{"set speed", func() error { return p.SetPlaybackSpeed(2.0) }, audio.ErrNotPrepared},
		{"duration", func() error { _, err := p.Duration(DurationMax); return err }, audio.ErrNotPrepared},
		{"position", func() error { _, err := p.CurrentPosition(); return err }, audio.ErrNotPrepared},
	}

	for _, tt := range tests {
		if err := tt.op(); !errors.Is(err, tt.want) {
			t.Errorf("%s before prepare: error = %v, want %v", tt.name, err, tt.want)
		}
	}
	if p.State() != StateUnprepared {
		t.Errorf("state = %v after failed operations, want unprepared", p.State())
	}
}

func TestPlayer_PrepareLoadsClip(t *testing.T) {
	t.Parallel()

	p, _, _, path := newTestPlayer(t)
	prepare(t, p, path)

	if p.State() != StatePrepared {
		t.Fatalf("state = %v, want prepared", p.State())
	}
	max, err := p.Duration(DurationMax)
	if err != nil {
		t.Fatalf("Duration() error = %v", err)
	}
	if max != 1000 {
		t.Errorf("Duration(DurationMax) = %dms, want 1000", max)
	}
	pos, err := p.CurrentPosition()
	if err != nil {
		t.Fatalf("CurrentPosition() error = %v", err)
	}
	if pos != 0 {
		t.Errorf("CurrentPosition() = %dms, want 0", pos)
	}
}

func TestPlayer_PrepareFailures(t *testing.T) {
	t.Parallel()

	p, _, _, path := newTestPlayer(t)

	if err := p.Prepare(context.Background(), Config{Path: filepath.Join(t.TempDir(), "missing.wav")}); !errors.Is(err, audio.ErrFileNotFound) {
		t.Errorf("missing file: error = %v, want ErrFileNotFound", err)
	}
	if err := p.Prepare(context.Background(), Config{}); !errors.Is(err, audio.ErrInvalidArgument) {
		t.Errorf("empty path: error = %v, want ErrInvalidArgument", err)
	}
	if err := p.Prepare(context.Background(), Config{Path: path, Volume: 1.5}); !errors.Is(err, audio.ErrInvalidArgument) {
		t.Errorf("volume 1.5: error = %v, want ErrInvalidArgument", err)
	}
	if p.State() != StateUnprepared {
		t.Errorf("state = %v after failed prepares, want unprepared", p.State())
	}
}

func TestPlayer_PrepareUnsupportedFormat(t *testing.T) {
	t.Parallel()

	p, _, _, _ := newTestPlayer(t)
	path := filepath.Join(t.TempDir(), "track.xyz")
	if err := audiotest.WriteWAVFile(path, 8000, make([]int16, 10)); err != nil {
		t.Fatal(err)
	}

	if err := p.Prepare(context.Background(), Config{Path: path}); !errors.Is(err, audio.ErrUnsupportedFormat) {
		t.Errorf("Prepare() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestPlayer_StartPauseStop(t *testing.T) {
	t.Parallel()

	p, renderer, sessions, path := newTestPlayer(t)
	prepare(t, p, path)

	if err := p.Start(FinishModeStop, 1.0); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !p.IsPlaying() {
		t.Error("IsPlaying() = false after Start")
	}
	if !renderer.Last().Started() {
		t.Error("device session not started")
	}
	if sessions.Active(0) == 0 {
		t.Error("audio session not activated")
	}

	if err := p.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if p.State() != StatePaused {
		t.Errorf("state = %v, want paused", p.State())
	}
	if renderer.Last().Started() {
		t.Error("device session still pulling while paused")
	}
	if err := p.Pause(); !errors.Is(err, audio.ErrNotPlaying) {
		t.Errorf("second Pause() error = %v, want ErrNotPlaying", err)
	}

	if err := p.Start(FinishModeStop, 1.0); err != nil {
		t.Fatalf("resume Start() error = %v", err)
	}
	if renderer.Opened() != 1 {
		t.Errorf("resume opened %d sessions, want the original reused", renderer.Opened())
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if p.State() != StateStopped {
		t.Errorf("state = %v, want stopped", p.State())
	}
	pos, _ := p.CurrentPosition()
	if pos != 0 {
		t.Errorf("position after Stop = %dms, want 0", pos)
	}

	// Stopped restarts from the top.
	if err := p.Start(FinishModeStop, 1.0); err != nil {
		t.Fatalf("Start() after Stop error = %v", err)
	}
}

func TestPlayer_StartSessionActivationFailure(t *testing.T) {
	t.Parallel()

	p, _, sessions, path := newTestPlayer(t)
	prepare(t, p, path)
	sessions.FailActivate = errors.New("focus denied")

	if err := p.Start(FinishModeStop, 1.0); !errors.Is(err, audio.ErrSessionSetup) {
		t.Fatalf("Start() error = %v, want ErrSessionSetup", err)
	}
	if p.State() != StatePrepared {
		t.Errorf("state = %v after failed Start, want prepared", p.State())
	}
}

func TestPlayer_StartDeviceOpenFailure(t *testing.T) {
	t.Parallel()

	p, renderer, sessions, path := newTestPlayer(t)
	prepare(t, p, path)
	renderer.FailOpen = errors.New("no output device")

	if err := p.Start(FinishModeStop, 1.0); !errors.Is(err, audio.ErrSessionSetup) {
		t.Fatalf("Start() error = %v, want ErrSessionSetup", err)
	}
	if p.State() != StatePrepared {
		t.Errorf("state = %v after failed Start, want prepared", p.State())
	}
	if sessions.Active(0) != 0 {
		t.Error("audio session left activated after failed Start")
	}
}

func TestPlayer_VolumeValidation(t *testing.T) {
	t.Parallel()

	p, _, _, path := newTestPlayer(t)
	prepare(t, p, path)

	if err := p.SetVolume(0.7); err != nil {
		t.Fatalf("SetVolume(0.7) error = %v", err)
	}
	for _, v := range []float64{-0.1, 1.1} {
		if err := p.SetVolume(v); !errors.Is(err, audio.ErrInvalidArgument) {
			t.Errorf("SetVolume(%v) error = %v, want ErrInvalidArgument", v, err)
		}
	}
	if got := p.Volume(); got != 0.7 {
		t.Errorf("Volume() = %v after rejected sets, want 0.7", got)
	}
}

func TestPlayer_SpeedValidation(t *testing.T) {
	t.Parallel()

	p, _, _, path := newTestPlayer(t)
	prepare(t, p, path)

	if err := p.SetPlaybackSpeed(1.5); err != nil {
		t.Fatalf("SetPlaybackSpeed(1.5) error = %v", err)
	}
	for _, s := range []float64{0, -1} {
		if err := p.SetPlaybackSpeed(s); !errors.Is(err, audio.ErrInvalidArgument) {
			t.Errorf("SetPlaybackSpeed(%v) error = %v, want ErrInvalidArgument", s, err)
		}
	}
	if got := p.PlaybackSpeed(); got != 1.5 {
		t.Errorf("PlaybackSpeed() = %v after rejected sets, want 1.5", got)
	}

	if err := p.Start(FinishModeStop, -2); !errors.Is(err, audio.ErrInvalidArgument) {
		t.Errorf("Start(speed=-2) error = %v, want ErrInvalidArgument", err)
	}
}

func TestPlayer_VolumeSpeedPersistAcrossPauseAndStop(t *testing.T) {
	t.Parallel()

	p, _, _, path := newTestPlayer(t)
	prepare(t, p, path)

	if err := p.SetVolume(0.25); err != nil {
		t.Fatal(err)
	}
	if err := p.Start(FinishModeStop, 2.0); err != nil {
		t.Fatal(err)
	}
	if err := p.Pause(); err != nil {
		t.Fatal(err)
	}
	if p.Volume() != 0.25 || p.PlaybackSpeed() != 2.0 {
		t.Errorf("after pause: volume %v speed %v, want 0.25 / 2.0", p.Volume(), p.PlaybackSpeed())
	}
	if err := p.Stop(); err != nil {
		t.Fatal(err)
	}
	if p.Volume() != 0.25 {
		t.Errorf("after stop: volume %v, want 0.25", p.Volume())
	}
}

func TestPlayer_SeekTo(t *testing.T) {
	t.Parallel()

	p, _, _, path := newTestPlayer(t)
	prepare(t, p, path)

	start := time.Now()
	if err := p.SeekTo(500); err != nil {
		t.Fatalf("SeekTo(500) error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("SeekTo took %v, want under 50ms", elapsed)
	}

	pos, err := p.CurrentPosition()
	if err != nil {
		t.Fatal(err)
	}
	if pos < 490 || pos > 510 {
		t.Errorf("CurrentPosition() = %dms after SeekTo(500), want within ±10ms", pos)
	}

	for _, ms := range []int64{-1, 1001} {
		if err := p.SeekTo(ms); !errors.Is(err, audio.ErrInvalidArgument) {
			t.Errorf("SeekTo(%d) error = %v, want ErrInvalidArgument", ms, err)
		}
	}
}

func TestPlayer_SeekDuringPullNotLost(t *testing.T) {
	t.Parallel()

	p, renderer, _, path := newTestPlayer(t)
	prepare(t, p, path)
	if err := p.Start(FinishModeStop, 1.0); err != nil {
		t.Fatal(err)
	}
	session := renderer.Last()

	// A pull in flight when the seek lands must not overwrite it with its
	// stale advance: afterwards the position is at or past the target,
	// never back near the start of the clip.
	for range 200 {
		if err := p.SeekTo(0); err != nil {
			t.Fatal(err)
		}

		done := make(chan struct{})
		go func() {
			session.Pump(100)
			close(done)
		}()
		if err := p.SeekTo(500); err != nil {
			t.Fatal(err)
		}
		<-done

		pos, err := p.CurrentPosition()
		if err != nil {
			t.Fatal(err)
		}
		// The 100 pumped frames advance at most ~13ms past the target.
		if pos < 490 || pos > 520 {
			t.Fatalf("CurrentPosition() = %dms after SeekTo(500), seek lost to in-flight pull", pos)
		}
	}
}

func TestPlayer_PullAppliesVolumeAndAdvances(t *testing.T) {
	t.Parallel()

	p, renderer, _, path := newTestPlayer(t)
	prepare(t, p, path)
	if err := p.SetVolume(0.5); err != nil {
		t.Fatal(err)
	}
	if err := p.Start(FinishModeStop, 1.0); err != nil {
		t.Fatal(err)
	}

	buf := renderer.Last().Pump(100)
	for i, v := range buf {
		// fixture amplitude 0.5, gain 0.5
		if v < 0.24 || v > 0.26 {
			t.Fatalf("sample %d = %v, want ~0.25", i, v)
		}
	}

	pos, _ := p.CurrentPosition()
	// 100 frames at 8kHz = 12.5ms
	if pos < 10 || pos > 15 {
		t.Errorf("position after 100 frames = %dms, want ~12ms", pos)
	}
}

func TestPlayer_SpeedScalesAdvance(t *testing.T) {
	t.Parallel()

	p, renderer, _, path := newTestPlayer(t)
	prepare(t, p, path)
	if err := p.Start(FinishModeStop, 2.0); err != nil {
		t.Fatal(err)
	}

	renderer.Last().Pump(100)
	pos, _ := p.CurrentPosition()
	// 100 output frames at speed 2 consume 200 source frames = 25ms.
	if pos < 23 || pos > 27 {
		t.Errorf("position = %dms at speed 2, want ~25ms", pos)
	}
}

func TestPlayer_FinishModeStopFiresOnce(t *testing.T) {
	t.Parallel()

	p, renderer, _, _ := newTestPlayer(t)

	// Tiny clip so one pump reaches end-of-media.
	path := filepath.Join(t.TempDir(), "short.wav")
	if err := audiotest.WriteWAVFile(path, 8000, make([]int16, 100)); err != nil {
		t.Fatal(err)
	}
	if err := p.Prepare(context.Background(), Config{Path: path, UpdateFrequency: UpdateFine}); err != nil {
		t.Fatal(err)
	}

	finished := make(chan struct{}, 4)
	p.OnPlaybackFinished(func() { finished <- struct{}{} })

	if err := p.Start(FinishModeStop, 1.0); err != nil {
		t.Fatal(err)
	}
	renderer.Last().Pump(200)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("finish callback never fired")
	}

	if p.State() != StateStopped {
		t.Errorf("state = %v after finish, want stopped", p.State())
	}
	pos, _ := p.CurrentPosition()
	if pos != 0 {
		t.Errorf("position after finish = %dms, want 0", pos)
	}

	// One-shot: no second delivery.
	select {
	case <-finished:
		t.Error("finish callback fired more than once")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPlayer_FinishModeLoopNeverFires(t *testing.T) {
	t.Parallel()

	p, renderer, _, _ := newTestPlayer(t)

	path := filepath.Join(t.TempDir(), "short.wav")
	samples := make([]int16, 100)
	for i := range samples {
		samples[i] = 16384
	}
	if err := audiotest.WriteWAVFile(path, 8000, samples); err != nil {
		t.Fatal(err)
	}
	if err := p.Prepare(context.Background(), Config{Path: path, UpdateFrequency: UpdateFine}); err != nil {
		t.Fatal(err)
	}

	finished := make(chan struct{}, 1)
	p.OnPlaybackFinished(func() { finished <- struct{}{} })

	if err := p.Start(FinishModeLoop, 1.0); err != nil {
		t.Fatal(err)
	}

	// Two and a half clip lengths: playback must wrap, not stop.
	buf := renderer.Last().Pump(250)
	for i, v := range buf {
		if v < 0.49 || v > 0.51 {
			t.Fatalf("sample %d = %v after wrap, want ~0.5", i, v)
		}
	}

	select {
	case <-finished:
		t.Error("finish callback fired in loop mode")
	case <-time.After(100 * time.Millisecond):
	}
	if !p.IsPlaying() {
		t.Error("player left Playing state in loop mode")
	}
}

func TestPlayer_UpdateCallbackDelivers(t *testing.T) {
	t.Parallel()

	p, renderer, _, path := newTestPlayer(t)
	if err := p.Prepare(context.Background(), Config{Path: path, UpdateFrequency: UpdateFine}); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var positions []int64
	p.OnPlaybackUpdate(func(ms int64) {
		mu.Lock()
		positions = append(positions, ms)
		mu.Unlock()
	})

	if err := p.Start(FinishModeStop, 1.0); err != nil {
		t.Fatal(err)
	}
	renderer.Last().Pump(800) // 100ms of audio
	time.Sleep(80 * time.Millisecond)
	if err := p.Pause(); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(positions) == 0 {
		t.Fatal("no position updates delivered")
	}
	for _, ms := range positions {
		if ms < 0 || ms > 1000 {
			t.Errorf("position update %dms outside clip", ms)
		}
	}
}

func TestPlayer_Isolation(t *testing.T) {
	t.Parallel()

	p1, r1, _, path1 := newTestPlayer(t)
	p2, r2, _, path2 := newTestPlayer(t)
	prepare(t, p1, path1)
	prepare(t, p2, path2)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p1.SetVolume(0.3)
		p1.SetPlaybackSpeed(1.0)
		p1.SeekTo(100)
		p1.Start(FinishModeStop, 1.0)
		r1.Last().Pump(80)
	}()
	go func() {
		defer wg.Done()
		p2.SetVolume(0.9)
		p2.SetPlaybackSpeed(2.0)
		p2.SeekTo(600)
		p2.Start(FinishModeLoop, 2.0)
		r2.Last().Pump(80)
	}()
	wg.Wait()

	if v := p1.Volume(); v != 0.3 {
		t.Errorf("p1 volume = %v, want 0.3", v)
	}
	if v := p2.Volume(); v != 0.9 {
		t.Errorf("p2 volume = %v, want 0.9", v)
	}
	if s := p1.PlaybackSpeed(); s != 1.0 {
		t.Errorf("p1 speed = %v, want 1.0", s)
	}
	if s := p2.PlaybackSpeed(); s != 2.0 {
		t.Errorf("p2 speed = %v, want 2.0", s)
	}

	pos1, _ := p1.CurrentPosition()
	pos2, _ := p2.CurrentPosition()
	// p1: 100ms + 80 frames (10ms); p2: 600ms + 160 source frames (20ms).
	if pos1 < 105 || pos1 > 115 {
		t.Errorf("p1 position = %dms, want ~110ms", pos1)
	}
	if pos2 < 615 || pos2 > 625 {
		t.Errorf("p2 position = %dms, want ~620ms", pos2)
	}
}

func TestPlayer_Release(t *testing.T) {
	t.Parallel()

	p, renderer, sessions, path := newTestPlayer(t)
	prepare(t, p, path)
	if err := p.Start(FinishModeStop, 1.0); err != nil {
		t.Fatal(err)
	}

	p.Release()

	if p.State() != StateUnprepared {
		t.Errorf("state = %v after Release, want unprepared", p.State())
	}
	if !renderer.Last().Closed() {
		t.Error("device session not closed by Release")
	}
	if sessions.Active(0) != 0 {
		t.Error("audio session left activated after Release")
	}

	// The player is reusable after Release.
	prepare(t, p, path)
	if err := p.Start(FinishModeStop, 1.0); err != nil {
		t.Fatalf("Start() after Release error = %v", err)
	}
}

func TestPlayer_PrepareWhilePlayingRejected(t *testing.T) {
	t.Parallel()

	p, _, _, path := newTestPlayer(t)
	prepare(t, p, path)
	if err := p.Start(FinishModeStop, 1.0); err != nil {
		t.Fatal(err)
	}

	if err := p.Prepare(context.Background(), Config{Path: path}); !errors.Is(err, audio.ErrBusy) {
		t.Errorf("Prepare() while playing error = %v, want ErrBusy", err)
	}
	if !p.IsPlaying() {
		t.Error("failed Prepare changed the playing state")
	}
}
