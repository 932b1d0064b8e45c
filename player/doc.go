// SPDX-License-Identifier: EPL-2.0

// Package player implements per-instance playback with an explicit state
// machine: Unprepared → Prepared → Playing ⇄ Paused → Stopped, where
// Stopped starts again from the top of the clip.
//
// Prepare decodes the whole file into a Clip so SeekTo and loop wrap are
// index moves on memory. Rendering happens through a device.RenderSession
// pulling interleaved frames; gain and the speed multiplier are applied
// inside the pull, so SetVolume and SetPlaybackSpeed take effect on the
// next buffer without reopening anything.
//
//	p := player.NewPlayer("p1", decoders, renderer, sessions)
//	if err := p.Prepare(ctx, player.Config{Path: "track.mp3"}); err != nil {
//		return err
//	}
//	p.OnPlaybackFinished(func() { log.Println("done") })
//	if err := p.Start(player.FinishModeStop, 1.0); err != nil {
//		return err
//	}
//
// Each playing player owns one update-loop goroutine that fires the
// position callback at the configured tier and resolves end-of-media:
// under FinishModeStop the finish callback fires exactly once and the
// player lands in Stopped; under FinishModeLoop playback wraps and the
// callback never fires.
package player
