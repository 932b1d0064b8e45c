// SPDX-License-Identifier: EPL-2.0

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wavekit/wavekit/player"
)

func newPlayCmd(a *app) *cobra.Command {
	var (
		input  string
		volume float64
		speed  float64
		loop   bool
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play an audio file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.manager.CreatePlayer("cli")
			if err != nil {
				return err
			}
			defer a.manager.DestroyPlayer("cli")

			cfg := player.Config{Path: input, Volume: volume}
			if err := p.Prepare(cmd.Context(), cfg); err != nil {
				return err
			}

			total, _ := p.Duration(player.DurationMax)
			slog.Info("play: prepared", "path", input, "durationMs", total)

			p.OnPlaybackUpdate(func(ms int64) {
				slog.Debug("play: position", "ms", ms)
			})

			finished := make(chan struct{})
			p.OnPlaybackFinished(func() { close(finished) })

			mode := player.FinishModeStop
			if loop {
				mode = player.FinishModeLoop
			}
			if err := p.Start(mode, speed); err != nil {
				return err
			}

			select {
			case <-finished:
				return nil
			case <-cmd.Context().Done():
				return p.Stop()
			}
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "audio file to play")
	cmd.MarkFlagRequired("input")
	cmd.Flags().Float64Var(&volume, "volume", 1.0, "gain in [0,1]")
	cmd.Flags().Float64Var(&speed, "speed", 1.0, "rate multiplier")
	cmd.Flags().BoolVar(&loop, "loop", false, "loop until interrupted")
	return cmd
}
