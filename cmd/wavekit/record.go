// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/wavekit/wavekit/recorder"
)

func newRecordCmd(a *app) *cobra.Command {
	var (
		output   string
		duration time.Duration
		rate     int
		channels int
		legacy   bool
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record from the default input device to a WAV file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := a.manager.CreateRecorder("cli")
			if err != nil {
				return err
			}
			defer a.manager.DestroyRecorder("cli")

			norm := recorder.NormalizationPeak
			if legacy {
				norm = recorder.NormalizationLegacyAverage
			}

			r.OnDecibelUpdate(func(db float64) {
				slog.Info("record: level", "db", fmt.Sprintf("%.1f", db))
			})

			err = r.Start(cmd.Context(), recorder.Config{
				Path:          output,
				SampleRate:    rate,
				Channels:      channels,
				Normalization: norm,
			})
			if err != nil {
				return err
			}

			select {
			case <-time.After(duration):
			case <-cmd.Context().Done():
			}

			path, err := r.Stop()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output WAV path (default: temp file)")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 5*time.Second, "how long to record")
	cmd.Flags().IntVar(&rate, "rate", 44100, "capture sample rate in Hz")
	cmd.Flags().IntVar(&channels, "channels", 1, "capture channel count")
	cmd.Flags().BoolVar(&legacy, "legacy-meter", false, "use the legacy average-power decibel mode")
	return cmd
}
