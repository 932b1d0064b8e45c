// SPDX-License-Identifier: EPL-2.0

package main

import (
	"encoding/json"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wavekit/wavekit/waveform"
)

// extractResult is the JSON shape written to stdout.
type extractResult struct {
	Path            string      `json:"path"`
	SamplesPerPixel int         `json:"samplesPerPixel"`
	Channels        int         `json:"channels"`
	Points          [][]float32 `json:"points"`
}

func newExtractCmd(a *app) *cobra.Command {
	var (
		input     string
		pixels    int
		normalize bool
		scale     float32
		threshold float32
		mono      bool
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract a downsampled waveform as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ext, err := a.manager.CreateExtractor("cli")
			if err != nil {
				return err
			}
			defer a.manager.DestroyExtractor("cli")

			ext.OnProgress(func(p float64) {
				slog.Debug("extract: progress", "done", p)
			})

			points, err := ext.Extract(cmd.Context(), waveform.Config{
				Path:            input,
				SamplesPerPixel: pixels,
				Normalize:       normalize,
				Scale:           scale,
				Threshold:       threshold,
				Mono:            mono,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(extractResult{
				Path:            input,
				SamplesPerPixel: pixels,
				Channels:        len(points),
				Points:          points,
			})
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "audio file to extract")
	cmd.MarkFlagRequired("input")
	cmd.Flags().IntVarP(&pixels, "pixels", "p", 256, "window size in source frames per output point")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "rescale so the global peak maps to --scale")
	cmd.Flags().Float32Var(&scale, "scale", 1.0, "normalization target")
	cmd.Flags().Float32Var(&threshold, "threshold", 0, "zero output magnitudes below this value")
	cmd.Flags().BoolVar(&mono, "mono", false, "collapse channels before reduction")
	return cmd
}
