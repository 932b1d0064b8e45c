// SPDX-License-Identifier: EPL-2.0

package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wavekit/wavekit"
	malgodev "github.com/wavekit/wavekit/device/malgo"
)

// app carries the manager and device backend shared by all subcommands.
type app struct {
	silent  bool
	verbose bool

	manager *wavekit.Manager
	backend *malgodev.Backend
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "wavekit",
		Short:         "Waveform extraction, playback and recording",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.teardown()
		},
	}

	cmd.PersistentFlags().BoolVar(&a.silent, "silent", false, "use the headless null device instead of audio hardware")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newExtractCmd(a))
	cmd.AddCommand(newPlayCmd(a))
	cmd.AddCommand(newRecordCmd(a))
	return cmd
}

func (a *app) setup() error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	opts := wavekit.Options{}
	if !a.silent {
		backend, err := malgodev.New()
		if err != nil {
			return err
		}
		a.backend = backend
		opts.Renderer = backend
		opts.Capturer = backend
	}

	a.manager = wavekit.NewManager(opts)
	return nil
}

func (a *app) teardown() error {
	var errs []error
	if a.manager != nil {
		errs = append(errs, a.manager.Shutdown())
	}
	if a.backend != nil {
		errs = append(errs, a.backend.Close())
	}
	return errors.Join(errs...)
}
