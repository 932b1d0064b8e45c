// SPDX-License-Identifier: EPL-2.0

// Command wavekit extracts waveforms, plays audio files and records from
// the default input device.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "wavekit:", err)
		os.Exit(1)
	}
}
