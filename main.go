// Command dupstat finds duplicate files and reports the space they waste.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/idelchi/dupstat/internal/cli"
)

// version is set at build time with -ldflags.
//
//nolint:gochecknoglobals // Build-time variable
var version = "unknown - unofficial & generated by unknown"

func main() {
	// Interrupting a scan still prints the partial report.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.New(version).Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "dupstat: %v\n", err)

		stop()
		os.Exit(1)
	}
}
