package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/idelchi/dupstat/internal/dupstat"
)

// newLogger returns the stderr logger shared by the CLI and the engine.
func newLogger(w io.Writer, debug bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix: "dupstat",
	})

	if debug {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}

	return logger
}

func logic(ctx context.Context, opts runOptions, stdout io.Writer) error {
	enableProgress := opts.output == "table" &&
		!opts.debug &&
		isatty.IsTerminal(os.Stderr.Fd())

	opts.scan.Logger = newLogger(os.Stderr, opts.debug)

	// Per-file warnings would tear the progress line; they are listed in the report instead.
	if enableProgress {
		opts.scan.Logger.SetLevel(log.ErrorLevel)
	}

	// Simple progress callback that prints directly to stderr
	var progressHook func(dupstat.Progress)

	if enableProgress {
		// Hide cursor for in-place updates; restore on exit.
		fmt.Fprint(os.Stderr, "\033[?25l")
		defer fmt.Fprint(os.Stderr, "\033[?25h")

		progressHook = func(p dupstat.Progress) {
			msg := fmt.Sprintf("Scanning… %d files found, %d read, %s",
				p.Discovered, p.Scanned, humanize.IBytes(p.Bytes))
			fmt.Fprintf(os.Stderr, "\r\033[2K%s\r", msg)
		}
	}

	result, err := dupstat.Run(ctx, opts.scan, progressHook)

	// Clear the status line
	if enableProgress {
		fmt.Fprint(os.Stderr, "\r\033[2K\r")
	}

	if err != nil {
		return err
	}

	if result.Partial {
		opts.scan.Logger.Warn("scan interrupted, results are partial")
	}

	switch opts.output {
	case "json":
		return PrintJSON(result, stdout)
	case "paths":
		return PrintPaths(result, stdout)
	case "table":
		return PrintTable(result, opts.top, stdout)
	default:
		return fmt.Errorf("unknown output format: %s", opts.output)
	}
}
