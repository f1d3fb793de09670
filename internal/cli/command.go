package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/idelchi/dupstat/internal/config"
	"github.com/idelchi/dupstat/internal/dupstat"
	"github.com/idelchi/dupstat/internal/integration"
)

// CLI represents the command-line interface.
type CLI struct {
	version string
}

// New creates a new CLI instance with the given version.
func New(version string) CLI {
	return CLI{version: version}
}

// DefaultExcludes contains the default exclusion patterns.
//
//nolint:gochecknoglobals // Config constant
var DefaultExcludes = []string{`.*\.git/.*`}

// AllowedOutputs lists the accepted --output values.
//
//nolint:gochecknoglobals // Config constant
var AllowedOutputs = []string{"table", "json", "paths"}

// flags holds the raw flag values before they are merged with the config file.
type flags struct {
	options     dupstat.Options
	output      string
	top         int
	minSize     string
	blockSize   string
	noPrefilter bool
	configPath  string
	debug       bool
	version     bool
	integration bool
	saveConfig  bool
}

// Execute runs the CLI with the provided arguments.
func (c CLI) Execute(ctx context.Context, args []string) error {
	cmd := c.Command()
	cmd.SetArgs(args)

	return cmd.ExecuteContext(ctx)
}

// Command builds the root command. Exposed for tests.
func (c CLI) Command() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "dupstat [flags] [path]",
		Short: "Find duplicate files and report the space they waste",
		Long: heredoc.Doc(`
			dupstat scans a directory tree, fingerprints every regular file and
			reports groups of files with identical content, together with the
			space that removing the extra copies would recover.

			Positional Arguments:
			  path                   Directory to scan. Defaults to current directory if not specified.

			Files are grouped by size first; only files that share a size are hashed.
			Use --verify to compare group members byte for byte instead of trusting
			the fingerprint alone.

			Defaults are read from the config file (see --config) and overridden by flags.
			Use --save-config to store the current flags as the new defaults.

			The '-i' flag prints a zsh integration that pipes the path listing to 'fzf'.
		`),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.version {
				fmt.Fprintln(cmd.OutOrStdout(), c.version)

				return nil
			}

			if f.integration {
				rendered, err := integration.Render()
				if err != nil {
					return fmt.Errorf("rendering integration script: %w", err)
				}

				fmt.Fprintln(cmd.OutOrStdout(), rendered)

				return nil
			}

			opts, err := resolve(cmd.Flags(), f, args)
			if err != nil {
				return err
			}

			if f.saveConfig {
				return saveConfig(opts, cmd.OutOrStdout())
			}

			return logic(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	fs.SortFlags = false

	fs.StringVarP(&f.output, "output", "o", "table", "Output format: table, json or paths")
	fs.IntVarP(&f.top, "top", "t", 10, "Number of duplicate groups to display in table mode (0=all)")
	fs.StringVarP(&f.options.Algorithm, "algorithm", "a", dupstat.AlgorithmMD5, "Fingerprint algorithm: md5 or blake3")
	fs.StringVar(&f.blockSize, "block-size", "64KiB", "Read size while hashing (e.g., 1MiB)")
	fs.IntVarP(&f.options.Workers, "workers", "w", 0, "Number of hashing workers (0=number of CPUs)")
	fs.BoolVar(&f.options.Verify, "verify", false, "Compare group members byte for byte")
	fs.BoolVar(&f.noPrefilter, "no-prefilter", false, "Hash every file, even those with a unique size")
	fs.BoolVar(&f.options.QuickHash, "quick", false, "Split size groups by a hash of the first block before full hashing")
	fs.StringSliceVarP(
		&f.options.Extensions,
		"ext",
		"x",
		[]string{},
		"File suffixes to include (e.g., .jpg,.png). Use '!' prefix to exclude (e.g., !.log)",
	)
	fs.StringVar(&f.minSize, "min-size", "0", "Minimum file size (e.g., 1KB)")
	fs.StringSliceVarP(&f.options.Excludes, "exclude", "e", DefaultExcludes, "Regex patterns to exclude")
	fs.IntVarP(&f.options.Depth, "depth", "d", 0, "Maximum traversal depth (0=unlimited)")
	fs.StringVarP(&f.configPath, "config", "c", "", "Config file (default: <user config dir>/dupstat/config.ini)")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug output")
	fs.BoolVarP(&f.version, "version", "v", false, "Show version and exit")
	fs.BoolVarP(&f.integration, "init", "i", false, "Output init script for shell usage")
	fs.BoolVar(&f.saveConfig, "save-config", false, "Write the effective settings to the config file and exit")

	return cmd
}

// runOptions is everything logic needs.
type runOptions struct {
	scan       dupstat.Options
	output     string
	top        int
	debug      bool
	configPath string
}

// resolve merges the config file under the flags that were not set explicitly.
//
//nolint:cyclop,funlen // Flat precedence rules
func resolve(fs *pflag.FlagSet, f flags, args []string) (runOptions, error) {
	var (
		cfg config.Config
		err error
	)

	path := f.configPath

	if path != "" {
		cfg, err = config.Load(path, true)
	} else {
		var pathErr error

		path, pathErr = config.DefaultPath()
		if pathErr != nil {
			cfg = config.Default()
		} else {
			cfg, err = config.Load(path, false)
		}
	}

	if err != nil {
		return runOptions{}, err
	}

	opts := f.options
	output := f.output
	top := f.top

	if !fs.Changed("output") {
		output = cfg.Output.Format
	}

	if !fs.Changed("top") {
		top = cfg.Output.Top
	}

	if !fs.Changed("algorithm") {
		opts.Algorithm = cfg.Scan.Algorithm
	}

	if !fs.Changed("workers") {
		opts.Workers = cfg.Scan.Workers
	}

	if !fs.Changed("verify") {
		opts.Verify = cfg.Scan.Verify
	}

	if !fs.Changed("quick") {
		opts.QuickHash = cfg.Scan.QuickHash
	}

	opts.Prefilter = !f.noPrefilter
	if !fs.Changed("no-prefilter") {
		opts.Prefilter = cfg.Scan.Prefilter
	}

	if !fs.Changed("exclude") && cfg.Scan.Excludes != nil {
		opts.Excludes = cfg.Scan.Excludes
	}

	if !fs.Changed("block-size") {
		opts.BlockSize, err = cfg.BlockSizeBytes()
		if err != nil {
			return runOptions{}, err
		}
	} else {
		size, err := humanize.ParseBytes(f.blockSize)
		if err != nil {
			return runOptions{}, fmt.Errorf("invalid block-size: %w", err)
		}

		if size == 0 {
			return runOptions{}, errors.New("block-size must be positive")
		}

		if size > dupstat.MaxBlockSize {
			return runOptions{}, fmt.Errorf("block-size must not exceed %s", humanize.IBytes(dupstat.MaxBlockSize))
		}

		opts.BlockSize = int(size) //nolint:gosec // Size conversion from humanize is safe
	}

	if !fs.Changed("min-size") {
		opts.MinSize, err = cfg.MinSizeBytes()
		if err != nil {
			return runOptions{}, err
		}
	} else {
		opts.MinSize, err = humanize.ParseBytes(f.minSize)
		if err != nil {
			return runOptions{}, fmt.Errorf("invalid min-size: %w", err)
		}
	}

	if !slices.Contains(AllowedOutputs, output) {
		return runOptions{}, fmt.Errorf("invalid output format %q: must be one of %v", output, AllowedOutputs)
	}

	if !slices.Contains(dupstat.Algorithms, opts.Algorithm) {
		return runOptions{}, fmt.Errorf("invalid algorithm %q: must be one of %v", opts.Algorithm, dupstat.Algorithms)
	}

	if opts.Depth < 0 {
		return runOptions{}, errors.New("depth cannot be negative")
	}

	if opts.Workers < 0 {
		return runOptions{}, errors.New("workers cannot be negative")
	}

	if top < 0 {
		return runOptions{}, errors.New("top cannot be negative")
	}

	if len(args) == 0 {
		opts.Path = "."
	} else {
		opts.Path = args[0]
	}

	return runOptions{scan: opts, output: output, top: top, debug: f.debug, configPath: path}, nil
}

// saveConfig writes the resolved settings as the new config file defaults.
func saveConfig(opts runOptions, w io.Writer) error {
	if opts.configPath == "" {
		return errors.New("no config file location: pass --config")
	}

	cfg := config.Config{
		Scan: config.Scan{
			Algorithm: opts.scan.Algorithm,
			BlockSize: humanize.IBytes(uint64(opts.scan.BlockSize)), //nolint:gosec // Validated positive
			Workers:   opts.scan.Workers,
			Verify:    opts.scan.Verify,
			Prefilter: opts.scan.Prefilter,
			QuickHash: opts.scan.QuickHash,
			MinSize:   humanize.IBytes(opts.scan.MinSize),
			Excludes:  opts.scan.Excludes,
		},
		Output: config.Output{Format: opts.output, Top: opts.top},
	}

	if err := cfg.Save(opts.configPath); err != nil {
		return err
	}

	fmt.Fprintf(w, "Saved settings to %s\n", opts.configPath)

	return nil
}
