// Package config loads dupstat defaults from an ini file.
//
// The file has two sections:
//
//	[scan]
//	algorithm  = md5
//	block_size = 64KiB
//	workers    = 0
//	verify     = false
//	prefilter  = true
//	quick_hash = false
//	min_size   = 0
//	excludes   = .*\.git/.*, .*node_modules/.*
//
//	[output]
//	format = table
//	top    = 10
//
// Missing keys keep their defaults. Excludes stays nil unless the file sets it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/go-ini/ini"

	"github.com/idelchi/dupstat/internal/dupstat"
)

// FileName is the config file name inside the user config directory.
const FileName = "config.ini"

// Scan holds the [scan] section.
type Scan struct {
	Algorithm string   `ini:"algorithm"`
	BlockSize string   `ini:"block_size"`
	Workers   int      `ini:"workers"`
	Verify    bool     `ini:"verify"`
	Prefilter bool     `ini:"prefilter"`
	QuickHash bool     `ini:"quick_hash"`
	MinSize   string   `ini:"min_size"`
	Excludes  []string `ini:"excludes" delim:","`
}

// Output holds the [output] section.
type Output struct {
	Format string `ini:"format"`
	Top    int    `ini:"top"`
}

// Config is the parsed config file.
type Config struct {
	// Path is the file the values came from, empty when defaults were used.
	Path   string
	Scan   Scan
	Output Output
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Scan: Scan{
			Algorithm: "md5",
			BlockSize: "64KiB",
			Prefilter: true,
			MinSize:   "0",
		},
		Output: Output{
			Format: "table",
			Top:    10,
		},
	}
}

// DefaultPath returns the config file location under os.UserConfigDir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating user config directory: %w", err)
	}

	return filepath.Join(dir, "dupstat", FileName), nil
}

// Load reads the config at path over the defaults. When required is false a
// missing file yields the defaults.
func Load(path string, required bool) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}

		return cfg, fmt.Errorf("accessing config file %q: %w", path, err)
	}

	file, err := ini.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("loading config file %q: %w", path, err)
	}

	if err := file.Section("scan").MapTo(&cfg.Scan); err != nil {
		return cfg, fmt.Errorf("parsing [scan] in %q: %w", path, err)
	}

	if err := file.Section("output").MapTo(&cfg.Output); err != nil {
		return cfg, fmt.Errorf("parsing [output] in %q: %w", path, err)
	}

	if _, err := cfg.BlockSizeBytes(); err != nil {
		return cfg, err
	}

	if _, err := cfg.MinSizeBytes(); err != nil {
		return cfg, err
	}

	cfg.Path = path

	return cfg, nil
}

// BlockSizeBytes parses Scan.BlockSize.
func (c Config) BlockSizeBytes() (int, error) {
	size, err := humanize.ParseBytes(c.Scan.BlockSize)
	if err != nil {
		return 0, fmt.Errorf("invalid block_size %q: %w", c.Scan.BlockSize, err)
	}

	if size == 0 {
		return 0, fmt.Errorf("invalid block_size %q: must be positive", c.Scan.BlockSize)
	}

	if size > dupstat.MaxBlockSize {
		return 0, fmt.Errorf("invalid block_size %q: must not exceed %s", c.Scan.BlockSize, humanize.IBytes(dupstat.MaxBlockSize))
	}

	return int(size), nil //nolint:gosec // Block sizes are small
}

// MinSizeBytes parses Scan.MinSize.
func (c Config) MinSizeBytes() (uint64, error) {
	size, err := humanize.ParseBytes(c.Scan.MinSize)
	if err != nil {
		return 0, fmt.Errorf("invalid min_size %q: %w", c.Scan.MinSize, err)
	}

	return size, nil
}

// Save writes the configuration to path, creating parent directories.
func (c Config) Save(path string) error {
	file := ini.Empty()

	if err := file.Section("scan").ReflectFrom(&c.Scan); err != nil {
		return fmt.Errorf("encoding [scan]: %w", err)
	}

	if err := file.Section("output").ReflectFrom(&c.Output); err != nil {
		return fmt.Errorf("encoding [output]: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec,mnd // Standard config dir mode
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := file.SaveTo(path); err != nil {
		return fmt.Errorf("saving config file %q: %w", path, err)
	}

	return nil
}
