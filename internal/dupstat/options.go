package dupstat

import (
	"time"

	"github.com/charmbracelet/log"
)

const (
	// DefaultBlockSize is the read size used while fingerprinting.
	DefaultBlockSize = 64 * 1024
	// MaxBlockSize bounds the per-worker read buffers.
	MaxBlockSize = 64 * 1024 * 1024
	// DefaultProgressInterval is the default interval for progress updates.
	DefaultProgressInterval = 500 * time.Millisecond
)

// Options configures a duplicate scan.
type Options struct {
	// Path is the directory to scan.
	Path string
	// Algorithm names the fingerprint digest (md5 or blake3).
	Algorithm string
	// BlockSize is the fingerprint read size in bytes.
	BlockSize int
	// Workers is the number of concurrent fingerprint workers (0 = NumCPU).
	Workers int
	// Verify enables a byte-for-byte comparison within each signature group.
	Verify bool
	// Prefilter skips hashing files whose size is unique.
	Prefilter bool
	// QuickHash splits size buckets by a hash of the first block before full hashing.
	QuickHash bool
	// Extensions to include (empty = all). A '!' prefix excludes.
	Extensions []string
	// Excludes contains regex patterns to exclude.
	Excludes []string
	// MinSize is the minimum file size in bytes.
	MinSize uint64
	// Depth is the maximum traversal depth (0=unlimited).
	Depth int
	// ProgressInterval controls progress callback cadence.
	ProgressInterval time.Duration
	// Logger receives skip and debug messages. Nil discards them.
	Logger *log.Logger
	// Fingerprinter overrides the digest built from Algorithm and BlockSize.
	Fingerprinter Fingerprinter
}
